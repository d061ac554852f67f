package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		got, err := ParseCategory(string(c))
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}

	got, err := ParseCategory(" Critical ")
	require.NoError(t, err)
	assert.Equal(t, CategoryCritical, got)

	_, err = ParseCategory("time_rules")
	assert.Error(t, err)
}

func TestCategoryKeysAndTitles(t *testing.T) {
	assert.Equal(t, "time_rules", CategoryTime.PayloadKey())
	assert.Equal(t, "permission_gates", CategoryPermission.PayloadKey())
	assert.Equal(t, "Conditional Workflows", CategoryWorkflow.Title())
}

func TestRuleDescriptionFallbacks(t *testing.T) {
	tests := []struct {
		rule Rule
		want string
	}{
		{Rule{Context: "ctx", Rule: "rule", Pattern: "pat"}, "ctx"},
		{Rule{Rule: "rule", Pattern: "pat"}, "rule"},
		{Rule{Pattern: "pat"}, "pat"},
		{Rule{}, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.rule.Description())
	}
}

func TestRuleFileLabel(t *testing.T) {
	assert.Equal(t, UnknownFile, Rule{}.FileLabel())
	assert.Equal(t, "a.md", Rule{File: "a.md"}.FileLabel())
}

func TestRuleSetAccessors(t *testing.T) {
	var rs RuleSet
	for i, c := range Categories {
		assert.Nil(t, rs.Rules(c))
		rs.Set(c, make([]Rule, i+1))
	}
	for i, c := range Categories {
		assert.Len(t, rs.Rules(c), i+1)
	}

	var nilSet *RuleSet
	assert.Nil(t, nilSet.Rules(CategoryTime))
}
