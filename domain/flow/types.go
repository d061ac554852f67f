// Package flow holds the classified behavior-rule model shared by the
// extractor backend and the dashboard.
package flow

import (
	"fmt"
	"strings"
)

// Category is one of the five fixed rule classifications
type Category string

const (
	CategoryTime       Category = "time"
	CategoryMode       Category = "mode"
	CategoryWorkflow   Category = "workflow"
	CategoryCritical   Category = "critical"
	CategoryPermission Category = "permission"
)

// UnknownFile is the label shown for rules without an originating file
const UnknownFile = "Unknown"

// Categories lists every category in display order
var Categories = []Category{
	CategoryTime,
	CategoryMode,
	CategoryWorkflow,
	CategoryCritical,
	CategoryPermission,
}

var categoryKeys = map[Category]string{
	CategoryTime:       "time_rules",
	CategoryMode:       "mode_switches",
	CategoryWorkflow:   "conditional_workflows",
	CategoryCritical:   "critical_rules",
	CategoryPermission: "permission_gates",
}

var categoryTitles = map[Category]string{
	CategoryTime:       "Time Rules",
	CategoryMode:       "Mode Switches",
	CategoryWorkflow:   "Conditional Workflows",
	CategoryCritical:   "Critical Rules",
	CategoryPermission: "Permission Gates",
}

// ParseCategory validates a category key such as "time"
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := categoryKeys[c]; !ok {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// PayloadKey is the JSON field carrying this category's rules
func (c Category) PayloadKey() string {
	return categoryKeys[c]
}

// Title is the human readable category name
func (c Category) Title() string {
	return categoryTitles[c]
}

func (c Category) String() string {
	return string(c)
}

// Rule is one classified entry. Only File and the description are needed by
// the dashboard; the remaining fields are filled by the extractor.
type Rule struct {
	Type      string  `json:"type" yaml:"type"`
	File      string  `json:"file" yaml:"file"`
	Context   string  `json:"context" yaml:"context"`
	Rule      string  `json:"rule,omitempty" yaml:"rule,omitempty"`
	Pattern   string  `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Start     *string `json:"start,omitempty" yaml:"start,omitempty"`
	End       *string `json:"end,omitempty" yaml:"end,omitempty"`
	Mode      *string `json:"mode,omitempty" yaml:"mode,omitempty"`
	Condition *string `json:"condition,omitempty" yaml:"condition,omitempty"`
	Action    *string `json:"action,omitempty" yaml:"action,omitempty"`
}

// FileLabel returns the originating file or UnknownFile
func (r Rule) FileLabel() string {
	if r.File == "" {
		return UnknownFile
	}
	return r.File
}

// Description is the first non-empty of context, rule and pattern
func (r Rule) Description() string {
	for _, s := range []string{r.Context, r.Rule, r.Pattern} {
		if s != "" {
			return s
		}
	}
	return ""
}

// RuleSet groups rules by category. A nil sequence means the category was
// absent from the payload.
type RuleSet struct {
	TimeRules            []Rule `json:"time_rules" yaml:"time_rules"`
	ModeSwitches         []Rule `json:"mode_switches" yaml:"mode_switches"`
	ConditionalWorkflows []Rule `json:"conditional_workflows" yaml:"conditional_workflows"`
	CriticalRules        []Rule `json:"critical_rules" yaml:"critical_rules"`
	PermissionGates      []Rule `json:"permission_gates" yaml:"permission_gates"`
}

// Rules returns the ordered sequence for a category
func (rs *RuleSet) Rules(c Category) []Rule {
	if rs == nil {
		return nil
	}
	switch c {
	case CategoryTime:
		return rs.TimeRules
	case CategoryMode:
		return rs.ModeSwitches
	case CategoryWorkflow:
		return rs.ConditionalWorkflows
	case CategoryCritical:
		return rs.CriticalRules
	case CategoryPermission:
		return rs.PermissionGates
	}
	return nil
}

// Set replaces the sequence for a category
func (rs *RuleSet) Set(c Category, rules []Rule) {
	switch c {
	case CategoryTime:
		rs.TimeRules = rules
	case CategoryMode:
		rs.ModeSwitches = rules
	case CategoryWorkflow:
		rs.ConditionalWorkflows = rules
	case CategoryCritical:
		rs.CriticalRules = rules
	case CategoryPermission:
		rs.PermissionGates = rules
	}
}

// Summary carries the backend's per-category counts. They are reported
// independently and need not match the RuleSet lengths.
type Summary struct {
	TimeRules            int `json:"time_rules" yaml:"time_rules"`
	ModeSwitches         int `json:"mode_switches" yaml:"mode_switches"`
	ConditionalWorkflows int `json:"conditional_workflows" yaml:"conditional_workflows"`
	CriticalRules        int `json:"critical_rules" yaml:"critical_rules"`
	PermissionGates      int `json:"permission_gates" yaml:"permission_gates"`
}

// Count returns the summary count for a category
func (s Summary) Count(c Category) int {
	switch c {
	case CategoryTime:
		return s.TimeRules
	case CategoryMode:
		return s.ModeSwitches
	case CategoryWorkflow:
		return s.ConditionalWorkflows
	case CategoryCritical:
		return s.CriticalRules
	case CategoryPermission:
		return s.PermissionGates
	}
	return 0
}

// DiagramSource is an opaque diagram description handed to a renderer
type DiagramSource string

// Snapshot is one complete /api/flowchart response
type Snapshot struct {
	Mermaid      DiagramSource `json:"mermaid" yaml:"mermaid"`
	FilesScanned int           `json:"files_scanned" yaml:"files_scanned"`
	Summary      Summary       `json:"summary" yaml:"summary"`
	RuleSet      `yaml:",inline"`
}

// Density summarizes how many rules each scanned file produced
type Density struct {
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// Stats is the /api/stats response
type Stats struct {
	FilesInWorkspace int     `json:"files_in_workspace"`
	WorkspacePath    string  `json:"workspace_path"`
	Status           string  `json:"status"`
	RuleDensity      Density `json:"rule_density"`
}
