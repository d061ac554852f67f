package extractor

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"lumi/domain/flow"
)

// Context windows around a match, in characters
const (
	shortContext = 50
	longContext  = 80
)

// family is one category's pattern list and how a match becomes a Rule
type family struct {
	category flow.Category
	patterns []*regexp.Regexp
	build    func(content string, m []int) flow.Rule
}

var families = []family{
	{
		category: flow.CategoryTime,
		patterns: compile(`(?i)`,
			`(\d{1,2}:\d{2})\s*-\s*(\d{1,2}:\d{2})\s*(?:GMT|UTC)?`,
			`(?:daytime|overnight|nighttime).*?(\d{1,2}:\d{2})`,
			`(\d{1,2}:\d{2})\s*(?:GMT|UTC)`,
		),
		build: func(content string, m []int) flow.Rule {
			return flow.Rule{
				Type:    "time_rule",
				Pattern: content[m[0]:m[1]],
				Start:   group(content, m, 1),
				End:     group(content, m, 2),
				Context: contextWindow(content, m[0], shortContext),
			}
		},
	},
	{
		category: flow.CategoryMode,
		patterns: compile(`(?i)`,
			`(?:mode|switch|check):?\s*(daytime|overnight|nighttime)`,
			`(?:if|when|while)\s+.*?(\d{1,2}:\d{2})`,
			`(?:check|determine|decide)\s+mode`,
		),
		build: func(content string, m []int) flow.Rule {
			return flow.Rule{
				Type:    "mode_switch",
				Pattern: content[m[0]:m[1]],
				Mode:    group(content, m, 1),
				Context: contextWindow(content, m[0], shortContext),
			}
		},
	},
	{
		category: flow.CategoryWorkflow,
		patterns: compile(`(?is)`,
			`if\s+(.*?):?\s*then\s+(.*?)(?:\.|$|\n)`,
			`when\s+(.*?):?\s*(?:do|then|use)\s+(.*?)(?:\.|$|\n)`,
			`(?:respond|reply|send)\s+.*?(?:when|if|unless)\s+(.*?)(?:\.|$|\n)`,
			`(?:only|never|always)\s+(?:when|if|unless)\s+(.*?)(?:\.|$|\n)`,
		),
		build: func(content string, m []int) flow.Rule {
			return flow.Rule{
				Type:      "conditional_workflow",
				Condition: trimmed(group(content, m, 1)),
				Action:    trimmed(group(content, m, 2)),
				Context:   contextWindow(content, m[0], longContext),
			}
		},
	},
	{
		category: flow.CategoryCritical,
		patterns: compile(`(?is)`,
			`(?:CRITICAL|IMPORTANT|MUST|NEVER|ALWAYS).*?:?\s*(.*?)(?:\.|$|\n)`,
			`⚠️.*?:?\s*(.*?)(?:\.|$|\n)`,
			`NEVER\s+(.*?)(?:\.|$|\n)`,
			`ALWAYS\s+(.*?)(?:\.|$|\n)`,
		),
		build: func(content string, m []int) flow.Rule {
			return flow.Rule{
				Type:    "critical_rule",
				Rule:    ruleText(content, m),
				Context: contextWindow(content, m[0], longContext),
			}
		},
	},
	{
		category: flow.CategoryPermission,
		patterns: compile(`(?is)`,
			`(?:ask|request|check)\s+first.*?:?\s*(.*?)(?:\.|$|\n)`,
			`(?:requires|needs)\s+approval.*?:?\s*(.*?)(?:\.|$|\n)`,
			`(?:before|when)\s+(?:doing|sending|posting)\s+.*?:?\s*(.*?)(?:\.|$|\n)`,
		),
		build: func(content string, m []int) flow.Rule {
			return flow.Rule{
				Type:    "permission_gate",
				Rule:    ruleText(content, m),
				Context: contextWindow(content, m[0], longContext),
			}
		},
	},
}

func compile(flags string, exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, expr := range exprs {
		out[i] = regexp.MustCompile(flags + expr)
	}
	return out
}

// classify runs every family over content, in pattern order
func classify(content, filename string) flow.RuleSet {
	var rs flow.RuleSet
	for _, fam := range families {
		var rules []flow.Rule
		for _, re := range fam.patterns {
			for _, m := range re.FindAllStringSubmatchIndex(content, -1) {
				rule := fam.build(content, m)
				rule.File = filename
				rules = append(rules, rule)
			}
		}
		rs.Set(fam.category, rules)
	}
	return rs
}

// group returns submatch i, or nil when the pattern has no such group or it
// did not participate
func group(content string, m []int, i int) *string {
	if 2*i+1 >= len(m) || m[2*i] < 0 {
		return nil
	}
	s := content[m[2*i]:m[2*i+1]]
	return &s
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

// ruleText is the trimmed first group, or the whole match for group-less patterns
func ruleText(content string, m []int) string {
	if g := group(content, m, 1); g != nil {
		return strings.TrimSpace(*g)
	}
	return content[m[0]:m[1]]
}

// contextWindow returns up to chars characters on each side of pos, trimmed
func contextWindow(content string, pos, chars int) string {
	start := pos
	for i := 0; i < chars && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(content[:start])
		start -= size
	}
	end := pos
	for i := 0; i < chars && end < len(content); i++ {
		_, size := utf8.DecodeRuneInString(content[end:])
		end += size
	}
	return strings.TrimSpace(content[start:end])
}

// truncateRunes cuts s to at most n characters
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
