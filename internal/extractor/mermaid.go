package extractor

import (
	"fmt"
	"strings"

	"lumi/domain/flow"
)

const (
	highlightedRules = 3
	nodeLabelLength  = 30
)

// Mermaid renders the heartbeat flowchart for the scanned rules. Branches
// appear only when the categories that drive them are non-empty.
func (r *Result) Mermaid() string {
	var b mermaidBuilder
	rs := &r.All

	b.line("graph TD")
	b.blank()
	b.line(`    Start([Start Heartbeat]) --> CheckTime["Check Current Time"]`)

	if len(rs.TimeRules) > 0 {
		b.section("Time-based decision",
			`    CheckTime --> DetermineMode{Determine Mode}`,
			`    DetermineMode -->|10:00-23:00| DaytimeMode["Daytime Mode"]`,
			`    DetermineMode -->|23:00-10:00| OvernightMode["Overnight Mode"]`,
		)
		b.section("Daytime mode checks",
			`    DaytimeMode --> CheckNewMessages{New Discord messages?}`,
			`    CheckNewMessages -->|Yes| ProcessMessages["Process messages"]`,
			`    CheckNewMessages -->|No| CheckCalendar{Calendar events <2h?}`,
			`    ProcessMessages --> CheckCalendar`,
			`    CheckCalendar -->|Yes| NotifyEvent["Notify user"]`,
			`    CheckCalendar -->|No| CheckSocial{Hourly social engagement?}`,
		)

		if len(rs.PermissionGates) > 0 || len(rs.CriticalRules) > 0 {
			b.section("",
				`    CheckSocial -->|Yes| SocialEngage["Social engagement"]`,
				`    CheckSocial -->|No| NextHeartbeat("Wait 30 min")`,
			)
			b.section("",
				`    SocialEngage --> MoltxEngage["Moltx: like 2-3, reply 2-3"]`,
				`    SocialEngage --> MoltbookEngage["Moltbook: comment 1-2, upvote 3-5"]`,
				`    SocialEngage --> FourClawEngage["4claw: reply 2-3"]`,
				`    MoltxEngage --> CheckOriginal{Every 2h?}`,
				`    MoltbookEngage --> CheckOriginal`,
				`    FourClawEngage --> CheckOriginal`,
			)
			b.section("",
				`    CheckOriginal -->|Yes| PostOriginal["Post original content"]`,
				`    CheckOriginal -->|No| LogActivity["Log activity"]`,
				`    PostOriginal --> LogActivity`,
				`    LogActivity --> NextHeartbeat`,
			)
		}

		if len(rs.CriticalRules) > 0 {
			b.section("", `    NotifyEvent --> CheckSocial`)
		}

		b.section("", `    NextHeartbeat --> Start`)

		b.section("Overnight mode path",
			`    OvernightMode --> CheckQueue{Task queue empty?}`,
			`    CheckQueue -->|Yes| GenerateQueue["Generate new queue (75% existing, 25% new)"]`,
			`    CheckQueue -->|No| StartTask["Work on next task"]`,
			`    GenerateQueue --> StartTask`,
			`    StartTask --> CommitFrequently["Commit every 1-2 changes"]`,
			`    CommitFrequently --> CheckBriefing{10:00 AM?}`,
		)
		b.section("",
			`    CheckBriefing -->|Yes| SendBriefing["Send morning briefing"]`,
			`    CheckBriefing -->|No| UpdateStatus["Update OVERNIGHT_STATUS.md"]`,
			`    SendBriefing --> UpdateStatus`,
			`    UpdateStatus --> NextHeartbeat`,
		)
	}

	gates := highlighted(rs.PermissionGates)
	if len(gates) > 0 {
		b.section("Permission gates")
		for i, rule := range gates {
			b.line(fmt.Sprintf(`    Gate%d["⚠️ %s..."]:::permission`, i, nodeLabel(rule.Rule)))
		}
	}

	critical := highlighted(rs.CriticalRules)
	if len(critical) > 0 {
		b.section("Critical rules")
		for i, rule := range critical {
			b.line(fmt.Sprintf(`    Critical%d["🔴 %s..."]:::critical`, i, nodeLabel(rule.Rule)))
		}
	}

	b.section("",
		`    classDef critical fill:#f66,stroke:#333,stroke-width:2px,color:#fff`,
		`    classDef permission fill:#fc6,stroke:#333,stroke-width:2px,color:#000`,
		`    classDef daytime fill:#3498db,stroke:#2980b9,stroke-width:2px,color:#fff`,
		`    classDef overnight fill:#9b59b6,stroke:#8e44ad,stroke-width:2px,color:#fff`,
	)

	if len(critical) > 0 {
		b.blank()
		for i := range critical {
			b.line(fmt.Sprintf("    Critical%d:::critical", i))
		}
	}
	if len(gates) > 0 {
		b.blank()
		for i := range gates {
			b.line(fmt.Sprintf("    Gate%d:::permission", i))
		}
	}
	if len(rs.TimeRules) > 0 {
		b.line("    DaytimeMode:::daytime")
		b.line("    OvernightMode:::overnight")
	}

	return b.String()
}

func highlighted(rules []flow.Rule) []flow.Rule {
	if len(rules) > highlightedRules {
		return rules[:highlightedRules]
	}
	return rules
}

// nodeLabel shortens rule text for a node and escapes quotes, which would
// otherwise end the mermaid label early
func nodeLabel(text string) string {
	text = truncateRunes(text, nodeLabelLength)
	return strings.ReplaceAll(text, `"`, "#quot;")
}

type mermaidBuilder struct {
	lines []string
}

func (b *mermaidBuilder) line(s string) {
	b.lines = append(b.lines, s)
}

func (b *mermaidBuilder) blank() {
	b.lines = append(b.lines, "")
}

// section starts a new blank-separated block with an optional %% comment
func (b *mermaidBuilder) section(comment string, lines ...string) {
	b.blank()
	if comment != "" {
		b.line("    %% " + comment)
	}
	b.lines = append(b.lines, lines...)
}

func (b *mermaidBuilder) String() string {
	return strings.Join(b.lines, "\n")
}
