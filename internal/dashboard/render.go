package dashboard

import (
	"bytes"
	"embed"
	"html/template"
	"log"
	"strconv"
	"strings"

	"lumi/domain/flow"
)

//go:embed templates/*.html
var templateFiles embed.FS

var fragments = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

// Placeholder shown in a region that has no data
const missingValue = "—"

// Diagram region messages
const (
	MsgDiagramLoading   = "Loading flow chart..."
	MsgFlowFetchFailed  = "Failed to load flow chart"
	MsgDiagramRenderErr = "Failed to render flow chart"
)

// View is the rendered form of a State, one field per page region
type View struct {
	Summary  template.HTML
	Diagram  template.HTML
	Stats    template.HTML
	Selected flow.Category
	Cards    template.HTML
}

// Render draws every region from a state snapshot. It has no side effects,
// so rendering the same state twice yields identical output.
func Render(s State) View {
	v := View{
		Summary:  RenderSummary(s.Snapshot),
		Stats:    RenderStats(s.Stats),
		Selected: s.Selected,
	}

	switch {
	case s.FlowErr != nil:
		v.Diagram = placeholder("diagram-error", MsgFlowFetchFailed)
	case s.Diagram != "":
		v.Diagram = s.Diagram
	default:
		v.Diagram = placeholder("diagram-loading", MsgDiagramLoading)
	}

	if s.Snapshot != nil && s.Selected != "" {
		v.Cards = RenderCategory(&s.Snapshot.RuleSet, s.Selected)
	}
	return v
}

type cardsData struct {
	Category flow.Category
	Title    string
	Rules    []flow.Rule
}

// RenderCategory renders one card per rule, or the category's "no rules"
// message when the sequence is empty or absent. Descriptions are escaped.
func RenderCategory(rs *flow.RuleSet, c flow.Category) template.HTML {
	return execute("cards", cardsData{
		Category: c,
		Title:    strings.ToLower(c.Title()),
		Rules:    rs.Rules(c),
	})
}

type summaryItem struct {
	Category flow.Category
	Title    string
	Count    string
}

// RenderSummary renders the per-category counts, or dashes before the first fetch
func RenderSummary(snap *flow.Snapshot) template.HTML {
	items := make([]summaryItem, 0, len(flow.Categories))
	for _, c := range flow.Categories {
		count := missingValue
		if snap != nil {
			count = strconv.Itoa(snap.Summary.Count(c))
		}
		items = append(items, summaryItem{Category: c, Title: c.Title(), Count: count})
	}
	return execute("summary", items)
}

// RenderStats renders the workspace file count, or a dash when unknown
func RenderStats(stats *flow.Stats) template.HTML {
	value := missingValue
	if stats != nil {
		value = strconv.Itoa(stats.FilesInWorkspace)
	}
	return execute("stats", value)
}

func placeholder(class, message string) template.HTML {
	return execute("placeholder", struct{ Class, Message string }{class, message})
}

func execute(name string, data interface{}) template.HTML {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("[Dashboard] Template %s failed: %v", name, err)
		return ""
	}
	return template.HTML(buf.String())
}
