package dashboard

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"strings"

	"lumi/domain/flow"
	"lumi/internal/errors"
)

// DiagramRenderer lays out a diagram source as HTML
type DiagramRenderer interface {
	Render(ctx context.Context, source flow.DiagramSource) (template.HTML, error)
}

// RendererFunc adapts a function to DiagramRenderer
type RendererFunc func(ctx context.Context, source flow.DiagramSource) (template.HTML, error)

func (f RendererFunc) Render(ctx context.Context, source flow.DiagramSource) (template.HTML, error) {
	return f(ctx, source)
}

// RenderDiagram runs the renderer and substitutes the error placeholder when it
// fails or panics. The second result reports whether rendering succeeded.
func RenderDiagram(ctx context.Context, r DiagramRenderer, source flow.DiagramSource) (out template.HTML, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[Dashboard] Diagram renderer panicked: %v", rec)
			out, ok = placeholder("diagram-error", MsgDiagramRenderErr), false
		}
	}()

	html, err := r.Render(ctx, source)
	if err != nil {
		log.Printf("[Dashboard] Diagram render failed: %v", err)
		return placeholder("diagram-error", MsgDiagramRenderErr), false
	}
	return html, true
}

var diagramKinds = map[string]bool{
	"graph":           true,
	"flowchart":       true,
	"sequenceDiagram": true,
	"classDiagram":    true,
	"stateDiagram":    true,
	"stateDiagram-v2": true,
	"erDiagram":       true,
	"gantt":           true,
	"pie":             true,
	"journey":         true,
	"mindmap":         true,
	"timeline":        true,
}

// MermaidRenderer checks mermaid sources and hands them to the browser's
// mermaid engine inside a <pre class="mermaid"> block
type MermaidRenderer struct{}

func (MermaidRenderer) Render(_ context.Context, source flow.DiagramSource) (template.HTML, error) {
	if err := checkMermaid(string(source)); err != nil {
		return "", errors.RenderFailed(err)
	}
	return template.HTML(`<pre class="mermaid">` + template.HTMLEscapeString(string(source)) + `</pre>`), nil
}

// flowchartKinds get a bracket check; other diagram kinds use braces and
// arrows that are not node shapes, so their syntax is left to mermaid itself
var flowchartKinds = map[string]bool{"graph": true, "flowchart": true}

func checkMermaid(src string) error {
	lines := stripFrontMatter(strings.Split(src, "\n"))
	var header string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "%%") {
			continue
		}
		header = line
		break
	}
	if header == "" {
		return fmt.Errorf("empty diagram")
	}
	kind := strings.Fields(header)[0]
	if !diagramKinds[kind] {
		return fmt.Errorf("unknown diagram type %q", kind)
	}
	if flowchartKinds[kind] {
		return checkBrackets(lines)
	}
	return nil
}

// stripFrontMatter drops a leading "---" ... "---" config block
func stripFrontMatter(lines []string) []string {
	first := 0
	for first < len(lines) && strings.TrimSpace(lines[first]) == "" {
		first++
	}
	if first == len(lines) || strings.TrimSpace(lines[first]) != "---" {
		return lines
	}
	for i := first + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return lines[i+1:]
		}
	}
	return lines
}

var closers = map[rune]rune{')': '(', ']': '[', '}': '{'}

// checkBrackets verifies ([{ nesting across the whole source, ignoring
// quoted labels and %% comments. Subgraph bodies may span lines.
func checkBrackets(lines []string) error {
	type open struct {
		r    rune
		line int
	}
	var stack []open
	for n, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "%%") {
			continue
		}
		quoted := false
		for _, r := range line {
			switch {
			case r == '"':
				quoted = !quoted
			case quoted:
			case r == '(' || r == '[' || r == '{':
				stack = append(stack, open{r, n + 1})
			case closers[r] != 0:
				if len(stack) == 0 || stack[len(stack)-1].r != closers[r] {
					return fmt.Errorf("line %d: unexpected %q", n+1, r)
				}
				stack = stack[:len(stack)-1]
			}
		}
		if quoted {
			return fmt.Errorf("line %d: unterminated label", n+1)
		}
	}
	if len(stack) > 0 {
		last := stack[len(stack)-1]
		return fmt.Errorf("line %d: unclosed %q", last.line, last.r)
	}
	return nil
}
