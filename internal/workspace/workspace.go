// Package workspace gives read access to the bot's markdown workspace and
// guarded write access to its agent files.
package workspace

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"lumi/internal/errors"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

const statusFile = "status.json"

// agentFiles maps agent id -> requested name -> file on disk
var agentFiles = map[string]map[string]string{
	"main": {
		"Soul.md":   "SOUL.md",
		"MEMORY.md": "MEMORY.md",
	},
}

// Workspace is a directory of markdown files
type Workspace struct {
	Dir string
}

// New returns a workspace rooted at dir
func New(dir string) *Workspace {
	return &Workspace{Dir: dir}
}

// Ensure creates the workspace directory if it does not exist yet
func (w *Workspace) Ensure() error {
	if info, err := os.Stat(w.Dir); err == nil && info.IsDir() {
		return nil
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create workspace %s", w.Dir)
	}
	log.Printf("[Workspace] Created %s", w.Dir)
	return nil
}

// MarkdownFiles lists *.md in the workspace root, sorted by name. Nested
// directories are not scanned.
func (w *Workspace) MarkdownFiles() ([]string, error) {
	files, err := filepath.Glob(filepath.Join(w.Dir, "*.md"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to glob workspace markdown")
	}
	regular := files[:0]
	for _, f := range files {
		if info, err := os.Stat(f); err == nil && info.Mode().IsRegular() {
			regular = append(regular, f)
		}
	}
	sort.Strings(regular)
	return regular, nil
}

// Status reads status.json, falling back to idle when it is missing or invalid
func (w *Workspace) Status() map[string]interface{} {
	fallback := map[string]interface{}{
		"status":       "idle",
		"message":      "Ready for new tasks",
		"last_updated": time.Now().Format(time.RFC3339),
	}

	data, err := os.ReadFile(filepath.Join(w.Dir, statusFile))
	if err != nil {
		return fallback
	}

	var status map[string]interface{}
	if err := json.Unmarshal(data, &status); err != nil || status == nil {
		log.Printf("[Workspace] Ignoring unreadable %s: %v", statusFile, err)
		return fallback
	}
	return status
}

func (w *Workspace) agentPath(agentID, name string) (string, error) {
	files, ok := agentFiles[agentID]
	if !ok {
		return "", errors.NotFound("agent " + agentID)
	}
	file, ok := files[name]
	if !ok {
		return "", errors.NotFound("agent file " + name)
	}
	return filepath.Join(w.Dir, file), nil
}

// ReadAgentFile returns the content of an agent file from the allowed map
func (w *Workspace) ReadAgentFile(agentID, name string) (string, error) {
	path, err := w.agentPath(agentID, name)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", errors.NotFound("file " + name)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", name)
	}
	return string(data), nil
}

// WriteAgentFile replaces an agent file from the allowed map
func (w *Workspace) WriteAgentFile(agentID, name, content string) error {
	path, err := w.agentPath(agentID, name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return errors.Wrapf(err, "failed to save %s", name)
	}
	return nil
}

// RenderAgentFile returns the agent file converted from markdown to HTML.
// Raw HTML in the source is skipped.
func (w *Workspace) RenderAgentFile(agentID, name string) (string, error) {
	content, err := w.ReadAgentFile(agentID, name)
	if err != nil {
		return "", err
	}
	return RenderMarkdown(content), nil
}

// RenderMarkdown converts markdown to HTML without passing raw HTML through
func RenderMarkdown(content string) string {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.SkipHTML,
	})
	doc := p.Parse(bytes.TrimSpace([]byte(content)))
	return string(markdown.Render(doc, renderer))
}
