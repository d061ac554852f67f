// Package extractor scans workspace markdown for behavioral rules and turns
// them into the flowchart payload served to the dashboard.
package extractor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"lumi/domain/flow"
	"lumi/internal"
	"lumi/internal/errors"
	"lumi/internal/workspace"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
)

var logger = internal.ForComponent("Extractor")

// FileResult is the classification of a single markdown file
type FileResult struct {
	File  string       `json:"file"`
	Error string       `json:"error,omitempty"`
	Rules flow.RuleSet `json:"-"`
}

// RuleCount is the number of rules found in the file across all categories
func (fr FileResult) RuleCount() int {
	n := 0
	for _, c := range flow.Categories {
		n += len(fr.Rules.Rules(c))
	}
	return n
}

// Result aggregates every file of one scan
type Result struct {
	Files []FileResult
	All   flow.RuleSet
}

// Extractor classifies the markdown files of a workspace
type Extractor struct {
	workspace   *workspace.Workspace
	concurrency int
}

// New creates an extractor reading up to concurrency files at once
func New(ws *workspace.Workspace, concurrency int) *Extractor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Extractor{workspace: ws, concurrency: concurrency}
}

// ProcessFile classifies one file. Read failures are reported in the result
// instead of failing the scan.
func (e *Extractor) ProcessFile(path string) FileResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return FileResult{File: path, Error: err.Error()}
	}
	name := filepath.Base(path)
	return FileResult{File: name, Rules: classify(string(data), name)}
}

// ExtractAll classifies every markdown file in the workspace root. Files are
// processed concurrently; aggregation follows file name order.
func (e *Extractor) ExtractAll(ctx context.Context) (*Result, error) {
	started := time.Now()

	files, err := e.workspace.MarkdownFiles()
	if err != nil {
		return nil, err
	}

	results := make([]FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.ProcessFile(path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "workspace scan cancelled")
	}

	result := &Result{Files: results}
	for _, fr := range results {
		if fr.Error != "" {
			logger.Warn("Skipping %s: %s", fr.File, fr.Error)
			continue
		}
		logger.Debug("%s: %d rules", fr.File, fr.RuleCount())
		for _, c := range flow.Categories {
			result.All.Set(c, append(result.All.Rules(c), fr.Rules.Rules(c)...))
		}
	}

	logger.Info("Scanned %d files in %v", len(files), time.Since(started))
	return result, nil
}

// Source yields scan results; both Extractor and Cache implement it
type Source interface {
	Get(ctx context.Context) (*Result, error)
}

// Get scans the workspace on every call
func (e *Extractor) Get(ctx context.Context) (*Result, error) {
	return e.ExtractAll(ctx)
}

// Summary counts every extracted rule
func (r *Result) Summary() flow.Summary {
	return flow.Summary{
		TimeRules:            len(r.All.TimeRules),
		ModeSwitches:         len(r.All.ModeSwitches),
		ConditionalWorkflows: len(r.All.ConditionalWorkflows),
		CriticalRules:        len(r.All.CriticalRules),
		PermissionGates:      len(r.All.PermissionGates),
	}
}

// Payload builds the /api/flowchart document. Each category is cut to limit
// entries while the summary keeps the full counts.
func (r *Result) Payload(limit int) flow.Snapshot {
	snap := flow.Snapshot{
		Mermaid:      flow.DiagramSource(r.Mermaid()),
		FilesScanned: len(r.Files),
		Summary:      r.Summary(),
	}
	for _, c := range flow.Categories {
		rules := r.All.Rules(c)
		if len(rules) > limit {
			rules = rules[:limit]
		}
		if rules == nil {
			rules = []flow.Rule{}
		}
		snap.Set(c, rules)
	}
	return snap
}

// Density summarizes rules per readable file
func (r *Result) Density() flow.Density {
	var counts stats.Float64Data
	for _, fr := range r.Files {
		if fr.Error == "" {
			counts = append(counts, float64(fr.RuleCount()))
		}
	}
	if counts.Len() == 0 {
		return flow.Density{}
	}
	mean, _ := counts.Mean()
	median, _ := counts.Median()
	most, _ := counts.Max()
	rounded, _ := stats.Round(mean, 2)
	return flow.Density{
		Mean:   rounded,
		Median: median,
		Max:    most,
	}
}

// Cache keeps the last scan until it is invalidated, normally by the
// workspace watcher.
type Cache struct {
	extractor *Extractor

	mu     sync.Mutex
	result *Result
}

// NewCache wraps an extractor
func NewCache(e *Extractor) *Cache {
	return &Cache{extractor: e}
}

// Get returns the cached scan, scanning when there is none
func (c *Cache) Get(ctx context.Context) (*Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result != nil {
		return c.result, nil
	}
	result, err := c.extractor.ExtractAll(ctx)
	if err != nil {
		return nil, err
	}
	c.result = result
	return result, nil
}

// Invalidate drops the cached scan
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.result = nil
	c.mu.Unlock()
}
