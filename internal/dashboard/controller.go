// Package dashboard holds the dashboard's view model: the last fetched rule
// set and statistics, the selected category, and the rendering of each page
// region from that state.
package dashboard

import (
	"context"
	"html/template"
	"log"
	"sync"
	"time"

	"lumi/domain/flow"
	"lumi/internal/errors"
)

// Fetcher loads the two backend resources
type Fetcher interface {
	FetchFlow(ctx context.Context) (*flow.Snapshot, error)
	FetchStats(ctx context.Context) (*flow.Stats, error)
}

// State is everything the page is rendered from
type State struct {
	Snapshot   *flow.Snapshot
	Stats      *flow.Stats
	Diagram    template.HTML
	FlowErr    error
	StatsErr   error
	Selected   flow.Category
	Generation uint64
	FlowAt     time.Time
	StatsAt    time.Time
}

// generation is one Refresh: both fetches share its context
type generation struct {
	id     uint64
	cancel context.CancelFunc
	done   chan struct{}
}

// Controller owns the dashboard state. Each Refresh supersedes the previous
// one: in-flight requests are cancelled and their late results dropped.
type Controller struct {
	fetcher  Fetcher
	renderer DiagramRenderer

	base     context.Context
	shutdown context.CancelFunc
	workers  sync.WaitGroup

	mu      sync.Mutex
	state   State
	current *generation
	closed  bool
}

// NewController creates a controller; nothing is fetched until Refresh
func NewController(fetcher Fetcher, renderer DiagramRenderer) *Controller {
	if renderer == nil {
		renderer = MermaidRenderer{}
	}
	base, shutdown := context.WithCancel(context.Background())
	return &Controller{
		fetcher:  fetcher,
		renderer: renderer,
		base:     base,
		shutdown: shutdown,
	}
}

// Refresh starts a new fetch of both resources and returns immediately. The
// flow and stats requests complete independently and update disjoint regions.
func (c *Controller) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	if c.current != nil {
		c.current.cancel()
	}
	ctx, cancel := context.WithCancel(c.base)
	gen := &generation{id: c.state.Generation + 1, cancel: cancel, done: make(chan struct{})}
	c.state.Generation = gen.id
	c.current = gen

	var pending sync.WaitGroup
	pending.Add(2)
	c.workers.Add(3)
	go func() {
		defer c.workers.Done()
		defer pending.Done()
		c.loadFlow(ctx, gen.id)
	}()
	go func() {
		defer c.workers.Done()
		defer pending.Done()
		c.loadStats(ctx, gen.id)
	}()
	go func() {
		defer c.workers.Done()
		pending.Wait()
		cancel()
		close(gen.done)
	}()
}

func (c *Controller) loadFlow(ctx context.Context, id uint64) {
	snap, err := c.fetcher.FetchFlow(ctx)
	var diagram template.HTML
	if err == nil {
		diagram, _ = RenderDiagram(ctx, c.renderer, snap.Mermaid)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if id != c.state.Generation {
		log.Printf("[Dashboard] Dropping flow response from superseded refresh %d", id)
		return
	}
	c.state.FlowAt = time.Now()
	if err != nil {
		log.Printf("[Dashboard] Error loading flow chart: %v", err)
		c.state.FlowErr = err
		return
	}
	c.state.Snapshot = snap
	c.state.Diagram = diagram
	c.state.FlowErr = nil
}

func (c *Controller) loadStats(ctx context.Context, id uint64) {
	stats, err := c.fetcher.FetchStats(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if id != c.state.Generation {
		log.Printf("[Dashboard] Dropping stats response from superseded refresh %d", id)
		return
	}
	c.state.StatsAt = time.Now()
	if err != nil {
		log.Printf("[Dashboard] Error loading stats: %v", err)
		c.state.StatsErr = err
		return
	}
	c.state.Stats = stats
	c.state.StatsErr = nil
}

// Wait blocks until the latest Refresh has settled or ctx ends
func (c *Controller) Wait(ctx context.Context) error {
	c.mu.Lock()
	gen := c.current
	c.mu.Unlock()
	if gen == nil {
		return nil
	}
	select {
	case <-gen.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SelectCategory records the selected category and renders its cards. Before
// the first successful fetch it does nothing and returns an empty fragment.
func (c *Controller) SelectCategory(key string) (template.HTML, error) {
	category, err := flow.ParseCategory(key)
	if err != nil {
		return "", errors.InvalidInput(err.Error())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Snapshot == nil {
		return "", nil
	}
	c.state.Selected = category
	return RenderCategory(&c.state.Snapshot.RuleSet, category), nil
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View renders the current state
func (c *Controller) View() View {
	return Render(c.Snapshot())
}

// Close cancels in-flight fetches and waits for them to exit
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.shutdown()
	c.workers.Wait()
}
