package workspace

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports markdown changes in the workspace root. Bursts of events
// are collapsed into one callback per debounce window.
type Watcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	dir      string
	debounce time.Duration
	onChange func(path string)
	running  bool
	doneCh   chan struct{}
}

// NewWatcher creates a watcher that calls onChange after .md files change
func NewWatcher(dir string, debounce time.Duration, onChange func(path string)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	return &Watcher{
		watcher:  fw,
		dir:      dir,
		debounce: debounce,
		onChange: onChange,
		doneCh:   make(chan struct{}),
	}, nil
}

// Run watches until ctx is cancelled. It blocks.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	defer close(w.doneCh)
	defer w.watcher.Close()

	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	log.Printf("[Watcher] Watching %s", w.dir)

	var (
		pending string
		fire    <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			log.Printf("[Watcher] Stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			if fire == nil {
				fire = time.After(w.debounce)
			}
			pending = event.Name

		case <-fire:
			log.Printf("[Watcher] Workspace changed: %s", filepath.Base(pending))
			w.onChange(pending)
			pending, fire = "", nil

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[Watcher] Error: %v", err)
		}
	}
}

// Done is closed once Run has returned
func (w *Watcher) Done() <-chan struct{} {
	return w.doneCh
}

func relevant(event fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(event.Name), ".md") {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
