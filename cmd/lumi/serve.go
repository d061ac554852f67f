package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"lumi/adapters/flowapi"
	"lumi/internal/config"
	"lumi/internal/dashboard"
	"lumi/internal/extractor"
	"lumi/internal/presence"
	"lumi/internal/workspace"
	"lumi/ui"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the flow chart API and the dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return runServe(ctx)
	},
}

func runServe(ctx context.Context) error {
	cfg := appConfig
	ws := workspace.New(cfg.Workspace.Dir)
	scanner := extractor.New(ws, cfg.Workspace.ScanConcurrency)

	scans, watcher := scanSource(cfg.Workspace, ws, scanner)

	controller := dashboard.NewController(
		flowapi.NewClient(cfg.Dashboard.BackendURL, cfg.Dashboard.FetchTimeout),
		dashboard.MermaidRenderer{},
	)
	defer controller.Close()

	activity := presence.New()
	activity.Log("info", "Dashboard loaded successfully")

	server, err := ui.NewServer(ui.ServerDeps{
		Scans:         scans,
		Workspace:     ws,
		Controller:    controller,
		Presence:      activity,
		CategoryLimit: cfg.Workspace.CategoryLimit,
		GinMode:       cfg.Server.GinMode,
	})
	if err != nil {
		return err
	}

	log.Printf("[Serve] Workspace: %s", ws.Dir)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return runHTTP(gctx, "Serve", &http.Server{
			Addr:              ":" + cfg.Server.Port,
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		})
	})
	if watcher != nil {
		g.Go(func() error {
			return watcher.Run(gctx)
		})
	}
	g.Go(func() error {
		// first load once the listener had a moment to come up
		select {
		case <-time.After(500 * time.Millisecond):
			controller.Refresh()
		case <-gctx.Done():
		}
		return nil
	})
	return g.Wait()
}

// scanSource puts a cache in front of the scanner when watching is enabled.
// The workspace directory is created first since the watcher cannot watch a
// missing one. Without a watcher every request rescans.
func scanSource(cfg config.WorkspaceConfig, ws *workspace.Workspace, scanner *extractor.Extractor) (extractor.Source, *workspace.Watcher) {
	if !cfg.Watch {
		return scanner, nil
	}
	if err := ws.Ensure(); err != nil {
		log.Printf("[Serve] Workspace watcher unavailable, scanning on every request: %v", err)
		return scanner, nil
	}
	cache := extractor.NewCache(scanner)
	watcher, err := workspace.NewWatcher(ws.Dir, cfg.WatchDebounce, func(string) {
		cache.Invalidate()
	})
	if err != nil {
		log.Printf("[Serve] Workspace watcher unavailable, scanning on every request: %v", err)
		return scanner, nil
	}
	return cache, watcher
}
