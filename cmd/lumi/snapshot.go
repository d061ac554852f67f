package main

import (
	"context"
	"fmt"
	"io"

	"lumi/adapters/flowapi"
	"lumi/internal/dashboard"

	"github.com/spf13/cobra"
)

var (
	snapshotBackend  string
	snapshotCategory string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Fetch from a running backend and print the rendered dashboard regions",
	RunE: func(cmd *cobra.Command, args []string) error {
		backend := snapshotBackend
		if backend == "" {
			backend = appConfig.Dashboard.BackendURL
		}
		fetcher := flowapi.NewClient(backend, appConfig.Dashboard.FetchTimeout)
		return runSnapshot(cmd.Context(), cmd.OutOrStdout(), fetcher, snapshotCategory)
	},
}

func init() {
	snapshotCmd.Flags().StringVar(&snapshotBackend, "backend", "", "backend base URL (defaults to BACKEND_URL)")
	snapshotCmd.Flags().StringVarP(&snapshotCategory, "category", "c", "", "category to render: time, mode, workflow, critical, permission")
}

func runSnapshot(ctx context.Context, w io.Writer, fetcher dashboard.Fetcher, category string) error {
	controller := dashboard.NewController(fetcher, dashboard.MermaidRenderer{})
	defer controller.Close()

	controller.Refresh()
	if err := controller.Wait(ctx); err != nil {
		return err
	}
	if category != "" {
		if _, err := controller.SelectCategory(category); err != nil {
			return err
		}
	}

	view := controller.View()
	for _, region := range []struct {
		name string
		html string
	}{
		{"stats", string(view.Stats)},
		{"summary", string(view.Summary)},
		{"diagram", string(view.Diagram)},
		{"cards", string(view.Cards)},
	} {
		if region.html == "" {
			continue
		}
		if _, err := fmt.Fprintf(w, "<!-- %s -->\n%s\n", region.name, region.html); err != nil {
			return err
		}
	}
	return nil
}
