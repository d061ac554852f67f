package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"lumi/internal/workspace"
	"lumi/ui"

	"github.com/spf13/cobra"
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Serve the admin API (status, agents, agent files)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()
		return runAdmin(ctx)
	},
}

func runAdmin(ctx context.Context) error {
	cfg := appConfig
	port, err := strconv.Atoi(cfg.Admin.Port)
	if err != nil {
		return err
	}
	admin := ui.NewAdmin(workspace.New(cfg.Workspace.Dir), port, nil)
	return runHTTP(ctx, "Admin", &http.Server{
		Addr:              ":" + cfg.Admin.Port,
		Handler:           admin.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	})
}
