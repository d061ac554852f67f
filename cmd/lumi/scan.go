package main

import (
	"encoding/json"
	"fmt"
	"io"

	"lumi/internal/extractor"
	"lumi/internal/workspace"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var scanFormat string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Print the flow chart payload for the workspace",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := appConfig
		ws := workspace.New(cfg.Workspace.Dir)
		result, err := extractor.New(ws, cfg.Workspace.ScanConcurrency).ExtractAll(cmd.Context())
		if err != nil {
			return err
		}
		return writePayload(cmd.OutOrStdout(), scanFormat, result, cfg.Workspace.CategoryLimit)
	},
}

func init() {
	scanCmd.Flags().StringVarP(&scanFormat, "format", "f", "json", "output format: json or yaml")
}

func writePayload(w io.Writer, format string, result *extractor.Result, limit int) error {
	payload := result.Payload(limit)
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(payload)
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
}
