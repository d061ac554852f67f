// Package flowapi fetches the classified rule set and workspace statistics
// from the dashboard backend.
package flowapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lumi/domain/flow"
	"lumi/internal/errors"

	"github.com/tidwall/gjson"
)

const (
	FlowchartPath = "/api/flowchart"
	StatsPath     = "/api/stats"

	maxBodyBytes = 8 << 20
)

// Client issues single, unretried requests against the backend
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the backend at baseURL
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchFlow retrieves and parses the flowchart payload
func (c *Client) FetchFlow(ctx context.Context) (*flow.Snapshot, error) {
	body, err := c.get(ctx, FlowchartPath)
	if err != nil {
		return nil, err
	}
	return ParseSnapshot(body)
}

// FetchStats retrieves the workspace statistics
func (c *Client) FetchStats(ctx context.Context) (*flow.Stats, error) {
	body, err := c.get(ctx, StatsPath)
	if err != nil {
		return nil, err
	}
	return ParseStats(body)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, errors.FetchFailed(path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.FetchFailed(path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.FetchFailed(path, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.FetchFailed(path, fmt.Errorf("API returned status %d", resp.StatusCode))
	}
	return body, nil
}

// ParseSnapshot decodes a /api/flowchart body. Missing categories stay nil
// so they render as empty rather than failing.
func ParseSnapshot(body []byte) (*flow.Snapshot, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.MalformedPayload("flowchart", "invalid JSON")
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, errors.MalformedPayload("flowchart", "expected an object")
	}

	mermaid := root.Get("mermaid")
	if mermaid.Type != gjson.String {
		return nil, errors.MalformedPayload("flowchart", "missing mermaid source")
	}
	summary := root.Get("summary")
	if !summary.IsObject() {
		return nil, errors.MalformedPayload("flowchart", "missing summary")
	}

	snap := &flow.Snapshot{
		Mermaid:      flow.DiagramSource(mermaid.String()),
		FilesScanned: int(root.Get("files_scanned").Int()),
		Summary: flow.Summary{
			TimeRules:            int(summary.Get("time_rules").Int()),
			ModeSwitches:         int(summary.Get("mode_switches").Int()),
			ConditionalWorkflows: int(summary.Get("conditional_workflows").Int()),
			CriticalRules:        int(summary.Get("critical_rules").Int()),
			PermissionGates:      int(summary.Get("permission_gates").Int()),
		},
	}

	for _, c := range flow.Categories {
		list := root.Get(c.PayloadKey())
		if !list.IsArray() {
			continue
		}
		rules := []flow.Rule{}
		list.ForEach(func(_, value gjson.Result) bool {
			rules = append(rules, parseRule(value))
			return true
		})
		snap.Set(c, rules)
	}
	return snap, nil
}

func parseRule(v gjson.Result) flow.Rule {
	return flow.Rule{
		Type:      v.Get("type").String(),
		File:      v.Get("file").String(),
		Context:   v.Get("context").String(),
		Rule:      v.Get("rule").String(),
		Pattern:   v.Get("pattern").String(),
		Start:     optional(v.Get("start")),
		End:       optional(v.Get("end")),
		Mode:      optional(v.Get("mode")),
		Condition: optional(v.Get("condition")),
		Action:    optional(v.Get("action")),
	}
}

func optional(r gjson.Result) *string {
	if r.Type != gjson.String {
		return nil
	}
	s := r.String()
	return &s
}

// ParseStats decodes a /api/stats body; only files_in_workspace is required
func ParseStats(body []byte) (*flow.Stats, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.MalformedPayload("stats", "invalid JSON")
	}
	root := gjson.ParseBytes(body)
	files := root.Get("files_in_workspace")
	if files.Type != gjson.Number {
		return nil, errors.MalformedPayload("stats", "missing files_in_workspace")
	}
	return &flow.Stats{
		FilesInWorkspace: int(files.Int()),
		WorkspacePath:    root.Get("workspace_path").String(),
		Status:           root.Get("status").String(),
		RuleDensity: flow.Density{
			Mean:   root.Get("rule_density.mean").Float(),
			Median: root.Get("rule_density.median").Float(),
			Max:    root.Get("rule_density.max").Float(),
		},
	}, nil
}
