package ui

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lumi/adapters/flowapi"
	"lumi/internal/dashboard"
	"lumi/internal/extractor"
	"lumi/internal/workspace"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const heartbeat = "Daytime mode runs 10:00-23:00 GMT.\nNEVER share secrets.\nAsk first before posting publicly.\n"

// newTestServer starts the server behind httptest; the dashboard controller
// fetches from that same server like the default deployment does
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "HEARTBEAT.md"), []byte(heartbeat), 0o644))
	return newTestServerIn(t, dir)
}

func newTestServerIn(t *testing.T, dir string) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ws := workspace.New(dir)

	var handler http.Handler
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	controller := dashboard.NewController(flowapi.NewClient(ts.URL, 2*time.Second), nil)
	t.Cleanup(controller.Close)

	srv, err := NewServer(ServerDeps{
		Scans:         extractor.New(ws, 2),
		Workspace:     ws,
		Controller:    controller,
		CategoryLimit: 2,
		GinMode:       gin.TestMode,
	})
	require.NoError(t, err)
	handler = srv.Handler()
	return ts
}

func do(t *testing.T, method, url string) (int, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestFlowchartEndpoint(t *testing.T) {
	ts := newTestServer(t)

	status, body := do(t, http.MethodGet, ts.URL+"/api/flowchart")
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, int64(3), gjson.Get(body, "summary.time_rules").Int())
	assert.Len(t, gjson.Get(body, "time_rules").Array(), 2)
	assert.Equal(t, int64(1), gjson.Get(body, "files_scanned").Int())
	assert.True(t, strings.HasPrefix(gjson.Get(body, "mermaid").String(), "graph TD"))
	assert.True(t, gjson.Get(body, "mode_switches").IsArray())
	assert.Equal(t, "HEARTBEAT.md", gjson.Get(body, "critical_rules.0.file").String())
}

func TestStatsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	status, body := do(t, http.MethodGet, ts.URL+"/api/stats")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, int64(1), gjson.Get(body, "files_in_workspace").Int())
	assert.Equal(t, "online", gjson.Get(body, "status").String())
	assert.Equal(t, 7.0, gjson.Get(body, "rule_density.max").Float())
}

func TestDashboardFlow(t *testing.T) {
	ts := newTestServer(t)

	status, _ := do(t, http.MethodGet, ts.URL+"/dashboard/category/time")
	assert.Equal(t, http.StatusNoContent, status)

	status, body := do(t, http.MethodPost, ts.URL+"/dashboard/refresh")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `<pre class="mermaid">graph TD`)
	assert.Contains(t, body, `id="files-count">1<`)

	status, body = do(t, http.MethodGet, ts.URL+"/dashboard/category/critical")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, strings.Count(body, `class="rule-card"`))

	status, body = do(t, http.MethodGet, ts.URL+"/dashboard/category/workflow")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "No conditional workflows found")

	status, _ = do(t, http.MethodGet, ts.URL+"/dashboard/category/weather")
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = do(t, http.MethodGet, ts.URL+"/dashboard/summary")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `<span class="summary-count">3</span>`)

	status, body = do(t, http.MethodGet, ts.URL+"/")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<title>Lumi Dashboard</title>")
	assert.Contains(t, body, "Flow chart refresh requested")
	// the last valid selection is re-rendered into the page
	assert.Contains(t, body, "No conditional workflows found")
}

func TestRefreshRerendersSelectedCategory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "HEARTBEAT.md"), []byte(heartbeat), 0o644))
	ts := newTestServerIn(t, dir)

	status, body := do(t, http.MethodPost, ts.URL+"/dashboard/refresh")
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, body, "hx-swap-oob")

	status, body = do(t, http.MethodGet, ts.URL+"/dashboard/category/critical")
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, body, "delete backups")

	// sorts ahead of HEARTBEAT.md, so its rules survive the category limit
	require.NoError(t, os.WriteFile(filepath.Join(dir, "AGENTS.md"), []byte("NEVER delete backups without asking.\n"), 0o644))

	status, body = do(t, http.MethodPost, ts.URL+"/dashboard/refresh")
	require.Equal(t, http.StatusOK, status)
	_, rules, found := strings.Cut(body, `<section id="rules" hx-swap-oob="true">`)
	require.True(t, found, body)
	assert.Contains(t, rules, `<div class="rule-file">AGENTS.md</div>`)
	assert.Equal(t, 2, strings.Count(rules, `class="rule-card"`))
}

func TestExpressionEndpoints(t *testing.T) {
	ts := newTestServer(t)

	status, body := do(t, http.MethodPost, ts.URL+"/api/expression/thinking")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "thinking", gjson.Get(body, "expression").String())
	assert.Equal(t, "THINKING", gjson.Get(body, "status.label").String())

	status, body = do(t, http.MethodPost, ts.URL+"/api/expression/next")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "thinking", gjson.Get(body, "expression").String())

	status, body = do(t, http.MethodPost, ts.URL+"/api/expression/apply")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "working", gjson.Get(body, "expression").String())

	status, _ = do(t, http.MethodPost, ts.URL+"/api/expression/bored")
	assert.Equal(t, http.StatusBadRequest, status)
}
