package ui

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"lumi/internal/workspace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func serveAdmin(a *Admin, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	return rec
}

func TestAdminStatusAndAgents(t *testing.T) {
	a := NewAdmin(workspace.New(t.TempDir()), 3001, nil)

	rec := serveAdmin(a, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "idle", gjson.Get(rec.Body.String(), "status").String())
	assert.True(t, gjson.Get(rec.Body.String(), "timestamp").Exists())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = serveAdmin(a, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, gjson.Get(rec.Body.String(), "agents").Array(), 3)
	port := gjson.Get(rec.Body.String(), "port")
	assert.Equal(t, gjson.Number, port.Type)
	assert.Equal(t, int64(3001), port.Int())
}

func TestAdminFileRoundTrip(t *testing.T) {
	a := NewAdmin(workspace.New(t.TempDir()), 3001, nil)

	rec := serveAdmin(a, http.MethodGet, "/api/file?agent=main&file=Soul.md", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "File not found", gjson.Get(rec.Body.String(), "error").String())

	rec = serveAdmin(a, http.MethodPost, "/api/file", `{"agent":"main","file":"Soul.md","content":"# Soul\n\nBe **kind**."}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", gjson.Get(rec.Body.String(), "status").String())

	rec = serveAdmin(a, http.MethodGet, "/api/file", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# Soul\n\nBe **kind**.", gjson.Get(rec.Body.String(), "content").String())

	rec = serveAdmin(a, http.MethodGet, "/api/file?format=html", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, gjson.Get(rec.Body.String(), "content").String(), "<strong>kind</strong>")
}

func TestAdminRejectsUnknownFiles(t *testing.T) {
	a := NewAdmin(workspace.New(t.TempDir()), 3001, nil)

	rec := serveAdmin(a, http.MethodGet, "/api/file?agent=coding&file=Soul.md", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serveAdmin(a, http.MethodPost, "/api/file", `{"agent":"main","file":"../../etc/passwd","content":"x"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = serveAdmin(a, http.MethodPost, "/api/file", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRestart(t *testing.T) {
	var restarted []string
	a := NewAdmin(workspace.New(t.TempDir()), 3001, func(agentID string) error {
		restarted = append(restarted, agentID)
		if agentID == "coding" {
			return fmt.Errorf("agent offline")
		}
		return nil
	})

	rec := serveAdmin(a, http.MethodPost, "/api/restart", `{}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serveAdmin(a, http.MethodPost, "/api/restart", `{"agent":"coding"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, []string{"main", "coding"}, restarted)
}

func TestAdminPreflightAndNotFound(t *testing.T) {
	a := NewAdmin(workspace.New(t.TempDir()), 3001, nil)

	rec := serveAdmin(a, http.MethodOptions, "/api/file", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))

	rec = serveAdmin(a, http.MethodPost, "/api/unknown", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", gjson.Get(rec.Body.String(), "error").String())
}
