package ui

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"lumi/internal/errors"
	"lumi/internal/workspace"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Agent is one entry of the admin agent list
type Agent struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Online bool   `json:"online"`
	Skills int    `json:"skills"`
}

// DefaultAgents is the agent roster shown until agents report themselves
var DefaultAgents = []Agent{
	{ID: "main", Name: "main", Online: true, Skills: 12},
	{ID: "sub-agent-1", Name: "research", Online: true, Skills: 8},
	{ID: "sub-agent-2", Name: "coding", Online: false, Skills: 5},
}

// Admin serves bot status and agent file management
type Admin struct {
	router    *chi.Mux
	workspace *workspace.Workspace
	agents    []Agent
	port      int
	restart   func(agentID string) error
}

// NewAdmin creates the admin router. restart may be nil, in which case
// restarts are only logged.
func NewAdmin(ws *workspace.Workspace, port int, restart func(agentID string) error) *Admin {
	if restart == nil {
		restart = func(agentID string) error {
			log.Printf("[Admin] Restart requested for agent %s", agentID)
			return nil
		}
	}
	a := &Admin{
		router:    chi.NewRouter(),
		workspace: ws,
		agents:    DefaultAgents,
		port:      port,
		restart:   restart,
	}
	a.setupMiddleware()
	a.setupRoutes()
	return a
}

// setupMiddleware configures HTTP middleware
func (a *Admin) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(cors)
}

// setupRoutes configures the admin routes
func (a *Admin) setupRoutes() {
	a.router.Get("/api/status", a.handleStatus)
	a.router.Get("/api/dashboard", a.handleDashboard)
	a.router.Get("/api/file", a.handleGetFile)
	a.router.Post("/api/file", a.handleSaveFile)
	a.router.Post("/api/restart", a.handleRestart)
	a.router.Options("/*", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	a.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	})
}

// Handler exposes the router for http.Server and tests
func (a *Admin) Handler() http.Handler {
	return a.router
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		next.ServeHTTP(w, r)
	})
}

func (a *Admin) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := a.workspace.Status()
	status["timestamp"] = time.Now().Format(time.RFC3339)
	writeJSON(w, http.StatusOK, status)
}

func (a *Admin) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"agents": a.agents,
		"port":   a.port,
	})
}

func (a *Admin) handleGetFile(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	agentID := queryOrDefault(query.Get("agent"), "main")
	file := queryOrDefault(query.Get("file"), "Soul.md")

	var (
		content string
		err     error
	)
	if query.Get("format") == "html" {
		content, err = a.workspace.RenderAgentFile(agentID, file)
	} else {
		content, err = a.workspace.ReadAgentFile(agentID, file)
	}
	if err != nil {
		if errors.HasCode(err, errors.CodeNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "File not found"})
			return
		}
		log.Printf("[Admin] Reading %s/%s failed: %v", agentID, file, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to read file"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": content})
}

type saveFileRequest struct {
	Agent   string `json:"agent"`
	File    string `json:"file"`
	Content string `json:"content"`
}

func (a *Admin) handleSaveFile(w http.ResponseWriter, r *http.Request) {
	var req saveFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}
	agentID := queryOrDefault(req.Agent, "main")
	file := queryOrDefault(req.File, "Soul.md")

	if err := a.workspace.WriteAgentFile(agentID, file, req.Content); err != nil {
		log.Printf("[Admin] Saving %s/%s failed: %v", agentID, file, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to save file"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *Admin) handleRestart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Agent string `json:"agent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON body"})
		return
	}
	agentID := queryOrDefault(req.Agent, "main")
	if err := a.restart(agentID); err != nil {
		err = errors.ExternalServiceError("agent "+agentID, err)
		log.Printf("[Admin] Restart failed: %v", err)
		writeJSON(w, errors.HTTPStatus(err), map[string]string{"error": "Failed to restart agent"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryOrDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		log.Printf("[Admin] Encoding response failed: %v", err)
	}
}
