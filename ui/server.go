package ui

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"time"

	"lumi/domain/flow"
	"lumi/internal/dashboard"
	"lumi/internal/errors"
	"lumi/internal/extractor"
	"lumi/internal/presence"
	"lumi/internal/workspace"
	"lumi/ui/middleware"

	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html static/*
var embeddedFiles embed.FS

// refreshWait bounds how long POST /dashboard/refresh waits before answering
const refreshWait = 15 * time.Second

// Server serves the flowchart backend API and the dashboard built on it
type Server struct {
	router        *gin.Engine
	templates     *template.Template
	scans         extractor.Source
	workspace     *workspace.Workspace
	controller    *dashboard.Controller
	presence      *presence.Presence
	categoryLimit int
}

// ServerDeps wires the server's collaborators
type ServerDeps struct {
	Scans         extractor.Source
	Workspace     *workspace.Workspace
	Controller    *dashboard.Controller
	Presence      *presence.Presence
	CategoryLimit int
	GinMode       string
}

// NewServer creates the gin server and parses the page templates
func NewServer(deps ServerDeps) (*Server, error) {
	if deps.GinMode != "" {
		gin.SetMode(deps.GinMode)
	}
	if deps.Presence == nil {
		deps.Presence = presence.New()
	}
	if deps.CategoryLimit < 1 {
		deps.CategoryLimit = 10
	}

	funcMap := template.FuncMap{
		"uptime": presence.FormatUptime,
		"clock":  func(t time.Time) string { return t.Format("15:04:05") },
	}
	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		router:        gin.New(),
		templates:     templates,
		scans:         deps.Scans,
		workspace:     deps.Workspace,
		controller:    deps.Controller,
		presence:      deps.Presence,
		categoryLimit: deps.CategoryLimit,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Logger(), gin.Recovery())

	staticFS, err := fs.Sub(embeddedFiles, "static")
	if err != nil {
		log.Printf("[setupMiddleware] Error creating static filesystem: %v", err)
		return
	}
	s.router.StaticFS("/static", http.FS(staticFS))
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	// Backend API
	api := s.router.Group("/api", middleware.EnsureWorkspace(s.workspace))
	api.GET("/flowchart", s.handleFlowchart)
	api.GET("/stats", s.handleStats)

	// Dashboard page and HTMX fragments
	s.router.GET("/", s.handleIndex)
	s.router.POST("/dashboard/refresh", s.handleRefresh)
	s.router.GET("/dashboard/summary", s.handleRegion(func(v dashboard.View) template.HTML { return v.Summary }))
	s.router.GET("/dashboard/diagram", s.handleRegion(func(v dashboard.View) template.HTML { return v.Diagram }))
	s.router.GET("/dashboard/stats", s.handleRegion(func(v dashboard.View) template.HTML { return v.Stats }))
	s.router.GET("/dashboard/category/:key", s.handleCategory)

	// Presence
	s.router.GET("/api/expression", s.handleExpression)
	s.router.POST("/api/expression/:name", s.handleSetExpression)
}

// Handler exposes the router for http.Server and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleFlowchart(c *gin.Context) {
	result, err := s.scans.Get(c.Request.Context())
	if err != nil {
		log.Printf("[Flowchart] Scan failed: %v", err)
		c.JSON(errors.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result.Payload(s.categoryLimit))
}

func (s *Server) handleStats(c *gin.Context) {
	files, err := s.workspace.MarkdownFiles()
	if err != nil {
		log.Printf("[Stats] Listing workspace failed: %v", err)
		c.JSON(errors.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	stats := flow.Stats{
		FilesInWorkspace: len(files),
		WorkspacePath:    s.workspace.Dir,
		Status:           "online",
	}
	if result, err := s.scans.Get(c.Request.Context()); err == nil {
		stats.RuleDensity = result.Density()
	} else {
		log.Printf("[Stats] Rule density unavailable: %v", err)
	}
	c.JSON(http.StatusOK, stats)
}

type indexPage struct {
	Title      string
	View       dashboard.View
	Categories []flow.Category
	Expression presence.Expression
	Status     presence.StatusLine
	Uptime     time.Duration
	Activity   []presence.Activity
}

func (s *Server) handleIndex(c *gin.Context) {
	expression, status := s.presence.Current()
	s.renderTemplate(c, "index.html", indexPage{
		Title:      "Lumi Dashboard",
		View:       s.controller.View(),
		Categories: flow.Categories,
		Expression: expression,
		Status:     status,
		Uptime:     s.presence.Uptime(),
		Activity:   s.presence.Activity(),
	})
}

func (s *Server) handleRefresh(c *gin.Context) {
	s.controller.Refresh()
	s.presence.Log("info", "Flow chart refresh requested")

	ctx, cancel := context.WithTimeout(c.Request.Context(), refreshWait)
	defer cancel()
	if err := s.controller.Wait(ctx); err != nil {
		log.Printf("[Refresh] Responding before fetches settled: %v", err)
	}
	s.renderTemplate(c, "refresh", s.controller.View())
}

func (s *Server) handleRegion(pick func(dashboard.View) template.HTML) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(pick(s.controller.View())))
	}
}

func (s *Server) handleCategory(c *gin.Context) {
	cards, err := s.controller.SelectCategory(c.Param("key"))
	if err != nil {
		c.String(errors.HTTPStatus(err), err.Error())
		return
	}
	if cards == "" {
		// nothing fetched yet; leave the current region untouched
		c.Status(http.StatusNoContent)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(cards))
}

func (s *Server) expressionState() gin.H {
	expression, status := s.presence.Current()
	return gin.H{
		"expression": expression,
		"status":     status,
		"uptime":     presence.FormatUptime(s.presence.Uptime()),
		"activity":   s.presence.Activity(),
	}
}

func (s *Server) handleExpression(c *gin.Context) {
	c.JSON(http.StatusOK, s.expressionState())
}

func (s *Server) handleSetExpression(c *gin.Context) {
	var err error
	switch name := c.Param("name"); name {
	case "next":
		s.presence.Next()
	case "previous":
		s.presence.Previous()
	case "apply":
		err = s.presence.ApplyPreview()
	default:
		var e presence.Expression
		if e, err = presence.ParseExpression(name); err == nil {
			err = s.presence.Set(e)
		}
	}
	if err != nil {
		c.JSON(errors.HTTPStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.expressionState())
}

// Template helpers
func (s *Server) renderTemplate(c *gin.Context, templateName string, data interface{}) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(c.Writer, templateName, data); err != nil {
		log.Printf("Template error: %v", err)
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}
