package middleware

import (
	"log"

	"lumi/internal/workspace"

	"github.com/gin-gonic/gin"
)

// EnsureWorkspace makes sure the workspace directory exists before the
// request reaches a handler. A failure is logged and the request continues;
// handlers report the missing directory themselves.
func EnsureWorkspace(ws *workspace.Workspace) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ws == nil {
			c.Next()
			return
		}
		if err := ws.Ensure(); err != nil {
			log.Printf("[EnsureWorkspace] %v", err)
		}
		c.Next()
	}
}
