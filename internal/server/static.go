package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// mountStatic serves the single page frontend. Unknown /api paths always get
// a JSON 404; other unknown paths fall back to index.html when present.
func (s *Server) mountStatic() {
	var index string
	defer func() {
		s.engine.NoRoute(func(c *gin.Context) {
			if index == "" || strings.HasPrefix(c.Request.URL.Path, "/api/") {
				c.JSON(http.StatusNotFound, gin.H{"error": "endpoint not found"})
				return
			}
			c.File(index)
		})
	}()

	if s.staticDir == "" {
		s.logger.Info("no static directory configured, serving the API only")
		return
	}
	if info, err := os.Stat(s.staticDir); err != nil || !info.IsDir() {
		s.logger.Warn("static directory missing", "path", s.staticDir, "error", err)
		return
	}

	candidate := filepath.Join(s.staticDir, "index.html")
	if _, err := os.Stat(candidate); err != nil {
		s.logger.Warn("index.html not found", "path", candidate, "error", err)
	} else {
		index = candidate
		s.engine.GET("/", func(c *gin.Context) { c.File(index) })
	}

	for _, dir := range []string{"assets", "sounds", "backgrounds"} {
		path := filepath.Join(s.staticDir, dir)
		if _, err := os.Stat(path); err == nil {
			s.engine.StaticFS("/"+dir, gin.Dir(path, false))
		}
	}

	favicon := filepath.Join(s.staticDir, "favicon.ico")
	if _, err := os.Stat(favicon); err == nil {
		s.engine.StaticFile("/favicon.ico", favicon)
	}
}
