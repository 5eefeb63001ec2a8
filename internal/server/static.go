package server

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// mountStatic serves the built frontend when the directory exists. Unknown
// API paths always get a JSON 404; other unknown paths fall back to the
// single-page app's index.html.
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

	dir := s.opts.StaticDir
	if dir == "" {
		s.logger.Info("no static directory configured, serving API only")
		return
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		s.logger.Warn("static directory missing, serving API only", "path", dir)
		return
	}

	candidate := filepath.Join(dir, "index.html")
	if _, err := os.Stat(candidate); err != nil {
		s.logger.Warn("index.html not found", "path", candidate)
	} else {
		index = candidate
		s.engine.GET("/", func(c *gin.Context) { c.File(index) })
	}

	if assets := filepath.Join(dir, "assets"); isDir(assets) {
		s.engine.StaticFS("/assets", gin.Dir(assets, false))
	}
	if favicon := filepath.Join(dir, "favicon.ico"); fileExists(favicon) {
		s.engine.StaticFile("/favicon.ico", favicon)
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
