package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
)

// PageHandler serves the built frontend for page routes. Without a dist
// directory it answers {"page": path} so the route policy stays observable.
type PageHandler struct {
	distDir string
}

func NewPageHandler(distDir string) *PageHandler {
	return &PageHandler{distDir: strings.TrimSpace(distDir)}
}

func (h *PageHandler) Serve(c *gin.Context) {
	page := c.Request.URL.Path
	if h.distDir == "" {
		c.JSON(http.StatusOK, gin.H{"page": page})
		return
	}
	rel := strings.Trim(filepath.Clean("/"+page), "/")
	for _, candidate := range []string{
		filepath.Join(h.distDir, rel, "index.html"),
		filepath.Join(h.distDir, rel+".html"),
	} {
		if fi, err := os.Stat(candidate); err == nil && !fi.IsDir() {
			c.File(candidate)
			return
		}
	}
	c.File(filepath.Join(h.distDir, "index.html"))
}
