package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tenxcards/tenxcards-backend/internal/platform/openrouter"
)

// Pinger reports whether a dependency is reachable.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	checks   map[string]Pinger
	modelLog openrouter.ErrorLog
}

func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// WithModelErrors adds a summary of recent model API failures to the readiness report.
// Messages stay out of the response since they can echo upstream bodies.
func (h *HealthHandler) WithModelErrors(log openrouter.ErrorLog) *HealthHandler {
	h.modelLog = log
	return h
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// Ready pings every dependency and answers 503 if any fails.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	out := gin.H{}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			status = http.StatusServiceUnavailable
			out[name] = err.Error()
			continue
		}
		out[name] = "ok"
	}
	if h.modelLog != nil {
		out["model_api_errors"] = modelErrorSummary(h.modelLog.Entries(), time.Now())
	}
	c.JSON(status, out)
}

// modelErrorSummary counts failures in the last hour and reports the latest one.
func modelErrorSummary(entries []openrouter.ErrorEntry, now time.Time) gin.H {
	recent := 0
	for _, e := range entries {
		if now.Sub(e.At) <= time.Hour {
			recent++
		}
	}
	out := gin.H{"recent": recent, "buffered": len(entries)}
	if n := len(entries); n > 0 {
		out["last_at"] = entries[n-1].At.UTC().Format(time.RFC3339)
	}
	return out
}
