package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tenxcards/tenxcards-backend/internal/pkg/ctxutil"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
)

// RequestLogger writes one line per request. Probe endpoints log at Debug; the
// rest log at Info, Warn or Error by status class.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log = log.With("Middleware", "RequestLogger")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		fields := []any{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		fields = append(fields, ctxutil.LogFields(c.Request.Context())...)
		if id, ok := ctxutil.UserID(c.Request.Context()); ok {
			fields = append(fields, "user_id", id.String())
		}
		if loc := c.Writer.Header().Get("Location"); loc != "" {
			fields = append(fields, "redirect", loc)
		}
		if errs := c.Errors.ByType(gin.ErrorTypeAny).String(); errs != "" {
			fields = append(fields, "errors", errs)
		}

		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		case isProbe(route):
			log.Debug("HTTP request", fields...)
		default:
			log.Info("HTTP request", fields...)
		}
	}
}

func isProbe(route string) bool {
	switch route {
	case "/healthcheck", "/readyz", "/metrics":
		return true
	}
	return false
}
