package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/tenxcards/tenxcards-backend/internal/pkg/ctxutil"
)

const (
	HeaderRequestID = "X-Request-Id"
	HeaderTraceID   = "X-Trace-Id"

	maxRequestIDLen = 64
)

// RequestIDs tags every request with a request id (client supplied when well
// formed) and the active span's trace id. Both are echoed as response headers.
func RequestIDs() gin.HandlerFunc {
	return func(c *gin.Context) {
		ids := ctxutil.RequestIDs{RequestID: c.GetHeader(HeaderRequestID)}
		if !validRequestID(ids.RequestID) {
			ids.RequestID = uuid.NewString()
		}
		if sc := trace.SpanContextFromContext(c.Request.Context()); sc.HasTraceID() {
			ids.TraceID = sc.TraceID().String()
			c.Header(HeaderTraceID, ids.TraceID)
		}
		c.Header(HeaderRequestID, ids.RequestID)
		c.Request = c.Request.WithContext(ctxutil.WithRequestIDs(c.Request.Context(), ids))
		c.Next()
	}
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
