package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tenxcards/tenxcards-backend/internal/http/response"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/ctxutil"
	"github.com/tenxcards/tenxcards-backend/internal/platform/ratelimit"
)

// RateLimit keys on the caller id, or the client IP for guests.
func RateLimit(limiter *ratelimit.KeyedRateLimiter) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if id, ok := ctxutil.UserID(c.Request.Context()); ok {
			key = "user:" + id.String()
		}
		if !limiter.Allow(key) {
			response.RespondMessage(c, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please try again later.")
			c.Abort()
			return
		}
		c.Next()
	}
}
