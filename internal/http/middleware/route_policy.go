package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tenxcards/tenxcards-backend/internal/pkg/ctxutil"
)

type RouteAction int

const (
	RoutePass RouteAction = iota
	RouteRedirect
)

type RouteDecision struct {
	Action   RouteAction
	Location string
}

var (
	publicPages   = map[string]bool{"/login": true, "/register": true, "/reset-password": true, "/generate": true}
	authOnlyPages = map[string]bool{"/login": true, "/register": true}
)

// DecideRoute applies the page policy. API paths always pass; handlers decide
// their own auth.
func DecideRoute(path string, authenticated bool) RouteDecision {
	if path != "/" {
		path = strings.TrimRight(path, "/")
	}
	if path == "/api" || strings.HasPrefix(path, "/api/") {
		return RouteDecision{Action: RoutePass}
	}
	if authenticated && authOnlyPages[path] {
		return RouteDecision{Action: RouteRedirect, Location: "/generate"}
	}
	if !authenticated && !publicPages[path] {
		return RouteDecision{Action: RouteRedirect, Location: "/login"}
	}
	return RouteDecision{Action: RoutePass}
}

// RoutePolicy redirects page requests per DecideRoute. It must run after Authenticate.
func RoutePolicy() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, authed := ctxutil.UserID(c.Request.Context())
		d := DecideRoute(c.Request.URL.Path, authed)
		if d.Action == RouteRedirect {
			c.Redirect(http.StatusFound, d.Location)
			c.Abort()
			return
		}
		c.Next()
	}
}
