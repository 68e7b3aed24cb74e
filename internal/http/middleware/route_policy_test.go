package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestDecideRoute(t *testing.T) {
	cases := []struct {
		path   string
		authed bool
		want   RouteDecision
	}{
		{"/", false, RouteDecision{Action: RouteRedirect, Location: "/login"}},
		{"/", true, RouteDecision{Action: RoutePass}},
		{"/generate", false, RouteDecision{Action: RoutePass}},
		{"/reset-password", false, RouteDecision{Action: RoutePass}},
		{"/login", false, RouteDecision{Action: RoutePass}},
		{"/register/", false, RouteDecision{Action: RoutePass}},
		{"/flashcards", false, RouteDecision{Action: RouteRedirect, Location: "/login"}},
		{"/settings", false, RouteDecision{Action: RouteRedirect, Location: "/login"}},
		{"/login", true, RouteDecision{Action: RouteRedirect, Location: "/generate"}},
		{"/register", true, RouteDecision{Action: RouteRedirect, Location: "/generate"}},
		{"/flashcards", true, RouteDecision{Action: RoutePass}},
		{"/generate", true, RouteDecision{Action: RoutePass}},
		{"/api/flashcards", false, RouteDecision{Action: RoutePass}},
		{"/api/auth/login", true, RouteDecision{Action: RoutePass}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, DecideRoute(tc.path, tc.authed), "%s authed=%v", tc.path, tc.authed)
	}
}

func TestRoutePolicyRedirectsGuests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RoutePolicy())
	r.GET("/flashcards", func(c *gin.Context) { c.String(http.StatusOK, "page") })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/flashcards", nil))

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}
