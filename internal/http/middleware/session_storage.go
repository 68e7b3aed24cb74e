package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	AccessTokenCookie  = "sb-access-token"
	RefreshTokenCookie = "sb-refresh-token"
)

// SessionTokens is the access/refresh pair carried by a client.
type SessionTokens struct {
	AccessToken  string
	RefreshToken string
}

func (t SessionTokens) Empty() bool { return t.AccessToken == "" && t.RefreshToken == "" }

// SessionStorage reads and writes the token pair for one request.
type SessionStorage interface {
	Load(c *gin.Context) SessionTokens
	Save(c *gin.Context, tokens SessionTokens, accessTTL, refreshTTL time.Duration)
	Clear(c *gin.Context)
}

type cookieStorage struct {
	secure bool
}

// NewCookieStorage stores tokens in HttpOnly, SameSite=Lax cookies scoped to /.
func NewCookieStorage(secure bool) SessionStorage {
	return &cookieStorage{secure: secure}
}

func (s *cookieStorage) Load(c *gin.Context) SessionTokens {
	var t SessionTokens
	if v, err := c.Cookie(AccessTokenCookie); err == nil {
		t.AccessToken = v
	}
	if v, err := c.Cookie(RefreshTokenCookie); err == nil {
		t.RefreshToken = v
	}
	return t
}

func (s *cookieStorage) Save(c *gin.Context, tokens SessionTokens, accessTTL, refreshTTL time.Duration) {
	s.set(c, AccessTokenCookie, tokens.AccessToken, int(accessTTL.Seconds()))
	s.set(c, RefreshTokenCookie, tokens.RefreshToken, int(refreshTTL.Seconds()))
}

func (s *cookieStorage) Clear(c *gin.Context) {
	s.set(c, AccessTokenCookie, "", -1)
	s.set(c, RefreshTokenCookie, "", -1)
}

func (s *cookieStorage) set(c *gin.Context, name, value string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
