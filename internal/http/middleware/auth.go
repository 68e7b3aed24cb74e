package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tenxcards/tenxcards-backend/internal/http/response"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/ctxutil"
	apperrors "github.com/tenxcards/tenxcards-backend/internal/pkg/errors"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
	"github.com/tenxcards/tenxcards-backend/internal/services"
)

type AuthMiddleware struct {
	log         *logger.Logger
	authService services.AuthService
	storage     SessionStorage
}

func NewAuthMiddleware(log *logger.Logger, authService services.AuthService, storage SessionStorage) *AuthMiddleware {
	middlewareLogger := log.With("Middleware", "AuthMiddleware")
	return &AuthMiddleware{log: middlewareLogger, authService: authService, storage: storage}
}

// Authenticate attaches the caller when the stored tokens are valid. Invalid
// tokens are cleared and the request continues unauthenticated.
func (am *AuthMiddleware) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokens := am.storage.Load(c)
		if tokens.Empty() {
			c.Next()
			return
		}
		sess, refreshed, err := am.authService.Authenticate(c.Request.Context(), tokens.AccessToken, tokens.RefreshToken)
		if err != nil {
			if apperrors.KindOf(err) == apperrors.KindUnauthorized {
				am.log.Debug("Session rejected", "error", err)
			} else {
				am.log.Warn("Session check failed", "error", err)
			}
			am.storage.Clear(c)
			c.Next()
			return
		}
		if refreshed {
			am.storage.Save(c, SessionTokens{AccessToken: sess.AccessToken, RefreshToken: sess.RefreshToken},
				am.authService.AccessTTL(), am.authService.RefreshTTL())
		}
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{
			UserID:       sess.UserID,
			Email:        sess.Email,
			AccessToken:  sess.AccessToken,
			RefreshToken: sess.RefreshToken,
			ExpiresAt:    sess.ExpiresAt,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequireAuth answers 401 unless Authenticate attached a caller.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := ctxutil.UserID(c.Request.Context()); !ok {
			response.RespondMessage(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
			c.Abort()
			return
		}
		c.Next()
	}
}
