package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tenxcards/tenxcards-backend/internal/domain/user"
	"github.com/tenxcards/tenxcards-backend/internal/http/middleware"
	"github.com/tenxcards/tenxcards-backend/internal/http/response"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/ctxutil"
	apperrors "github.com/tenxcards/tenxcards-backend/internal/pkg/errors"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
	"github.com/tenxcards/tenxcards-backend/internal/services"
)

const (
	msgInvalidCredentials = "Nieprawidłowy email lub hasło"
	msgLoginFailed        = "Wystąpił błąd podczas logowania"
	msgUserExists         = "Użytkownik o tym adresie email już istnieje"
	msgAutoLoginFailed    = "Rejestracja udana, ale wystąpił błąd podczas automatycznego logowania"
	msgRegisterFailed     = "Wystąpił błąd podczas rejestracji"
	msgLogoutFailed       = "Wystąpił błąd podczas wylogowywania"
	msgLoggedOut          = "Wylogowano pomyślnie"
	msgBadRequest         = "Wystąpił błąd podczas przetwarzania żądania"
)

type AuthHandler struct {
	log         *logger.Logger
	authService services.AuthService
	storage     middleware.SessionStorage
}

func NewAuthHandler(log *logger.Logger, authService services.AuthService, storage middleware.SessionStorage) *AuthHandler {
	return &AuthHandler{
		log:         log.With("handler", "AuthHandler"),
		authService: authService,
		storage:     storage,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// POST /api/auth/register
func (ah *AuthHandler) Register(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondMessage(c, http.StatusBadRequest, "invalid_request", msgBadRequest)
		return
	}
	sess, err := ah.authService.RegisterUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		e, _ := apperrors.As(err)
		switch {
		case e != nil && e.Code == services.CodeUserExists:
			response.RespondMessage(c, http.StatusBadRequest, e.Code, msgUserExists)
		case e != nil && e.Code == services.CodeAutoLoginFailed:
			ah.log.Warn("Auto login after register failed", "error", err)
			response.RespondMessage(c, http.StatusBadRequest, e.Code, msgAutoLoginFailed)
		case e != nil && e.Kind == apperrors.KindValidation:
			c.JSON(http.StatusBadRequest, response.ErrorBody{Error: e.Message, Code: e.Code, Details: e.Details})
		default:
			ah.log.Error("Register failed", "error", err)
			response.RespondMessage(c, http.StatusInternalServerError, "registration_failed", msgRegisterFailed)
		}
		return
	}
	ah.writeSession(c, sess)
}

// POST /api/auth/login and the legacy POST /api/login
func (ah *AuthHandler) Login(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondMessage(c, http.StatusBadRequest, "invalid_request", msgBadRequest)
		return
	}
	sess, err := ah.authService.LoginUser(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		e, _ := apperrors.As(err)
		switch {
		case e != nil && e.Code == services.CodeInvalidCredentials:
			response.RespondMessage(c, http.StatusBadRequest, e.Code, msgInvalidCredentials)
		case e != nil && e.Kind != apperrors.KindInternal:
			response.RespondMessage(c, http.StatusBadRequest, "login_failed", msgLoginFailed)
		default:
			ah.log.Error("Login failed", "error", err)
			response.RespondMessage(c, http.StatusInternalServerError, "login_failed", msgBadRequest)
		}
		return
	}
	ah.writeSession(c, sess)
}

func (ah *AuthHandler) writeSession(c *gin.Context, sess *services.Session) {
	ah.storage.Save(c, middleware.SessionTokens{AccessToken: sess.AccessToken, RefreshToken: sess.RefreshToken},
		ah.authService.AccessTTL(), ah.authService.RefreshTTL())
	response.RespondOK(c, gin.H{"user": user.UserDTO{ID: sess.UserID, Email: sess.Email}})
}

// POST /api/auth/logout. Always clears the cookies.
func (ah *AuthHandler) Logout(c *gin.Context) {
	tokens := ah.storage.Load(c)
	err := ah.authService.LogoutUser(c.Request.Context(), tokens.AccessToken, tokens.RefreshToken)
	ah.storage.Clear(c)
	if err != nil {
		ah.log.Error("Logout failed", "error", err)
		response.RespondMessage(c, http.StatusInternalServerError, "logout_failed", msgLogoutFailed)
		return
	}
	response.RespondOK(c, gin.H{"message": msgLoggedOut})
}

type sessionView struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// GET /api/auth/session
func (ah *AuthHandler) Session(c *gin.Context) {
	tokens := ah.storage.Load(c)
	out := gin.H{
		"session": nil,
		"user":    nil,
		"cookies": gin.H{
			"has_access_token":  tokens.AccessToken != "",
			"has_refresh_token": tokens.RefreshToken != "",
		},
	}
	if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
		if _, ok := ctxutil.UserID(c.Request.Context()); ok {
			out["session"] = sessionView{UserID: rd.UserID.String(), ExpiresAt: rd.ExpiresAt}
			out["user"] = user.UserDTO{ID: rd.UserID, Email: rd.Email}
		}
	}
	response.RespondOK(c, out)
}
