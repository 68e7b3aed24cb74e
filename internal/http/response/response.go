package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tenxcards/tenxcards-backend/internal/pkg/ctxutil"
	apperrors "github.com/tenxcards/tenxcards-backend/internal/pkg/errors"
	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
)

type ErrorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

const genericMessage = "Internal server error"

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorBody{Error: msg, Code: code})
}

// RespondMessage writes an error body with a caller-chosen message.
func RespondMessage(c *gin.Context, status int, code, message string) {
	c.JSON(status, ErrorBody{Error: message, Code: code})
}

// RespondAppError maps err's kind to a status. Internal failures are logged and
// answered with a generic message.
func RespondAppError(c *gin.Context, log *logger.Logger, err error) {
	status := StatusFor(apperrors.KindOf(err))
	e, ok := apperrors.As(err)
	if !ok || status >= http.StatusInternalServerError {
		if log != nil {
			fields := append([]any{"path", c.Request.URL.Path, "error", err}, ctxutil.LogFields(c.Request.Context())...)
			log.Error("Request failed", fields...)
		}
		code := apperrors.KindInternal.String()
		if ok && e.Code != "" {
			code = e.Code
		}
		c.JSON(status, ErrorBody{Error: genericMessage, Code: code})
		return
	}
	code := e.Code
	if code == "" {
		code = e.Kind.String()
	}
	c.JSON(status, ErrorBody{Error: e.Message, Code: code, Details: e.Details})
}

func StatusFor(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindValidation:
		return http.StatusBadRequest
	case apperrors.KindUnauthorized:
		return http.StatusUnauthorized
	case apperrors.KindForbidden:
		return http.StatusForbidden
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindConflict:
		return http.StatusConflict
	case apperrors.KindConfiguration:
		return http.StatusInternalServerError
	case apperrors.KindUpstream:
		return http.StatusInternalServerError
	case apperrors.KindEmptyResult:
		return http.StatusUnprocessableEntity
	case apperrors.KindRateLimited:
		return http.StatusTooManyRequests
	case apperrors.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}
