package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/tenxcards/tenxcards-backend/internal/pkg/errors"
)

func pathID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.Validation("invalid_id", "Invalid ID")
	}
	return id, nil
}

// queryInt returns def for an absent parameter and an error for a malformed one.
func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Validation("invalid_query", "Invalid query parameters").
			WithDetails(map[string]string{key: "must be an integer"})
	}
	return v, nil
}

func invalidBody(err error) error {
	return apperrors.Wrap(apperrors.KindValidation, "invalid_request", "Invalid request body", err)
}
