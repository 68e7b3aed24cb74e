package openrouter

import (
	"fmt"
	"strings"

	apperrors "github.com/tenxcards/tenxcards-backend/internal/pkg/errors"
)

// ConfigurationError reports a missing or invalid client or chat setting.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "openrouter configuration: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return apperrors.ErrConfiguration }

// APIError reports a failed call: a non-2xx status, a transport failure (StatusCode 0)
// or a response that cannot be used.
type APIError struct {
	StatusCode int
	Body       string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString("openrouter api")
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " http %d", e.StatusCode)
	}
	switch {
	case e.Message != "":
		b.WriteString(": " + e.Message)
	case e.Body != "":
		b.WriteString(": " + truncate(e.Body, 512))
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *APIError) Unwrap() []error {
	if e.Err != nil {
		return []error{apperrors.ErrUpstream, e.Err}
	}
	return []error{apperrors.ErrUpstream}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
