package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelsMatchByKind(t *testing.T) {
	err := fmt.Errorf("load flashcard: %w", NotFound("flashcard_not_found", "Flashcard not found"))

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestKindOfPlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestErrorMessageIncludesCause(t *testing.T) {
	err := Wrap(KindUpstream, "api_error", "API request failed", errors.New("502 bad gateway"))

	assert.Equal(t, "API request failed: 502 bad gateway", err.Error())
	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "api_error", e.Code)
}

func TestWithDetailsCopies(t *testing.T) {
	base := NotFound("flashcards_not_found", "Some flashcards not found or not accessible")
	withDetails := base.WithDetails([]int64{4, 9})

	assert.Nil(t, base.Details)
	assert.Equal(t, []int64{4, 9}, withDetails.Details)
}

func TestKindStrings(t *testing.T) {
	cases := map[Kind]string{
		KindValidation:    "validation_error",
		KindUnauthorized:  "unauthorized",
		KindForbidden:     "forbidden",
		KindNotFound:      "not_found",
		KindConflict:      "conflict",
		KindConfiguration: "configuration_error",
		KindUpstream:      "api_error",
		KindEmptyResult:   "empty_result",
		KindRateLimited:   "rate_limited",
		KindInternal:      "internal_error",
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.String())
	}
}
