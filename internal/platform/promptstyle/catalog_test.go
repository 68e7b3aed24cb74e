package promptstyle

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmbeddedCatalog(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	p, err := c.Get(PromptFlashcards)
	require.NoError(t, err)
	require.NotNil(t, p.Parameters.Temperature)
	require.NotNil(t, p.Parameters.MaxTokens)
	assert.InDelta(t, 0.7, *p.Parameters.Temperature, 1e-9)
	assert.Equal(t, 1024, *p.Parameters.MaxTokens)

	require.NotNil(t, p.ResponseFormat)
	assert.True(t, p.ResponseFormat.Strict)
	assert.Equal(t, "object", p.ResponseFormat.Schema["type"])
}

func TestUserMessageSubstitutesSource(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	p, _ := c.Get(PromptFlashcards)

	msg := p.UserMessage(map[string]string{"source_text": "Photosynthesis converts light."})
	assert.True(t, strings.HasSuffix(msg, "Photosynthesis converts light."))
	assert.NotContains(t, msg, "{{source_text}}")
}

func TestApplySystemIsIdempotent(t *testing.T) {
	once := ApplySystem("Make cards.", "json")
	assert.True(t, strings.HasPrefix(once, marker))
	assert.Contains(t, once, "Task summary: Make cards.")
	assert.Equal(t, once, ApplySystem(once, "json"))
	assert.Equal(t, "", ApplySystem("   ", "json"))
}

func TestParseRejectsSchemaLessFormat(t *testing.T) {
	_, err := Parse([]byte("prompts:\n  x:\n    system: s\n    user: u\n    response_format:\n      name: x\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("prompts: {}\n"))
	assert.Error(t, err)
}

func TestGetUnknown(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)
	_, err = c.Get("nope")
	assert.Error(t, err)
}
