package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tenxcards/tenxcards-backend/internal/pkg/errors"
)

type captured struct {
	mu      sync.Mutex
	headers http.Header
	body    map[string]any
}

func fakeAPI(t *testing.T, status int, respBody string) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.headers = r.Header.Clone()
		_ = json.Unmarshal(raw, &c.body)
		c.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func newTestClient(url string, log ErrorLog) *Client {
	return NewClient(Config{
		APIKey:            "sk-test",
		APIURL:            url,
		DefaultModel:      DefaultModel,
		DefaultParameters: DefaultParameters(),
		Referer:           "http://localhost",
		Title:             "10x Cards",
	}, log, nil)
}

const okBody = `{"id":"gen-1","choices":[{"message":{"role":"assistant","content":"[{\"front\":\"Q\",\"back\":\"A\",\"source\":\"ai-full\"}]"}}],"usage":{"prompt_tokens":10,"completion_tokens":5}}`

func TestContentSendsExpectedPayload(t *testing.T) {
	srv, got := fakeAPI(t, http.StatusOK, okBody)
	client := newTestClient(srv.URL, nil)

	chat := client.NewChat()
	require.NoError(t, chat.SetSystemMessage("sys"))
	require.NoError(t, chat.SetUserMessage("user text"))
	maxTokens := 2048
	chat.SetModelParameters(ModelParameters{MaxTokens: &maxTokens})
	require.NoError(t, chat.SetResponseFormat(JSONSchemaFormat("flashcards", true, map[string]any{"type": "array"})))

	content, err := chat.Content(context.Background())
	require.NoError(t, err)
	assert.Contains(t, content, `"front":"Q"`)

	got.mu.Lock()
	defer got.mu.Unlock()
	assert.Equal(t, "Bearer sk-test", got.headers.Get("Authorization"))
	assert.Equal(t, "application/json", got.headers.Get("Content-Type"))
	assert.Equal(t, "http://localhost", got.headers.Get("HTTP-Referer"))
	assert.Equal(t, "10x Cards", got.headers.Get("X-Title"))

	assert.Equal(t, DefaultModel, got.body["model"])
	assert.InDelta(t, 0.7, got.body["temperature"], 1e-9)
	assert.EqualValues(t, 2048, got.body["max_tokens"])
	msgs := got.body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, map[string]any{"role": "system", "content": "sys"}, msgs[0])
	assert.Equal(t, map[string]any{"role": "user", "content": "user text"}, msgs[1])
	rf := got.body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", rf["type"])
	js := rf["json_schema"].(map[string]any)
	assert.Equal(t, "flashcards", js["name"])
	assert.Equal(t, true, js["strict"])
	assert.Equal(t, map[string]any{"type": "array"}, js["schema"])
}

func TestNonSuccessStatusIsAPIErrorAndLogged(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusTooManyRequests, `{"error":{"message":"rate limited"}}`)
	errLog := NewRingErrorLog(10)
	chat := newTestClient(srv.URL, errLog).NewChat()
	require.NoError(t, chat.SetUserMessage("hi"))

	_, err := chat.Content(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "rate limited", apiErr.Message)
	assert.Contains(t, apiErr.Body, "rate limited")
	assert.True(t, errors.Is(err, apperrors.ErrUpstream))
	assert.Equal(t, apperrors.KindUpstream, apperrors.KindOf(err))

	entries := errLog.Entries()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Message, "429")
}

func TestMissingChoicesIsAPIError(t *testing.T) {
	srv, _ := fakeAPI(t, http.StatusOK, `{"id":"x","choices":[]}`)
	errLog := NewRingErrorLog(10)
	chat := newTestClient(srv.URL, errLog).NewChat()
	require.NoError(t, chat.SetUserMessage("hi"))

	_, err := chat.Content(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Len(t, errLog.Entries(), 1)
}

func TestConfigurationErrors(t *testing.T) {
	errLog := NewRingErrorLog(10)
	client := NewClient(Config{APIURL: "http://unused", DefaultModel: DefaultModel}, errLog, nil)

	chat := client.NewChat()
	require.NoError(t, chat.SetUserMessage("hi"))
	err := chat.Send(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Equal(t, apperrors.KindConfiguration, apperrors.KindOf(err))

	withKey := NewClient(Config{APIKey: "k", APIURL: "http://unused", DefaultModel: DefaultModel}, errLog, nil)
	err = withKey.NewChat().Send(context.Background(), nil)
	assert.True(t, IsConfigurationError(err), "user message is required")

	assert.Len(t, errLog.Entries(), 2)
}

func TestSettersRejectEmpty(t *testing.T) {
	chat := newTestClient("http://unused", nil).NewChat()
	assert.Error(t, chat.SetSystemMessage("  "))
	assert.Error(t, chat.SetUserMessage(""))
	assert.Error(t, chat.SetModelName(" "))
	assert.Error(t, chat.SetResponseFormat(ResponseFormat{Type: "json_schema"}))
	assert.Equal(t, DefaultModel, chat.Model())
}

func TestChatsDoNotShareState(t *testing.T) {
	client := newTestClient("http://unused", nil)
	a := client.NewChat()
	b := client.NewChat()
	require.NoError(t, a.SetModelName("anthropic/claude-3-haiku"))
	temp := 0.1
	a.SetModelParameters(ModelParameters{Temperature: &temp})

	assert.Equal(t, DefaultModel, b.Model())
	assert.InDelta(t, 0.7, *b.Parameters().Temperature, 1e-9)
	assert.Equal(t, 1024, *a.Parameters().MaxTokens, "defaults survive a partial override")
}

func TestContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	chat := newTestClient(srv.URL, nil).NewChat()
	require.NoError(t, chat.SetUserMessage("hi"))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := chat.Content(ctx)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, 0, apiErr.StatusCode)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRingErrorLogKeepsNewest(t *testing.T) {
	r := NewRingErrorLog(2)
	r.Record(errors.New("one"))
	r.Record(errors.New("two"))
	r.Record(errors.New("three"))
	r.Record(nil)

	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "two", entries[0].Message)
	assert.Equal(t, "three", entries[1].Message)
}
