package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/tenxcards/tenxcards-backend/internal/observability"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type payload struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

type ChatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Code    any    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Chat is a single request. It is not safe for concurrent use; build one per call.
type Chat struct {
	client *Client
	system string
	user   string
	model  string
	params ModelParameters
	format *ResponseFormat
}

func (ch *Chat) SetSystemMessage(msg string) error {
	if strings.TrimSpace(msg) == "" {
		return &ConfigurationError{Reason: "system message cannot be empty"}
	}
	ch.system = msg
	return nil
}

func (ch *Chat) SetUserMessage(msg string) error {
	if strings.TrimSpace(msg) == "" {
		return &ConfigurationError{Reason: "user message cannot be empty"}
	}
	ch.user = msg
	return nil
}

func (ch *Chat) SetModelName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ConfigurationError{Reason: "model name cannot be empty"}
	}
	ch.model = strings.TrimSpace(name)
	return nil
}

// SetModelParameters merges p over the client defaults, discarding earlier overrides.
func (ch *Chat) SetModelParameters(p ModelParameters) {
	ch.params = ch.client.cfg.DefaultParameters.Merge(p)
}

func (ch *Chat) SetResponseFormat(f ResponseFormat) error {
	if len(f.JSONSchema.Schema) == 0 {
		return &ConfigurationError{Reason: "invalid response format: missing JSON schema"}
	}
	if f.Type == "" {
		f.Type = "json_schema"
	}
	ch.format = &f
	return nil
}

func (ch *Chat) Model() string { return ch.model }

func (ch *Chat) Parameters() ModelParameters { return ch.params }

func (ch *Chat) payload() payload {
	return payload{
		Model: ch.model,
		Messages: []Message{
			{Role: "system", Content: ch.system},
			{Role: "user", Content: ch.user},
		},
		Temperature:    ch.params.Temperature,
		MaxTokens:      ch.params.MaxTokens,
		ResponseFormat: ch.format,
	}
}

func (ch *Chat) validate() error {
	cfg := ch.client.cfg
	var missing []string
	if cfg.APIKey == "" {
		missing = append(missing, "apiKey")
	}
	if cfg.APIURL == "" {
		missing = append(missing, "apiUrl")
	}
	if ch.model == "" {
		missing = append(missing, "modelName")
	}
	if len(missing) > 0 {
		return &ConfigurationError{Reason: "missing " + strings.Join(missing, ", ")}
	}
	if ch.user == "" {
		return &ConfigurationError{Reason: "user message is required before sending chat"}
	}
	return nil
}

// Send posts the chat once and decodes the raw response body into out (skipped when out is nil).
// Every failure is recorded in the client's error log before it is returned.
func (ch *Chat) Send(ctx context.Context, out any) (err error) {
	c := ch.client
	ctx, span := observability.StartSpan(ctx, "openrouter.chat", attribute.String("llm.model", ch.model))
	defer func() {
		if err != nil {
			c.errLog.Record(err)
			c.log.Error("Chat completion failed", "model", ch.model, "error", err)
		}
		observability.EndSpan(span, err)
	}()

	if err := ch.validate(); err != nil {
		return err
	}

	body, err := json.Marshal(ch.payload())
	if err != nil {
		return fmt.Errorf("encode chat payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return &ConfigurationError{Reason: "invalid apiUrl: " + err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.Title != "" {
		req.Header.Set("X-Title", c.cfg.Title)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		observability.Current().ObserveLLMRequest(ch.model, 0, time.Since(start), 0, 0)
		return &APIError{Message: "request failed", Err: err}
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if readErr != nil {
		observability.Current().ObserveLLMRequest(ch.model, resp.StatusCode, time.Since(start), 0, 0)
		return &APIError{StatusCode: resp.StatusCode, Message: "read response", Err: readErr}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.Current().ObserveLLMRequest(ch.model, resp.StatusCode, time.Since(start), 0, 0)
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw), Message: errorMessage(raw)}
	}

	var usage ChatResponse
	_ = json.Unmarshal(raw, &usage)
	observability.Current().ObserveLLMRequest(ch.model, resp.StatusCode, time.Since(start), usage.Usage.PromptTokens, usage.Usage.CompletionTokens)

	c.log.Debug("Chat completion finished", "model", ch.model, "status", resp.StatusCode, "duration_ms", time.Since(start).Milliseconds())
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw), Message: "decode response", Err: err}
	}
	return nil
}

// Content sends the chat and returns the first choice's message content.
func (ch *Chat) Content(ctx context.Context) (string, error) {
	var resp ChatResponse
	if err := ch.Send(ctx, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		err := &APIError{StatusCode: http.StatusOK, Message: "response contained no choices"}
		if resp.Error != nil && resp.Error.Message != "" {
			err.Message = resp.Error.Message
		}
		ch.client.errLog.Record(err)
		ch.client.log.Error("Chat completion unusable", "model", ch.model, "error", err)
		return "", err
	}
	return resp.Choices[0].Message.Content, nil
}

// errorMessage extracts {"error":{"message":...}} from an error body.
func errorMessage(raw []byte) string {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	return body.Error.Message
}

// IsConfigurationError reports whether err came from missing client or chat settings.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
