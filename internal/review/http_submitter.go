package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	domain "github.com/tenxcards/tenxcards-backend/internal/domain/flashcards"
)

const flashcardsPath = "/api/flashcards"

// HTTPSubmitter posts batches to the flashcards API on behalf of a browser session.
type HTTPSubmitter struct {
	BaseURL string
	Cookies []*http.Cookie
	Client  *http.Client
}

func NewHTTPSubmitter(baseURL string, cookies []*http.Cookie) *HTTPSubmitter {
	return &HTTPSubmitter{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Cookies: cookies,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// SubmitError carries the API's error body. Error returns the API message verbatim.
type SubmitError struct {
	StatusCode int
	Code       string
	Message    string
	Details    json.RawMessage
}

func (e *SubmitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("flashcards api: http %d", e.StatusCode)
}

func (s *HTTPSubmitter) Submit(ctx context.Context, cmd domain.CreateFlashcardsCommand) ([]domain.FlashcardDTO, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encode flashcards: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+flashcardsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for _, c := range s.Cookies {
		req.AddCookie(c)
	}

	hc := s.Client
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit flashcards: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		se := &SubmitError{StatusCode: resp.StatusCode}
		var eb struct {
			Error   string          `json:"error"`
			Code    string          `json:"code"`
			Details json.RawMessage `json:"details"`
		}
		if json.Unmarshal(raw, &eb) == nil {
			se.Message, se.Code, se.Details = eb.Error, eb.Code, eb.Details
		}
		return nil, se
	}

	var out struct {
		Flashcards []domain.FlashcardDTO `json:"flashcards"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return out.Flashcards, nil
}
