package openrouter

import (
	"net/http"
	"strings"
	"time"

	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
)

const (
	DefaultAPIURL        = "https://openrouter.ai/api/v1/chat/completions"
	DefaultModel         = "openai/gpt-4o-mini"
	DefaultSystemMessage = "You are a helpful assistant."
	DefaultTimeout       = 30 * time.Second
)

type ModelParameters struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// Merge returns p with every field set in over replacing its counterpart.
func (p ModelParameters) Merge(over ModelParameters) ModelParameters {
	if over.Temperature != nil {
		p.Temperature = over.Temperature
	}
	if over.MaxTokens != nil {
		p.MaxTokens = over.MaxTokens
	}
	return p
}

func DefaultParameters() ModelParameters {
	temperature := 0.7
	maxTokens := 1024
	return ModelParameters{Temperature: &temperature, MaxTokens: &maxTokens}
}

type JSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type ResponseFormat struct {
	Type       string     `json:"type"`
	JSONSchema JSONSchema `json:"json_schema"`
}

func JSONSchemaFormat(name string, strict bool, schema map[string]any) ResponseFormat {
	return ResponseFormat{Type: "json_schema", JSONSchema: JSONSchema{Name: name, Strict: strict, Schema: schema}}
}

type Config struct {
	APIKey            string
	APIURL            string
	DefaultModel      string
	DefaultParameters ModelParameters
	SystemMessage     string
	Timeout           time.Duration
	// Referer and Title identify the app to OpenRouter (HTTP-Referer, X-Title).
	Referer string
	Title   string
}

// Client holds immutable settings shared by all chats.
type Client struct {
	cfg        Config
	httpClient *http.Client
	errLog     ErrorLog
	log        *logger.Logger
}

// NewClient does not validate cfg; missing settings surface as ConfigurationError on Send.
func NewClient(cfg Config, errLog ErrorLog, log *logger.Logger) *Client {
	cfg.APIURL = strings.TrimSpace(cfg.APIURL)
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.DefaultModel = strings.TrimSpace(cfg.DefaultModel)
	if strings.TrimSpace(cfg.SystemMessage) == "" {
		cfg.SystemMessage = DefaultSystemMessage
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if errLog == nil {
		errLog = NewRingErrorLog(0)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		errLog:     errLog,
		log:        log.With("client", "OpenRouterClient"),
	}
}

// WithHTTPClient replaces the transport, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	cp := *c
	cp.httpClient = hc
	return &cp
}

func (c *Client) DefaultModel() string { return c.cfg.DefaultModel }

func (c *Client) ErrorLog() ErrorLog { return c.errLog }

// NewChat starts a request builder seeded with the client defaults.
func (c *Client) NewChat() *Chat {
	return &Chat{
		client: c,
		system: c.cfg.SystemMessage,
		model:  c.cfg.DefaultModel,
		params: c.cfg.DefaultParameters,
	}
}
