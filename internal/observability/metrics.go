package observability

import (
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/tenxcards/tenxcards-backend/internal/pkg/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	llmRequests *CounterVec
	llmLatency  *HistogramVec
	llmTokens   *CounterVec
	generations *CounterVec
	proposals   *CounterVec
	flashcards  *CounterVec
	redisUp     *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

// Current returns the process-wide metrics, nil when Init has not enabled them.
// Every Metrics method is safe on a nil receiver.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger, enabled bool) *Metrics {
	if !enabled {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

// New builds an unregistered metrics set.
func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("tenx_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"tenx_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		),
		apiInflight: NewGauge("tenx_api_inflight_requests", "In-flight API requests."),
		llmRequests: NewCounterVec("tenx_llm_requests_total", "Chat completion requests by model/status.", []string{"model", "status"}),
		llmLatency: NewHistogramVec(
			"tenx_llm_request_duration_seconds",
			"Chat completion latency in seconds by model/status.",
			[]string{"model", "status"},
			[]float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
		),
		llmTokens:   NewCounterVec("tenx_llm_tokens_total", "Chat completion tokens by model/direction.", []string{"model", "direction"}),
		generations: NewCounterVec("tenx_generations_total", "Generation requests by outcome.", []string{"outcome"}),
		proposals:   NewCounterVec("tenx_generation_proposals_total", "Flashcard proposals returned by the model.", []string{"model"}),
		flashcards:  NewCounterVec("tenx_flashcards_created_total", "Flashcards persisted by source.", []string{"source"}),
		redisUp:     NewGauge("tenx_redis_up", "Redis connectivity (1=up, 0=down)."),
	}
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	writers := []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.llmRequests, m.llmLatency, m.llmTokens,
		m.generations, m.proposals, m.flashcards,
		m.redisUp,
	}
	for _, mw := range writers {
		if err := mw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
}

func (m *Metrics) APIInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Add(1)
}

func (m *Metrics) APIInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Add(-1)
}

// ObserveLLMRequest records one chat completion call. status is the HTTP status, 0 for transport errors.
func (m *Metrics) ObserveLLMRequest(model string, status int, dur time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	st := strconv.Itoa(status)
	m.llmRequests.Inc(model, st)
	if dur > 0 {
		m.llmLatency.Observe(dur.Seconds(), model, st)
	}
	if inputTokens > 0 {
		m.llmTokens.Add(float64(inputTokens), model, "input")
	}
	if outputTokens > 0 {
		m.llmTokens.Add(float64(outputTokens), model, "output")
	}
}

// ObserveGeneration records a generation outcome ("ok" or an error code) and its proposal count.
func (m *Metrics) ObserveGeneration(model, outcome string, proposals int) {
	if m == nil {
		return
	}
	m.generations.Inc(outcome)
	if proposals > 0 {
		m.proposals.Add(float64(proposals), model)
	}
}

func (m *Metrics) AddFlashcardsCreated(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.flashcards.Add(float64(n), source)
}

func (m *Metrics) SetRedisUp(up bool) {
	if m == nil {
		return
	}
	if up {
		m.redisUp.Set(1)
		return
	}
	m.redisUp.Set(0)
}
