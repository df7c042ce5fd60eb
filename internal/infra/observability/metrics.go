package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/alhassan/smart-sales-agent-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the sales agent.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	messagesTotal   *prometheus.CounterVec
	invoicesTotal   *prometheus.CounterVec
	fallbacksTotal  prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agent_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_llm_tokens_total",
				Help: "Total LLM tokens consumed.",
			},
			[]string{"type"},
		),
		messagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_messages_total",
				Help: "Total inbound messages processed, by resulting intent.",
			},
			[]string{"intent"},
		),
		invoicesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_invoices_total",
				Help: "Total invoice issuance attempts.",
			},
			[]string{"status"},
		),
		fallbacksTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agent_classifier_fallbacks_total",
				Help: "Total messages that fell back to the unhandled intent.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrMessage increments the message counter with the resolved intent.
func (m *Metrics) IncrMessage(intent string) {
	m.messagesTotal.WithLabelValues(intent).Inc()
}

// IncrInvoice increments the invoice counter with an outcome status.
func (m *Metrics) IncrInvoice(status string) {
	m.invoicesTotal.WithLabelValues(status).Inc()
}

// IncrFallback increments the classifier fallback counter.
func (m *Metrics) IncrFallback() {
	m.fallbacksTotal.Inc()
}

// GetOpsSnapshot returns a snapshot of agent metrics suitable for the
// GET /v1/metrics/ops endpoint.
func (m *Metrics) GetOpsSnapshot() *domain.OpsMetrics {
	promptTokens := getCounterValue(m.tokensUsed, "prompt")
	completionTokens := getCounterValue(m.tokensUsed, "completion")
	messages := getCounterValue(m.messagesTotal, string(domain.IntentPriceInquiry)) +
		getCounterValue(m.messagesTotal, string(domain.IntentInvoiceRequest)) +
		getCounterValue(m.messagesTotal, string(domain.IntentUnhandled))
	issued := getCounterValue(m.invoicesTotal, "issued")
	failed := getCounterValue(m.invoicesTotal, "failed")
	fallbacks := counterValue(m.fallbacksTotal)

	avgTokens := float64(0)
	fallbackRate := float64(0)
	if messages > 0 {
		avgTokens = (promptTokens + completionTokens) / messages
		fallbackRate = fallbacks / messages
	}

	// Estimated cost: ~$0.03/1k prompt tokens, ~$0.06/1k completion tokens
	estimatedCost := (promptTokens/1000)*0.03 + (completionTokens/1000)*0.06

	return &domain.OpsMetrics{
		MessagesTotal:       int64(messages),
		InvoicesIssued:      int64(issued),
		InvoicesFailed:      int64(failed),
		ClassifierFallbacks: int64(fallbacks),
		FallbackRate:        fallbackRate,
		AvgTokensPerMessage: avgTokens,
		EstimatedCostUSD:    estimatedCost,
		Period:              "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return counterValue(cv.WithLabelValues(label))
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
