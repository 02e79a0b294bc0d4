package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the gateway's Prometheus registry and the four
// instruments spec §6 names. The registry is the one legitimate
// process-wide state (spec §9): constructed once at server build time and
// threaded into every handler through *Gateway.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	TokensTotal     *prometheus.CounterVec
	InferenceTokens *prometheus.CounterVec
}

// NewMetrics builds and registers the gateway's metric instruments on a
// fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_requests_total",
			Help: "Total requests handled by the gateway, labeled by outcome.",
		}, []string{"user", "model", "endpoint", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "llm_request_duration_seconds",
			Help:    "Request duration in seconds.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}, []string{"user", "model", "endpoint"}),
		TokensTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total tokens counted by the gateway's local estimator, by type (input|output).",
		}, []string{"user", "model", "type"}),
		InferenceTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inference_tokens_total",
			Help: "Total tokens recorded per request, by type (input|output): backend-reported usage for successful unary /v1/messages calls, local estimates for streamed and failed ones, zero for /v1/chat/completions.",
		}, []string{"user", "model", "type"}),
	}

	registry.MustRegister(m.RequestsTotal, m.RequestDuration, m.TokensTotal, m.InferenceTokens)
	return m
}

func (m *Metrics) observe(user, model, endpoint, status string, durationSeconds float64, inputTokens, outputTokens int) {
	m.RequestsTotal.WithLabelValues(user, model, endpoint, status).Inc()
	m.RequestDuration.WithLabelValues(user, model, endpoint).Observe(durationSeconds)
	m.InferenceTokens.WithLabelValues(user, model, "input").Add(float64(inputTokens))
	m.InferenceTokens.WithLabelValues(user, model, "output").Add(float64(outputTokens))
}

func (m *Metrics) observeLocalTokenEstimate(user, model string, inputTokens int) {
	m.TokensTotal.WithLabelValues(user, model, "input").Add(float64(inputTokens))
}
