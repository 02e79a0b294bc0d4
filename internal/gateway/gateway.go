// Package gateway wires the HTTP route surface (spec §4.8, §4.8a): request
// parsing, auth, backend selection and dispatch, response/stream
// translation, and observability, on top of the internal/translate and
// internal/backend packages.
package gateway

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kestrelai/devstral-gateway/internal/backend"
)

// Config names the gateway-facing settings a router needs: the key inbound
// clients must present, and the model name advertised by /v1/models.
type Config struct {
	APIKey       string
	DefaultModel string
}

// Gateway holds everything a route handler needs: its own config, the
// backend selector/client pair, and the two observability surfaces.
type Gateway struct {
	cfg       Config
	selector  backend.Selector
	client    *backend.Client
	metrics   *Metrics
	telemetry *Telemetry
	logger    *slog.Logger
	startedAt int64
}

// New builds a Gateway and its chi.Router, serving every route of §4.8a.
func New(cfg Config, selector backend.Selector, client *backend.Client, metrics *Metrics, telemetry *Telemetry, logger *slog.Logger) chi.Router {
	if logger == nil {
		logger = slog.Default()
	}

	gw := &Gateway{cfg: cfg, selector: selector, client: client, metrics: metrics, telemetry: telemetry, logger: logger, startedAt: time.Now().Unix()}

	r := chi.NewRouter()
	r.Use(requestLogging(logger))
	r.Use(recovery)
	r.Use(permissiveCORS())

	r.Post("/v1/messages", gw.handleMessages)
	r.Post("/v1/chat/completions", gw.handleChatCompletions)
	r.Post("/v1/completions", gw.handleLegacyCompletions)
	r.Post("/completions", gw.handleLegacyCompletions)
	r.Post("/v1/messages/count_tokens", gw.handleCountTokens)
	r.Get("/v1/models", gw.handleModels)
	r.Get("/health", gw.handleHealth)
	r.Get("/stats", gw.handleStats)
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	return r
}

