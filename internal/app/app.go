package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/kestrelai/devstral-gateway/internal/backend"
	"github.com/kestrelai/devstral-gateway/internal/gateway"
)

// App orchestrates the lifecycle of the gateway's HTTP server.
type App struct {
	cfg    *Config
	server *http.Server
}

// New wires the backend client(s), the selector, the two observability
// surfaces, and the HTTP router into a ready-to-start App (spec §0).
func New(cfg *Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	var vision *backend.Config
	if cfg.Vision != nil {
		vision = &backend.Config{URL: cfg.Vision.URL, APIKey: cfg.Vision.APIKey, Model: cfg.Vision.Model}
	}
	selector := backend.NewSelector(backend.Config{URL: cfg.Backend.URL, APIKey: cfg.Backend.APIKey, Model: cfg.Backend.Model}, vision)

	client := backend.New(&http.Client{})
	metrics := gateway.NewMetrics()
	telemetry := gateway.NewTelemetry(cfg.Telemetry.Enabled, cfg.Telemetry.Endpoint)

	router := gateway.New(
		gateway.Config{APIKey: cfg.Gateway.APIKey, DefaultModel: cfg.Backend.Model},
		selector,
		client,
		metrics,
		telemetry,
		slog.Default(),
	)

	address := cfg.Server.Host + ":" + strconv.FormatUint(uint64(cfg.Server.Port), 10)

	return &App{
		cfg:    cfg,
		server: &http.Server{Addr: address, Handler: router},
	}, nil
}

// Start starts the HTTP server and blocks until shutdown is triggered by ctx
// cancellation or a fatal server error. Mirrors the teacher's errgroup +
// collected-shutdown-funcs pattern, scaled down to this gateway's single
// long-running service.
func (a *App) Start(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	slog.InfoContext(gCtx, "starting gateway server", "address", a.server.Addr)

	g.Go(func() error {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Shutdown.Timeout)
		defer cancel()
		slog.InfoContext(shutdownCtx, "shutting down gateway server")
		return a.server.Shutdown(shutdownCtx)
	})

	slog.InfoContext(gCtx, "gateway ready", "address", a.server.Addr)

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("gateway stopped")
	return nil
}
