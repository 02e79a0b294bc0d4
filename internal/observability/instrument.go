// Package observability wires the process-wide structured logging handler:
// an OpenTelemetry log bridge layered under log/slog, so every slog call in
// the gateway also emits an OTel log record when an OTLP endpoint is
// configured, and a plain local text or JSON slog handler on stdout
// otherwise.
package observability

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/contrib/processors/minsev"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// loggerName identifies this service's log records to the OTel backend.
const loggerName = "devstral-gateway"

// Instrument sets the default slog handler. With no OTLP collector
// configured it installs a plain local handler, text or json per format, to
// keep `devstral-gateway serve` pleasant to run by hand. Once
// OTEL_EXPORTER_OTLP_ENDPOINT is set, local output is replaced by the OTel
// bridge so every slog call also becomes a log record shipped to that
// collector.
func Instrument(level slog.Level, format string) error {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		slog.SetDefault(slog.New(localHandler(level, format)))
		return nil
	}

	exporter, err := newOTLPExporter()
	if err != nil {
		slog.Warn("falling back to stdout log exporter, OTLP exporter construction failed", "error", err)
		exporter, err = stdoutlog.New()
		if err != nil {
			return fmt.Errorf("build fallback stdout log exporter: %w", err)
		}
	}

	provider := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)

	severity := minsev.SeverityVar{}
	severity.SetSeverity(toOtelSeverity(level))

	handler := minsev.NewLogHandler(
		otelslog.NewHandler(loggerName, otelslog.WithLoggerProvider(provider)),
		&severity,
	)

	slog.SetDefault(slog.New(handler))
	return nil
}

func localHandler(level slog.Level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.NewTextHandler(os.Stdout, opts)
}

// newOTLPExporter builds a gRPC OTLP exporter by default, or HTTP when
// OTEL_EXPORTER_OTLP_PROTOCOL asks for it.
func newOTLPExporter() (sdklog.Exporter, error) {
	ctx := context.Background()

	if os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL") == "http/protobuf" {
		return otlploghttp.New(ctx)
	}
	return otlploggrpc.New(ctx)
}

func toOtelSeverity(level slog.Level) otellog.Severity {
	switch {
	case level <= slog.LevelDebug:
		return otellog.SeverityDebug
	case level <= slog.LevelInfo:
		return otellog.SeverityInfo
	case level <= slog.LevelWarn:
		return otellog.SeverityWarn
	default:
		return otellog.SeverityError
	}
}
