package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
)

// LogFormat is the rendering chosen for the process-wide slog handler when
// no OTLP collector is configured.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// Default configuration values (spec §6).
const (
	DefaultConfigLogFormat       = LogFormatText
	DefaultConfigServerHost      = "0.0.0.0"
	DefaultConfigServerPort      = 8080
	DefaultConfigShutdownTimeout = 5 * time.Second
)

// ServerConfig holds the gateway's own listen address.
type ServerConfig struct {
	Host string `json:"host" validate:"hostname_rfc1123|ip"`
	Port uint16 `json:"port"`
}

// ShutdownConfig holds graceful-shutdown behavior.
type ShutdownConfig struct {
	Timeout time.Duration `json:"timeout"`
}

// GatewayConfig is the key inbound clients must present (spec §6 `API_KEY`);
// empty disables gating, for local development.
type GatewayConfig struct {
	APIKey string `json:"api_key"`
}

// BackendConfig names one OpenAI-compatible inference server (spec §6
// `VLLM_URL`/`VLLM_API_KEY`/`VLLM_MODEL`, or the `VISION_*` equivalents).
type BackendConfig struct {
	URL    string `json:"url" validate:"required,url"`
	APIKey string `json:"api_key,omitempty"`
	Model  string `json:"model" validate:"required"`
}

// TelemetryConfig controls the usage-ring-buffer's optional file mirror
// (spec §5, §5a).
type TelemetryConfig struct {
	Enabled  bool   `json:"enabled"`
	Endpoint string `json:"endpoint,omitempty"`
}

// LogConfig drives internal/observability.Instrument.
type LogConfig struct {
	Level  slog.Level `json:"level"`
	Format LogFormat  `json:"format" validate:"oneof=text json"`
}

// Config holds the application's configuration (spec §0).
type Config struct {
	Log       LogConfig       `json:"log"`
	Server    ServerConfig    `json:"server"`
	Shutdown  ShutdownConfig  `json:"shutdown"`
	Gateway   GatewayConfig   `json:"gateway"`
	Backend   BackendConfig   `json:"backend"`
	Vision    *BackendConfig  `json:"vision,omitempty"`
	Telemetry TelemetryConfig `json:"telemetry"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Log.Format == "" {
		c.Log.Format = DefaultConfigLogFormat
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultConfigServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultConfigServerPort
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}
}

// Validate validates the configuration using struct tags, plus the
// cross-field rules struct tags can't express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if c.Vision != nil {
		if err := validator.New().Struct(c.Vision); err != nil {
			return fmt.Errorf("vision backend: %w", err)
		}
	}
	return nil
}
