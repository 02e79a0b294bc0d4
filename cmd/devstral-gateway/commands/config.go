package commands

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/urfave/cli/v3"

	"github.com/kestrelai/devstral-gateway/internal/app"
)

// envToConfigPath maps the flat environment variable names of spec §6 onto
// this gateway's nested Config shape, since unlike the teacher's
// CLAUDINE_SERVER__HOST convention these names carry no prefix or nesting
// delimiter of their own.
var envToConfigPath = map[string]string{
	"PORT":               "server.port",
	"HOST":               "server.host",
	"API_KEY":            "gateway.api_key",
	"VLLM_URL":           "backend.url",
	"VLLM_API_KEY":       "backend.api_key",
	"VLLM_MODEL":         "backend.model",
	"VISION_URL":         "vision.url",
	"VISION_API_KEY":     "vision.api_key",
	"VISION_MODEL":       "vision.model",
	"TELEMETRY_ENABLED":  "telemetry.enabled",
	"TELEMETRY_ENDPOINT": "telemetry.endpoint",
	"LOG_LEVEL":          "log.level",
}

// loadConfig loads application configuration from various sources with
// precedence: config file → environment variables → CLI flags → defaults.
func loadConfig(configPath string, cmd *cli.Command, environFunc func() []string) (*app.Config, error) {
	k := koanf.New(".")

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	envProvider := env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			path, ok := envToConfigPath[key]
			if !ok {
				return "", nil
			}
			return path, value
		},
		EnvironFunc: environFunc,
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("loading environment variables: %w", err)
	}

	if cmd != nil {
		flagValues := extractAndTransformFlags(cmd)
		if err := k.Load(confmap.Provider(flagValues, "."), nil); err != nil {
			return nil, fmt.Errorf("loading CLI flags: %w", err)
		}
	}

	config := &app.Config{}
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "json",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			TagName:          "json",
			DecodeHook:       mapstructure.TextUnmarshallerHookFunc(),
		},
	}
	if err := k.UnmarshalWithConf("", config, unmarshalConf); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}

// extractAndTransformFlags transforms CLI flag names to match config
// structure. Examples: --server--host → server.host, --log-level → log.level
func extractAndTransformFlags(cmd *cli.Command) map[string]any {
	values := make(map[string]any)

	for _, name := range cmd.FlagNames() {
		if !cmd.IsSet(name) {
			continue
		}
		if value := cmd.Value(name); value != nil {
			key := strings.ReplaceAll(name, "--", ".")
			if strings.HasPrefix(key, "log-") {
				key = "log." + strings.TrimPrefix(key, "log-")
			}
			key = strings.ReplaceAll(key, "-", "_")
			values[key] = value
		}
	}

	return values
}
