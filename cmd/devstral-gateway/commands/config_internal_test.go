package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func environFuncFor(vars map[string]string) func() []string {
	return func() []string {
		out := make([]string, 0, len(vars))
		for k, v := range vars {
			out = append(out, k+"="+v)
		}
		return out
	}
}

func TestLoadConfig_EnvVarsMapOntoNestedPaths(t *testing.T) {
	env := environFuncFor(map[string]string{
		"PORT":         "9090",
		"HOST":         "10.0.0.5",
		"API_KEY":      "env-key",
		"VLLM_URL":     "http://backend.internal",
		"VLLM_MODEL":   "devstral-medium",
		"LOG_LEVEL":    "debug",
		"UNMAPPED_VAR": "should-be-ignored",
	})

	cfg, err := loadConfig("", nil, env)
	require.NoError(t, err)

	assert.Equal(t, uint16(9090), cfg.Server.Port)
	assert.Equal(t, "10.0.0.5", cfg.Server.Host)
	assert.Equal(t, "env-key", cfg.Gateway.APIKey)
	assert.Equal(t, "http://backend.internal", cfg.Backend.URL)
	assert.Equal(t, "devstral-medium", cfg.Backend.Model)
}

func TestLoadConfig_TelemetryEnabledCoercesStringToBool(t *testing.T) {
	env := environFuncFor(map[string]string{
		"VLLM_URL":          "http://backend.internal",
		"VLLM_MODEL":        "devstral-medium",
		"TELEMETRY_ENABLED": "true",
	})

	cfg, err := loadConfig("", nil, env)
	require.NoError(t, err)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestLoadConfig_AppliesDefaultsWhenUnset(t *testing.T) {
	env := environFuncFor(map[string]string{
		"VLLM_URL":   "http://backend.internal",
		"VLLM_MODEL": "devstral-medium",
	})

	cfg, err := loadConfig("", nil, env)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, uint16(8080), cfg.Server.Port)
}

func TestLoadConfig_RejectsMissingRequiredBackendFields(t *testing.T) {
	_, err := loadConfig("", nil, environFuncFor(nil))
	assert.Error(t, err)
}

func TestLoadConfig_ConfigFileIsOverriddenByEnvVars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := "[backend]\nurl = \"http://file-backend.internal\"\nmodel = \"file-model\"\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	env := environFuncFor(map[string]string{"VLLM_URL": "http://env-backend.internal"})

	cfg, err := loadConfig(path, nil, env)
	require.NoError(t, err)

	assert.Equal(t, "http://env-backend.internal", cfg.Backend.URL)
	assert.Equal(t, "file-model", cfg.Backend.Model)
}
