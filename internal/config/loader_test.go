package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleConfig = `
port: 8080
targets:
  - name: users
    host: api.internal
    sourcePath: /v1
    destPath: /internal/v1
    useAuth: true
  - host: files.internal:9000
    secure: true
    sourcePath: /files
    destPath: /
    ignoreErrors: true
auth:
  host: auth.internal
  path: /verify
  method: get
  requestHeaders: [Authorization]
  responseHeaders: [X-User-Id]
server:
  requestTimeout: 15s
`

func TestLoader_Load(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(exampleConfig), 0o600))

	cfg, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, DefaultBind, cfg.Bind)
	require.Len(t, cfg.Targets, 2)

	assert.Equal(t, "users", cfg.Targets[0].Name)
	assert.Equal(t, "api.internal", cfg.Targets[0].Host)
	assert.True(t, cfg.Targets[0].UseAuth)
	assert.False(t, cfg.Targets[0].IgnoreErrors)

	assert.Equal(t, "/files", cfg.Targets[1].Name, "name defaults to sourcePath")
	assert.True(t, cfg.Targets[1].Secure)
	assert.True(t, cfg.Targets[1].IgnoreErrors)

	require.NotNil(t, cfg.Auth)
	assert.Equal(t, "GET", cfg.Auth.Method)
	assert.Equal(t, []string{"Authorization"}, cfg.Auth.RequestHeaders)
	assert.Equal(t, []string{"X-User-Id"}, cfg.Auth.ResponseHeaders)

	assert.Equal(t, 15*time.Second, cfg.Server.RequestTimeout.Duration())
	assert.Equal(t, DefaultReadHeaderTimeout, cfg.Server.ReadHeaderTimeout.Duration())
	assert.Equal(t, int64(DefaultMaxBodySize), cfg.Server.MaxBodySize)
	assert.True(t, cfg.Observability.Metrics.Enabled)
	assert.Equal(t, DefaultMetricsPort, cfg.Observability.Metrics.Port)

	assert.NoError(t, ValidateConfig(cfg))
}

func TestLoader_Load_FileNotFound(t *testing.T) {
	t.Parallel()

	_, err := LoadConfig("/nonexistent/path/config.yaml")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoader_LoadFromReader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		strict  bool
		wantErr string
	}{
		{
			name:    "valid",
			content: "port: 9000\ntargets:\n  - {host: a, sourcePath: /, destPath: /}\n",
			strict:  true,
		},
		{
			name:    "invalid yaml",
			content: "port: [",
			strict:  true,
			wantErr: "failed to parse YAML",
		},
		{
			name:    "empty document",
			content: "",
			strict:  true,
			wantErr: "configuration is empty",
		},
		{
			name:    "unknown key rejected when strict",
			content: "port: 9000\nproxy_target_host: a\n",
			strict:  true,
			wantErr: "failed to parse YAML",
		},
		{
			name:    "unknown key ignored when lenient",
			content: "port: 9000\nproxy_target_host: a\n",
			strict:  false,
		},
		{
			name:    "invalid duration",
			content: "server:\n  idleTimeout: soon\n",
			strict:  true,
			wantErr: "invalid duration",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := NewLoader(WithStrict(tt.strict)).LoadFromReader(strings.NewReader(tt.content))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 9000, cfg.Port)
		})
	}
}

func TestLoader_ExplicitZeroOverridesDefault(t *testing.T) {
	t.Parallel()

	cfg, err := LoadConfigFromReader(strings.NewReader(
		"port: 8080\nserver:\n  maxBodySize: 0\nobservability:\n  metrics:\n    enabled: false\n"))
	require.NoError(t, err)

	assert.Zero(t, cfg.Server.MaxBodySize)
	assert.False(t, cfg.Observability.Metrics.Enabled)
	assert.Equal(t, DefaultIdleTimeout, cfg.Server.IdleTimeout.Duration())
}

//nolint:paralleltest // uses t.Setenv
func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("APIPROXY_TEST_HOST", "api.example.com")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "set variable", input: "host: ${APIPROXY_TEST_HOST}", expected: "host: api.example.com"},
		{name: "default used", input: "host: ${APIPROXY_TEST_MISSING:-fallback}", expected: "host: fallback"},
		{name: "default ignored", input: "host: ${APIPROXY_TEST_HOST:-fallback}", expected: "host: api.example.com"},
		{name: "missing no default", input: "host: ${APIPROXY_TEST_MISSING}", expected: "host: "},
		{name: "escaped dollar", input: "price: $$5", expected: "price: $5"},
		{name: "no variables", input: "port: 8080", expected: "port: 8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, substituteEnvVars(tt.input))
		})
	}
}

//nolint:paralleltest // uses t.Setenv
func TestLoader_EnvSubstitution(t *testing.T) {
	t.Setenv("APIPROXY_TEST_PORT", "7070")

	cfg, err := LoadConfigFromReader(strings.NewReader(
		"port: ${APIPROXY_TEST_PORT}\nbind: ${APIPROXY_TEST_BIND:-0.0.0.0}\n"))
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Port)
	assert.Equal(t, "0.0.0.0", cfg.Bind)
}

func TestResolveConfigPath(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("port: 1"), 0o600))

	resolved, err := ResolveConfigPath(configPath)
	require.NoError(t, err)
	assert.Equal(t, configPath, resolved)

	_, err = ResolveConfigPath(filepath.Join(tmpDir, "missing.yaml"))
	assert.Error(t, err)

	_, err = ResolveConfigPath("definitely-missing-apiproxy.yaml")
	assert.Error(t, err)
}
