package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
port: 8080
targets:
  - name: users
    host: api.internal
    sourcePath: /v1/users
    destPath: /internal/v1/users
    useAuth: true
auth:
  host: auth.internal
  path: /token
  method: post
  responseHeaders: [Authorization]
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, validConfigYAML)

	out, err := executeCommand(t, "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "is valid")
	assert.Contains(t, out, "1 targets")
	assert.Contains(t, out, "POST auth.internal/token")
}

func TestValidateCommand_Invalid(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
port: 8080
targets:
  - host: api.internal
    sourcePath: /a
    destPath: /b
    useAuth: true
`)

	_, err := executeCommand(t, "validate", "-c", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Contains(t, err.Error(), "auth")
}

func TestValidateCommand_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := executeCommand(t, "validate", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	out, err := executeCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "apiproxy version "+version)
	assert.Contains(t, out, "Git commit: "+gitCommit)
}

func TestRootCommand_RejectsArgs(t *testing.T) {
	t.Parallel()

	_, err := executeCommand(t, "unexpected")
	require.Error(t, err)
}

func TestRootCommand_InvalidLogFormat(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, validConfigYAML)

	_, err := executeCommand(t, "--config", path, "--log-format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to initialize logger")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "port: 0\n")

	_, err := executeCommand(t, "--config", path, "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRootCommand_EnvDefaults(t *testing.T) {
	t.Setenv(envConfigPath, "/etc/apiproxy/custom.yaml")
	t.Setenv(envLogLevel, "debug")
	t.Setenv(envLogFormat, "console")

	cmd := newRootCmd()
	flags := cmd.PersistentFlags()

	assert.Equal(t, "/etc/apiproxy/custom.yaml", flags.Lookup("config").DefValue)
	assert.Equal(t, "debug", flags.Lookup("log-level").DefValue)
	assert.Equal(t, "console", flags.Lookup("log-format").DefValue)
}

func TestGetEnvOrDefault(t *testing.T) {
	t.Setenv("APIPROXY_TEST_VALUE", "set")

	assert.Equal(t, "set", getEnvOrDefault("APIPROXY_TEST_VALUE", "fallback"))
	assert.Equal(t, "fallback", getEnvOrDefault("APIPROXY_TEST_UNSET", "fallback"))
}
