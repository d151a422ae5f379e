package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// Loader handles configuration loading from files and readers.
type Loader struct {
	strict bool
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithStrict rejects unknown keys in the configuration document.
func WithStrict(strict bool) LoaderOption {
	return func(l *Loader) {
		l.strict = strict
	}
}

// NewLoader creates a new configuration loader. Loaders are strict by
// default.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{strict: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadConfig loads configuration from a file path.
func LoadConfig(path string) (*Config, error) {
	return NewLoader().Load(path)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	return NewLoader().LoadFromReader(r)
}

// Load loads configuration from a file path.
func (l *Loader) Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", path, err)
	}

	data, err := os.ReadFile(absPath) //nolint:gosec // operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return l.parseConfig(data)
}

// LoadFromReader loads configuration from an io.Reader.
func (l *Loader) LoadFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return l.parseConfig(data)
}

// parseConfig decodes YAML data on top of DefaultConfig.
func (l *Loader) parseConfig(data []byte) (*Config, error) {
	content := substituteEnvVars(string(data))

	config := DefaultConfig()

	decoder := yaml.NewDecoder(bytes.NewReader([]byte(content)))
	decoder.KnownFields(l.strict)
	if err := decoder.Decode(config); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("failed to parse YAML: configuration is empty")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	config.ApplyDefaults()

	return config, nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} patterns with
// environment variable values. "$$" escapes a literal dollar sign.
func substituteEnvVars(content string) string {
	content = strings.ReplaceAll(content, "$$", "\x00ESCAPED_DOLLAR\x00")

	result := envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		defaultValue := ""
		if len(submatches) >= 3 {
			defaultValue = submatches[2]
		}

		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return defaultValue
	})

	return strings.ReplaceAll(result, "\x00ESCAPED_DOLLAR\x00", "$")
}

// ResolveConfigPath resolves a configuration file path, checking common locations.
func ResolveConfigPath(path string) (string, error) {
	if filepath.IsAbs(path) {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		return "", fmt.Errorf("config file not found: %s", path)
	}

	if _, err := os.Stat(path); err == nil {
		return filepath.Abs(path)
	}

	etcPath := filepath.Join(string(filepath.Separator), "etc", "apiproxy")
	commonPaths := []string{
		filepath.Join("configs", path),
		filepath.Join(etcPath, path),
	}
	if home, err := os.UserHomeDir(); err == nil {
		commonPaths = append(commonPaths, filepath.Join(home, ".apiproxy", path))
	}

	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return filepath.Abs(p)
		}
	}

	return "", fmt.Errorf("config file not found: %s", path)
}
