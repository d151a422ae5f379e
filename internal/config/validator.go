package config

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// allowedAuthMethods lists the methods accepted for the auth request.
var allowedAuthMethods = map[string]struct{}{
	http.MethodGet:  {},
	http.MethodPost: {},
	http.MethodHead: {},
	http.MethodPut:  {},
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// HasErrors returns true if there are validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates proxy configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// ValidateConfig validates a proxy configuration.
func ValidateConfig(config *Config) error {
	return NewValidator().Validate(config)
}

// Validate validates the configuration and returns any errors as
// ValidationErrors.
func (v *Validator) Validate(config *Config) error {
	v.errors = make(ValidationErrors, 0)

	if config == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validatePort(config.Port, "port")
	v.validateTargets(config.Targets)
	if config.Auth != nil {
		v.validateAuth(config.Auth, "auth")
	} else if config.HasAuthTargets() {
		v.addError("auth", "auth target is required when a target has useAuth enabled")
	}
	v.validateServer(&config.Server, "server")
	v.validateRateLimit(&config.RateLimit, "rateLimit")
	v.validateObservability(config, "observability")

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

// validatePort checks a TCP port number.
func (v *Validator) validatePort(port int, path string) {
	if port < 1 || port > 65535 {
		v.addError(path, fmt.Sprintf("port must be between 1 and 65535, got %d", port))
	}
}

// validateTargets validates the ordered target list.
func (v *Validator) validateTargets(targets []ProxyTarget) {
	if len(targets) == 0 {
		v.addError("targets", "at least one target is required")
		return
	}

	for i := range targets {
		target := &targets[i]
		path := fmt.Sprintf("targets[%d]", i)

		v.validateHost(target.Host, path+".host")
		v.validatePathPrefix(target.SourcePath, path+".sourcePath")
		v.validatePathPrefix(target.DestPath, path+".destPath")
	}
}

// validateAuth validates the auth target.
func (v *Validator) validateAuth(auth *AuthTarget, path string) {
	v.validateHost(auth.Host, path+".host")
	v.validatePathPrefix(auth.Path, path+".path")

	if auth.Method == "" {
		v.addError(path+".method", "method is required")
	} else if _, ok := allowedAuthMethods[auth.Method]; !ok {
		v.addError(path+".method",
			fmt.Sprintf("method must be one of GET, POST, HEAD, PUT, got %q", auth.Method))
	}

	for i, name := range auth.RequestHeaders {
		v.validateHeaderName(name, fmt.Sprintf("%s.requestHeaders[%d]", path, i))
	}
	for i, name := range auth.ResponseHeaders {
		v.validateHeaderName(name, fmt.Sprintf("%s.responseHeaders[%d]", path, i))
	}
}

// validateHost checks an upstream authority.
func (v *Validator) validateHost(host, path string) {
	switch {
	case host == "":
		v.addError(path, "host is required")
	case strings.Contains(host, "://"):
		v.addError(path, "host must not include a scheme")
	case strings.ContainsAny(host, "/?# \t"):
		v.addError(path, "host must not include a path, query or whitespace")
	}
}

// validatePathPrefix checks a non-empty absolute path.
func (v *Validator) validatePathPrefix(p, path string) {
	if p == "" {
		v.addError(path, "path is required")
		return
	}
	if !strings.HasPrefix(p, "/") {
		v.addError(path, "path must start with '/'")
	}
}

// validateHeaderName checks that a header name is a valid HTTP token.
func (v *Validator) validateHeaderName(name, path string) {
	if name == "" {
		v.addError(path, "header name is required")
		return
	}
	if !httpguts.ValidHeaderFieldName(name) {
		v.addError(path, fmt.Sprintf("invalid header name %q", name))
	}
}

// validateServer validates server timeouts and limits.
func (v *Validator) validateServer(server *ServerConfig, path string) {
	if server.ReadHeaderTimeout < 0 {
		v.addError(path+".readHeaderTimeout", "must not be negative")
	}
	if server.IdleTimeout < 0 {
		v.addError(path+".idleTimeout", "must not be negative")
	}
	if server.RequestTimeout < 0 {
		v.addError(path+".requestTimeout", "must not be negative")
	}
	if server.ShutdownTimeout < 0 {
		v.addError(path+".shutdownTimeout", "must not be negative")
	}
	if server.MaxBodySize < 0 {
		v.addError(path+".maxBodySize", "must not be negative")
	}
}

// validateRateLimit validates rate limit settings when enabled.
func (v *Validator) validateRateLimit(rl *RateLimitConfig, path string) {
	if !rl.Enabled {
		return
	}
	if rl.RequestsPerSecond <= 0 {
		v.addError(path+".requestsPerSecond", "must be positive when rate limiting is enabled")
	}
	if rl.Burst <= 0 {
		v.addError(path+".burst", "must be positive when rate limiting is enabled")
	}
}

// validateObservability validates metrics and tracing settings.
func (v *Validator) validateObservability(config *Config, path string) {
	metrics := &config.Observability.Metrics
	if metrics.Enabled {
		v.validatePort(metrics.Port, path+".metrics.port")
		if metrics.Port == config.Port {
			v.addError(path+".metrics.port", "metrics port must differ from the proxy port")
		}
		if !strings.HasPrefix(metrics.Path, "/") {
			v.addError(path+".metrics.path", "path must start with '/'")
		}
	}

	tracing := &config.Observability.Tracing
	if tracing.SamplingRate < 0 || tracing.SamplingRate > 1 {
		v.addError(path+".tracing.samplingRate",
			fmt.Sprintf("sampling rate must be between 0 and 1, got %g", tracing.SamplingRate))
	}
	if tracing.Enabled && tracing.OTLPEndpoint == "" {
		v.addError(path+".tracing.otlpEndpoint", "endpoint is required when tracing is enabled")
	}
}

// addError adds a validation error.
func (v *Validator) addError(path, message string) {
	v.errors = append(v.errors, ValidationError{
		Path:    path,
		Message: message,
	})
}
