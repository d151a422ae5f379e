package config

import (
	"net"
	"strconv"
	"strings"
	"time"
)

// Default values.
const (
	DefaultBind              = "127.0.0.1"
	DefaultReadHeaderTimeout = 10 * time.Second
	DefaultIdleTimeout       = 120 * time.Second
	DefaultShutdownTimeout   = 30 * time.Second
	DefaultMaxBodySize       = 2 << 20
	DefaultRequestsPerSecond = 100
	DefaultBurst             = 200
	DefaultMetricsPort       = 9090
	DefaultMetricsPath       = "/metrics"
	DefaultOTLPEndpoint      = "localhost:4317"
	DefaultServiceName       = "apiproxy"
	DefaultSamplingRate      = 1.0
)

// Config is the root proxy configuration.
type Config struct {
	Port          int                 `yaml:"port" json:"port"`
	Bind          string              `yaml:"bind,omitempty" json:"bind,omitempty"`
	CORS          bool                `yaml:"cors" json:"cors"`
	RedactErrors  bool                `yaml:"redactErrors" json:"redactErrors"`
	Targets       []ProxyTarget       `yaml:"targets" json:"targets"`
	Auth          *AuthTarget         `yaml:"auth,omitempty" json:"auth,omitempty"`
	Server        ServerConfig        `yaml:"server" json:"server"`
	RateLimit     RateLimitConfig     `yaml:"rateLimit" json:"rateLimit"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// ProxyTarget describes one upstream and the inbound prefix routed to it.
type ProxyTarget struct {
	Name         string `yaml:"name,omitempty" json:"name,omitempty"`
	Host         string `yaml:"host" json:"host"`
	Secure       bool   `yaml:"secure" json:"secure"`
	SourcePath   string `yaml:"sourcePath" json:"sourcePath"`
	DestPath     string `yaml:"destPath" json:"destPath"`
	UseAuth      bool   `yaml:"useAuth" json:"useAuth"`
	IgnoreErrors bool   `yaml:"ignoreErrors,omitempty" json:"ignoreErrors,omitempty"`
}

// AuthTarget describes the endpoint that supplies credentials for
// targets with UseAuth set.
type AuthTarget struct {
	Host            string   `yaml:"host" json:"host"`
	Secure          bool     `yaml:"secure" json:"secure"`
	Path            string   `yaml:"path" json:"path"`
	Method          string   `yaml:"method" json:"method"`
	RequestHeaders  []string `yaml:"requestHeaders,omitempty" json:"requestHeaders,omitempty"`
	ResponseHeaders []string `yaml:"responseHeaders,omitempty" json:"responseHeaders,omitempty"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	ReadHeaderTimeout Duration `yaml:"readHeaderTimeout" json:"readHeaderTimeout"`
	IdleTimeout       Duration `yaml:"idleTimeout" json:"idleTimeout"`
	// RequestTimeout bounds auth, forward and streaming for one request.
	// Zero disables the deadline.
	RequestTimeout  Duration `yaml:"requestTimeout" json:"requestTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout" json:"shutdownTimeout"`
	// MaxBodySize is the inbound body limit in bytes. Zero disables it.
	MaxBodySize int64 `yaml:"maxBodySize" json:"maxBodySize"`
}

// RateLimitConfig configures token bucket rate limiting.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" json:"enabled"`
	RequestsPerSecond int  `yaml:"requestsPerSecond" json:"requestsPerSecond"`
	Burst             int  `yaml:"burst" json:"burst"`
	PerClient         bool `yaml:"perClient" json:"perClient"`
}

// ObservabilityConfig groups metrics and tracing settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
	Tracing TracingConfig `yaml:"tracing" json:"tracing"`
}

// MetricsConfig configures the admin listener serving metrics and health.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Port    int    `yaml:"port" json:"port"`
	Path    string `yaml:"path" json:"path"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	OTLPEndpoint string  `yaml:"otlpEndpoint" json:"otlpEndpoint"`
	SamplingRate float64 `yaml:"samplingRate" json:"samplingRate"`
	ServiceName  string  `yaml:"serviceName" json:"serviceName"`
}

// DefaultConfig returns a configuration populated with defaults. The
// loader decodes YAML on top of it, so absent keys keep these values.
func DefaultConfig() *Config {
	return &Config{
		Bind: DefaultBind,
		Server: ServerConfig{
			ReadHeaderTimeout: Duration(DefaultReadHeaderTimeout),
			IdleTimeout:       Duration(DefaultIdleTimeout),
			ShutdownTimeout:   Duration(DefaultShutdownTimeout),
			MaxBodySize:       DefaultMaxBodySize,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: DefaultRequestsPerSecond,
			Burst:             DefaultBurst,
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Port:    DefaultMetricsPort,
				Path:    DefaultMetricsPath,
			},
			Tracing: TracingConfig{
				OTLPEndpoint: DefaultOTLPEndpoint,
				SamplingRate: DefaultSamplingRate,
				ServiceName:  DefaultServiceName,
			},
		},
	}
}

// ApplyDefaults fills values that were explicitly left empty and
// normalizes case-insensitive fields.
func (c *Config) ApplyDefaults() {
	if c.Bind == "" {
		c.Bind = DefaultBind
	}

	for i := range c.Targets {
		if c.Targets[i].Name == "" {
			c.Targets[i].Name = c.Targets[i].SourcePath
		}
	}

	if c.Auth != nil {
		c.Auth.Method = strings.ToUpper(strings.TrimSpace(c.Auth.Method))
	}

	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = DefaultMetricsPath
	}
	if c.Observability.Tracing.ServiceName == "" {
		c.Observability.Tracing.ServiceName = DefaultServiceName
	}
}

// ListenAddress returns the proxy listen address.
func (c *Config) ListenAddress() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// MetricsAddress returns the admin listen address.
func (c *Config) MetricsAddress() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Observability.Metrics.Port))
}

// HasAuthTargets reports whether any target requires the auth step.
func (c *Config) HasAuthTargets() bool {
	for i := range c.Targets {
		if c.Targets[i].UseAuth {
			return true
		}
	}
	return false
}
