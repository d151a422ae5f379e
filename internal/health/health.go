package health

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vyrodovalexey/apiproxy/internal/observability"
)

// Probe types used as metric labels.
const (
	probeLiveness  = "liveness"
	probeReadiness = "readiness"
)

// Status represents the health status.
type Status string

const (
	// StatusHealthy indicates the service is healthy.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the service is unhealthy.
	StatusUnhealthy Status = "unhealthy"
	// StatusDegraded indicates the service is degraded but operational.
	StatusDegraded Status = "degraded"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status    Status    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse represents the readiness check response.
type ReadinessResponse struct {
	Status    Status           `json:"status"`
	Draining  bool             `json:"draining,omitempty"`
	Checks    map[string]Check `json:"checks,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Check represents an individual health check result.
type Check struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// CheckFunc is a function that performs a health check.
type CheckFunc func() Check

// Checker provides health and readiness checking functionality.
type Checker struct {
	version   string
	startTime time.Time
	logger    observability.Logger
	draining  atomic.Bool

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewChecker creates a new health checker.
func NewChecker(version string, logger observability.Logger) *Checker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Checker{
		version:   version,
		startTime: time.Now(),
		logger:    logger,
		checks:    make(map[string]CheckFunc),
	}
}

// RegisterCheck registers a readiness check.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// UnregisterCheck removes a readiness check.
func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.checks, name)
}

// SetDraining marks the process as shutting down. A draining process
// is not ready.
func (c *Checker) SetDraining(draining bool) {
	c.draining.Store(draining)
}

// IsDraining reports whether SetDraining(true) was called.
func (c *Checker) IsDraining() bool {
	return c.draining.Load()
}

// Health returns the health status.
func (c *Checker) Health() HealthResponse {
	return HealthResponse{
		Status:    StatusHealthy,
		Version:   c.version,
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now(),
	}
}

// Readiness runs every registered check and aggregates the result.
func (c *Checker) Readiness() ReadinessResponse {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	sort.Strings(names)
	funcs := make([]CheckFunc, len(names))
	for i, name := range names {
		funcs[i] = c.checks[name]
	}
	c.mu.RUnlock()

	response := ReadinessResponse{
		Status:    StatusHealthy,
		Checks:    make(map[string]Check, len(names)),
		Timestamp: time.Now(),
	}

	metrics := GetMetrics()
	for i, name := range names {
		check := funcs[i]()
		response.Checks[name] = check
		metrics.observe(name, check.Status)

		switch check.Status {
		case StatusUnhealthy:
			c.logger.Warn("readiness check failed",
				observability.String("check", name),
				observability.String("message", check.Message),
			)
			response.Status = StatusUnhealthy
		case StatusDegraded:
			if response.Status != StatusUnhealthy {
				response.Status = StatusDegraded
			}
		}
	}

	if c.IsDraining() {
		response.Draining = true
		response.Status = StatusUnhealthy
	}

	metrics.observe("overall", response.Status)
	return response
}

// HealthHandler returns an HTTP handler for the health endpoint.
func (c *Checker) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		GetMetrics().checksTotal.WithLabelValues(probeLiveness).Inc()
		writeJSON(w, http.StatusOK, c.Health())
	}
}

// ReadinessHandler returns an HTTP handler for the readiness endpoint.
// It answers 503 unless every check passes.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		GetMetrics().checksTotal.WithLabelValues(probeReadiness).Inc()

		response := c.Readiness()

		statusCode := http.StatusOK
		if response.Status == StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		writeJSON(w, statusCode, response)
	}
}

// LivenessHandler returns an HTTP handler for the liveness endpoint (simple ping).
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		GetMetrics().checksTotal.WithLabelValues(probeLiveness).Inc()
		w.Header().Set(HeaderContentType, ContentTypeJSON)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// Register mounts the health, readiness and liveness endpoints on mux.
func (c *Checker) Register(mux *http.ServeMux) {
	mux.Handle(PathHealth, c.HealthHandler())
	mux.Handle(PathReady, c.ReadinessHandler())
	mux.Handle(PathLive, c.LivenessHandler())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set(HeaderContentType, ContentTypeJSON)
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
