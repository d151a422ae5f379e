package auth

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result label values.
const (
	resultSuccess = "success"
	resultError   = "error"
)

var (
	sharedMetricsInstance *Metrics
	sharedMetricsOnce     sync.Once
)

// GetSharedMetrics returns the singleton auth metrics instance. It must
// be registered with the proxy's Prometheus registry via MustRegister.
func GetSharedMetrics() *Metrics {
	sharedMetricsOnce.Do(func() {
		sharedMetricsInstance = NewMetrics("apiproxy")
	})
	return sharedMetricsInstance
}

// Metrics holds Prometheus metrics for auth fetches.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
}

// NewMetrics creates unregistered auth metrics.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "apiproxy"
	}

	return &Metrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "requests_total",
				Help:      "Total number of auth fetches by result and upstream status",
			},
			[]string{"result", "status"},
		),
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "request_duration_seconds",
				Help:      "Auth fetch duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"result"},
		),
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "auth",
				Name:      "errors_total",
				Help:      "Total number of auth fetch errors by type",
			},
			[]string{"error_type"},
		),
	}
}

// RecordSuccess records an auth response with the given status.
func (m *Metrics) RecordSuccess(status string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(resultSuccess, status).Inc()
	m.requestDuration.WithLabelValues(resultSuccess).Observe(duration.Seconds())
}

// RecordError records a failed auth fetch.
func (m *Metrics) RecordError(errorType string, duration time.Duration) {
	m.requestsTotal.WithLabelValues(resultError, "").Inc()
	m.requestDuration.WithLabelValues(resultError).Observe(duration.Seconds())
	m.errorsTotal.WithLabelValues(errorType).Inc()
}

// MustRegister registers the metrics with the given registry.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.errorsTotal,
	)
}
