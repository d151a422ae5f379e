package proxy

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Error type label values.
const (
	errTypeAuthMissing = "auth_config_missing"
	errTypeAuthFetch   = "auth_fetch"
	errTypeInvalidURL  = "invalid_url"
	errTypeRequestBody = "request_body"
	errTypeForward     = "forward"
	errTypeCanceled    = "canceled"
	errTypeStream      = "stream"
)

// proxyMetrics contains Prometheus metrics for proxy operations.
type proxyMetrics struct {
	errorsTotal      *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	skippedHeaders   *prometheus.CounterVec
	defaultResponses *prometheus.CounterVec
	statusRewrites   *prometheus.CounterVec
}

var (
	proxyMetricsInstance *proxyMetrics
	proxyMetricsOnce     sync.Once
)

// InitMetrics initializes the singleton proxy metrics with the given
// registerer. If registerer is nil, the default registerer is used.
// Subsequent calls are no-ops.
func InitMetrics(registerer prometheus.Registerer) {
	proxyMetricsOnce.Do(func() {
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}
		factory := promauto.With(registerer)
		proxyMetricsInstance = &proxyMetrics{
			errorsTotal: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "apiproxy",
					Subsystem: "proxy",
					Name:      "errors_total",
					Help:      "Total number of proxy errors by target and type",
				},
				[]string{"target", "error_type"},
			),
			upstreamDuration: factory.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "apiproxy",
					Subsystem: "proxy",
					Name:      "upstream_duration_seconds",
					Help:      "Time until upstream response headers were received",
					Buckets: []float64{
						.001, .005, .01, .025,
						.05, .1, .25, .5,
						1, 2.5, 5, 10,
					},
				},
				[]string{"target", "status"},
			),
			skippedHeaders: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "apiproxy",
					Subsystem: "proxy",
					Name:      "skipped_headers_total",
					Help:      "Upstream response headers dropped because they were not valid HTTP",
				},
				[]string{"target"},
			),
			defaultResponses: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "apiproxy",
					Subsystem: "proxy",
					Name:      "default_responses_total",
					Help:      "Requests answered by the default responder",
				},
				[]string{"status"},
			),
			statusRewrites: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "apiproxy",
					Subsystem: "proxy",
					Name:      "ignored_errors_total",
					Help:      "Non-2xx upstream statuses reported as 200 for targets with ignoreErrors",
				},
				[]string{"target"},
			),
		}
	})
}

// getProxyMetrics returns the singleton proxy metrics instance.
// If InitMetrics has not been called, metrics are lazily
// initialized with the default registerer.
func getProxyMetrics() *proxyMetrics {
	InitMetrics(nil)
	return proxyMetricsInstance
}
