package middleware

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MiddlewareMetrics holds Prometheus metrics for middleware
// operations.
type MiddlewareMetrics struct {
	rateLimitRejected prometheus.Counter
	bodyLimitRejected prometheus.Counter
	panicsRecovered   prometheus.Counter
	corsRequestsTotal *prometheus.CounterVec
}

var (
	middlewareMetrics     *MiddlewareMetrics
	middlewareMetricsOnce sync.Once
)

// InitMetrics registers the middleware metrics with registerer. A nil
// registerer means the default one. Only the first call has an effect.
func InitMetrics(registerer prometheus.Registerer) {
	middlewareMetricsOnce.Do(func() {
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}
		middlewareMetrics = newMiddlewareMetrics(promauto.With(registerer))
	})
}

// GetMiddlewareMetrics returns the singleton middleware metrics
// instance.
func GetMiddlewareMetrics() *MiddlewareMetrics {
	InitMetrics(nil)
	return middlewareMetrics
}

func newMiddlewareMetrics(factory promauto.Factory) *MiddlewareMetrics {
	return &MiddlewareMetrics{
		rateLimitRejected: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "apiproxy",
				Subsystem: "middleware",
				Name:      "rate_limit_rejected_total",
				Help: "Total number of requests " +
					"rejected by rate limiter",
			},
		),
		bodyLimitRejected: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "apiproxy",
				Subsystem: "middleware",
				Name:      "body_limit_rejected_total",
				Help: "Total number of requests " +
					"rejected due to body size limit",
			},
		),
		panicsRecovered: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "apiproxy",
				Subsystem: "middleware",
				Name:      "panics_recovered_total",
				Help: "Total number of panics " +
					"recovered",
			},
		),
		corsRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "apiproxy",
				Subsystem: "middleware",
				Name:      "cors_requests_total",
				Help: "Total number of CORS " +
					"requests by type",
			},
			[]string{"type"},
		),
	}
}
