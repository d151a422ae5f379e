package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vyrodovalexey/apiproxy/internal/util"
)

// DefaultNamespace is the metrics namespace used when none is given.
const DefaultNamespace = "apiproxy"

// unmatchedRoute is the label value used for requests that do not
// match any configured target, ensuring bounded cardinality.
const unmatchedRoute = "unmatched"

// Metrics holds the HTTP-level Prometheus metrics for the proxy.
type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestSize     *prometheus.HistogramVec
	responseSize    *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	buildInfo       *prometheus.GaugeVec
	startTime       prometheus.Gauge
	registry        *prometheus.Registry
}

// NewMetrics creates a new Metrics instance backed by its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets: []float64{
				.001, .005, .01, .025, .05,
				.1, .25, .5, 1, 2.5, 5, 10,
			},
		},
		[]string{"method", "route", "status"},
	)

	m.requestSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_size_bytes",
			Help:      "HTTP request size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "route"},
	)

	m.responseSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "response_size_bytes",
			Help:      "HTTP response size in bytes",
			Buckets:   prometheus.ExponentialBuckets(100, 10, 8),
		},
		[]string{"method", "route", "status"},
	)

	m.inFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	m.buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information for the proxy",
		},
		[]string{"version", "commit", "build_time"},
	)

	m.startTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "start_time_seconds",
			Help:      "Start time of the proxy in unix seconds",
		},
	)

	m.registerCollectors()

	m.startTime.SetToCurrentTime()

	return m
}

// registerCollectors registers all metric collectors with the
// Prometheus registry.
func (m *Metrics) registerCollectors() {
	m.registry.MustRegister(
		m.requestsTotal,
		m.requestDuration,
		m.requestSize,
		m.responseSize,
		m.inFlight,
		m.buildInfo,
		m.startTime,
	)

	m.registry.MustRegister(collectors.NewGoCollector())
	m.registry.MustRegister(
		collectors.NewProcessCollector(
			collectors.ProcessCollectorOpts{},
		),
	)
}

// RecordRequest records a completed HTTP request.
// The route parameter is the matched target name, never the raw
// request path, to prevent cardinality explosion.
func (m *Metrics) RecordRequest(
	method, route string,
	status int,
	duration time.Duration,
	reqSize, respSize int64,
) {
	statusStr := strconv.Itoa(status)

	m.requestsTotal.WithLabelValues(method, route, statusStr).Inc()
	m.requestDuration.WithLabelValues(method, route, statusStr).Observe(duration.Seconds())
	if reqSize > 0 {
		m.requestSize.WithLabelValues(method, route).Observe(float64(reqSize))
	}
	m.responseSize.WithLabelValues(method, route, statusStr).Observe(float64(respSize))
}

// SetBuildInfo sets the build information metric.
func (m *Metrics) SetBuildInfo(version, commit, buildTime string) {
	m.buildInfo.WithLabelValues(version, commit, buildTime).Set(1)
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		m.registry,
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// MetricsMiddleware returns a middleware that records request metrics.
// The route label is read back from the RouteHolder that the proxy
// handler fills in after matching a target.
func MetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx, _ := util.ContextWithRouteHolder(r.Context())
			r = r.WithContext(ctx)

			rw := util.NewStatusCapturingResponseWriter(w)

			metrics.inFlight.Inc()
			defer metrics.inFlight.Dec()

			next.ServeHTTP(rw, r)

			metrics.RecordRequest(
				r.Method, routeFromRequest(r), rw.StatusCode,
				time.Since(start),
				r.ContentLength, rw.Size,
			)
		})
	}
}

// routeFromRequest extracts the route name from the request
// context. Returns unmatchedRoute if no route is set.
func routeFromRequest(r *http.Request) string {
	route := util.RouteFromContext(r.Context())
	if route == "" {
		return unmatchedRoute
	}
	return route
}
