package health

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for health checks.
type Metrics struct {
	checksTotal *prometheus.CounterVec
	checkStatus *prometheus.GaugeVec
}

var (
	healthMetricsInstance *Metrics
	healthMetricsOnce     sync.Once
)

// InitMetrics registers the health metrics with registerer. A nil
// registerer means the default one. Only the first call has an effect.
func InitMetrics(registerer prometheus.Registerer) {
	healthMetricsOnce.Do(func() {
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}
		factory := promauto.With(registerer)
		healthMetricsInstance = &Metrics{
			checksTotal: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "apiproxy",
					Subsystem: "health",
					Name:      "checks_total",
					Help: "Total number of " +
						"health checks performed",
				},
				[]string{"type"},
			),
			checkStatus: factory.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "apiproxy",
					Subsystem: "health",
					Name:      "check_status",
					Help: "Current health check " +
						"status (1=healthy, 0=unhealthy)",
				},
				[]string{"check"},
			),
		}
		for _, checkType := range []string{probeLiveness, probeReadiness} {
			healthMetricsInstance.checksTotal.WithLabelValues(checkType)
		}
	})
}

// GetMetrics returns the singleton health metrics instance.
func GetMetrics() *Metrics {
	InitMetrics(nil)
	return healthMetricsInstance
}

func (m *Metrics) observe(check string, status Status) {
	value := 0.0
	if status != StatusUnhealthy {
		value = 1
	}
	m.checkStatus.WithLabelValues(check).Set(value)
}
