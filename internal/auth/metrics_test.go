package auth

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestGetSharedMetrics(t *testing.T) {
	t.Parallel()

	assert.Same(t, GetSharedMetrics(), GetSharedMetrics())
}

func TestMetrics_Record(t *testing.T) {
	t.Parallel()

	m := NewMetrics("")
	registry := prometheus.NewRegistry()
	m.MustRegister(registry)

	m.RecordSuccess("200", 10*time.Millisecond)
	m.RecordError(errTypeTransport, time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestsTotal.WithLabelValues(resultSuccess, "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.requestsTotal.WithLabelValues(resultError, "")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.errorsTotal.WithLabelValues(errTypeTransport)))

	count, err := testutil.GatherAndCount(registry, "apiproxy_auth_requests_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}
