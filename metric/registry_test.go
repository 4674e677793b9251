package metric

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndScrape(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "test_total",
		Help:      "Test counter",
	})
	require.NoError(t, registry.Register("test", "test_total", counter))
	counter.Add(3)

	rec := httptest.NewRecorder()
	registry.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "graphql_persisted_queries_test_total 3")
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_total"})
	require.NoError(t, registry.Register("test", "dup_total", counter))

	other := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_total"})
	err := registry.Register("test", "dup_total", other)
	require.Error(t, err)
}

func TestUnregister(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "gone_total"})
	require.NoError(t, registry.Register("test", "gone_total", counter))

	assert.True(t, registry.Unregister("test", "gone_total"))
	assert.False(t, registry.Unregister("test", "gone_total"))

	// Slot is free again after unregistration
	require.NoError(t, registry.Register("test", "gone_total", counter))
}
