package store

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Quartz/wp-graphql-persisted-queries/errors"
	"github.com/Quartz/wp-graphql-persisted-queries/metric"
)

// storeMetrics holds Prometheus counters for store operations.
type storeMetrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	puts      prometheus.Counter
	putErrors prometheus.Counter
}

func newStoreMetrics(registry *metric.MetricsRegistry, backend string) (*storeMetrics, error) {
	labels := prometheus.Labels{"backend": backend}

	m := &storeMetrics{
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "store",
			Name:        "hits_total",
			ConstLabels: labels,
			Help:        "Total number of lookups that found a stored query",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "store",
			Name:        "misses_total",
			ConstLabels: labels,
			Help:        "Total number of lookups for IDs with no stored query",
		}),
		puts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "store",
			Name:        "puts_total",
			ConstLabels: labels,
			Help:        "Total number of store write attempts",
		}),
		putErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   metric.Namespace,
			Subsystem:   "store",
			Name:        "put_errors_total",
			ConstLabels: labels,
			Help:        "Total number of failed store writes",
		}),
	}

	for name, collector := range map[string]prometheus.Collector{
		"store_hits_total":       m.hits,
		"store_misses_total":     m.misses,
		"store_puts_total":       m.puts,
		"store_put_errors_total": m.putErrors,
	} {
		if err := registry.Register(backend, name, collector); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// InstrumentedStore decorates a Store with Prometheus counters. The wrapped
// store's semantics are unchanged; only observability is added.
type InstrumentedStore struct {
	inner   Store
	metrics *storeMetrics
}

// NewInstrumentedStore wraps inner with counters registered under the given
// backend label.
func NewInstrumentedStore(inner Store, registry *metric.MetricsRegistry, backend string) (*InstrumentedStore, error) {
	if inner == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig,
			"InstrumentedStore", "NewInstrumentedStore", "inner store is required")
	}

	metrics, err := newStoreMetrics(registry, backend)
	if err != nil {
		return nil, errors.WrapTransient(err, "InstrumentedStore", "NewInstrumentedStore",
			"metrics registration")
	}

	return &InstrumentedStore{inner: inner, metrics: metrics}, nil
}

// Get delegates to the inner store, counting hits and misses.
func (s *InstrumentedStore) Get(ctx context.Context, id string) (PersistedQuery, bool, error) {
	pq, found, err := s.inner.Get(ctx, id)
	if err == nil {
		if found {
			s.metrics.hits.Inc()
		} else {
			s.metrics.misses.Inc()
		}
	}
	return pq, found, err
}

// Put delegates to the inner store, counting attempts and failures.
func (s *InstrumentedStore) Put(ctx context.Context, id, text, name string) error {
	s.metrics.puts.Inc()
	err := s.inner.Put(ctx, id, text, name)
	if err != nil {
		s.metrics.putErrors.Inc()
	}
	return err
}

var _ Store = (*InstrumentedStore)(nil)
