package idempotency

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds idempotency Prometheus counters.
// All labels are (service, endpoint, method) except storage errors.
type Metrics struct {
	Hits          *prometheus.CounterVec
	Misses        *prometheus.CounterVec
	Mismatches    *prometheus.CounterVec
	Collisions    *prometheus.CounterVec
	StorageErrors *prometheus.CounterVec
}

// NewMetrics registers the idempotency counters on the given registry
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)
	labels := []string{"service", "endpoint", "method"}

	return &Metrics{
		Hits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_hits_total",
			Help: "Cached responses replayed for repeated idempotency keys",
		}, labels),
		Misses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_misses_total",
			Help: "New requests processed under an idempotency key",
		}, labels),
		Mismatches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_parameter_mismatches_total",
			Help: "Requests reusing a key with a different body",
		}, labels),
		Collisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_concurrent_collisions_total",
			Help: "Requests rejected because the key was locked by an in-flight request",
		}, labels),
		StorageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_storage_errors_total",
			Help: "Idempotency storage failures",
		}, []string{"service", "operation"}),
	}
}

func (m *Metrics) recordHit(service, endpoint, method string) {
	if m != nil {
		m.Hits.WithLabelValues(service, endpoint, method).Inc()
	}
}

func (m *Metrics) recordMiss(service, endpoint, method string) {
	if m != nil {
		m.Misses.WithLabelValues(service, endpoint, method).Inc()
	}
}

func (m *Metrics) recordMismatch(service, endpoint, method string) {
	if m != nil {
		m.Mismatches.WithLabelValues(service, endpoint, method).Inc()
	}
}

func (m *Metrics) recordCollision(service, endpoint, method string) {
	if m != nil {
		m.Collisions.WithLabelValues(service, endpoint, method).Inc()
	}
}

func (m *Metrics) recordStorageError(service, operation string) {
	if m != nil {
		m.StorageErrors.WithLabelValues(service, operation).Inc()
	}
}
