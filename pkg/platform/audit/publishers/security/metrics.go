package security

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for security audit buffering.
type Metrics struct {
	Buffered        prometheus.Counter
	Persisted       prometheus.Counter
	PersistFailures prometheus.Counter
	BufferDepth     prometheus.Gauge
	Dropped         prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with security audit metrics registered.
func NewMetrics() *Metrics {
	return &Metrics{
		Buffered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scholar_audit_security_buffered_total",
			Help: "Total number of security audit events accepted into the buffer",
		}),
		Persisted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scholar_audit_security_persisted_total",
			Help: "Total number of security audit events flushed to the store",
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scholar_audit_security_persist_failures_total",
			Help: "Total number of failed security audit batch flushes",
		}),
		BufferDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "scholar_audit_security_buffer_depth",
			Help: "Current number of security audit events waiting in the buffer",
		}),
		Dropped: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "scholar_audit_security_dropped_total",
			Help: "Total number of security audit events evicted from a full buffer",
		}),
	}
}

// IncBuffered increments the buffered counter.
func (m *Metrics) IncBuffered() {
	m.Buffered.Inc()
}

// IncPersisted increments the persisted counter.
func (m *Metrics) IncPersisted() {
	m.Persisted.Inc()
}

// IncPersistFailures increments the persist failures counter.
func (m *Metrics) IncPersistFailures() {
	m.PersistFailures.Inc()
}

// SetBufferDepth sets the buffer depth gauge.
func (m *Metrics) SetBufferDepth(depth int) {
	m.BufferDepth.Set(float64(depth))
}

// SetDropped sets the dropped gauge.
func (m *Metrics) SetDropped(dropped int64) {
	m.Dropped.Set(float64(dropped))
}
