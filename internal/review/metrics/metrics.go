package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the review module.
type Metrics struct {
	// Reviews accepted by recommendation
	Reviews *prometheus.CounterVec

	// Consensus decisions by kind
	Decisions *prometheus.CounterVec

	// Publications by subject domain
	Publications *prometheus.CounterVec

	// Full accept-review latency including consensus evaluation
	AcceptLatency prometheus.Histogram
}

// New creates a new Metrics instance with all review module metrics registered.
func New() *Metrics {
	return &Metrics{
		Reviews: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scholar_reviews_total",
			Help: "Total accepted reviews by recommendation",
		}, []string{"recommendation"}),

		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scholar_consensus_decisions_total",
			Help: "Total consensus evaluations by decision kind",
		}, []string{"kind"}),

		Publications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scholar_publications_total",
			Help: "Total published works by subject domain",
		}, []string{"subject"}),

		AcceptLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "scholar_review_accept_duration_seconds",
			Help:    "Duration of review acceptance including consensus evaluation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
	}
}

// IncrementReview records an accepted review.
func (m *Metrics) IncrementReview(recommendation string) {
	if m != nil {
		m.Reviews.WithLabelValues(recommendation).Inc()
	}
}

// IncrementDecision records a consensus decision.
func (m *Metrics) IncrementDecision(kind string) {
	if m != nil {
		m.Decisions.WithLabelValues(kind).Inc()
	}
}

// IncrementPublication records a published work.
func (m *Metrics) IncrementPublication(subject string) {
	if m != nil {
		m.Publications.WithLabelValues(subject).Inc()
	}
}

// ObserveAcceptLatency records the duration of a full review acceptance.
func (m *Metrics) ObserveAcceptLatency(d time.Duration) {
	if m != nil {
		m.AcceptLatency.Observe(d.Seconds())
	}
}
