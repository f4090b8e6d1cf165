package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the submission module.
type Metrics struct {
	// Submission outcomes by result
	Submissions *prometheus.CounterVec

	// Safety blocks by aggregate risk level
	SafetyBlocks *prometheus.CounterVec

	// Revisions accepted
	Revisions prometheus.Counter
}

// New creates a new Metrics instance with all submission module metrics registered.
func New() *Metrics {
	return &Metrics{
		Submissions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scholar_submissions_total",
			Help: "Total submission attempts by outcome",
		}, []string{"outcome"}), // outcome: "accepted", "safety_blocked", "invalid"

		SafetyBlocks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scholar_safety_blocks_total",
			Help: "Total submissions blocked by the safety classifier, by risk level",
		}, []string{"risk_level"}),

		Revisions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scholar_revisions_total",
			Help: "Total accepted revisions",
		}),
	}
}

// IncrementSubmission records a submission outcome.
func (m *Metrics) IncrementSubmission(outcome string) {
	if m != nil {
		m.Submissions.WithLabelValues(outcome).Inc()
	}
}

// IncrementSafetyBlock records a safety rejection.
func (m *Metrics) IncrementSafetyBlock(riskLevel string) {
	if m != nil {
		m.SafetyBlocks.WithLabelValues(riskLevel).Inc()
	}
}

// IncrementRevision records an accepted revision.
func (m *Metrics) IncrementRevision() {
	if m != nil {
		m.Revisions.Inc()
	}
}
