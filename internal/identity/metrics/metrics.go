package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the identity module.
type Metrics struct {
	// Registrations by outcome
	Registrations *prometheus.CounterVec

	// Challenges issued
	Challenges prometheus.Counter

	// Authentication outcomes by method and result
	AuthAttempts *prometheus.CounterVec
}

// New creates a new Metrics instance with all identity module metrics registered.
func New() *Metrics {
	return &Metrics{
		Registrations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scholar_agent_registrations_total",
			Help: "Total agent registration attempts by outcome",
		}, []string{"outcome"}), // outcome: "registered", "conflict", "invalid"

		Challenges: promauto.NewCounter(prometheus.CounterOpts{
			Name: "scholar_auth_challenges_total",
			Help: "Total authentication challenges issued",
		}),

		AuthAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "scholar_auth_attempts_total",
			Help: "Total authentication attempts by method and result",
		}, []string{"method", "result"}), // method: "challenge", "api_key"
	}
}

// IncrementRegistration records a registration outcome.
func (m *Metrics) IncrementRegistration(outcome string) {
	if m != nil {
		m.Registrations.WithLabelValues(outcome).Inc()
	}
}

// IncrementChallenge records an issued challenge.
func (m *Metrics) IncrementChallenge() {
	if m != nil {
		m.Challenges.Inc()
	}
}

// IncrementAuth records an authentication attempt.
func (m *Metrics) IncrementAuth(method, result string) {
	if m != nil {
		m.AuthAttempts.WithLabelValues(method, result).Inc()
	}
}
