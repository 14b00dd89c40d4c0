package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for the verification state machine.
type Metrics struct {
	TransitionsTotal    *prometheus.CounterVec
	TransitionsRejected *prometheus.CounterVec
	ReopensTotal        prometheus.Counter
	RegistrationsTotal  prometheus.Counter
	TransitionLatency   prometheus.Histogram
}

// New registers collectors on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TransitionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "barangay_verification_transitions_total",
			Help: "Accepted verification transitions, labeled by edge",
		}, []string{"from", "to"}),
		TransitionsRejected: f.NewCounterVec(prometheus.CounterOpts{
			Name: "barangay_verification_transitions_rejected_total",
			Help: "Refused verification transitions, labeled by error code",
		}, []string{"code"}),
		ReopensTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "barangay_verification_reopens_total",
			Help: "Rejected cases returned to non_verified",
		}),
		RegistrationsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "barangay_verification_registrations_total",
			Help: "Residents registered with the verification subsystem",
		}),
		TransitionLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "barangay_verification_transition_latency_seconds",
			Help:    "Latency of transition operations including audit and issuance",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

func (m *Metrics) IncrementTransition(from, to string) {
	m.TransitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncrementRejected(code string) {
	m.TransitionsRejected.WithLabelValues(code).Inc()
}

func (m *Metrics) IncrementReopens() {
	m.ReopensTotal.Inc()
}

func (m *Metrics) IncrementRegistrations() {
	m.RegistrationsTotal.Inc()
}

func (m *Metrics) ObserveTransitionLatency(seconds float64) {
	m.TransitionLatency.Observe(seconds)
}
