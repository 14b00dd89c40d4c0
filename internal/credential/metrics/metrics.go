package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for credential issuance, validation and scans.
type Metrics struct {
	IssuedTotal        *prometheus.CounterVec
	SupersededTotal    prometheus.Counter
	ValidationsTotal   *prometheus.CounterVec
	ValidationReasons  *prometheus.CounterVec
	ScansTotal         prometheus.Counter
	ActiveCacheLookups *prometheus.CounterVec
	LookupErrors       prometheus.Counter
}

// New registers collectors on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		IssuedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "barangay_credentials_issued_total",
			Help: "Credentials issued, labeled by the status they attest",
		}, []string{"status"}),
		SupersededTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "barangay_credentials_superseded_total",
			Help: "Credentials retired by a newer issuance or a rejection",
		}),
		ValidationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "barangay_credential_validations_total",
			Help: "Credential validations, labeled by result",
		}, []string{"result"}),
		ValidationReasons: f.NewCounterVec(prometheus.CounterOpts{
			Name: "barangay_credential_validation_reasons_total",
			Help: "Reason codes returned by failed validations",
		}, []string{"reason"}),
		ScansTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "barangay_credential_scans_total",
			Help: "Scan events recorded against credentials",
		}),
		ActiveCacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "barangay_credential_active_cache_lookups_total",
			Help: "Active credential cache lookups, labeled hit or miss",
		}, []string{"result"}),
		LookupErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "barangay_credential_lookup_errors_total",
			Help: "Store lookups that failed during validation; the dependent checks were skipped",
		}),
	}
}

func (m *Metrics) IncrementIssued(status string) {
	m.IssuedTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementSuperseded() {
	m.SupersededTotal.Inc()
}

func (m *Metrics) ObserveValidation(valid bool, reasons []string) {
	result := "valid"
	if !valid {
		result = "invalid"
	}
	m.ValidationsTotal.WithLabelValues(result).Inc()
	for _, r := range reasons {
		m.ValidationReasons.WithLabelValues(r).Inc()
	}
}

func (m *Metrics) IncrementScans() {
	m.ScansTotal.Inc()
}

func (m *Metrics) IncrementCacheHit() {
	m.ActiveCacheLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) IncrementCacheMiss() {
	m.ActiveCacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) IncrementLookupErrors() {
	m.LookupErrors.Inc()
}
