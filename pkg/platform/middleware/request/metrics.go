package request

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	EndpointLatency *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EndpointLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "barangay_endpoint_latency_seconds",
			Help:    "Latency of HTTP endpoints in seconds, by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

func (m *Metrics) ObserveEndpointLatency(route string, durationSeconds float64) {
	m.EndpointLatency.WithLabelValues(route).Observe(durationSeconds)
}
