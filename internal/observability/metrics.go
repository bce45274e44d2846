// Package observability holds the Prometheus metrics of the kiosk server.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "tayyib"

// Metrics groups the counters and histograms recorded while answering queries.
// All methods are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	ProviderErrorsTotal *prometheus.CounterVec
	RetrievalCacheTotal *prometheus.CounterVec
	RetrievalFailures   *prometheus.CounterVec
	SessionLimitTotal   prometheus.Counter
}

// NewMetrics registers the kiosk metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "requests_total",
				Help:      "Answered queries by mode and final route",
			},
			[]string{"mode", "route"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "request_duration_seconds",
				Help:      "Time to the terminal answer by mode",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
			},
			[]string{"mode"},
		),
		ProviderErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "completion",
				Name:      "errors_total",
				Help:      "Unrecovered completion provider failures by error code",
			},
			[]string{"error_code"},
		),
		RetrievalCacheTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "retrieval",
				Name:      "cache_total",
				Help:      "Retrieval cache lookups by result",
			},
			[]string{"result"},
		),
		RetrievalFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "retrieval",
				Name:      "failures_total",
				Help:      "Retrieval provider failures by stage",
			},
			[]string{"stage"},
		),
		SessionLimitTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "session_limit_total",
				Help:      "Chat requests refused because the session reached its message ceiling",
			},
		),
	}
}

// RecordRequest records one answered query.
func (m *Metrics) RecordRequest(mode, route string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(mode, route).Inc()
	m.RequestDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// RecordProviderError records a classified completion failure.
func (m *Metrics) RecordProviderError(code string) {
	if m == nil {
		return
	}
	m.ProviderErrorsTotal.WithLabelValues(code).Inc()
}

// RecordCache records a retrieval cache hit or miss.
func (m *Metrics) RecordCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.RetrievalCacheTotal.WithLabelValues(result).Inc()
}

// RecordRetrievalFailure records an embedding or index failure.
func (m *Metrics) RecordRetrievalFailure(stage string) {
	if m == nil {
		return
	}
	m.RetrievalFailures.WithLabelValues(stage).Inc()
}

// RecordSessionLimit records a refused over-limit chat request.
func (m *Metrics) RecordSessionLimit() {
	if m == nil {
		return
	}
	m.SessionLimitTotal.Inc()
}
