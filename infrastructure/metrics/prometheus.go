// Package metrics provides the Prometheus-backed implementation of the
// MetricsCollector port.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/localfm/airdj/internal/ports"
)

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements MetricsCollector over the global Prometheus
// registry. It tracks oracle call volume, latency, token spend, and
// session-level round outcomes.
type PrometheusMetrics struct {
	latency  *prometheus.HistogramVec
	counters *prometheus.CounterVec
	gauges   *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a collector and registers its metrics.
// Call at most once per process; promauto panics on duplicate registration.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "airdj_operation_duration_seconds",
				Help:    "Latency of oracle calls and decision rounds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "model"},
		),
		counters: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "airdj_events_total",
				Help: "Counts of oracle calls, failures, referee rounds, and fallbacks.",
			},
			[]string{"metric", "model"},
		),
		gauges: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "airdj_state",
				Help: "Current state values such as library size.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency records operation latency in seconds.
func (pm *PrometheusMetrics) RecordLatency(operation string, seconds float64, labels map[string]string) {
	pm.latency.WithLabelValues(operation, labels["model"]).Observe(seconds)
}

// RecordCounter increments the named counter.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	pm.counters.WithLabelValues(metric, labels["model"]).Add(value)
}

// RecordGauge sets the named gauge.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	pm.gauges.WithLabelValues(metric).Set(value)
}
