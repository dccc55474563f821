package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the tracer's Prometheus self-health metrics
type Metrics struct {
	SpansStarted        *prometheus.CounterVec
	SpansFailed         *prometheus.CounterVec
	Exports             *prometheus.CounterVec
	PendingCorrelations prometheus.Gauge
}

// NewMetrics registers the tracer metrics with reg. Pass a fresh
// prometheus.NewRegistry() to keep instances independent.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SpansStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentrace_spans_started_total",
				Help: "Total number of spans opened",
			},
			[]string{"kind"},
		),
		SpansFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentrace_spans_failed_total",
				Help: "Total number of spans closed with status error",
			},
			[]string{"kind"},
		),
		Exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentrace_exports_total",
				Help: "Total number of trace exports",
			},
			[]string{"result"},
		),
		PendingCorrelations: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "agentrace_pending_llm_correlations",
				Help: "LLM requests started but not yet ended or failed",
			},
		),
	}
}

// SpanStarted counts an opened span
func (m *Metrics) SpanStarted(kind string) {
	m.SpansStarted.WithLabelValues(kind).Inc()
}

// SpanFailed counts a span closed with an error
func (m *Metrics) SpanFailed(kind string) {
	m.SpansFailed.WithLabelValues(kind).Inc()
}

// ExportCompleted counts an export attempt by outcome
func (m *Metrics) ExportCompleted(err error) {
	m.Exports.WithLabelValues(resultLabel(err)).Inc()
}

// SetPendingCorrelations updates the in-flight LLM request gauge
func (m *Metrics) SetPendingCorrelations(n int) {
	m.PendingCorrelations.Set(float64(n))
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
