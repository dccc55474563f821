/*
Package monitoring exposes the tracer's own health as Prometheus metrics.

# Metrics

  - agentrace_spans_started_total{kind}
  - agentrace_spans_failed_total{kind}
  - agentrace_exports_total{result}
  - agentrace_pending_llm_correlations

These count tracer activity; they do not summarise the contents of traces.

# Usage

	reg := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(reg)
	tracer := tracing.New(tracing.WithMetrics(metrics))

	// Dump after a run
	prometheus.WriteToTextfile("agentrace.prom", reg)
*/
package monitoring
