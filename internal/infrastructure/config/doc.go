// Package config provides 12-factor configuration management for agentrace.
//
// Configuration is loaded from environment variables with sensible defaults.
// CLI flags can override environment variables for development flexibility.
//
// Configuration Sections:
//   - Tracing: capture switch, output directory, export format and compression
//   - Logging: Log level and output format
//   - Metrics: tracer self-metrics and the textfile they are written to
//   - Agent: model name used by the demo session
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	fmt.Printf("Writing traces to %s as %s\n", cfg.Tracing.Dir, cfg.Tracing.Format)
//
// Environment Variables:
//   - TRACE_ENABLED, TRACE_DIR, TRACE_FORMAT, TRACE_COMPRESSION
//   - LOG_LEVEL, LOG_DEV
//   - METRICS_ENABLED, METRICS_FILE
//   - AGENT_MODEL
package config
