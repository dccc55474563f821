// Package main runs a scripted agent session and writes its trace.
//
// Each argument is one user intent; goals inside an intent are separated by
// " and " and pursued concurrently. Without arguments a built-in pair of
// intents is used.
//
// Usage:
//
//	# JSON trace under ./traces
//	agentrace "upper hello and count one two three"
//
//	# YAML, gzip, development logs, metrics textfile
//	agentrace -format yaml -compression gzip -dev -metrics agentrace.prom
//
// Configuration:
//   - Environment variables (TRACE_*, LOG_*, METRICS_*, AGENT_MODEL)
//   - CLI flags (override env vars)
//
// Signals:
//   - SIGINT, SIGTERM: cancel the session; open spans are still closed and exported
package main
