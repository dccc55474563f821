// Package logging provides structured logging using uber/zap.
//
// Two modes:
//   - Production: JSON lines on stderr
//   - Development: colored console output, debug level, stack traces
//
// The tracer, exporter and demo agent each take a component logger:
//
//	logger := logging.NewFromLevel(cfg.Logging.Level, cfg.Logging.Development)
//	tracer := tracing.New(tracing.WithLogger(logger.Component("tracer")))
package logging
