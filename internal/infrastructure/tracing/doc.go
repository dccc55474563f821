/*
Package tracing records what an agent session did as a tree of spans.

# Overview

A session is traced as nested units of work:

	session → intent → pursuit → tool_call / llm_call

The current span and the active tracer travel in context.Context, so every
goroutine started with a derived context sees its own chain of spans and
concurrent pursuits never share a "current span".

# Usage

	tracer := tracing.New(
		tracing.WithExporter(exporter),
		tracing.WithLogger(logger.Logger),
	)
	ctx, tok := tracer.Activate(ctx)
	defer tracer.Deactivate(tok)

	// Declarative instrumentation
	run := tracing.TraceSession(agent.Run, tracing.WithName("session"))
	_, err := run(ctx)

	// Manual spans
	span, ctx, tok := tracer.StartSpan(ctx, tracing.KindPursuit, "lookup")
	defer func() { tracer.EndSpan(span, tok, err) }()

Without an active tracer in the context every wrapper calls straight through.

# LLM clients

A client reports its own request lifecycle to tracer.Callbacks() with an
opaque run id: OnStart while the LLM_CALL span is current, then OnEnd or
OnError from wherever the result arrives. GRPCClientInterceptor does this
for gRPC AI services.

# Export

FileExporter writes one trace_<YYYYMMDD_HHMMSS>.<ext> file per session as
JSON (default), YAML or TOML, optionally gzip or zstd compressed. Empty
fields are omitted.
*/
package tracing
