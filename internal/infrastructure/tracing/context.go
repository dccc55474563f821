package tracing

import "context"

// Context keys for the two ambient slots
type contextKey string

const (
	spanKey   contextKey = "tracing.span"
	tracerKey contextKey = "tracing.tracer"
)

// Token restores the ambient value that was in effect before a set.
// The zero Token resets to context.Background().
type Token struct {
	prev context.Context
}

// Reset returns the context holding the immediately preceding ambient value
func (t Token) Reset() context.Context {
	if t.prev == nil {
		return context.Background()
	}
	return t.prev
}

// WithSpan makes span the current span for ctx and everything derived from it
func WithSpan(ctx context.Context, span *Span) (context.Context, Token) {
	return context.WithValue(ctx, spanKey, span), Token{prev: ctx}
}

// SpanFromContext returns the current span, or nil
func SpanFromContext(ctx context.Context) *Span {
	if span, ok := ctx.Value(spanKey).(*Span); ok {
		return span
	}
	return nil
}

// WithTracer makes tracer the active tracer for ctx and everything derived from it
func WithTracer(ctx context.Context, tracer *Tracer) (context.Context, Token) {
	return context.WithValue(ctx, tracerKey, tracer), Token{prev: ctx}
}

// FromContext returns the active tracer, or nil when tracing is off
func FromContext(ctx context.Context) *Tracer {
	if tracer, ok := ctx.Value(tracerKey).(*Tracer); ok {
		return tracer
	}
	return nil
}
