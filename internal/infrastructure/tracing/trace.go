package tracing

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Exporter writes a finished span tree somewhere durable
type Exporter interface {
	Export(root *Span, filename string) (string, error)
}

// Recorder receives tracer self-health events. monitoring.Metrics implements it.
type Recorder interface {
	SpanStarted(kind string)
	SpanFailed(kind string)
	ExportCompleted(err error)
	SetPendingCorrelations(n int)
}

type nopRecorder struct{}

func (nopRecorder) SpanStarted(string)         {}
func (nopRecorder) SpanFailed(string)          {}
func (nopRecorder) ExportCompleted(error)      {}
func (nopRecorder) SetPendingCorrelations(int) {}

// Tracer owns one session's span tree
type Tracer struct {
	exporter   Exporter
	logger     *zap.Logger
	metrics    Recorder
	correlator *Correlator

	mu      sync.Mutex
	session *Span
}

// Option configures a Tracer
type Option func(*Tracer)

// WithExporter sets the exporter used by Export
func WithExporter(e Exporter) Option {
	return func(t *Tracer) { t.exporter = e }
}

// WithLogger sets the diagnostic logger
func WithLogger(l *zap.Logger) Option {
	return func(t *Tracer) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithMetrics sets the self-health recorder
func WithMetrics(r Recorder) Option {
	return func(t *Tracer) {
		if r != nil {
			t.metrics = r
		}
	}
}

// New creates a new tracer instance
func New(opts ...Option) *Tracer {
	t := &Tracer{
		logger:  zap.NewNop(),
		metrics: nopRecorder{},
	}
	for _, opt := range opts {
		opt(t)
	}
	t.correlator = newCorrelator(t.logger, t.metrics)
	return t
}

// Activate installs t as the active tracer for ctx
func (t *Tracer) Activate(ctx context.Context) (context.Context, Token) {
	return WithTracer(ctx, t)
}

// Deactivate restores whatever tracer was active before Activate
func (t *Tracer) Deactivate(tok Token) context.Context {
	return tok.Reset()
}

// Callbacks returns the correlator that LLM clients notify
func (t *Tracer) Callbacks() *Correlator {
	return t.correlator
}

// Session returns the session root span, if one was started
func (t *Tracer) Session() *Span {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.session
}

// StartSpan opens a span under the current span of ctx and makes it current.
// The returned token must be handed to EndSpan.
func (t *Tracer) StartSpan(ctx context.Context, kind Kind, name string, attrs ...Attribute) (*Span, context.Context, Token) {
	span := newSpan(kind, name, attrs)

	if parent := SpanFromContext(ctx); parent != nil {
		parent.AddChild(span)
	}
	if kind == KindSession {
		t.mu.Lock()
		t.session = span
		t.mu.Unlock()
	}
	t.metrics.SpanStarted(kind.String())

	spanCtx, tok := WithSpan(ctx, span)
	return span, spanCtx, tok
}

// EndSpan finishes span and returns the context that was current before it
func (t *Tracer) EndSpan(span *Span, tok Token, err error) context.Context {
	span.Finish(err)
	if span.Status() == StatusError {
		t.metrics.SpanFailed(span.Kind.String())
	}
	return tok.Reset()
}

// Export writes the session tree through the configured exporter. Missing
// exporter or session is not an error.
func (t *Tracer) Export() (string, error) {
	if t.exporter == nil {
		t.logger.Debug("trace export skipped: no exporter configured")
		return "", nil
	}
	root := t.Session()
	if root == nil {
		t.logger.Warn("trace export skipped: no session span")
		return "", nil
	}

	path, err := t.exporter.Export(root, "")
	t.metrics.ExportCompleted(err)
	if err != nil {
		return "", fmt.Errorf("export trace: %w", err)
	}
	t.logger.Info("trace exported",
		zap.String("path", path),
		zap.String("session_id", root.ID),
	)
	return path, nil
}

// exportQuietly is the auto-export path used by instrumentation; failures are
// logged and never reach the traced caller.
func (t *Tracer) exportQuietly() {
	if _, err := t.Export(); err != nil {
		t.logger.Error("trace export failed", zap.Error(err))
	}
}

// LLMCall runs fn inside an ad-hoc LLM_CALL span. The span is closed on
// every exit path; errors and panics are recorded and passed through.
func (t *Tracer) LLMCall(ctx context.Context, name string, fn func(ctx context.Context, span *Span) error) (err error) {
	span, spanCtx, tok := t.StartSpan(ctx, KindLLMCall, name)
	defer func() {
		if r := recover(); r != nil {
			span.MarkError(panicError(r))
			t.EndSpan(span, tok, nil)
			panic(r)
		}
		t.EndSpan(span, tok, err)
	}()
	return fn(spanCtx, span)
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("panic: %w", err)
	}
	return fmt.Errorf("panic: %v", r)
}
