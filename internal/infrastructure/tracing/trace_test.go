package tracing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingExporter captures the roots it was asked to export
type recordingExporter struct {
	mu    sync.Mutex
	roots []Record
	err   error
}

func (e *recordingExporter) Export(root *Span, filename string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return "", e.err
	}
	e.roots = append(e.roots, root.Record())
	return "mem://" + root.ID, nil
}

func (e *recordingExporter) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.roots)
}

func (e *recordingExporter) last() Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.roots[len(e.roots)-1]
}

func TestStartSpanNesting(t *testing.T) {
	tracer := New()
	ctx := context.Background()

	session, ctx, sTok := tracer.StartSpan(ctx, KindSession, "s1")
	assert.Same(t, session, tracer.Session())
	assert.Same(t, session, SpanFromContext(ctx))

	intent, ctx, iTok := tracer.StartSpan(ctx, KindIntent, "i1", Attr("user", "ada"))
	assert.Same(t, intent, SpanFromContext(ctx))
	assert.Same(t, session, intent.Parent())
	v, _ := intent.Attribute("user")
	assert.Equal(t, "ada", v)

	ctx = tracer.EndSpan(intent, iTok, nil)
	assert.Same(t, session, SpanFromContext(ctx))
	assert.True(t, intent.Finished())

	ctx = tracer.EndSpan(session, sTok, nil)
	assert.Nil(t, SpanFromContext(ctx))
	assert.True(t, session.Finished())
}

func TestChildrenFollowCallOrder(t *testing.T) {
	tracer := New()
	root, ctx, rootTok := tracer.StartSpan(context.Background(), KindSession, "root")

	names := []string{"a", "b", "c", "d"}
	for _, name := range names {
		span, sctx, tok := tracer.StartSpan(ctx, KindIntent, name)
		grand, _, gTok := tracer.StartSpan(sctx, KindPursuit, name+".1")
		tracer.EndSpan(grand, gTok, nil)
		tracer.EndSpan(span, tok, nil)
	}
	tracer.EndSpan(root, rootTok, nil)

	rec := root.Record()
	require.Len(t, rec.Children, len(names))
	for i, name := range names {
		child := rec.Children[i]
		assert.Equal(t, name, child.Name)
		require.Len(t, child.Children, 1)
		assert.Equal(t, name+".1", child.Children[0].Name)
		require.NotNil(t, child.DurationMS)
		assert.GreaterOrEqual(t, *child.DurationMS, 0.0)

		start, err := time.Parse(timeLayout, child.StartTime)
		require.NoError(t, err)
		end, err := time.Parse(timeLayout, child.EndTime)
		require.NoError(t, err)
		assert.InDelta(t, float64(end.Sub(start))/float64(time.Millisecond), *child.DurationMS, 0.01)
	}
}

func TestEndSpanRecordsError(t *testing.T) {
	tracer := New()
	span, _, tok := tracer.StartSpan(context.Background(), KindToolCall, "grep")
	tracer.EndSpan(span, tok, errors.New("no match"))

	assert.Equal(t, StatusError, span.Status())
	assert.Equal(t, "no match", span.Err())
}

func TestExportWithoutExporter(t *testing.T) {
	tracer := New()
	span, _, tok := tracer.StartSpan(context.Background(), KindSession, "s")
	tracer.EndSpan(span, tok, nil)

	path, err := tracer.Export()
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestExportWithoutSession(t *testing.T) {
	exporter := &recordingExporter{}
	tracer := New(WithExporter(exporter))

	span, _, tok := tracer.StartSpan(context.Background(), KindIntent, "orphan")
	tracer.EndSpan(span, tok, nil)

	path, err := tracer.Export()
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Zero(t, exporter.count())
}

func TestExportDelegates(t *testing.T) {
	exporter := &recordingExporter{}
	tracer := New(WithExporter(exporter))

	span, _, tok := tracer.StartSpan(context.Background(), KindSession, "s")
	tracer.EndSpan(span, tok, nil)

	path, err := tracer.Export()
	require.NoError(t, err)
	assert.Equal(t, "mem://"+span.ID, path)
	assert.Equal(t, "s", exporter.last().Name)
}

func TestExportFailureIsReturned(t *testing.T) {
	exporter := &recordingExporter{err: errors.New("disk full")}
	tracer := New(WithExporter(exporter))

	span, _, tok := tracer.StartSpan(context.Background(), KindSession, "s")
	tracer.EndSpan(span, tok, nil)

	_, err := tracer.Export()
	require.Error(t, err)
	assert.ErrorIs(t, err, exporter.err)
}

func TestLLMCall(t *testing.T) {
	tracer := New()
	parent, ctx, _ := tracer.StartSpan(context.Background(), KindPursuit, "p")

	var inner *Span
	err := tracer.LLMCall(ctx, "summarize", func(ctx context.Context, span *Span) error {
		inner = SpanFromContext(ctx)
		span.SetAttribute("model", "m")
		return nil
	})
	require.NoError(t, err)

	children := parent.Children()
	require.Len(t, children, 1)
	assert.Same(t, children[0], inner)
	assert.Equal(t, KindLLMCall, inner.Kind)
	assert.Equal(t, "summarize", inner.Name)
	assert.True(t, inner.Finished())
	assert.Equal(t, StatusOK, inner.Status())
}

func TestLLMCallError(t *testing.T) {
	tracer := New()
	_, ctx, _ := tracer.StartSpan(context.Background(), KindPursuit, "p")

	want := errors.New("context window exceeded")
	var span *Span
	err := tracer.LLMCall(ctx, "plan", func(ctx context.Context, s *Span) error {
		span = s
		return want
	})

	assert.Same(t, want, err)
	assert.True(t, span.Finished())
	assert.Equal(t, StatusError, span.Status())
	assert.Equal(t, want.Error(), span.Err())
}

func TestLLMCallPanic(t *testing.T) {
	tracer := New()
	_, ctx, _ := tracer.StartSpan(context.Background(), KindPursuit, "p")

	var span *Span
	assert.PanicsWithValue(t, "kaboom", func() {
		_ = tracer.LLMCall(ctx, "plan", func(ctx context.Context, s *Span) error {
			span = s
			panic("kaboom")
		})
	})

	require.NotNil(t, span)
	assert.True(t, span.Finished())
	assert.Equal(t, StatusError, span.Status())
	assert.Equal(t, "panic: kaboom", span.Err())
}

// countingRecorder tallies Recorder events
type countingRecorder struct {
	mu       sync.Mutex
	started  map[string]int
	failed   map[string]int
	exports  []error
	pendings []int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{started: map[string]int{}, failed: map[string]int{}}
}

func (r *countingRecorder) SpanStarted(kind string) {
	r.mu.Lock()
	r.started[kind]++
	r.mu.Unlock()
}

func (r *countingRecorder) SpanFailed(kind string) {
	r.mu.Lock()
	r.failed[kind]++
	r.mu.Unlock()
}

func (r *countingRecorder) ExportCompleted(err error) {
	r.mu.Lock()
	r.exports = append(r.exports, err)
	r.mu.Unlock()
}

func (r *countingRecorder) SetPendingCorrelations(n int) {
	r.mu.Lock()
	r.pendings = append(r.pendings, n)
	r.mu.Unlock()
}

func TestTracerReportsMetrics(t *testing.T) {
	rec := newCountingRecorder()
	tracer := New(WithMetrics(rec), WithExporter(&recordingExporter{}))

	session, ctx, sTok := tracer.StartSpan(context.Background(), KindSession, "s")
	tool, _, tTok := tracer.StartSpan(ctx, KindToolCall, "t")
	tracer.EndSpan(tool, tTok, errors.New("bad"))
	tracer.EndSpan(session, sTok, nil)
	_, err := tracer.Export()
	require.NoError(t, err)

	assert.Equal(t, 1, rec.started["session"])
	assert.Equal(t, 1, rec.started["tool_call"])
	assert.Equal(t, 1, rec.failed["tool_call"])
	assert.Zero(t, rec.failed["session"])
	assert.Equal(t, []error{nil}, rec.exports)
}
