package tracing

import (
	"context"
	"reflect"
	"runtime"
	"strings"
)

// Func is an operation that can be instrumented
type Func[T any] func(ctx context.Context) (T, error)

// ToolFunc is a tool operation whose span name is only known at call time
type ToolFunc[T any] func(ctx context.Context, args map[string]any) (T, error)

// DefaultToolNameArg is the argument TraceTool reads the span name from
const DefaultToolNameArg = "tool_name"

type wrapConfig struct {
	name       string
	autoExport bool
	nameArg    string
}

// WrapOption configures an instrumentation wrapper
type WrapOption func(*wrapConfig)

// WithName fixes the span name instead of using the function identifier
func WithName(name string) WrapOption {
	return func(c *wrapConfig) { c.name = name }
}

// WithAutoExport exports the session tree every time the span closes
func WithAutoExport() WrapOption {
	return func(c *wrapConfig) { c.autoExport = true }
}

// WithNameArg sets which call-time argument names a tool span
func WithNameArg(key string) WrapOption {
	return func(c *wrapConfig) { c.nameArg = key }
}

func newWrapConfig(opts []WrapOption) wrapConfig {
	cfg := wrapConfig{nameArg: DefaultToolNameArg}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Instrument wraps fn so each call runs inside a span of the given kind.
// Without an active tracer in ctx the wrapper calls fn directly.
func Instrument[T any](kind Kind, fn Func[T], opts ...WrapOption) Func[T] {
	cfg := newWrapConfig(opts)
	return func(ctx context.Context) (T, error) {
		tracer := FromContext(ctx)
		if tracer == nil {
			return fn(ctx)
		}
		name := cfg.name
		if name == "" {
			name = funcName(fn)
		}
		return runSpan(ctx, tracer, kind, name, cfg.autoExport, fn)
	}
}

// TraceSession wraps the outermost operation of a session; the trace is
// exported when it returns.
func TraceSession[T any](fn Func[T], opts ...WrapOption) Func[T] {
	return Instrument(KindSession, fn, append([]WrapOption{WithAutoExport()}, opts...)...)
}

// TraceIntent wraps the handling of one user intent; the trace is exported
// when it returns.
func TraceIntent[T any](fn Func[T], opts ...WrapOption) Func[T] {
	return Instrument(KindIntent, fn, append([]WrapOption{WithAutoExport()}, opts...)...)
}

// TracePursuit wraps one goal pursuit
func TracePursuit[T any](fn Func[T], opts ...WrapOption) Func[T] {
	return Instrument(KindPursuit, fn, opts...)
}

// TraceLLM wraps one model invocation
func TraceLLM[T any](fn Func[T], opts ...WrapOption) Func[T] {
	return Instrument(KindLLMCall, fn, opts...)
}

// TraceTool wraps a tool call. The span is named after the string found
// under the name argument (default "tool_name"), falling back to WithName
// and then to the function identifier.
func TraceTool[T any](fn ToolFunc[T], opts ...WrapOption) ToolFunc[T] {
	cfg := newWrapConfig(opts)
	return func(ctx context.Context, args map[string]any) (T, error) {
		tracer := FromContext(ctx)
		if tracer == nil {
			return fn(ctx, args)
		}
		name, _ := args[cfg.nameArg].(string)
		if name == "" {
			name = cfg.name
		}
		if name == "" {
			name = funcName(fn)
		}
		return runSpan(ctx, tracer, KindToolCall, name, cfg.autoExport, func(ctx context.Context) (T, error) {
			return fn(ctx, args)
		})
	}
}

// runSpan is the shared open/run/close discipline. The span is closed on
// return, error, and panic; errors are recorded and returned unchanged.
func runSpan[T any](ctx context.Context, tracer *Tracer, kind Kind, name string, autoExport bool, fn Func[T]) (result T, err error) {
	span, spanCtx, tok := tracer.StartSpan(ctx, kind, name)
	defer func() {
		if r := recover(); r != nil {
			span.MarkError(panicError(r))
			tracer.EndSpan(span, tok, nil)
			if autoExport {
				tracer.exportQuietly()
			}
			panic(r)
		}
		tracer.EndSpan(span, tok, err)
		if autoExport {
			tracer.exportQuietly()
		}
	}()
	return fn(spanCtx)
}

// funcName returns a short identifier such as "(*Agent).pursue" for fn
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return "anonymous"
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return "anonymous"
	}
	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "-fm")
}
