package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

func mustStruct(t *testing.T, fields map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(fields)
	require.NoError(t, err)
	return s
}

func replyWith(t *testing.T, fields map[string]any) grpc.UnaryInvoker {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		out := reply.(*structpb.Struct)
		out.Fields = mustStruct(t, fields).Fields
		return nil
	}
}

func TestInterceptorWithoutTracer(t *testing.T) {
	called := false
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		called = true
		return nil
	}

	err := GRPCClientInterceptor("m")(context.Background(), "/ai.v1.Model/Complete",
		&structpb.Struct{}, &structpb.Struct{}, nil, invoker)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestInterceptorRecordsLLMCall(t *testing.T) {
	tracer := New()
	ctx, _ := tracer.Activate(context.Background())
	pursuit, ctx, _ := tracer.StartSpan(ctx, KindPursuit, "p")

	req := mustStruct(t, map[string]any{
		"model": "remote-7b",
		"messages": []any{
			map[string]any{"role": "user", "content": "2+2?"},
		},
	})
	invoker := replyWith(t, map[string]any{
		"content": "4",
		"usage":   map[string]any{"prompt_tokens": 4, "completion_tokens": 1, "total_tokens": 5},
	})

	err := GRPCClientInterceptor("fallback")(ctx, "/ai.v1.Model/Complete", req, &structpb.Struct{}, nil, invoker)
	require.NoError(t, err)

	children := pursuit.Children()
	require.Len(t, children, 1)
	llm := children[0]
	assert.Equal(t, KindLLMCall, llm.Kind)
	assert.Equal(t, "/ai.v1.Model/Complete", llm.Name)
	assert.True(t, llm.Finished())
	assert.Equal(t, StatusOK, llm.Status())

	method, _ := llm.Attribute(AttrRPCMethod)
	assert.Equal(t, "/ai.v1.Model/Complete", method)
	model, _ := llm.Attribute(AttrModel)
	assert.Equal(t, "remote-7b", model)
	request, _ := llm.Attribute(AttrRequest)
	assert.Equal(t, []Attributes{{Attr("role", "user"), Attr("content", "2+2?")}}, request)
	response, _ := llm.Attribute(AttrResponse)
	assert.Equal(t, "4", response)
	usage, _ := llm.Attribute(AttrTokenUsage)
	assert.Equal(t, Attributes{
		Attr("prompt_tokens", 4),
		Attr("completion_tokens", 1),
		Attr("total_tokens", 5),
	}, usage)
	assert.Zero(t, tracer.Callbacks().Pending())
}

func TestInterceptorPromptAndDefaultModel(t *testing.T) {
	tracer := New()
	ctx, _ := tracer.Activate(context.Background())
	root, ctx, _ := tracer.StartSpan(ctx, KindPursuit, "p")

	req := mustStruct(t, map[string]any{"prompt": "hello"})
	err := GRPCClientInterceptor("fallback")(ctx, "/ai.v1.Model/Generate", req, &structpb.Struct{}, nil,
		replyWith(t, map[string]any{"text": "hi there"}))
	require.NoError(t, err)

	llm := root.Children()[0]
	model, _ := llm.Attribute(AttrModel)
	assert.Equal(t, "fallback", model)
	request, _ := llm.Attribute(AttrRequest)
	assert.Equal(t, []Attributes{{Attr("role", "user"), Attr("content", "hello")}}, request)
	response, _ := llm.Attribute(AttrResponse)
	assert.Equal(t, "hi there", response)
	_, ok := llm.Attribute(AttrTokenUsage)
	assert.False(t, ok)
}

func TestInterceptorError(t *testing.T) {
	tracer := New()
	ctx, _ := tracer.Activate(context.Background())
	root, ctx, _ := tracer.StartSpan(ctx, KindPursuit, "p")

	want := errors.New("unavailable")
	invoker := func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, opts ...grpc.CallOption) error {
		return want
	}

	err := GRPCClientInterceptor("m")(ctx, "/ai.v1.Model/Complete", mustStruct(t, nil), &structpb.Struct{}, nil, invoker)
	assert.Same(t, want, err)

	llm := root.Children()[0]
	assert.True(t, llm.Finished())
	assert.Equal(t, StatusError, llm.Status())
	assert.Equal(t, "unavailable", llm.Err())
	_, ok := llm.Attribute(AttrResponse)
	assert.False(t, ok)
	assert.Zero(t, tracer.Callbacks().Pending())
}

func TestIntField(t *testing.T) {
	m := map[string]any{"a": float64(3), "b": int64(4), "c": "5", "d": "x", "e": true}
	assert.Equal(t, 3, *intField(m, "a"))
	assert.Equal(t, 4, *intField(m, "b"))
	assert.Equal(t, 5, *intField(m, "c"))
	assert.Nil(t, intField(m, "d"))
	assert.Nil(t, intField(m, "e"))
	assert.Nil(t, intField(m, "missing"))
}
