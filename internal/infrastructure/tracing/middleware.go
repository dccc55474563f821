package tracing

import (
	"context"

	"github.com/bytedance/sonic"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/GriffinCanCode/AgentOS/agentrace/internal/shared/id"
)

var protoJSON = protojson.MarshalOptions{UseProtoNames: true}

// GRPCClientInterceptor traces unary calls to a gRPC AI service as LLM calls.
// Each call gets its own LLM_CALL span and run id; the request and reply are
// reported to the active tracer's correlator the same way an in-process LLM
// client would. defaultModel is used when the request names no model.
func GRPCClientInterceptor(defaultModel string) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		tracer := FromContext(ctx)
		if tracer == nil {
			return invoker(ctx, method, req, reply, cc, opts...)
		}

		return tracer.LLMCall(ctx, method, func(ctx context.Context, span *Span) error {
			span.SetAttribute(AttrRPCMethod, method)

			runID := id.NewRunID().String()
			callbacks := tracer.Callbacks()
			callbacks.OnStart(ctx, startEventFromProto(req, defaultModel), runID)

			if err := invoker(ctx, method, req, reply, cc, opts...); err != nil {
				callbacks.OnError(err, runID)
				return err
			}
			callbacks.OnEnd(endEventFromProto(reply), runID)
			return nil
		})
	}
}

// protoFields renders a proto message as a generic JSON object
func protoFields(msg interface{}) map[string]any {
	m, ok := msg.(proto.Message)
	if !ok {
		return nil
	}
	data, err := protoJSON.Marshal(m)
	if err != nil {
		return nil
	}
	var fields map[string]any
	if err := sonic.Unmarshal(data, &fields); err != nil {
		return nil
	}
	return fields
}

func startEventFromProto(req interface{}, defaultModel string) StartEvent {
	fields := protoFields(req)
	ev := StartEvent{Model: defaultModel}
	if model, ok := fields["model"].(string); ok && model != "" {
		ev.Model = model
	}

	var batch []Message
	if raw, ok := fields["messages"].([]any); ok {
		for _, item := range raw {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			role, _ := m["role"].(string)
			content, _ := m["content"].(string)
			batch = append(batch, Message{Role: role, Content: content})
		}
	} else if prompt, ok := fields["prompt"].(string); ok {
		batch = append(batch, Message{Role: "user", Content: prompt})
	} else if fields != nil {
		data, _ := sonic.ConfigStd.MarshalToString(fields)
		batch = append(batch, Message{Role: "user", Content: data})
	}
	if len(batch) > 0 {
		ev.Messages = [][]Message{batch}
	}
	return ev
}

func endEventFromProto(reply interface{}) EndEvent {
	fields := protoFields(reply)
	if fields == nil {
		return EndEvent{}
	}

	gen := Generation{}
	if text, ok := fields["text"].(string); ok {
		gen.Text = text
	}
	if content, ok := fields["content"].(string); ok {
		gen.Message = &Message{Role: "assistant", Content: content}
	}
	ev := EndEvent{Generations: [][]Generation{{gen}}}

	if raw, ok := fields["usage"].(map[string]any); ok {
		ev.Usage = &TokenUsage{
			Prompt:     intField(raw, "prompt_tokens"),
			Completion: intField(raw, "completion_tokens"),
			Total:      intField(raw, "total_tokens"),
		}
	}
	return ev
}

func intField(m map[string]any, key string) *int {
	switch v := m[key].(type) {
	case float64:
		n := int(v)
		return &n
	case int64:
		n := int(v)
		return &n
	case string:
		// protojson renders 64-bit integers as strings
		var n int
		if err := sonic.UnmarshalString(v, &n); err == nil {
			return &n
		}
	}
	return nil
}
