package agent

import (
	"context"
	"strings"
	"sync"

	"github.com/GriffinCanCode/AgentOS/agentrace/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/agentrace/internal/shared/id"
)

// Client completes a conversation
type Client interface {
	Complete(ctx context.Context, messages []tracing.Message) (string, error)
}

// Responder produces the scripted reply for a conversation
type Responder func(messages []tracing.Message) (string, error)

// ScriptedClient is an in-process LLM client that answers from a Responder.
// Like a real client library it reports each request to the active tracer's
// callbacks under its own run id.
type ScriptedClient struct {
	model   string
	respond Responder

	mu    sync.Mutex
	calls int
}

// NewScriptedClient creates a client; a nil responder uses PlanResponder
func NewScriptedClient(model string, respond Responder) *ScriptedClient {
	if respond == nil {
		respond = PlanResponder(DefaultTools())
	}
	return &ScriptedClient{model: model, respond: respond}
}

// Complete answers the conversation
func (c *ScriptedClient) Complete(ctx context.Context, messages []tracing.Message) (string, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	var callbacks *tracing.Correlator
	if tracer := tracing.FromContext(ctx); tracer != nil {
		callbacks = tracer.Callbacks()
	}
	runID := id.NewRunID().String()

	if callbacks != nil {
		callbacks.OnStart(ctx, tracing.StartEvent{
			Serialized: map[string]any{
				"name":   "ScriptedClient",
				"kwargs": map[string]any{"model": c.model},
			},
			Messages: [][]tracing.Message{messages},
		}, runID)
	}

	if err := ctx.Err(); err != nil {
		if callbacks != nil {
			callbacks.OnError(err, runID)
		}
		return "", err
	}

	reply, err := c.respond(messages)
	if err != nil {
		if callbacks != nil {
			callbacks.OnError(err, runID)
		}
		return "", err
	}

	if callbacks != nil {
		prompt, completion := countTokens(messages), len(strings.Fields(reply))
		total := prompt + completion
		callbacks.OnEnd(tracing.EndEvent{
			Generations: [][]tracing.Generation{{{
				Text:    reply,
				Message: &tracing.Message{Role: "assistant", Content: reply},
			}}},
			Usage: &tracing.TokenUsage{Prompt: &prompt, Completion: &completion, Total: &total},
		}, runID)
	}
	return reply, nil
}

// Calls returns how many completions were requested
func (c *ScriptedClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func countTokens(messages []tracing.Message) int {
	n := 0
	for _, m := range messages {
		n += len(strings.Fields(m.Content))
	}
	return n
}

// PlanResponder replies "TOOL <name> <input>" when the last message starts
// with a known tool name, and "ANSWER <text>" otherwise.
func PlanResponder(tools Toolbox) Responder {
	return func(messages []tracing.Message) (string, error) {
		if len(messages) == 0 {
			return "ANSWER nothing to do", nil
		}
		goal := strings.TrimSpace(messages[len(messages)-1].Content)
		name, rest, _ := strings.Cut(goal, " ")
		if _, ok := tools[name]; ok {
			return "TOOL " + name + " " + rest, nil
		}
		return "ANSWER " + goal, nil
	}
}
