package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/AgentOS/agentrace/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AgentOS/agentrace/internal/shared/id"
)

const systemPrompt = "Reply TOOL <name> <input> to use a tool or ANSWER <text> to finish."

// Agent turns user intents into goals, pursues goals concurrently, and
// consults the LLM and tools along the way. Every level is traced when the
// context carries an active tracer.
type Agent struct {
	client Client
	tools  Toolbox
	logger *zap.Logger
}

// New creates an agent
func New(client Client, tools Toolbox, logger *zap.Logger) *Agent {
	if tools == nil {
		tools = DefaultTools()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{client: client, tools: tools, logger: logger}
}

// Outcome is the result of one intent
type Outcome struct {
	Intent  string
	Answers []string
}

// RunSession handles each intent in order inside one session span. The
// trace is exported when the session ends.
func (a *Agent) RunSession(ctx context.Context, sessionID id.SessionID, intents []string) ([]Outcome, error) {
	session := tracing.TraceSession(func(ctx context.Context) ([]Outcome, error) {
		if span := tracing.SpanFromContext(ctx); span != nil {
			span.SetAttribute(tracing.AttrSessionID, sessionID.String())
			span.SetAttribute("intents", len(intents))
		}

		outcomes := make([]Outcome, 0, len(intents))
		for _, intent := range intents {
			answers, err := a.HandleIntent(ctx, intent)
			if err != nil {
				return outcomes, err
			}
			outcomes = append(outcomes, Outcome{Intent: intent, Answers: answers})
		}
		return outcomes, nil
	}, tracing.WithName(sessionID.String()))

	return session(ctx)
}

// HandleIntent splits an intent into goals joined by " and " and pursues
// them concurrently. Answers keep the order of the goals.
func (a *Agent) HandleIntent(ctx context.Context, intent string) ([]string, error) {
	handle := tracing.TraceIntent(func(ctx context.Context) ([]string, error) {
		goals := SplitGoals(intent)
		if span := tracing.SpanFromContext(ctx); span != nil {
			span.SetAttribute("goals", goals)
		}

		answers := make([]string, len(goals))
		g, gctx := errgroup.WithContext(ctx)
		for i, goal := range goals {
			g.Go(func() error {
				answer, err := a.Pursue(gctx, goal)
				if err != nil {
					return err
				}
				answers[i] = answer
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return answers, nil
	}, tracing.WithName(intent))

	return handle(ctx)
}

// Pursue asks the LLM for a plan, runs the chosen tool if any, and returns
// the answer.
func (a *Agent) Pursue(ctx context.Context, goal string) (string, error) {
	pursue := tracing.TracePursuit(func(ctx context.Context) (string, error) {
		reply, err := a.ask(ctx, goal)
		if err != nil {
			return "", err
		}

		verb, rest, _ := strings.Cut(reply, " ")
		switch verb {
		case "ANSWER":
			return rest, nil
		case "TOOL":
			name, input, _ := strings.Cut(rest, " ")
			out, err := a.tools.Call(ctx, name, input)
			if err != nil {
				a.logger.Warn("tool call failed",
					zap.String("tool", name),
					zap.String("goal", goal),
					zap.Error(err),
				)
				return "", err
			}
			return out, nil
		default:
			return "", fmt.Errorf("unexpected reply %q", reply)
		}
	}, tracing.WithName(goal))

	return pursue(ctx)
}

func (a *Agent) ask(ctx context.Context, goal string) (string, error) {
	complete := tracing.TraceLLM(func(ctx context.Context) (string, error) {
		return a.client.Complete(ctx, []tracing.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: goal},
		})
	}, tracing.WithName("plan"))

	return complete(ctx)
}

// SplitGoals splits an intent on " and ", dropping empty parts
func SplitGoals(intent string) []string {
	var goals []string
	for _, part := range strings.Split(intent, " and ") {
		if part = strings.TrimSpace(part); part != "" {
			goals = append(goals, part)
		}
	}
	return goals
}
