package tracing

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Message is one role/content pair sent to or returned by a model
type Message struct {
	Role    string
	Content string
}

// StartEvent is what an LLM client reports when a request begins
type StartEvent struct {
	// Model is the client's model identifier hint
	Model string
	// Serialized is the client's own description of itself; "kwargs.model",
	// "kwargs.model_name" and "name" are consulted when Model is empty.
	Serialized map[string]any
	// Messages holds one or more prompt batches
	Messages [][]Message
}

// Generation is a single candidate produced by the model
type Generation struct {
	Text    string
	Message *Message
}

// TokenUsage counts tokens for one request. Nil fields were not reported.
type TokenUsage struct {
	Prompt     *int
	Completion *int
	Total      *int
}

// EndEvent is what an LLM client reports when a request completes
type EndEvent struct {
	Generations [][]Generation
	// Usage takes precedence over LLMOutput["token_usage"]
	Usage     *TokenUsage
	LLMOutput map[string]any
}

// Correlator attaches LLM client notifications to the LLM_CALL span that
// was current when the request started. Notifications are matched by the
// client's run id, not by context, since end and error may be reported
// from another goroutine.
type Correlator struct {
	logger  *zap.Logger
	metrics Recorder

	mu    sync.Mutex
	spans map[string]*Span
}

func newCorrelator(logger *zap.Logger, metrics Recorder) *Correlator {
	return &Correlator{
		logger:  logger,
		metrics: metrics,
		spans:   make(map[string]*Span),
	}
}

// OnStart records the request on the current LLM_CALL span. Notifications
// arriving outside an LLM_CALL span are ignored.
func (c *Correlator) OnStart(ctx context.Context, ev StartEvent, runID string) {
	span := SpanFromContext(ctx)
	if span == nil || span.Kind != KindLLMCall {
		return
	}

	c.mu.Lock()
	if _, dup := c.spans[runID]; dup {
		c.logger.Warn("llm run id reused while in flight", zap.String("run_id", runID))
	}
	c.spans[runID] = span
	pending := len(c.spans)
	c.mu.Unlock()
	c.metrics.SetPendingCorrelations(pending)

	span.SetAttribute(AttrModel, modelName(ev))
	span.SetAttribute(AttrRequest, flattenMessages(ev.Messages))
}

// OnEnd records the response and token usage for runID. Unknown ids are ignored.
func (c *Correlator) OnEnd(ev EndEvent, runID string) {
	span := c.take(runID)
	if span == nil {
		return
	}

	if text, ok := responseText(ev.Generations); ok {
		span.SetAttribute(AttrResponse, text)
	}
	if usage := tokenUsage(ev); len(usage) > 0 {
		span.SetAttribute(AttrTokenUsage, usage)
	}
}

// OnError marks the span for runID as failed. Unknown ids are ignored. The
// span itself is still closed by whoever opened it.
func (c *Correlator) OnError(err error, runID string) {
	span := c.take(runID)
	if span == nil {
		return
	}
	span.MarkError(err)
}

// Pending returns the number of requests awaiting end or error
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.spans)
}

func (c *Correlator) take(runID string) *Span {
	c.mu.Lock()
	span, ok := c.spans[runID]
	if ok {
		delete(c.spans, runID)
	}
	pending := len(c.spans)
	c.mu.Unlock()

	if ok {
		c.metrics.SetPendingCorrelations(pending)
	}
	return span
}

func modelName(ev StartEvent) string {
	if ev.Model != "" {
		return ev.Model
	}
	if kwargs, ok := ev.Serialized["kwargs"].(map[string]any); ok {
		for _, key := range []string{"model", "model_name"} {
			if name, ok := kwargs[key].(string); ok && name != "" {
				return name
			}
		}
	}
	if name, ok := ev.Serialized["name"].(string); ok && name != "" {
		return name
	}
	return "unknown"
}

func flattenMessages(batches [][]Message) []Attributes {
	out := make([]Attributes, 0)
	for _, batch := range batches {
		for _, msg := range batch {
			out = append(out, Attributes{
				Attr("role", msg.Role),
				Attr("content", msg.Content),
			})
		}
	}
	return out
}

// responseText prefers the structured message body over raw text
func responseText(generations [][]Generation) (string, bool) {
	if len(generations) == 0 || len(generations[0]) == 0 {
		return "", false
	}
	gen := generations[0][0]
	if gen.Message != nil && gen.Message.Content != "" {
		return gen.Message.Content, true
	}
	return gen.Text, true
}

func tokenUsage(ev EndEvent) Attributes {
	var usage Attributes
	if u := ev.Usage; u != nil {
		if u.Prompt != nil {
			usage = append(usage, Attr("prompt_tokens", *u.Prompt))
		}
		if u.Completion != nil {
			usage = append(usage, Attr("completion_tokens", *u.Completion))
		}
		if u.Total != nil {
			usage = append(usage, Attr("total_tokens", *u.Total))
		}
		return usage
	}

	raw, ok := ev.LLMOutput["token_usage"].(map[string]any)
	if !ok {
		return nil
	}
	for _, key := range []string{"prompt_tokens", "completion_tokens", "total_tokens"} {
		if v, ok := raw[key]; ok {
			usage = append(usage, Attr(key, v))
		}
	}
	return usage
}
