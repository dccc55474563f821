package tracing

import "fmt"

// Kind is the semantic nesting level of a span. Kinds are ordered from the
// outermost (session) to the innermost (LLM call); nesting follows this order
// by convention but is not enforced.
type Kind int

const (
	KindSession Kind = iota
	KindIntent
	KindPursuit
	KindToolCall
	KindLLMCall
)

var kindNames = [...]string{
	KindSession:  "session",
	KindIntent:   "intent",
	KindPursuit:  "pursuit",
	KindToolCall: "tool_call",
	KindLLMCall:  "llm_call",
}

// String returns the serialized name of the kind
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind converts a serialized kind name back into a Kind
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown span kind %q", s)
}

// Status is the outcome of a span
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Attribute keys written by the tracer itself
const (
	AttrModel      = "model"
	AttrRequest    = "request"
	AttrResponse   = "response"
	AttrTokenUsage = "token_usage"
	AttrSessionID  = "session.id"
	AttrRPCMethod  = "rpc.method"
)
