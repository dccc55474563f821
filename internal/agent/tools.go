package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/AgentOS/agentrace/internal/infrastructure/tracing"
)

// ErrUnknownTool is returned when a plan names a tool that is not registered
var ErrUnknownTool = errors.New("unknown tool")

// Toolbox maps tool names to implementations
type Toolbox map[string]tracing.ToolFunc[string]

// DefaultTools returns the demo tools
func DefaultTools() Toolbox {
	return Toolbox{
		"echo":  echoTool,
		"upper": upperTool,
		"count": countTool,
		"fail":  failTool,
	}
}

// Call runs the named tool. The tool's name travels in args["tool_name"] so
// the tool-level span is named after it.
func (t Toolbox) Call(ctx context.Context, name, input string) (string, error) {
	fn, ok := t[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	call := tracing.TraceTool(fn)
	return call(ctx, map[string]any{
		tracing.DefaultToolNameArg: name,
		"input":                    input,
	})
}

func input(args map[string]any) string {
	s, _ := args["input"].(string)
	return s
}

func echoTool(_ context.Context, args map[string]any) (string, error) {
	return input(args), nil
}

func upperTool(_ context.Context, args map[string]any) (string, error) {
	return strings.ToUpper(input(args)), nil
}

func countTool(_ context.Context, args map[string]any) (string, error) {
	return strconv.Itoa(len(strings.Fields(input(args)))), nil
}

func failTool(_ context.Context, args map[string]any) (string, error) {
	return "", fmt.Errorf("tool failed on %q", input(args))
}
