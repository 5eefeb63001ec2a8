package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"todoapp/internal/llm"
)

// ErrBadArguments is returned when a tool call carries arguments that are
// not a JSON object matching the tool's parameters.
var ErrBadArguments = errors.New("malformed tool arguments")

// Handler executes a tool and returns the text handed back to the model.
type Handler func(ctx context.Context, args json.RawMessage) (string, error)

// Tool couples a schema offered to the model with its implementation.
type Tool struct {
	Spec    llm.ToolSpec
	Handler Handler
}

// Registry maps tool names to tools.
type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool.
func (r *Registry) Register(tool Tool) {
	if _, exists := r.tools[tool.Spec.Name]; !exists {
		r.order = append(r.order, tool.Spec.Name)
	}
	r.tools[tool.Spec.Name] = tool
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Specs lists the tool schemas in registration order.
func (r *Registry) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].Spec)
	}
	return specs
}

// Dispatch runs the tool named by the call. Unknown tools produce an error
// result for the model rather than a Go error.
func (r *Registry) Dispatch(ctx context.Context, call llm.ToolCall) (string, error) {
	tool, ok := r.tools[call.Name]
	if !ok {
		return errorResult(fmt.Sprintf("Unknown tool: %s", call.Name)), nil
	}

	args := bytes.TrimSpace([]byte(call.Arguments))
	if len(args) == 0 {
		args = []byte("{}")
	}
	if !json.Valid(args) || args[0] != '{' {
		return "", fmt.Errorf("%s: %w", call.Name, ErrBadArguments)
	}
	return tool.Handler(ctx, json.RawMessage(args))
}

// decodeArgs unmarshals tool arguments, classifying failures as ErrBadArguments.
func decodeArgs(raw json.RawMessage, dst any) error {
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrBadArguments, err)
	}
	return nil
}

func successResult(fields map[string]any) string {
	fields["status"] = "success"
	return encodeResult(fields)
}

func errorResult(message string) string {
	return encodeResult(map[string]any{"status": "error", "message": message})
}

func encodeResult(v map[string]any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `{"status":"error","message":"unable to encode result"}`
	}
	return string(b)
}
