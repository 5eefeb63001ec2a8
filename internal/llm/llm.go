// Package llm talks to chat-completion services that support tool calling.
package llm

import "context"

// Role is the author of a message in a completion request.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a request from the model to run one of the offered tools.
// Arguments holds the raw JSON object produced by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is one entry of the conversation sent to the model.
type Message struct {
	Role    Role
	Content string
	// ToolCalls is set on assistant messages that requested tools.
	ToolCalls []ToolCall
	// ToolCallID and Name identify the call a tool message answers.
	ToolCallID string
	Name       string
}

// Param describes one argument of a tool.
type Param struct {
	Name        string
	Type        string // "string", "integer" or "boolean"
	Description string
	Enum        []string
	Required    bool
}

// ToolSpec is the schema of a tool offered to the model.
type ToolSpec struct {
	Name        string
	Description string
	Params      []Param
}

// Request is a single completion call. When Tools is empty the model is not
// offered any tools.
type Request struct {
	Messages []Message
	Tools    []ToolSpec
}

// Response is the model's answer: text, tool calls, or both.
type Response struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
}

// Completer is implemented by every completion backend.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

// jsonSchema renders the params as a JSON schema object.
func jsonSchema(params []Param) map[string]any {
	props := make(map[string]any, len(params))
	required := []string{}
	for _, p := range params {
		prop := map[string]any{"type": p.Type}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}
