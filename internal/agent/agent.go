package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"todoapp/internal/llm"
)

// ErrCompletion wraps failures of the language model backend.
var ErrCompletion = errors.New("completion failed")

const (
	SystemPrompt = "You are a helpful todo assistant. Help users manage their tasks using the available tools. " +
		"When the user refers to a task by name, list the tasks first to find its id."

	// FallbackReply is returned when the model asks for a tool with arguments we cannot parse.
	FallbackReply = "Sorry, I couldn't work out how to do that. Could you rephrase your request?"

	emptyReply = "Done."
)

// Agent turns a user message into a reply, letting the model call tools in
// between.
type Agent struct {
	completer llm.Completer
	logger    *slog.Logger
	prompt    string
}

// New creates an agent over the given completer.
func New(completer llm.Completer, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Agent{completer: completer, logger: logger, prompt: SystemPrompt}
}

// Reply runs one agent turn. History holds prior user and assistant messages
// in chronological order, not including message itself.
//
// The first completion is offered the registry's tools. When the model
// requests tools, every call is executed in order and a single follow-up
// completion without tools produces the final text.
func (a *Agent) Reply(ctx context.Context, tools *Registry, history []llm.Message, message string) (string, error) {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: a.prompt})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	resp, err := a.completer.Complete(ctx, llm.Request{Messages: messages, Tools: tools.Specs()})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletion, err)
	}
	if len(resp.ToolCalls) == 0 {
		return orDefault(resp.Content), nil
	}

	messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: resp.Content, ToolCalls: resp.ToolCalls})
	for _, call := range resp.ToolCalls {
		result, err := tools.Dispatch(ctx, call)
		if errors.Is(err, ErrBadArguments) {
			a.logger.Warn("tool call rejected", "tool", call.Name, "error", err)
			return FallbackReply, nil
		}
		if err != nil {
			a.logger.Error("tool call failed", "tool", call.Name, "error", err)
			result = errorResult("The task store is unavailable right now.")
		} else {
			a.logger.Debug("tool call", "tool", call.Name, "result", result)
		}
		messages = append(messages, llm.Message{
			Role:       llm.RoleTool,
			Content:    result,
			ToolCallID: call.ID,
			Name:       call.Name,
		})
	}

	final, err := a.completer.Complete(ctx, llm.Request{Messages: messages})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletion, err)
	}
	return orDefault(final.Content), nil
}

func orDefault(s string) string {
	if s == "" {
		return emptyReply
	}
	return s
}
