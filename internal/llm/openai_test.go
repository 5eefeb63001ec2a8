package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestOpenAIToolCallParsing(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected Authorization %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{
				"message": {
					"content": "",
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "add_task", "arguments": "{\"title\":\"Buy milk\"}"}
					}]
				},
				"finish_reason": "tool_calls"
			}]
		}`))
	}))
	defer srv.Close()

	client, err := NewOpenAI(OpenAIConfig{BaseURL: srv.URL + "/", APIKey: "test-key", Model: "test-model"})
	if err != nil {
		t.Fatalf("NewOpenAI failed: %v", err)
	}

	resp, err := client.Complete(context.Background(), Request{
		Messages: []Message{
			{Role: RoleSystem, Content: "be helpful"},
			{Role: RoleUser, Content: "add buy milk"},
		},
		Tools: []ToolSpec{{
			Name:        "add_task",
			Description: "Create a new task",
			Params: []Param{
				{Name: "title", Type: "string", Required: true},
				{Name: "description", Type: "string"},
			},
		}},
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	tools, _ := got["tools"].([]any)
	if got["model"] != "test-model" || got["tool_choice"] != "auto" || len(tools) != 1 {
		t.Fatalf("unexpected request: %v", got)
	}
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	params := fn["parameters"].(map[string]any)
	required, _ := params["required"].([]any)
	if fn["name"] != "add_task" || len(required) != 1 || required[0] != "title" {
		t.Fatalf("unexpected function definition: %v", fn)
	}

	if len(resp.ToolCalls) != 1 {
		t.Fatalf("expected one tool call, got %d", len(resp.ToolCalls))
	}
	call := resp.ToolCalls[0]
	if call.ID != "call_1" || call.Name != "add_task" || call.Arguments != `{"title":"Buy milk"}` {
		t.Fatalf("unexpected tool call: %+v", call)
	}
	if resp.FinishReason != "tool_calls" {
		t.Fatalf("unexpected finish reason %q", resp.FinishReason)
	}
}

func TestOpenAIOmitsToolsWhenNoneOffered(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&raw)
		w.Write([]byte(`{"choices":[{"message":{"content":"Done!"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	client, _ := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, Model: "m"})
	resp, err := client.Complete(context.Background(), Request{Messages: []Message{
		{Role: RoleUser, Content: "add buy milk"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "add_task", Arguments: `{}`}}},
		{Role: RoleTool, ToolCallID: "c1", Name: "add_task", Content: `{"status":"success"}`},
	}})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if resp.Content != "Done!" {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if _, ok := raw["tools"]; ok {
		t.Fatalf("tools must be omitted")
	}
	if _, ok := raw["tool_choice"]; ok {
		t.Fatalf("tool_choice must be omitted")
	}
	msgs := raw["messages"].([]any)
	toolMsg := msgs[2].(map[string]any)
	if toolMsg["role"] != "tool" || toolMsg["tool_call_id"] != "c1" {
		t.Fatalf("unexpected tool message: %v", toolMsg)
	}
}

func TestOpenAIErrors(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"http status": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"bad key"}}`))
		},
		"api error": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"error":{"message":"model overloaded"}}`))
		},
		"no choices": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[]}`))
		},
		"garbage": func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html>`))
		},
	}
	for name, handler := range tests {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			defer srv.Close()
			client, _ := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, Model: "m"})
			if _, err := client.Complete(context.Background(), Request{}); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestOpenAITimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"choices":[{"message":{"content":"late"}}]}`))
	}))
	defer srv.Close()

	client, _ := NewOpenAI(OpenAIConfig{BaseURL: srv.URL, Model: "m", Timeout: 20 * time.Millisecond})
	_, err := client.Complete(context.Background(), Request{})
	var netErr net.Error
	if !errors.As(err, &netErr) || !netErr.Timeout() {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestGeminiSchema(t *testing.T) {
	schema := geminiSchema([]Param{
		{Name: "task_id", Type: "integer", Required: true},
		{Name: "status", Type: "string", Enum: []string{"all", "pending"}},
	})
	if len(schema.Required) != 1 || schema.Required[0] != "task_id" {
		t.Fatalf("unexpected required: %v", schema.Required)
	}
	if schema.Properties["task_id"].Type != "INTEGER" {
		t.Fatalf("unexpected type %q", schema.Properties["task_id"].Type)
	}
	if len(schema.Properties["status"].Enum) != 2 {
		t.Fatalf("enum lost")
	}
}

func TestScriptedEchoesWhenEmpty(t *testing.T) {
	s := NewScripted()
	resp, err := s.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if !strings.Contains(resp.Content, "hi") {
		t.Fatalf("unexpected echo %q", resp.Content)
	}
	if len(s.Requests()) != 1 {
		t.Fatalf("request not recorded")
	}
}

func TestGeminiContentsRejectsBadToolArguments(t *testing.T) {
	_, _, err := geminiContents([]Message{
		{Role: RoleUser, Content: "add buy milk"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "add_task", Arguments: `{"title":`}}},
	})
	if err == nil || !strings.Contains(err.Error(), "add_task") {
		t.Fatalf("expected invalid arguments error, got %v", err)
	}

	contents, system, err := geminiContents([]Message{
		{Role: RoleSystem, Content: "be helpful"},
		{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "add_task", Arguments: `{"title":"Buy milk"}`}}},
	})
	if err != nil {
		t.Fatalf("geminiContents failed: %v", err)
	}
	if system != "be helpful" || len(contents) != 1 {
		t.Fatalf("unexpected contents: system=%q len=%d", system, len(contents))
	}
	call := contents[0].Parts[0].FunctionCall
	if call == nil || call.Name != "add_task" || call.Args["title"] != "Buy milk" {
		t.Fatalf("unexpected function call part: %+v", call)
	}
}

func TestScriptedLimitRequests(t *testing.T) {
	s := NewScripted()
	s.LimitRequests(0)
	if _, err := s.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "hi"}}}); err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if n := len(s.Requests()); n != 0 {
		t.Fatalf("expected no recorded requests, got %d", n)
	}

	s = NewScripted()
	s.LimitRequests(2)
	for _, text := range []string{"one", "two", "three"} {
		if _, err := s.Complete(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: text}}}); err != nil {
			t.Fatalf("Complete failed: %v", err)
		}
	}
	reqs := s.Requests()
	if len(reqs) != 2 || reqs[0].Messages[0].Content != "two" || reqs[1].Messages[0].Content != "three" {
		t.Fatalf("expected the two latest requests, got %+v", reqs)
	}
}
