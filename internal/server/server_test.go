package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"todoapp/internal/agent"
	"todoapp/internal/auth"
	"todoapp/internal/chat"
	"todoapp/internal/llm"
	"todoapp/internal/models"
	"todoapp/internal/storage/sqlite"
)

type testEnv struct {
	srv *Server
	llm *llm.Scripted
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "todo.db"), nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	tokens, err := auth.NewTokens("test-secret-that-is-long-enough", time.Hour)
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	completer := llm.NewScripted()
	chatService := chat.NewService(store, agent.New(completer, nil), nil)
	srv := New(store, tokens, chatService, nil, Options{CORSOrigins: []string{"http://localhost:3000", "not-a-url"}})
	return &testEnv{srv: srv, llm: completer}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.srv.Engine().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}

func (e *testEnv) register(t *testing.T, username string) (string, models.User) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/api/auth/register", "", obj{
		"username": username,
		"email":    username + "@example.com",
		"password": "correct horse",
	})
	expectStatus(t, rec, http.StatusCreated)
	resp := decode[tokenResponse](t, rec)
	if resp.AccessToken == "" || resp.TokenType != "bearer" {
		t.Fatalf("unexpected token response: %+v", resp)
	}
	return resp.AccessToken, resp.User
}

type obj = map[string]any

type taskEnvelope struct {
	Task models.Task `json:"task"`
}

type taskList struct {
	Tasks []models.Task `json:"tasks"`
}

func TestHealthAndRequestID(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/healthz", "", nil)
	expectStatus(t, rec, http.StatusOK)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing request id header")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/healthz", nil)
	req.Header.Set("X-Request-ID", "trace-123")
	rec = httptest.NewRecorder()
	env.srv.Engine().ServeHTTP(rec, req)
	if rec.Header().Get("X-Request-ID") != "trace-123" {
		t.Fatalf("request id should be echoed")
	}
}

func TestUnknownAPIPath(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/nope", "", nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestRegisterLoginMe(t *testing.T) {
	env := newTestEnv(t)
	token, user := env.register(t, "alice")
	if user.Username != "alice" || user.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}

	rec := env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if bytes.Contains(rec.Body.Bytes(), []byte("password")) {
		t.Fatalf("password hash leaked: %s", rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", obj{"username": "alice", "password": "correct horse"})
	expectStatus(t, rec, http.StatusOK)

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", obj{"username": "alice", "password": "wrong"})
	expectStatus(t, rec, http.StatusUnauthorized)
	rec = env.do(t, http.MethodPost, "/api/auth/login", "", obj{"username": "nobody", "password": "wrong"})
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestRegisterRejections(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice")

	tests := []struct {
		name string
		body any
		want int
	}{
		{"duplicate username", obj{"username": "alice", "email": "other@example.com", "password": "correct horse"}, http.StatusConflict},
		{"duplicate email", obj{"username": "alice2", "email": "ALICE@example.com", "password": "correct horse"}, http.StatusConflict},
		{"short username", obj{"username": "al", "email": "al@example.com", "password": "correct horse"}, http.StatusBadRequest},
		{"bad email", obj{"username": "carol", "email": "carol", "password": "correct horse"}, http.StatusBadRequest},
		{"short password", obj{"username": "carol", "email": "carol@example.com", "password": "x"}, http.StatusBadRequest},
		{"password over 72 bytes", obj{"username": "dave", "email": "dave@example.com", "password": strings.Repeat("€", 30)}, http.StatusBadRequest},
		{"malformed json", `{"username":`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/auth/register", "", tt.body)
			expectStatus(t, rec, tt.want)
		})
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	tokens, _ := auth.NewTokens("a-different-secret-entirely", time.Hour)
	forged, _ := tokens.Issue(1, "alice")

	cases := map[string]string{
		"missing":       "",
		"wrong scheme":  "Token abc",
		"garbage token": "Bearer abc.def.ghi",
		"wrong secret":  "Bearer " + forged,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			env.srv.Engine().ServeHTTP(rec, req)
			expectStatus(t, rec, http.StatusUnauthorized)
		})
	}
}

func TestTaskCRUD(t *testing.T) {
	env := newTestEnv(t)
	token, user := env.register(t, "alice")

	rec := env.do(t, http.MethodPost, "/api/tasks", token, obj{"title": "  Buy milk ", "description": "2 liters"})
	expectStatus(t, rec, http.StatusCreated)
	created := decode[taskEnvelope](t, rec).Task
	if created.ID == 0 || created.Title != "Buy milk" || created.UserID != user.ID || created.Completed {
		t.Fatalf("unexpected task: %+v", created)
	}

	rec = env.do(t, http.MethodPost, "/api/tasks", token, obj{"title": ""})
	expectStatus(t, rec, http.StatusBadRequest)

	env.do(t, http.MethodPost, "/api/tasks", token, obj{"title": "Call mom"})
	taskPath := fmt.Sprintf("/api/tasks/%d", created.ID)

	rec = env.do(t, http.MethodPut, taskPath, token, obj{"title": "Buy oat milk", "completed": true})
	expectStatus(t, rec, http.StatusOK)
	updated := decode[taskEnvelope](t, rec).Task
	if updated.Title != "Buy oat milk" || updated.Description != "2 liters" || !updated.Completed {
		t.Fatalf("unexpected update: %+v", updated)
	}

	rec = env.do(t, http.MethodPut, taskPath, token, obj{"title": "   "})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(t, http.MethodGet, "/api/tasks?status=completed", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if tasks := decode[taskList](t, rec).Tasks; len(tasks) != 1 || tasks[0].ID != created.ID {
		t.Fatalf("unexpected completed list: %+v", tasks)
	}
	rec = env.do(t, http.MethodGet, "/api/tasks?status=someday", token, nil)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(t, http.MethodPatch, taskPath+"/toggle", token, nil)
	expectStatus(t, rec, http.StatusOK)
	if decode[taskEnvelope](t, rec).Task.Completed {
		t.Fatalf("toggle should reopen the task")
	}

	rec = env.do(t, http.MethodGet, "/api/tasks", token, nil)
	tasks := decode[taskList](t, rec).Tasks
	if len(tasks) != 2 || tasks[0].ID >= tasks[1].ID {
		t.Fatalf("expected two tasks in id order: %+v", tasks)
	}

	rec = env.do(t, http.MethodDelete, taskPath, token, nil)
	expectStatus(t, rec, http.StatusOK)
	rec = env.do(t, http.MethodGet, taskPath, token, nil)
	expectStatus(t, rec, http.StatusNotFound)
	rec = env.do(t, http.MethodDelete, taskPath, token, nil)
	expectStatus(t, rec, http.StatusNotFound)

	rec = env.do(t, http.MethodGet, "/api/tasks/abc", token, nil)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestTasksAreInvisibleToOtherUsers(t *testing.T) {
	env := newTestEnv(t)
	alice, _ := env.register(t, "alice")
	bob, _ := env.register(t, "bob")

	rec := env.do(t, http.MethodPost, "/api/tasks", alice, obj{"title": "Secret plan"})
	expectStatus(t, rec, http.StatusCreated)
	path := fmt.Sprintf("/api/tasks/%d", decode[taskEnvelope](t, rec).Task.ID)

	for _, r := range []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodGet, path, nil},
		{http.MethodPut, path, obj{"title": "Mine now"}},
		{http.MethodPatch, path + "/toggle", nil},
		{http.MethodDelete, path, nil},
	} {
		rec := env.do(t, r.method, r.path, bob, r.body)
		expectStatus(t, rec, http.StatusNotFound)
	}

	rec = env.do(t, http.MethodGet, "/api/tasks", bob, nil)
	if tasks := decode[taskList](t, rec).Tasks; len(tasks) != 0 {
		t.Fatalf("bob should see no tasks: %+v", tasks)
	}
	rec = env.do(t, http.MethodGet, path, alice, nil)
	if task := decode[taskEnvelope](t, rec).Task; task.Title != "Secret plan" || task.Completed {
		t.Fatalf("alice's task was modified: %+v", task)
	}
}

func TestChatFlow(t *testing.T) {
	env := newTestEnv(t)
	alice, user := env.register(t, "alice")
	bob, _ := env.register(t, "bob")

	env.llm.Push(llm.Response{ToolCalls: []llm.ToolCall{{ID: "c1", Name: "add_task", Arguments: `{"title":"Buy milk"}`}}})
	env.llm.Push(llm.Response{Content: "Added 'Buy milk' to your list."})

	rec := env.do(t, http.MethodPost, "/api/chat", alice, obj{"message": "Add a task to buy milk", "user_id": user.ID})
	expectStatus(t, rec, http.StatusOK)
	result := decode[chat.Result](t, rec)
	if result.ConversationID == 0 || result.Response != "Added 'Buy milk' to your list." {
		t.Fatalf("unexpected chat result: %+v", result)
	}

	rec = env.do(t, http.MethodGet, "/api/tasks", alice, nil)
	if tasks := decode[taskList](t, rec).Tasks; len(tasks) != 1 || tasks[0].Title != "Buy milk" {
		t.Fatalf("chat should have created the task: %+v", tasks)
	}

	messagesPath := fmt.Sprintf("/api/conversations/%d/messages", result.ConversationID)
	rec = env.do(t, http.MethodGet, messagesPath, alice, nil)
	expectStatus(t, rec, http.StatusOK)
	history := decode[struct {
		Messages []models.Message `json:"messages"`
	}](t, rec)
	if len(history.Messages) != 2 {
		t.Fatalf("expected two stored messages, got %+v", history.Messages)
	}

	rec = env.do(t, http.MethodGet, messagesPath, bob, nil)
	expectStatus(t, rec, http.StatusNotFound)
	rec = env.do(t, http.MethodPost, "/api/chat", bob, obj{"message": "hi", "conversation_id": result.ConversationID})
	expectStatus(t, rec, http.StatusNotFound)
	rec = env.do(t, http.MethodPost, "/api/chat", bob, obj{"message": "hi", "user_id": user.ID})
	expectStatus(t, rec, http.StatusForbidden)
	rec = env.do(t, http.MethodPost, "/api/chat", bob, obj{"message": "   "})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestChatCompletionFailure(t *testing.T) {
	env := newTestEnv(t)
	token, _ := env.register(t, "alice")
	env.llm.Fail(errors.New("dial tcp: connection refused"))

	rec := env.do(t, http.MethodPost, "/api/chat", token, obj{"message": "hello"})
	expectStatus(t, rec, http.StatusBadGateway)
	if bytes.Contains(rec.Body.Bytes(), []byte("connection refused")) {
		t.Fatalf("upstream error leaked: %s", rec.Body.String())
	}
	body := decode[struct {
		Error          string `json:"error"`
		ConversationID int64  `json:"conversation_id"`
	}](t, rec)
	if body.Error == "" || body.ConversationID == 0 {
		t.Fatalf("expected error and conversation_id, got %s", rec.Body.String())
	}

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/conversations/%d/messages", body.ConversationID), token, nil)
	expectStatus(t, rec, http.StatusOK)
	history := decode[struct {
		Messages []models.Message `json:"messages"`
	}](t, rec)
	if len(history.Messages) != 1 || history.Messages[0].Content != "hello" {
		t.Fatalf("expected the stored user message, got %+v", history.Messages)
	}

	// the client can carry on in the same conversation
	rec = env.do(t, http.MethodPost, "/api/chat", token, obj{"message": "again", "conversation_id": body.ConversationID})
	expectStatus(t, rec, http.StatusOK)
	if got := decode[chat.Result](t, rec); got.ConversationID != body.ConversationID {
		t.Fatalf("expected conversation %d, got %d", body.ConversationID, got.ConversationID)
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	env.srv.Engine().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow origin %q (status %d)", got, rec.Code)
	}
}

