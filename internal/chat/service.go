package chat

import (
	"context"
	"fmt"
	"log/slog"

	"todoapp/internal/agent"
	"todoapp/internal/llm"
	"todoapp/internal/models"
	"todoapp/internal/storage/sqlite"
	"todoapp/internal/todo"
	"todoapp/internal/util"
)

// historyLimit caps how many earlier messages are replayed to the model.
const historyLimit = 40

// Result is what a chat turn hands back to the caller.
type Result struct {
	ConversationID int64  `json:"conversation_id"`
	Response       string `json:"response"`
}

// Service persists conversations and runs the agent against the caller's tasks.
type Service struct {
	store  *sqlite.Store
	agent  *agent.Agent
	logger *slog.Logger
}

// NewService wires the conversation service.
func NewService(store *sqlite.Store, a *agent.Agent, logger *slog.Logger) *Service {
	logger = util.LoggerFrom(context.Background(), logger)
	return &Service{store: store, agent: a, logger: logger}
}

// Send runs one chat turn for userID. A nil conversationID starts a new
// conversation; an id the user does not own yields todo.ErrNotFound.
//
// The user message is stored before the model is called, so it survives a
// failed completion. When the agent fails the result still carries the
// conversation id so the caller can retry in the same conversation.
func (s *Service) Send(ctx context.Context, userID int64, conversationID *int64, text string) (Result, error) {
	// request loggers already carry user_id
	log := util.LoggerFrom(ctx, s.logger.With("user_id", userID))

	var (
		conv models.Conversation
		err  error
	)
	if conversationID == nil {
		conv, err = s.store.CreateConversation(ctx, userID)
	} else {
		conv, err = s.store.GetConversation(ctx, userID, *conversationID)
	}
	if err != nil {
		return Result{}, err
	}
	log = log.With("conversation_id", conv.ID)

	stored, err := s.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return Result{}, err
	}
	history := toHistory(stored)

	if _, err := s.store.AppendMessage(ctx, models.Message{
		ConversationID: conv.ID,
		UserID:         userID,
		Role:           models.RoleUser,
		Content:        text,
	}); err != nil {
		return Result{}, fmt.Errorf("store user message: %w", err)
	}

	tools := agent.TaskTools(todo.NewManager(s.store.TasksFor(userID)))
	reply, err := s.agent.Reply(ctx, tools, history, text)
	if err != nil {
		log.Error("agent reply failed", "error", err)
		return Result{ConversationID: conv.ID}, err
	}

	if _, err := s.store.AppendMessage(ctx, models.Message{
		ConversationID: conv.ID,
		UserID:         userID,
		Role:           models.RoleAssistant,
		Content:        reply,
	}); err != nil {
		return Result{ConversationID: conv.ID}, fmt.Errorf("store assistant message: %w", err)
	}

	log.Info("chat turn complete", "history", len(history))
	return Result{ConversationID: conv.ID, Response: reply}, nil
}

// Messages returns the history of a conversation the user owns.
func (s *Service) Messages(ctx context.Context, userID, conversationID int64) ([]models.Message, error) {
	if _, err := s.store.GetConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	return s.store.ListMessages(ctx, conversationID)
}

func toHistory(stored []models.Message) []llm.Message {
	if len(stored) > historyLimit {
		stored = stored[len(stored)-historyLimit:]
	}
	history := make([]llm.Message, 0, len(stored))
	for _, m := range stored {
		role := llm.RoleUser
		if m.Role == models.RoleAssistant {
			role = llm.RoleAssistant
		}
		history = append(history, llm.Message{Role: role, Content: m.Content})
	}
	return history
}
