package models

import (
	"fmt"
	"time"
)

// Task is a single todo item. UserID is zero for tasks that are not owned
// by an account (the console app).
type Task struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// User is an account that owns tasks and conversations.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Conversation groups the chat messages exchanged with the assistant.
type Conversation struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role tags who authored a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of a conversation.
type Message struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	UserID         int64     `json:"user_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// TaskStatus filters task listings by completion state.
type TaskStatus string

const (
	StatusAll       TaskStatus = "all"
	StatusPending   TaskStatus = "pending"
	StatusCompleted TaskStatus = "completed"
)

// ValidTaskStatuses enumerates the accepted listing filters.
var ValidTaskStatuses = map[TaskStatus]struct{}{
	StatusAll:       {},
	StatusPending:   {},
	StatusCompleted: {},
}

// Matches reports whether the task passes the status filter.
func (s TaskStatus) Matches(t Task) bool {
	switch s {
	case StatusPending:
		return !t.Completed
	case StatusCompleted:
		return t.Completed
	default:
		return true
	}
}

// String renders the task the way the console lists it.
func (t Task) String() string {
	mark := " "
	if t.Completed {
		mark = "✓"
	}
	return fmt.Sprintf("[%d] [%s] %s", t.ID, mark, t.Title)
}
