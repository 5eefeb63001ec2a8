package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"todoapp/internal/models"
	"todoapp/internal/todo"
)

// CreateConversation starts an empty conversation for the user.
func (s *Store) CreateConversation(ctx context.Context, userID int64) (models.Conversation, error) {
	now := s.now().UTC()
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO conversations(user_id, created_at, updated_at) VALUES(?, ?, ?)`, userID, now, now)
		if err != nil {
			return fmt.Errorf("insert conversation: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("conversation id: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Conversation{}, err
	}
	return s.GetConversation(ctx, userID, id)
}

// GetConversation fetches a conversation owned by userID.
func (s *Store) GetConversation(ctx context.Context, userID, id int64) (models.Conversation, error) {
	var c models.Conversation
	err := s.db.QueryRowContext(ctx, `SELECT id, user_id, created_at, updated_at FROM conversations WHERE id = ? AND user_id = ?`, id, userID).
		Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, fmt.Errorf("conversation %d: %w", id, todo.ErrNotFound)
	}
	if err != nil {
		return models.Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

// AppendMessage stores a message and bumps the conversation's updated_at.
func (s *Store) AppendMessage(ctx context.Context, m models.Message) (models.Message, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now().UTC()
	}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO messages(conversation_id, user_id, role, content, created_at) VALUES(?, ?, ?, ?, ?)`,
			m.ConversationID, m.UserID, string(m.Role), m.Content, m.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
		m.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("message id: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, m.CreatedAt, m.ConversationID); err != nil {
			return fmt.Errorf("touch conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.Message{}, err
	}
	return m, nil
}

// ListMessages returns a conversation's messages in the order they were written.
func (s *Store) ListMessages(ctx context.Context, conversationID int64) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, conversation_id, user_id, role, content, created_at
        FROM messages WHERE conversation_id = ? ORDER BY id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		var role string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.UserID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = models.Role(role)
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
