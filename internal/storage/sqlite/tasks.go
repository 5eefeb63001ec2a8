package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"todoapp/internal/models"
	"todoapp/internal/todo"
)

// UserTasks is the task storage of a single user. Every query is filtered
// by owner so other users' tasks behave as if they did not exist.
type UserTasks struct {
	store  *Store
	userID int64
}

var _ todo.Storage = (*UserTasks)(nil)

// TasksFor returns the task storage scoped to userID.
func (s *Store) TasksFor(userID int64) *UserTasks {
	return &UserTasks{store: s, userID: userID}
}

const taskColumns = `id, user_id, title, description, completed, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (models.Task, error) {
	var t models.Task
	err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// Add inserts a task owned by the scoped user.
func (u *UserTasks) Add(ctx context.Context, t models.Task) (int64, error) {
	var id int64
	err := u.store.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `INSERT INTO tasks(user_id, title, description, completed, created_at, updated_at) VALUES(?, ?, ?, ?, ?, ?)`,
			u.userID, t.Title, t.Description, t.Completed, t.CreatedAt, t.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("task id: %w", err)
		}
		return nil
	})
	return id, err
}

// Get retrieves an owned task by id.
func (u *UserTasks) Get(ctx context.Context, id int64) (models.Task, bool, error) {
	t, err := scanTask(u.store.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`, id, u.userID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, false, nil
	}
	if err != nil {
		return models.Task{}, false, fmt.Errorf("get task: %w", err)
	}
	return t, true, nil
}

// All returns the user's tasks ordered by id.
func (u *UserTasks) All(ctx context.Context) ([]models.Task, error) {
	rows, err := u.store.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE user_id = ? ORDER BY id ASC`, u.userID)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update overwrites the mutable columns of an owned task.
func (u *UserTasks) Update(ctx context.Context, id int64, t models.Task) (bool, error) {
	var found bool
	err := u.store.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE tasks SET title = ?, description = ?, completed = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
			t.Title, t.Description, t.Completed, t.UpdatedAt, id, u.userID)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		found = affected > 0
		return nil
	})
	return found, err
}

// Delete removes an owned task.
func (u *UserTasks) Delete(ctx context.Context, id int64) (bool, error) {
	var found bool
	err := u.store.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, u.userID)
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		found = affected > 0
		return nil
	})
	return found, err
}
