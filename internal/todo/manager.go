package todo

import (
	"context"
	"strings"
	"time"

	"todoapp/internal/models"
)

// Storage keeps task records keyed by an identifier it assigns itself.
// Identifiers start at 1, grow monotonically and are never reused.
type Storage interface {
	Add(ctx context.Context, task models.Task) (int64, error)
	Get(ctx context.Context, id int64) (models.Task, bool, error)
	// All returns every task ordered by ascending identifier.
	All(ctx context.Context) ([]models.Task, error)
	// Update replaces the record wholesale and reports whether it existed.
	Update(ctx context.Context, id int64, task models.Task) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

// Manager enforces the task rules before anything reaches storage.
type Manager struct {
	store Storage
	now   func() time.Time
}

// NewManager builds a Manager over the given storage.
func NewManager(store Storage) *Manager {
	return &Manager{store: store, now: time.Now}
}

// CreateTask validates and stores a new, not yet completed task.
func (m *Manager) CreateTask(ctx context.Context, title, description string) (models.Task, error) {
	if err := ValidateTitle(title); err != nil {
		return models.Task{}, err
	}
	if err := ValidateDescription(description); err != nil {
		return models.Task{}, err
	}

	now := m.now().UTC()
	task := models.Task{
		Title:       strings.TrimSpace(title),
		Description: description,
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := m.store.Add(ctx, task)
	if err != nil {
		return models.Task{}, err
	}
	task.ID = id

	stored, ok, err := m.store.Get(ctx, id)
	if err != nil || !ok {
		return task, err
	}
	return stored, nil
}

// ListTasks returns every task in ascending identifier order.
func (m *Manager) ListTasks(ctx context.Context) ([]models.Task, error) {
	return m.store.All(ctx)
}

// GetTask looks a task up by identifier.
func (m *Manager) GetTask(ctx context.Context, id int64) (models.Task, bool, error) {
	return m.store.Get(ctx, id)
}

// UpdateTask overwrites the supplied fields; nil leaves a field untouched.
// It returns false when the task does not exist. Both fields are validated
// before anything is written.
func (m *Manager) UpdateTask(ctx context.Context, id int64, title, description *string) (bool, error) {
	return m.EditTask(ctx, id, title, description, nil)
}

// EditTask is UpdateTask plus an optional completion flag, persisted with a
// single Update.
func (m *Manager) EditTask(ctx context.Context, id int64, title, description *string, completed *bool) (bool, error) {
	task, ok, err := m.store.Get(ctx, id)
	if err != nil || !ok {
		return false, err
	}

	if title != nil {
		if err := ValidateTitle(*title); err != nil {
			return false, err
		}
	}
	if description != nil {
		if err := ValidateDescription(*description); err != nil {
			return false, err
		}
	}

	if title != nil {
		task.Title = strings.TrimSpace(*title)
	}
	if description != nil {
		task.Description = *description
	}
	if completed != nil {
		task.Completed = *completed
	}
	if title != nil || description != nil || completed != nil {
		task.UpdatedAt = m.now().UTC()
	}
	return m.store.Update(ctx, id, task)
}

// DeleteTask removes a task and reports whether it existed.
func (m *Manager) DeleteTask(ctx context.Context, id int64) (bool, error) {
	return m.store.Delete(ctx, id)
}

// ToggleComplete flips the completion flag.
func (m *Manager) ToggleComplete(ctx context.Context, id int64) (bool, error) {
	task, ok, err := m.store.Get(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	return m.setCompleted(ctx, task, !task.Completed)
}

// SetCompleted forces the completion flag to the given value.
func (m *Manager) SetCompleted(ctx context.Context, id int64, completed bool) (bool, error) {
	task, ok, err := m.store.Get(ctx, id)
	if err != nil || !ok {
		return false, err
	}
	return m.setCompleted(ctx, task, completed)
}

func (m *Manager) setCompleted(ctx context.Context, task models.Task, completed bool) (bool, error) {
	task.Completed = completed
	task.UpdatedAt = m.now().UTC()
	return m.store.Update(ctx, task.ID, task)
}
