package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"todoapp/internal/llm"
	"todoapp/internal/models"
	"todoapp/internal/todo"
)

// taskID accepts both 3 and "3"; models are not consistent about it.
type taskID int64

func (id *taskID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("task_id must be an integer, got %s", b)
	}
	*id = taskID(v)
	return nil
}

// TaskTools registers the five task tools over a user-scoped manager.
func TaskTools(m *todo.Manager) *Registry {
	r := NewRegistry()
	r.Register(Tool{
		Spec: llm.ToolSpec{
			Name:        "add_task",
			Description: "Create a new task",
			Params: []llm.Param{
				{Name: "title", Type: "string", Description: "Short title, at most 200 characters", Required: true},
				{Name: "description", Type: "string", Description: "Optional details"},
			},
		},
		Handler: addTask(m),
	})
	r.Register(Tool{
		Spec: llm.ToolSpec{
			Name:        "list_tasks",
			Description: "Get all tasks. Status can be: all, pending, completed",
			Params: []llm.Param{
				{Name: "status", Type: "string", Enum: []string{"all", "pending", "completed"}},
			},
		},
		Handler: listTasks(m),
	})
	r.Register(Tool{
		Spec: llm.ToolSpec{
			Name:        "complete_task",
			Description: "Mark a task as complete",
			Params:      []llm.Param{{Name: "task_id", Type: "integer", Required: true}},
		},
		Handler: completeTask(m),
	})
	r.Register(Tool{
		Spec: llm.ToolSpec{
			Name:        "delete_task",
			Description: "Delete a task",
			Params:      []llm.Param{{Name: "task_id", Type: "integer", Required: true}},
		},
		Handler: deleteTask(m),
	})
	r.Register(Tool{
		Spec: llm.ToolSpec{
			Name:        "update_task",
			Description: "Update task title or description",
			Params: []llm.Param{
				{Name: "task_id", Type: "integer", Required: true},
				{Name: "title", Type: "string"},
				{Name: "description", Type: "string"},
			},
		},
		Handler: updateTask(m),
	})
	return r
}

// businessResult turns validation failures into an error result for the
// model; anything else is a real failure.
func businessResult(err error) (string, error) {
	if errors.Is(err, todo.ErrValidation) {
		return errorResult(err.Error()), nil
	}
	return "", err
}

func addTask(m *todo.Manager) Handler {
	return func(ctx context.Context, raw json.RawMessage) (string, error) {
		var args struct {
			Title       string `json:"title"`
			Description string `json:"description"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return "", err
		}
		task, err := m.CreateTask(ctx, args.Title, args.Description)
		if err != nil {
			return businessResult(err)
		}
		return successResult(map[string]any{
			"task_id": task.ID,
			"title":   task.Title,
			"message": "Created task: " + task.Title,
		}), nil
	}
}

func listTasks(m *todo.Manager) Handler {
	return func(ctx context.Context, raw json.RawMessage) (string, error) {
		var args struct {
			Status string `json:"status"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return "", err
		}
		status := models.TaskStatus(strings.ToLower(strings.TrimSpace(args.Status)))
		if status == "" {
			status = models.StatusAll
		}
		if _, ok := models.ValidTaskStatuses[status]; !ok {
			return errorResult("Status must be one of: all, pending, completed"), nil
		}

		tasks, err := m.ListTasks(ctx)
		if err != nil {
			return "", err
		}
		items := []map[string]any{}
		for _, t := range tasks {
			if !status.Matches(t) {
				continue
			}
			items = append(items, map[string]any{
				"id":          t.ID,
				"title":       t.Title,
				"description": t.Description,
				"completed":   t.Completed,
				"created_at":  t.CreatedAt.Format(time.RFC3339),
			})
		}
		return successResult(map[string]any{"count": len(items), "tasks": items}), nil
	}
}

type taskRef struct {
	TaskID *taskID `json:"task_id"`
}

func (r taskRef) id() (int64, error) {
	if r.TaskID == nil {
		return 0, fmt.Errorf("%w: task_id is required", ErrBadArguments)
	}
	return int64(*r.TaskID), nil
}

func completeTask(m *todo.Manager) Handler {
	return func(ctx context.Context, raw json.RawMessage) (string, error) {
		var args taskRef
		if err := decodeArgs(raw, &args); err != nil {
			return "", err
		}
		id, err := args.id()
		if err != nil {
			return "", err
		}
		ok, err := m.SetCompleted(ctx, id, true)
		if err != nil {
			return "", err
		}
		if !ok {
			return errorResult("Task not found"), nil
		}
		task, _, err := m.GetTask(ctx, id)
		if err != nil {
			return "", err
		}
		return successResult(map[string]any{
			"task_id": id,
			"title":   task.Title,
			"message": "Completed task: " + task.Title,
		}), nil
	}
}

func deleteTask(m *todo.Manager) Handler {
	return func(ctx context.Context, raw json.RawMessage) (string, error) {
		var args taskRef
		if err := decodeArgs(raw, &args); err != nil {
			return "", err
		}
		id, err := args.id()
		if err != nil {
			return "", err
		}
		task, found, err := m.GetTask(ctx, id)
		if err != nil {
			return "", err
		}
		if !found {
			return errorResult("Task not found"), nil
		}
		ok, err := m.DeleteTask(ctx, id)
		if err != nil {
			return "", err
		}
		if !ok {
			return errorResult("Task not found"), nil
		}
		return successResult(map[string]any{"message": "Deleted task: " + task.Title}), nil
	}
}

func updateTask(m *todo.Manager) Handler {
	return func(ctx context.Context, raw json.RawMessage) (string, error) {
		var args struct {
			taskRef
			Title       *string `json:"title"`
			Description *string `json:"description"`
		}
		if err := decodeArgs(raw, &args); err != nil {
			return "", err
		}
		id, err := args.id()
		if err != nil {
			return "", err
		}
		// models send "" for fields they mean to leave alone
		if args.Title != nil && strings.TrimSpace(*args.Title) == "" {
			args.Title = nil
		}

		ok, err := m.UpdateTask(ctx, id, args.Title, args.Description)
		if err != nil {
			return businessResult(err)
		}
		if !ok {
			return errorResult("Task not found"), nil
		}
		task, _, err := m.GetTask(ctx, id)
		if err != nil {
			return "", err
		}
		return successResult(map[string]any{
			"task_id": id,
			"title":   task.Title,
			"message": "Updated task: " + task.Title,
		}), nil
	}
}
