package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"todoapp/internal/models"
	"todoapp/internal/todo"
)

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

// tasks returns a manager over the caller's tasks only.
func (s *Server) tasks(c *gin.Context) *todo.Manager {
	return todo.NewManager(s.store.TasksFor(currentUser(c).ID))
}

// handleListTasks returns the caller's tasks, optionally filtered by status.
func (s *Server) handleListTasks(c *gin.Context) {
	status := models.TaskStatus(strings.ToLower(c.DefaultQuery("status", string(models.StatusAll))))
	if _, ok := models.ValidTaskStatuses[status]; !ok {
		s.respondError(c, fmt.Errorf("%w: status must be one of all, pending, completed", errBadRequest))
		return
	}

	tasks, err := s.tasks(c).ListTasks(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	filtered := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if status.Matches(t) {
			filtered = append(filtered, t)
		}
	}
	respondSuccess(c, http.StatusOK, gin.H{"tasks": filtered})
}

// handleCreateTask adds a task for the caller.
func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	task, err := s.tasks(c).CreateTask(c.Request.Context(), req.Title, req.Description)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusCreated, gin.H{"task": task})
}

// handleGetTask returns one of the caller's tasks.
func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	s.respondTask(c, s.tasks(c), id)
}

// handleUpdateTask changes the title, description or completion flag.
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := bindJSON(c, &req); err != nil {
		s.respondError(c, err)
		return
	}

	ctx := c.Request.Context()
	manager := s.tasks(c)
	found, err := manager.EditTask(ctx, id, req.Title, req.Description, req.Completed)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !found {
		s.respondError(c, fmt.Errorf("task %d: %w", id, todo.ErrNotFound))
		return
	}
	s.respondTask(c, manager, id)
}

// handleToggleTask flips the completion flag.
func (s *Server) handleToggleTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	manager := s.tasks(c)
	found, err := manager.ToggleComplete(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !found {
		s.respondError(c, fmt.Errorf("task %d: %w", id, todo.ErrNotFound))
		return
	}
	s.respondTask(c, manager, id)
}

// handleDeleteTask removes a task completely.
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	found, err := s.tasks(c).DeleteTask(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !found {
		s.respondError(c, fmt.Errorf("task %d: %w", id, todo.ErrNotFound))
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) respondTask(c *gin.Context, manager *todo.Manager, id int64) {
	task, found, err := manager.GetTask(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !found {
		s.respondError(c, fmt.Errorf("task %d: %w", id, todo.ErrNotFound))
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"task": task})
}
