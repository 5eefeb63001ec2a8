package memory

import (
	"context"
	"sort"
	"sync"

	"todoapp/internal/models"
)

// Store keeps tasks in a map for the lifetime of the process.
type Store struct {
	mu     sync.RWMutex
	tasks  map[int64]models.Task
	nextID int64
}

// NewStore returns an empty store whose first identifier is 1.
func NewStore() *Store {
	return &Store{
		tasks:  make(map[int64]models.Task),
		nextID: 1,
	}
}

func (s *Store) Add(_ context.Context, task models.Task) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task.ID = s.nextID
	s.tasks[task.ID] = task
	s.nextID++
	return task.ID, nil
}

func (s *Store) Get(_ context.Context, id int64) (models.Task, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	return t, ok, nil
}

func (s *Store) All(_ context.Context) ([]models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]models.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks, nil
}

func (s *Store) Update(_ context.Context, id int64, task models.Task) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return false, nil
	}
	task.ID = id
	s.tasks[id] = task
	return true, nil
}

func (s *Store) Delete(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return false, nil
	}
	delete(s.tasks, id)
	return true, nil
}

// Len reports how many tasks are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}
