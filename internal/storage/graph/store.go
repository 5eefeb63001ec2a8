package graph

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"todoapp/internal/models"
	"todoapp/internal/todo"
)

// Config holds the connection settings of a Neo4j task store.
type Config struct {
	URI      string
	Username string
	Password string
	Database string
}

// Store keeps tasks as (:Task) nodes. Identifiers come from a (:Sequence)
// counter node that is incremented in the same transaction as the insert.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	logger   *slog.Logger
}

var _ todo.Storage = (*Store)(nil)

const taskSequence = "task"

// Open connects to Neo4j, verifies connectivity and installs the id constraint.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.URI == "" {
		return nil, fmt.Errorf("empty neo4j uri")
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("connect neo4j: %w", err)
	}

	s := &Store{driver: driver, database: cfg.Database, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, err
	}
	logger.Debug("neo4j store ready", slog.String("uri", cfg.URI))
	return s, nil
}

// Close releases the driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.database})
}

func (s *Store) migrate(ctx context.Context) error {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	res, err := session.Run(ctx, "CREATE CONSTRAINT task_id IF NOT EXISTS FOR (t:Task) REQUIRE t.id IS UNIQUE", nil)
	if err != nil {
		return fmt.Errorf("create task constraint: %w", err)
	}
	if _, err := res.Consume(ctx); err != nil {
		return fmt.Errorf("create task constraint: %w", err)
	}
	return nil
}

// Add allocates the next identifier and creates the task node.
func (s *Store) Add(ctx context.Context, task models.Task) (int64, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx,
			"MERGE (seq:Sequence {name: $sequence}) "+
				"ON CREATE SET seq.value = 0 "+
				"SET seq.value = seq.value + 1 "+
				"WITH seq.value AS id "+
				"CREATE (t:Task {id: id, title: $title, description: $description, completed: $completed, created_at: $created_at, updated_at: $updated_at}) "+
				"RETURN t.id AS id",
			map[string]any{
				"sequence":    taskSequence,
				"title":       task.Title,
				"description": task.Description,
				"completed":   task.Completed,
				"created_at":  task.CreatedAt,
				"updated_at":  task.UpdatedAt,
			},
		)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		id, _, err := neo4j.GetRecordValue[int64](record, "id")
		return id, err
	})
	if err != nil {
		return 0, fmt.Errorf("create task: %w", err)
	}
	return result.(int64), nil
}

const returnTask = "RETURN t.id AS id, t.title AS title, t.description AS description, " +
	"t.completed AS completed, t.created_at AS created_at, t.updated_at AS updated_at"

// Get retrieves a task by id.
func (s *Store) Get(ctx context.Context, id int64) (models.Task, bool, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, "MATCH (t:Task {id: $id}) "+returnTask, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, nil
		}
		return recordToTask(records[0])
	})
	if err != nil {
		return models.Task{}, false, fmt.Errorf("get task: %w", err)
	}
	if result == nil {
		return models.Task{}, false, nil
	}
	return result.(models.Task), true, nil
}

// All returns every task ordered by id.
func (s *Store) All(ctx context.Context) ([]models.Task, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, "MATCH (t:Task) "+returnTask+" ORDER BY id ASC", nil)
		if err != nil {
			return nil, err
		}
		tasks := []models.Task{}
		for res.Next(ctx) {
			t, err := recordToTask(res.Record())
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, t)
		}
		return tasks, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return result.([]models.Task), nil
}

// Update overwrites the mutable properties of a task.
func (s *Store) Update(ctx context.Context, id int64, task models.Task) (bool, error) {
	return s.countWrite(ctx,
		"MATCH (t:Task {id: $id}) "+
			"SET t.title = $title, t.description = $description, t.completed = $completed, t.updated_at = $updated_at "+
			"RETURN count(t) AS affected",
		map[string]any{
			"id":          id,
			"title":       task.Title,
			"description": task.Description,
			"completed":   task.Completed,
			"updated_at":  task.UpdatedAt,
		},
	)
}

// Delete removes a task node.
func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	return s.countWrite(ctx,
		"MATCH (t:Task {id: $id}) WITH t, t.id AS id DETACH DELETE t RETURN count(id) AS affected",
		map[string]any{"id": id},
	)
}

func (s *Store) countWrite(ctx context.Context, cypher string, params map[string]any) (bool, error) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		affected, _, err := neo4j.GetRecordValue[int64](record, "affected")
		return affected, err
	})
	if err != nil {
		return false, fmt.Errorf("write task: %w", err)
	}
	return result.(int64) > 0, nil
}

func recordToTask(record *neo4j.Record) (models.Task, error) {
	var (
		t   models.Task
		err error
	)
	if t.ID, _, err = neo4j.GetRecordValue[int64](record, "id"); err != nil {
		return t, err
	}
	if t.Title, _, err = neo4j.GetRecordValue[string](record, "title"); err != nil {
		return t, err
	}
	if t.Description, _, err = neo4j.GetRecordValue[string](record, "description"); err != nil {
		return t, err
	}
	if t.Completed, _, err = neo4j.GetRecordValue[bool](record, "completed"); err != nil {
		return t, err
	}
	if t.CreatedAt, _, err = neo4j.GetRecordValue[time.Time](record, "created_at"); err != nil {
		return t, err
	}
	if t.UpdatedAt, _, err = neo4j.GetRecordValue[time.Time](record, "updated_at"); err != nil {
		return t, err
	}
	return t, nil
}
