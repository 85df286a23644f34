package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Priority / context / energy values for tasks.
const (
	PriorityLow    = "LOW"
	PriorityMedium = "MEDIUM"
	PriorityHigh   = "HIGH"

	ContextPersonal     = "PERSONAL"
	ContextProfessional = "PROFESSIONAL"
	ContextMixed        = "MIXED"

	EnergyLow    = "LOW"
	EnergyMedium = "MEDIUM"
	EnergyHigh   = "HIGH"
)

// Subtask is one decomposed step of a task.
type Subtask struct {
	Title            string `json:"title"`
	Completed        bool   `json:"completed"`
	EstimatedMinutes int    `json:"estimated_minutes,omitempty"`
}

// Task is a candidate work item for the relevance feed.
type Task struct {
	ID               int64
	Title            string
	Completed        bool
	DueAt            *time.Time
	Priority         string
	Context          string
	EnergyLevel      string
	Category         string
	Tags             []string
	Subtasks         []Subtask
	EstimatedMinutes *int
	CreatedAt        int64
}

// CreateTask inserts a task. Empty enum fields fall back to the column
// defaults used across the scorer.
func (db *DB) CreateTask(t *Task) error {
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.Context == "" {
		t.Context = ContextPersonal
	}
	if t.EnergyLevel == "" {
		t.EnergyLevel = EnergyMedium
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	if t.Subtasks == nil {
		t.Subtasks = []Subtask{}
	}

	tags, err := json.Marshal(t.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}
	subtasks, err := json.Marshal(t.Subtasks)
	if err != nil {
		return fmt.Errorf("marshal subtasks: %w", err)
	}

	var dueMs any
	if t.DueAt != nil {
		dueMs = t.DueAt.UnixMilli()
	}

	now := time.Now().UnixMilli()
	result, err := db.Exec(`
		INSERT INTO tasks (title, completed, due_at, priority, context, energy_level,
			category, tags, subtasks, estimated_minutes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.Title, boolToInt(t.Completed), dueMs, t.Priority, t.Context, t.EnergyLevel,
		t.Category, string(tags), string(subtasks), t.EstimatedMinutes, now)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	id, _ := result.LastInsertId()
	t.ID = id
	t.CreatedAt = now
	return nil
}

// GetTask returns a task by ID, or nil if not found.
func (db *DB) GetTask(id int64) (*Task, error) {
	row := db.QueryRow(`
		SELECT id, title, completed, due_at, priority, context, energy_level,
			category, tags, subtasks, estimated_minutes, created_at
		FROM tasks WHERE id = ?
	`, id)

	t, err := scanTask(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

// ListTasks returns tasks, newest first. Tasks created in the same
// millisecond order by descending id so listings stay deterministic. When
// openOnly is set, completed tasks are excluded.
func (db *DB) ListTasks(openOnly bool) ([]Task, error) {
	query := `
		SELECT id, title, completed, due_at, priority, context, energy_level,
			category, tags, subtasks, estimated_minutes, created_at
		FROM tasks`
	if openOnly {
		query += ` WHERE completed = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// CompleteTask marks a task as completed.
func (db *DB) CompleteTask(id int64) error {
	result, err := db.Exec(`UPDATE tasks SET completed = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("complete task: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("no task found with id %d", id)
	}
	return nil
}

func scanTask(scan func(dest ...any) error) (*Task, error) {
	var t Task
	var completed int
	var dueMs, estimated sql.NullInt64
	var tags, subtasks string
	if err := scan(&t.ID, &t.Title, &completed, &dueMs, &t.Priority, &t.Context,
		&t.EnergyLevel, &t.Category, &tags, &subtasks, &estimated, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Completed = completed != 0
	if dueMs.Valid {
		due := time.UnixMilli(dueMs.Int64)
		t.DueAt = &due
	}
	if estimated.Valid {
		n := int(estimated.Int64)
		t.EstimatedMinutes = &n
	}
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		t.Tags = nil
	}
	if err := json.Unmarshal([]byte(subtasks), &t.Subtasks); err != nil {
		t.Subtasks = nil
	}
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
