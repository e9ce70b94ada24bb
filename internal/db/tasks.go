package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kosavsech/SchoolDiary-sub000/internal/models"
)

const taskColumns = `id, title, description, due_date, subject_id, done`

// ListTasksOptions filters ListTasks
type ListTasksOptions struct {
	DueFrom     time.Time // inclusive, zero means no bound
	IncludeDone bool
	Limit       int
}

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	var t models.Task
	var due string
	var done int
	if err := row.Scan(&t.ID, &t.Title, &t.Description, &due, &t.SubjectID, &done); err != nil {
		return nil, err
	}
	var err error
	if t.DueDate, err = parseDate(due); err != nil {
		return nil, err
	}
	t.Done = done != 0
	return &t, nil
}

// GetTask returns a task by ID or ErrNotFound
func (db *DB) GetTask(ctx context.Context, id string) (*models.Task, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return t, nil
}

// TaskExists reports whether a task with id is stored
func (db *DB) TaskExists(ctx context.Context, id string) (bool, error) {
	return db.rowExists(ctx, "tasks", id)
}

// UpsertTask inserts or replaces a task. The local done flag survives
// updates because the portal does not track it.
func (db *DB) UpsertTask(ctx context.Context, t *models.Task) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			due_date = excluded.due_date,
			subject_id = excluded.subject_id
	`, t.ID, t.Title, t.Description, formatDate(t.DueDate), t.SubjectID, boolToInt(t.Done))
	if err != nil {
		return fmt.Errorf("upsert task %s: %w", t.ID, err)
	}
	return nil
}

// SetTaskDone toggles the local completion flag
func (db *DB) SetTaskDone(ctx context.Context, id string, done bool) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE tasks SET done = ? WHERE id = ?`, boolToInt(done), id)
	if err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteTask removes a task
func (db *DB) DeleteTask(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// ListTasks returns tasks ordered by due date
func (db *DB) ListTasks(ctx context.Context, opts ListTasksOptions) ([]models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE 1=1`
	var args []any
	if !opts.DueFrom.IsZero() {
		query += ` AND due_date >= ?`
		args = append(args, formatDate(opts.DueFrom))
	}
	if !opts.IncludeDone {
		query += ` AND done = 0`
	}
	query += ` ORDER BY due_date, title LIMIT ?`
	args = append(args, limitOrDefault(opts.Limit))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// CountTasks returns the number of stored tasks
func (db *DB) CountTasks(ctx context.Context) (int, error) {
	return db.count(ctx, "tasks")
}
