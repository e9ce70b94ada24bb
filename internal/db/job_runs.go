package db

import (
	"context"
	"fmt"

	"github.com/kosavsech/SchoolDiary-sub000/internal/models"
)

// RecordJobRun appends a job execution to the run history
func (db *DB) RecordJobRun(ctx context.Context, r *models.JobRun) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO job_runs (id, job_name, started_at, finished_at, outcome, new_items, skipped, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.JobName, formatStamp(r.StartedAt), formatStamp(r.FinishedAt), r.Outcome, r.NewItems, r.Skipped, r.Error)
	if err != nil {
		return fmt.Errorf("record job run %s: %w", r.JobName, err)
	}
	return nil
}

// JobRunsTail returns the last limit runs in chronological order (oldest
// first). An empty jobName matches every job.
func (db *DB) JobRunsTail(ctx context.Context, jobName string, limit int) ([]models.JobRun, error) {
	query := `
		SELECT id, job_name, started_at, finished_at, outcome, new_items, skipped, error
		FROM job_runs`
	var args []any
	if jobName != "" {
		query += ` WHERE job_name = ?`
		args = append(args, jobName)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limitOrDefault(limit))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("job runs: %w", err)
	}
	defer rows.Close()

	var runs []models.JobRun
	for rows.Next() {
		var r models.JobRun
		var started, finished string
		if err := rows.Scan(&r.ID, &r.JobName, &started, &finished, &r.Outcome, &r.NewItems, &r.Skipped, &r.Error); err != nil {
			return nil, err
		}
		if r.StartedAt, err = parseTimestamp(started); err != nil {
			return nil, err
		}
		if r.FinishedAt, err = parseTimestamp(finished); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse to chronological order
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	return runs, nil
}
