package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kosavsech/SchoolDiary-sub000/internal/models"
)

const gradeColumns = `id, mark, date, position, lesson_index, subject_id, synced_at`

// ListGradesOptions filters ListGrades
type ListGradesOptions struct {
	SubjectID string
	Since     time.Time // inclusive, zero means no bound
	Limit     int
}

func scanGrade(row interface{ Scan(...any) error }) (*models.Grade, error) {
	var g models.Grade
	var date, synced string
	if err := row.Scan(&g.ID, &g.Mark, &date, &g.Position, &g.LessonIndex, &g.SubjectID, &synced); err != nil {
		return nil, err
	}
	var err error
	if g.Date, err = parseDate(date); err != nil {
		return nil, err
	}
	if g.SyncedAt, err = parseTimestamp(synced); err != nil {
		return nil, err
	}
	return &g, nil
}

// GetGrade returns a grade by ID or ErrNotFound
func (db *DB) GetGrade(ctx context.Context, id string) (*models.Grade, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+gradeColumns+` FROM grades WHERE id = ?`, id)
	g, err := scanGrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("grade %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get grade %s: %w", id, err)
	}
	return g, nil
}

// GradeExists reports whether a grade with id is stored
func (db *DB) GradeExists(ctx context.Context, id string) (bool, error) {
	return db.rowExists(ctx, "grades", id)
}

// UpsertGrade inserts or replaces a grade
func (db *DB) UpsertGrade(ctx context.Context, g *models.Grade) error {
	if g.SyncedAt.IsZero() {
		g.SyncedAt = time.Now()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO grades (`+gradeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			mark = excluded.mark,
			date = excluded.date,
			position = excluded.position,
			lesson_index = excluded.lesson_index,
			subject_id = excluded.subject_id,
			synced_at = excluded.synced_at
	`, g.ID, g.Mark, formatDate(g.Date), g.Position, g.LessonIndex, g.SubjectID, formatStamp(g.SyncedAt))
	if err != nil {
		return fmt.Errorf("upsert grade %s: %w", g.ID, err)
	}
	return nil
}

// DeleteGrade removes a grade
func (db *DB) DeleteGrade(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM grades WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete grade %s: %w", id, err)
	}
	return nil
}

// ListGrades returns grades newest first
func (db *DB) ListGrades(ctx context.Context, opts ListGradesOptions) ([]models.Grade, error) {
	var where []string
	var args []any
	if opts.SubjectID != "" {
		where = append(where, "subject_id = ?")
		args = append(args, opts.SubjectID)
	}
	if !opts.Since.IsZero() {
		where = append(where, "date >= ?")
		args = append(args, formatDate(opts.Since))
	}

	query := `SELECT ` + gradeColumns + ` FROM grades`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date DESC, lesson_index, position LIMIT ?"
	args = append(args, limitOrDefault(opts.Limit))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	defer rows.Close()

	var out []models.Grade
	for rows.Next() {
		g, err := scanGrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// CountGrades returns the number of stored grades
func (db *DB) CountGrades(ctx context.Context) (int, error) {
	return db.count(ctx, "grades")
}
