package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kosavsech/SchoolDiary-sub000/internal/models"
)

// GetTermMark returns a term mark by ID or ErrNotFound
func (db *DB) GetTermMark(ctx context.Context, id string) (*models.TermMark, error) {
	var m models.TermMark
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, subject_id, term, mark FROM term_marks WHERE id = ?`, id,
	).Scan(&m.ID, &m.SubjectID, &m.Term, &m.Mark)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("term mark %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get term mark %s: %w", id, err)
	}
	return &m, nil
}

// TermMarkExists reports whether a term mark with id is stored
func (db *DB) TermMarkExists(ctx context.Context, id string) (bool, error) {
	return db.rowExists(ctx, "term_marks", id)
}

// UpsertTermMark inserts or replaces a term mark
func (db *DB) UpsertTermMark(ctx context.Context, m *models.TermMark) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO term_marks (id, subject_id, term, mark) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET mark = excluded.mark
	`, m.ID, m.SubjectID, m.Term, m.Mark)
	if err != nil {
		return fmt.Errorf("upsert term mark %s: %w", m.ID, err)
	}
	return nil
}

// DeleteTermMark removes a term mark
func (db *DB) DeleteTermMark(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM term_marks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete term mark %s: %w", id, err)
	}
	return nil
}

// ListTermMarks returns all term marks, or one term's when term > 0
func (db *DB) ListTermMarks(ctx context.Context, term int) ([]models.TermMark, error) {
	query := `SELECT id, subject_id, term, mark FROM term_marks`
	var args []any
	if term > 0 {
		query += ` WHERE term = ?`
		args = append(args, term)
	}
	query += ` ORDER BY term, subject_id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list term marks: %w", err)
	}
	defer rows.Close()

	var out []models.TermMark
	for rows.Next() {
		var m models.TermMark
		if err := rows.Scan(&m.ID, &m.SubjectID, &m.Term, &m.Mark); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountTermMarks returns the number of stored term marks
func (db *DB) CountTermMarks(ctx context.Context) (int, error) {
	return db.count(ctx, "term_marks")
}
