package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kosavsech/SchoolDiary-sub000/internal/models"
)

const subjectColumns = `id, full_name, cabinet, target_mark, created_at`

// rowExists reports whether table has a row with the given id. Table names
// are compile-time constants from this package.
func (db *DB) rowExists(ctx context.Context, table, id string) (bool, error) {
	var one int
	err := db.conn.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check %s/%s: %w", table, id, err)
	}
	return true, nil
}

func scanSubject(row interface{ Scan(...any) error }) (*models.Subject, error) {
	var s models.Subject
	var target sql.NullFloat64
	var created string
	if err := row.Scan(&s.ID, &s.FullName, &s.Cabinet, &target, &created); err != nil {
		return nil, err
	}
	if target.Valid {
		v := target.Float64
		s.TargetMark = &v
	}
	t, err := parseTimestamp(created)
	if err != nil {
		return nil, err
	}
	s.CreatedAt = t
	return &s, nil
}

// GetSubject returns a subject by ID or ErrNotFound
func (db *DB) GetSubject(ctx context.Context, id string) (*models.Subject, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+subjectColumns+` FROM subjects WHERE id = ?`, id)
	s, err := scanSubject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("subject %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get subject %s: %w", id, err)
	}
	return s, nil
}

// SubjectExists reports whether a subject with id is stored
func (db *DB) SubjectExists(ctx context.Context, id string) (bool, error) {
	return db.rowExists(ctx, "subjects", id)
}

// UpsertSubject inserts or replaces a subject
func (db *DB) UpsertSubject(ctx context.Context, s *models.Subject) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO subjects (`+subjectColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			full_name = excluded.full_name,
			cabinet = excluded.cabinet,
			target_mark = excluded.target_mark
	`, s.ID, s.FullName, s.Cabinet, s.TargetMark, formatStamp(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("upsert subject %s: %w", s.ID, err)
	}
	return nil
}

// InsertSubjectIfAbsent creates the subject only when its ID is unknown and
// never touches an existing row. It reports whether a row was created.
func (db *DB) InsertSubjectIfAbsent(ctx context.Context, s *models.Subject) (bool, error) {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO subjects (`+subjectColumns+`) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, s.ID, s.FullName, s.Cabinet, s.TargetMark, formatStamp(s.CreatedAt))
	if err != nil {
		return false, fmt.Errorf("insert subject %s: %w", s.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteSubject removes a subject and its teacher links
func (db *DB) DeleteSubject(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM subject_teachers WHERE subject_id = ?`, id); err != nil {
		return fmt.Errorf("delete subject links %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM subjects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete subject %s: %w", id, err)
	}
	return tx.Commit()
}

// ListSubjects returns all subjects ordered by name
func (db *DB) ListSubjects(ctx context.Context) ([]models.Subject, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+subjectColumns+` FROM subjects ORDER BY full_name`)
	if err != nil {
		return nil, fmt.Errorf("list subjects: %w", err)
	}
	defer rows.Close()

	var out []models.Subject
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// SubjectNames maps subject ID to full name
func (db *DB) SubjectNames(ctx context.Context) (map[string]string, error) {
	subjects, err := db.ListSubjects(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(subjects))
	for _, s := range subjects {
		names[s.ID] = s.FullName
	}
	return names, nil
}

// CountSubjects returns the number of stored subjects
func (db *DB) CountSubjects(ctx context.Context) (int, error) {
	return db.count(ctx, "subjects")
}

func (db *DB) count(ctx context.Context, table string) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
