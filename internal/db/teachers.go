package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kosavsech/SchoolDiary-sub000/internal/models"
)

// GetTeacher returns a teacher by ID or ErrNotFound
func (db *DB) GetTeacher(ctx context.Context, id string) (*models.Teacher, error) {
	var t models.Teacher
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, last_name, first_name, patronymic FROM teachers WHERE id = ?`, id,
	).Scan(&t.ID, &t.LastName, &t.FirstName, &t.Patronymic)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("teacher %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get teacher %s: %w", id, err)
	}
	return &t, nil
}

// TeacherExists reports whether a teacher with id is stored
func (db *DB) TeacherExists(ctx context.Context, id string) (bool, error) {
	return db.rowExists(ctx, "teachers", id)
}

// UpsertTeacher inserts or replaces a teacher
func (db *DB) UpsertTeacher(ctx context.Context, t *models.Teacher) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO teachers (id, last_name, first_name, patronymic) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_name = excluded.last_name,
			first_name = excluded.first_name,
			patronymic = excluded.patronymic
	`, t.ID, t.LastName, t.FirstName, t.Patronymic)
	if err != nil {
		return fmt.Errorf("upsert teacher %s: %w", t.ID, err)
	}
	return nil
}

// DeleteTeacher removes a teacher and its subject links
func (db *DB) DeleteTeacher(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM subject_teachers WHERE teacher_id = ?`, id); err != nil {
		return fmt.Errorf("delete teacher links %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM teachers WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete teacher %s: %w", id, err)
	}
	return tx.Commit()
}

// LinkSubjectTeacher records a subject/teacher pair. Linking twice is a no-op.
func (db *DB) LinkSubjectTeacher(ctx context.Context, link models.SubjectTeacher) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO subject_teachers (subject_id, teacher_id) VALUES (?, ?)`,
		link.SubjectID, link.TeacherID)
	if err != nil {
		return fmt.Errorf("link subject %s teacher %s: %w", link.SubjectID, link.TeacherID, err)
	}
	return nil
}

// TeachersForSubject lists teachers linked to a subject
func (db *DB) TeachersForSubject(ctx context.Context, subjectID string) ([]models.Teacher, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT t.id, t.last_name, t.first_name, t.patronymic
		FROM teachers t
		JOIN subject_teachers st ON st.teacher_id = t.id
		WHERE st.subject_id = ?
		ORDER BY t.last_name, t.first_name
	`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("teachers for %s: %w", subjectID, err)
	}
	defer rows.Close()

	var out []models.Teacher
	for rows.Next() {
		var t models.Teacher
		if err := rows.Scan(&t.ID, &t.LastName, &t.FirstName, &t.Patronymic); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CountTeachers returns the number of stored teachers
func (db *DB) CountTeachers(ctx context.Context) (int, error) {
	return db.count(ctx, "teachers")
}

// CountSubjectTeachers returns the number of subject/teacher links
func (db *DB) CountSubjectTeachers(ctx context.Context) (int, error) {
	return db.count(ctx, "subject_teachers")
}
