package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kosavsech/SchoolDiary-sub000/internal/models"
)

const lessonColumns = `id, study_day_id, idx, subject_id, cabinet, start_time, end_time, homework`

// removed is maintained by MarkLessonsRemoved and cleared by UpsertLesson.
const lessonSelect = `SELECT ` + lessonColumns + `, removed FROM lessons`

// GetStudyDay returns a study day by ID or ErrNotFound
func (db *DB) GetStudyDay(ctx context.Context, id string) (*models.StudyDay, error) {
	var d models.StudyDay
	var date string
	err := db.conn.QueryRowContext(ctx, `SELECT id, date FROM study_days WHERE id = ?`, id).Scan(&d.ID, &date)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("study day %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get study day %s: %w", id, err)
	}
	if d.Date, err = parseDate(date); err != nil {
		return nil, err
	}
	return &d, nil
}

// StudyDayExists reports whether a study day with id is stored
func (db *DB) StudyDayExists(ctx context.Context, id string) (bool, error) {
	return db.rowExists(ctx, "study_days", id)
}

// UpsertStudyDay inserts a study day or refreshes its date
func (db *DB) UpsertStudyDay(ctx context.Context, d *models.StudyDay) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO study_days (id, date) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET date = excluded.date
	`, d.ID, formatDate(d.Date))
	if err != nil {
		return fmt.Errorf("upsert study day %s: %w", d.ID, err)
	}
	return nil
}

// DeleteStudyDay removes a day with its lessons and change snapshot
func (db *DB) DeleteStudyDay(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM lessons WHERE study_day_id = ?`,
		`DELETE FROM schedule_changes WHERE study_day_id = ?`,
		`DELETE FROM study_days WHERE id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return fmt.Errorf("delete study day %s: %w", id, err)
		}
	}
	return tx.Commit()
}

func scanLesson(row interface{ Scan(...any) error }) (*models.Lesson, error) {
	var l models.Lesson
	if err := row.Scan(&l.ID, &l.StudyDayID, &l.Index, &l.SubjectID, &l.Cabinet, &l.StartTime, &l.EndTime, &l.Homework, &l.Removed); err != nil {
		return nil, err
	}
	return &l, nil
}

// GetLesson returns a lesson by ID or ErrNotFound. Removed lessons are
// returned with Removed set.
func (db *DB) GetLesson(ctx context.Context, id string) (*models.Lesson, error) {
	row := db.conn.QueryRowContext(ctx, lessonSelect+` WHERE id = ?`, id)
	l, err := scanLesson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lesson %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get lesson %s: %w", id, err)
	}
	return l, nil
}

// LessonsForDay returns a day's current lessons ordered by index
func (db *DB) LessonsForDay(ctx context.Context, studyDayID string) ([]models.Lesson, error) {
	rows, err := db.conn.QueryContext(ctx,
		lessonSelect+` WHERE study_day_id = ? AND removed = 0 ORDER BY idx`, studyDayID)
	if err != nil {
		return nil, fmt.Errorf("lessons for %s: %w", studyDayID, err)
	}
	defer rows.Close()

	var out []models.Lesson
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// UpsertLesson inserts or replaces a lesson and clears its removed mark
func (db *DB) UpsertLesson(ctx context.Context, l *models.Lesson) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO lessons (`+lessonColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			study_day_id = excluded.study_day_id,
			idx = excluded.idx,
			subject_id = excluded.subject_id,
			cabinet = excluded.cabinet,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			homework = excluded.homework,
			removed = 0
	`, l.ID, l.StudyDayID, l.Index, l.SubjectID, l.Cabinet, l.StartTime, l.EndTime, l.Homework)
	if err != nil {
		return fmt.Errorf("upsert lesson %s: %w", l.ID, err)
	}
	return nil
}

// DeleteLesson removes a lesson
func (db *DB) DeleteLesson(ctx context.Context, id string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM lessons WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete lesson %s: %w", id, err)
	}
	return nil
}

// MarkLessonsRemoved flags lessons of a day whose IDs are not in keep as
// removed and returns how many were newly flagged. Rows are never deleted.
func (db *DB) MarkLessonsRemoved(ctx context.Context, studyDayID string, keep []string) (int, error) {
	query := `UPDATE lessons SET removed = 1 WHERE study_day_id = ? AND removed = 0`
	args := []any{studyDayID}
	if len(keep) > 0 {
		query += ` AND id NOT IN (?` + strings.Repeat(",?", len(keep)-1) + `)`
		for _, id := range keep {
			args = append(args, id)
		}
	}
	res, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("mark lessons removed %s: %w", studyDayID, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// CountLessons returns the number of lessons not marked removed
func (db *DB) CountLessons(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM lessons WHERE removed = 0`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count lessons: %w", err)
	}
	return n, nil
}

// SaveScheduleChange stores the lessons a day had before it changed,
// replacing any earlier snapshot for that day.
func (db *DB) SaveScheduleChange(ctx context.Context, c *models.ScheduleChange) error {
	prev, err := json.Marshal(c.Previous)
	if err != nil {
		return fmt.Errorf("marshal previous lessons: %w", err)
	}
	if c.ChangedAt.IsZero() {
		c.ChangedAt = time.Now()
	}
	_, err = db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO schedule_changes (study_day_id, date, previous, changed_at)
		VALUES (?, ?, ?, ?)
	`, c.StudyDayID, formatDate(c.Date), string(prev), formatStamp(c.ChangedAt))
	if err != nil {
		return fmt.Errorf("save schedule change %s: %w", c.StudyDayID, err)
	}
	return nil
}

// GetScheduleChange returns the latest snapshot for a day or ErrNotFound
func (db *DB) GetScheduleChange(ctx context.Context, studyDayID string) (*models.ScheduleChange, error) {
	var c models.ScheduleChange
	var date, prev, changed string
	err := db.conn.QueryRowContext(ctx,
		`SELECT study_day_id, date, previous, changed_at FROM schedule_changes WHERE study_day_id = ?`, studyDayID,
	).Scan(&c.StudyDayID, &date, &prev, &changed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("schedule change %s: %w", studyDayID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get schedule change %s: %w", studyDayID, err)
	}
	if c.Date, err = parseDate(date); err != nil {
		return nil, err
	}
	if c.ChangedAt, err = parseTimestamp(changed); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(prev), &c.Previous); err != nil {
		return nil, fmt.Errorf("unmarshal previous lessons: %w", err)
	}
	return &c, nil
}
