package models

import (
	"strings"
	"time"
)

// DateLayout is the portal's and the CLI's calendar date format.
const DateLayout = "02.01.2006"

// Subject is a school subject. Sync only ever creates subjects.
type Subject struct {
	ID         string    `json:"id"`
	FullName   string    `json:"full_name"`
	Cabinet    string    `json:"cabinet,omitempty"`
	TargetMark *float64  `json:"target_mark,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Teacher is identified by the normalized "last first patronymic" triple
type Teacher struct {
	ID         string `json:"id"`
	LastName   string `json:"last_name"`
	FirstName  string `json:"first_name"`
	Patronymic string `json:"patronymic,omitempty"`
}

// FullName joins the non-empty name parts
func (t Teacher) FullName() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{t.LastName, t.FirstName, t.Patronymic} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// SubjectTeacher links a subject to a teacher
type SubjectTeacher struct {
	SubjectID string `json:"subject_id"`
	TeacherID string `json:"teacher_id"`
}

// Grade is a single mark. Its ID is the (date, position, lesson index) tuple.
type Grade struct {
	ID          string    `json:"id"`
	Mark        string    `json:"mark"`
	Date        time.Time `json:"date"`
	Position    int       `json:"position"`
	LessonIndex int       `json:"lesson_index"`
	SubjectID   string    `json:"subject_id"`
	SyncedAt    time.Time `json:"synced_at"`
}

// StudyDay is a calendar date that has lessons
type StudyDay struct {
	ID   string    `json:"id"`
	Date time.Time `json:"date"`
}

// Lesson is one slot of a study day
type Lesson struct {
	ID         string `json:"id"`
	StudyDayID string `json:"study_day_id"`
	Index      int    `json:"index"`
	SubjectID  string `json:"subject_id"`
	Cabinet    string `json:"cabinet,omitempty"`
	StartTime  string `json:"start_time,omitempty"` // HH:MM
	EndTime    string `json:"end_time,omitempty"`
	Homework   string `json:"homework,omitempty"`
	Removed    bool   `json:"removed,omitempty"` // slot no longer in the remote schedule
}

// SameContent reports whether two lessons differ only in identity fields
func (l Lesson) SameContent(o Lesson) bool {
	return l.Index == o.Index &&
		l.SubjectID == o.SubjectID &&
		l.Cabinet == o.Cabinet &&
		l.StartTime == o.StartTime &&
		l.EndTime == o.EndTime &&
		l.Homework == o.Homework
}

// ScheduleChange keeps the lessons a day had before a sync changed it
type ScheduleChange struct {
	StudyDayID string    `json:"study_day_id"`
	Date       time.Time `json:"date"`
	Previous   []Lesson  `json:"previous"`
	ChangedAt  time.Time `json:"changed_at"`
}

// Task is a homework assignment keyed by the portal's own ID
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     time.Time `json:"due_date"`
	SubjectID   string    `json:"subject_id"`
	Done        bool      `json:"done,omitempty"`
}

// TermMark is the final mark for one subject in one term
type TermMark struct {
	ID        string `json:"id"`
	SubjectID string `json:"subject_id"`
	Term      int    `json:"term"`
	Mark      string `json:"mark"`
}

// JobRun is one recorded execution of a sync job
type JobRun struct {
	ID         string    `json:"id"`
	JobName    string    `json:"job_name"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Outcome    string    `json:"outcome"`
	NewItems   int       `json:"new_items"`
	Skipped    int       `json:"skipped"`
	Error      string    `json:"error,omitempty"`
}

// Duration of the run
func (r JobRun) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
