package portal

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// DateLayout is how the portal renders calendar dates.
const DateLayout = "02.01.2006"

var validate = validator.New(validator.WithRequiredStructEnabled())

// SubjectDTO is a row of the subjects page
type SubjectDTO struct {
	Name    string `validate:"required,max=200"`
	Cabinet string `validate:"max=50"`
}

// GradeDTO is a mark from the recent grades page. Subject is the
// subject's display name and still needs resolving.
type GradeDTO struct {
	Mark        string    `validate:"required,max=8"`
	Date        time.Time `validate:"required"`
	Position    int       `validate:"min=0"`
	LessonIndex int       `validate:"min=0,max=20"`
	Subject     string    `validate:"required"`
}

// TeacherDTO is a teacher listed on the recent grades page with the
// names of the subjects they teach.
type TeacherDTO struct {
	LastName   string   `validate:"required"`
	FirstName  string
	Patronymic string
	Subjects   []string `validate:"dive,required"`
}

// GradesPage is the combined "recent grades with teachers" page
type GradesPage struct {
	Grades   []GradeDTO
	Teachers []TeacherDTO
}

// LessonDTO is one slot in a schedule day
type LessonDTO struct {
	Index     int    `validate:"min=0,max=20"`
	Subject   string `validate:"required"`
	Cabinet   string `validate:"max=50"`
	StartTime string `validate:"omitempty,datetime=15:04"`
	EndTime   string `validate:"omitempty,datetime=15:04"`
	Homework  string
}

// ScheduleDayDTO is one day of the schedule page
type ScheduleDayDTO struct {
	Date    time.Time   `validate:"required"`
	Lessons []LessonDTO `validate:"dive"`
}

// TaskDTO is a homework assignment
type TaskDTO struct {
	ID          string    `validate:"required,max=64"`
	Title       string    `validate:"required"`
	Description string
	DueDate     time.Time `validate:"required"`
	Subject     string    `validate:"required"`
}

// TermMarkDTO is a subject's final mark for a term
type TermMarkDTO struct {
	Term    int    `validate:"min=1,max=4"`
	Subject string `validate:"required"`
	Mark    string `validate:"required,max=8"`
}

// Validate checks a DTO's struct tags
func Validate(v any) error {
	return validate.Struct(v)
}

// keepValid validates each row, dropping and logging invalid ones.
func keepValid[T any](page string, rows []T) []T {
	out := rows[:0]
	for i, r := range rows {
		if err := validate.Struct(r); err != nil {
			slog.Warn("portal row dropped", "page", page, "row", i, "err", err)
			continue
		}
		out = append(out, r)
	}
	return out
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, err)
	}
	return t, nil
}

// atoiOr parses s or returns -1 so validation rejects the row.
func atoiOr(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return -1
	}
	return n
}

// splitList splits a "a; b; c" attribute, dropping empty parts.
func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ";") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
