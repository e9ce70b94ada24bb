// Package identity derives stable entity IDs from natural keys.
//
// Content-addressed IDs (subjects, teachers, term marks) are a truncated
// SHA-256 over normalized fields. Slot-addressed IDs (study days, lessons,
// grades) are dotted tuples of integers so neighbouring slots never collide.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	// Separator joins normalized fields before hashing. It cannot appear in
	// normalized input because control characters are folded to spaces.
	Separator = "\x1f"

	// Width is the length in characters of every hash ID.
	Width = 32

	hashBytes = Width / 2
)

var folder = cases.Fold()

// Normalize trims a field, collapses whitespace runs to a single space,
// applies Unicode NFC and case-folds it. The result never depends on locale.
func Normalize(field string) string {
	s := norm.NFC.String(field)
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return norm.NFC.String(folder.String(b.String()))
}

// GenerateID hashes the normalized fields in order and returns a fixed
// width lowercase hex ID. Field order is significant.
func GenerateID(fields ...string) string {
	h := sha256.New()
	for i, f := range fields {
		if i > 0 {
			h.Write([]byte(Separator))
		}
		h.Write([]byte(Normalize(f)))
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:hashBytes])
}

// Tuple renders an ordered integer key as "a.b.c".
func Tuple(parts ...int64) string {
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.FormatInt(p, 10))
	}
	return b.String()
}

// EpochDay returns the number of days between 1970-01-01 and the calendar
// date of t in t's own location. The time of day is ignored.
func EpochDay(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// DateOfEpochDay is the inverse of EpochDay, returning midnight UTC.
func DateOfEpochDay(day int64) time.Time {
	return time.Unix(day*86400, 0).UTC()
}

// SubjectID identifies a subject by its full name.
func SubjectID(name string) string {
	return GenerateID(name)
}

// TeacherID identifies a teacher by the "last first patronymic" triple.
func TeacherID(last, first, patronymic string) string {
	return GenerateID(last, first, patronymic)
}

// TeacherIDFromFullName splits a space separated full name and hashes it
// the same way TeacherID does.
func TeacherIDFromFullName(fullName string) string {
	parts := strings.Fields(fullName)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return TeacherID(parts[0], parts[1], strings.Join(parts[2:], " "))
}

// StudyDayID identifies a study day by its calendar date.
func StudyDayID(date time.Time) string {
	return Tuple(EpochDay(date))
}

// LessonID identifies a lesson by its day and index within the day.
func LessonID(date time.Time, index int) string {
	return Tuple(EpochDay(date), int64(index))
}

// GradeID identifies a grade by date, position in the lesson and lesson index.
func GradeID(date time.Time, position, lessonIndex int) string {
	return Tuple(EpochDay(date), int64(position), int64(lessonIndex))
}

// TermMarkID identifies a term mark by subject and term number.
func TermMarkID(subjectID string, term int) string {
	return GenerateID(subjectID, strconv.Itoa(term))
}
