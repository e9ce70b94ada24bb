// Package dateparse turns user date input into calendar days for the
// schedule and task commands.
package dateparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kosavsech/SchoolDiary-sub000/internal/models"
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday, "воскресенье": time.Sunday, "вс": time.Sunday,
	"monday": time.Monday, "mon": time.Monday, "понедельник": time.Monday, "пн": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "вторник": time.Tuesday, "вт": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday, "среда": time.Wednesday, "ср": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "четверг": time.Thursday, "чт": time.Thursday,
	"friday": time.Friday, "fri": time.Friday, "пятница": time.Friday, "пт": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday, "суббота": time.Saturday, "сб": time.Saturday,
}

// Parse parses input relative to the current day.
func Parse(input string) (time.Time, error) {
	return ParseFrom(input, time.Now())
}

// ParseFrom parses a date relative to now and returns midnight UTC of the
// resulting calendar day.
//
// Supported formats:
//   - Portal dates: "02.09.2024"
//   - ISO dates: "2024-09-02"
//   - Keywords: "today", "tomorrow", "yesterday" (and сегодня, завтра, вчера)
//   - Relative days and weeks: "+3d", "-1d", "+2w"
//   - Day names: "monday", "пн" (the next such day, today included)
func ParseFrom(input string, now time.Time) (time.Time, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	if input == "" {
		return time.Time{}, fmt.Errorf("empty date input")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	for _, layout := range []string{models.DateLayout, "2006-01-02"} {
		if t, err := time.Parse(layout, input); err == nil {
			return t, nil
		}
	}

	switch input {
	case "today", "сегодня":
		return today, nil
	case "tomorrow", "завтра":
		return today.AddDate(0, 0, 1), nil
	case "yesterday", "вчера":
		return today.AddDate(0, 0, -1), nil
	}

	if len(input) >= 3 && (input[0] == '+' || input[0] == '-') {
		n, err := strconv.Atoi(input[1 : len(input)-1])
		if err == nil && n >= 0 {
			if input[0] == '-' {
				n = -n
			}
			switch input[len(input)-1] {
			case 'd':
				return today.AddDate(0, 0, n), nil
			case 'w':
				return today.AddDate(0, 0, 7*n), nil
			default:
				return time.Time{}, fmt.Errorf("unknown relative unit %q in %q (use d or w)", input[len(input)-1:], input)
			}
		}
	}

	if target, ok := weekdays[input]; ok {
		ahead := (int(target) - int(today.Weekday()) + 7) % 7
		return today.AddDate(0, 0, ahead), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized date format: %q", input)
}

// Range returns days consecutive calendar days starting at from.
func Range(from time.Time, days int) []time.Time {
	out := make([]time.Time, 0, max(days, 0))
	for i := range days {
		out = append(out, from.AddDate(0, 0, i))
	}
	return out
}
