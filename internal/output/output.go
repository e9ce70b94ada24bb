// Package output provides styled terminal output helpers for grades,
// schedules and sync runs using lipgloss.
package output

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kosavsech/SchoolDiary-sub000/internal/appversion"
	"github.com/kosavsech/SchoolDiary-sub000/internal/models"
)

var (
	// Styles
	titleStyle   = lipgloss.NewStyle().Bold(true)
	subtleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Strikethrough(true)
	markStyles   = map[string]lipgloss.Style{
		"5": lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		"4": lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		"3": lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		"2": lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
	outcomeStyles = map[string]lipgloss.Style{
		"success": successStyle,
		"retry":   warningStyle,
		"failure": errorStyle,
	}
)

// Success prints a success message
func Success(format string, args ...any) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, args...)))
}

// Error prints an error message
func Error(format string, args ...any) {
	fmt.Println(errorStyle.Render("ERROR: " + fmt.Sprintf(format, args...)))
}

// Warning prints a warning message
func Warning(format string, args ...any) {
	fmt.Println(warningStyle.Render("Warning: " + fmt.Sprintf(format, args...)))
}

// Info prints an info message
func Info(format string, args ...any) {
	fmt.Printf(format+"\n", args...)
}

// JSON outputs data as JSON
func JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

// FormatDate renders a calendar date the way the portal does
func FormatDate(t time.Time) string {
	return t.Format(models.DateLayout)
}

// FormatMark colors a mark by value. Non-numeric marks stay plain.
func FormatMark(mark string) string {
	if style, ok := markStyles[mark]; ok {
		return style.Render(mark)
	}
	return mark
}

// FormatGrade formats one grade line. subject is the display name.
func FormatGrade(g models.Grade, subject string) string {
	if subject == "" {
		subject = g.SubjectID
	}
	return fmt.Sprintf("%s  %s  %s  %s",
		subtleStyle.Render(FormatDate(g.Date)),
		FormatMark(g.Mark),
		subject,
		subtleStyle.Render(fmt.Sprintf("#%d", g.LessonIndex)))
}

// FormatLesson formats one schedule slot
func FormatLesson(l models.Lesson, subject string) string {
	if subject == "" {
		subject = l.SubjectID
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d. %s", l.Index, titleStyle.Render(subject))
	if l.StartTime != "" {
		fmt.Fprintf(&sb, "  %s-%s", l.StartTime, l.EndTime)
	}
	if l.Cabinet != "" {
		sb.WriteString(subtleStyle.Render("  каб. " + l.Cabinet))
	}
	if l.Homework != "" {
		sb.WriteString("\n   ")
		sb.WriteString(l.Homework)
	}
	return sb.String()
}

// FormatDay formats a whole study day
func FormatDay(date time.Time, lessons []models.Lesson, names map[string]string) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(FormatDate(date)))
	sb.WriteString("\n")
	if len(lessons) == 0 {
		sb.WriteString(subtleStyle.Render("  no lessons"))
		sb.WriteString("\n")
		return sb.String()
	}
	for _, l := range lessons {
		sb.WriteString(IndentString(FormatLesson(l, names[l.SubjectID]), 2))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatComparison lays the stored lessons of a day next to the lessons it
// had before the last change. Removed slots are struck through and new or
// changed slots are highlighted.
func FormatComparison(date time.Time, previous, current []models.Lesson, names map[string]string) string {
	before := make(map[int]models.Lesson, len(previous))
	for _, l := range previous {
		before[l.Index] = l
	}
	after := make(map[int]bool, len(current))

	var sb strings.Builder
	sb.WriteString(titleStyle.Render(FormatDate(date) + " (изменения)"))
	sb.WriteString("\n")
	for _, l := range current {
		after[l.Index] = true
		line := FormatLesson(l, names[l.SubjectID])
		old, existed := before[l.Index]
		switch {
		case !existed:
			line = addedStyle.Render("+ " + line)
		case !old.SameContent(l):
			line = removedStyle.Render("- "+FormatLesson(old, names[old.SubjectID])) + "\n" +
				addedStyle.Render("+ "+line)
		default:
			line = "  " + line
		}
		sb.WriteString(IndentString(line, 2))
		sb.WriteString("\n")
	}
	for _, l := range previous {
		if !after[l.Index] {
			sb.WriteString(IndentString(removedStyle.Render("- "+FormatLesson(l, names[l.SubjectID])), 2))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// FormatTask formats a task in short format
func FormatTask(t models.Task, subject string) string {
	check := "○"
	if t.Done {
		check = successStyle.Render("✓")
	}
	parts := []string{check, subtleStyle.Render(FormatDate(t.DueDate)), t.Title}
	if subject != "" {
		parts = append(parts, subtleStyle.Render(subject))
	}
	return strings.Join(parts, "  ")
}

// FormatTermMark formats one final mark
func FormatTermMark(m models.TermMark, subject string) string {
	if subject == "" {
		subject = m.SubjectID
	}
	return fmt.Sprintf("%d  %s  %s", m.Term, FormatMark(m.Mark), subject)
}

// FormatOutcome colors a job outcome
func FormatOutcome(outcome string) string {
	if style, ok := outcomeStyles[outcome]; ok {
		return style.Render(outcome)
	}
	return outcome
}

// FormatJobRun formats one sync history row
func FormatJobRun(r models.JobRun) string {
	line := fmt.Sprintf("%s  %-12s %s  new=%d skipped=%d  %s",
		subtleStyle.Render(r.StartedAt.Local().Format("2006-01-02 15:04:05")),
		r.JobName,
		FormatOutcome(r.Outcome),
		r.NewItems,
		r.Skipped,
		r.Duration().Round(time.Millisecond))
	if r.Error != "" {
		line += "\n" + IndentString(errorStyle.Render(r.Error), 4)
	}
	return line
}

// FormatVersion describes an app version status
func FormatVersion(s appversion.Status) string {
	switch s.State {
	case appversion.LatestVersion:
		return successStyle.Render(fmt.Sprintf("Up to date (%d)", s.LocalCode))
	case appversion.ShouldUpdate:
		return warningStyle.Render(fmt.Sprintf("Update available: %s (%d -> %d) %s",
			s.RemoteName, s.LocalCode, s.RemoteCode, s.UpdateURL))
	case appversion.MustUpdate:
		return errorStyle.Render(fmt.Sprintf("Critical update required: %s (%d -> %d) %s",
			s.RemoteName, s.LocalCode, s.RemoteCode, s.UpdateURL))
	case appversion.Suppressed:
		return subtleStyle.Render("Update notice suppressed")
	default:
		return subtleStyle.Render("No release information")
	}
}

// FormatTimeAgo formats a time as a human-readable "ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return FormatDate(t)
	}
}

// SectionHeader returns a formatted section header for CLI output
func SectionHeader(title string) string {
	return fmt.Sprintf("\n%s:\n", strings.ToUpper(title))
}

// IndentString indents each line in a string by the specified number of spaces
func IndentString(s string, spaces int) string {
	if s == "" {
		return ""
	}
	indent := strings.Repeat(" ", spaces)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}
