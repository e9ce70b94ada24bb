package output

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/kosavsech/SchoolDiary-sub000/internal/models"
)

const (
	defaultMarkdownWidth = 80
	minMarkdownWidth     = 20
)

// TerminalWidth returns the stdout width, $COLUMNS, or fallback.
func TerminalWidth(fallback int) int {
	if fallback <= 0 {
		fallback = defaultMarkdownWidth
	}
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 0 {
		return cols
	}
	return fallback
}

// IsTerminal reports whether stdout is a terminal
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// RenderMarkdown renders markdown wrapped to the terminal width.
func RenderMarkdown(text string) (string, error) {
	return RenderMarkdownWithWidth(text, TerminalWidth(defaultMarkdownWidth))
}

// RenderMarkdownWithWidth renders markdown using Glamour with explicit wrapping.
func RenderMarkdownWithWidth(text string, width int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	width = max(width, minMarkdownWidth)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	rendered, err := renderer.Render(text)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(rendered, "\n"), nil
}

// ComparisonMarkdown builds a markdown table with the lessons a day had
// before its last change next to the ones it has now.
func ComparisonMarkdown(date time.Time, previous, current []models.Lesson, names map[string]string) string {
	rows := make(map[int][2]string)
	var indices []int
	add := func(l models.Lesson, col int) {
		r, ok := rows[l.Index]
		if !ok {
			indices = append(indices, l.Index)
		}
		r[col] = lessonCell(l, names)
		rows[l.Index] = r
	}
	for _, l := range previous {
		add(l, 0)
	}
	for _, l := range current {
		add(l, 1)
	}
	slices.Sort(indices)

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s\n\n", FormatDate(date))
	sb.WriteString("| # | Было | Стало |\n|---|---|---|\n")
	for _, i := range indices {
		r := rows[i]
		before, after := r[0], r[1]
		if before != after && after != "" {
			after = "**" + after + "**"
		}
		if before != "" && after == "" {
			before = "~~" + before + "~~"
		}
		fmt.Fprintf(&sb, "| %d | %s | %s |\n", i, orDash(before), orDash(after))
	}
	return sb.String()
}

func lessonCell(l models.Lesson, names map[string]string) string {
	name := names[l.SubjectID]
	if name == "" {
		name = l.SubjectID
	}
	if l.Cabinet != "" {
		name += " (" + l.Cabinet + ")"
	}
	return strings.ReplaceAll(name, "|", "/")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
