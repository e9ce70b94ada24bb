package portal

import (
	"strings"

	"golang.org/x/net/html"
)

// Parser turns a raw document into typed DTOs.
type Parser[T any] interface {
	Parse(doc *RawDocument) (T, error)
}

// ParserFunc adapts a function to Parser.
type ParserFunc[T any] func(doc *RawDocument) (T, error)

// Parse calls f(doc).
func (f ParserFunc[T]) Parse(doc *RawDocument) (T, error) { return f(doc) }

// Page parsers for each portal page.
var (
	SubjectsParser    Parser[[]SubjectDTO]     = ParserFunc[[]SubjectDTO](ParseSubjects)
	GradesParser      Parser[GradesPage]       = ParserFunc[GradesPage](ParseGrades)
	ScheduleParser    Parser[[]ScheduleDayDTO] = ParserFunc[[]ScheduleDayDTO](ParseSchedule)
	TasksParser       Parser[[]TaskDTO]        = ParserFunc[[]TaskDTO](ParseTasks)
	PerformanceParser Parser[[]TermMarkDTO]    = ParserFunc[[]TermMarkDTO](ParsePerformance)
)

// ParseSubjects reads <table class="subjects"> rows carrying
// data-subject and data-cabinet.
func ParseSubjects(doc *RawDocument) ([]SubjectDTO, error) {
	root, err := parseHTML(doc)
	if err != nil {
		return nil, err
	}
	section, err := container(root, "subjects")
	if err != nil {
		return nil, err
	}

	var rows []SubjectDTO
	for _, n := range findAll(section, byAttr("data-subject")) {
		rows = append(rows, SubjectDTO{
			Name:    attrOr(n, "data-subject", ""),
			Cabinet: attrOr(n, "data-cabinet", ""),
		})
	}
	return keepValid("subjects", rows), nil
}

// ParseGrades reads the .marks section (data-mark rows) and the .teachers
// section (data-teacher rows with a ";" separated data-subjects list).
// A page without teachers is valid.
func ParseGrades(doc *RawDocument) (GradesPage, error) {
	var page GradesPage
	root, err := parseHTML(doc)
	if err != nil {
		return page, err
	}
	marks, err := container(root, "marks")
	if err != nil {
		return page, err
	}

	for _, n := range findAll(marks, byAttr("data-mark")) {
		g := GradeDTO{
			Mark:        attrOr(n, "data-mark", ""),
			Position:    atoiOr(attrOr(n, "data-position", "0")),
			LessonIndex: atoiOr(attrOr(n, "data-lesson", "")),
			Subject:     attrOr(n, "data-subject", ""),
		}
		if d, err := parseDate(attrOr(n, "data-date", "")); err == nil {
			g.Date = d
		}
		page.Grades = append(page.Grades, g)
	}
	page.Grades = keepValid("grades", page.Grades)

	if teachers := findAll(root, byClass("teachers")); len(teachers) > 0 {
		for _, n := range findAll(teachers[0], byAttr("data-teacher")) {
			t := splitTeacherName(attrOr(n, "data-teacher", ""))
			t.Subjects = splitList(attrOr(n, "data-subjects", ""))
			page.Teachers = append(page.Teachers, t)
		}
		page.Teachers = keepValid("teachers", page.Teachers)
	}
	return page, nil
}

func splitTeacherName(full string) TeacherDTO {
	parts := strings.Fields(full)
	var t TeacherDTO
	if len(parts) > 0 {
		t.LastName = parts[0]
	}
	if len(parts) > 1 {
		t.FirstName = parts[1]
	}
	if len(parts) > 2 {
		t.Patronymic = strings.Join(parts[2:], " ")
	}
	return t
}

// ParseSchedule reads .day[data-date] blocks of .lesson[data-index] rows.
// The lesson's text content is its homework.
func ParseSchedule(doc *RawDocument) ([]ScheduleDayDTO, error) {
	root, err := parseHTML(doc)
	if err != nil {
		return nil, err
	}
	section, err := container(root, "schedule")
	if err != nil {
		return nil, err
	}

	var days []ScheduleDayDTO
	for _, dn := range findAll(section, byClass("day")) {
		var day ScheduleDayDTO
		if d, err := parseDate(attrOr(dn, "data-date", "")); err == nil {
			day.Date = d
		}
		for _, ln := range findAll(dn, byClass("lesson")) {
			day.Lessons = append(day.Lessons, lessonFromNode(ln))
		}
		day.Lessons = keepValid("lessons", day.Lessons)
		days = append(days, day)
	}
	return keepValid("schedule", days), nil
}

func lessonFromNode(n *html.Node) LessonDTO {
	return LessonDTO{
		Index:     atoiOr(attrOr(n, "data-index", "")),
		Subject:   attrOr(n, "data-subject", ""),
		Cabinet:   attrOr(n, "data-cabinet", ""),
		StartTime: attrOr(n, "data-start", ""),
		EndTime:   attrOr(n, "data-end", ""),
		Homework:  text(n),
	}
}

// ParseTasks reads .homework rows carrying data-task-id. The title comes
// from data-title and the text content is the description.
func ParseTasks(doc *RawDocument) ([]TaskDTO, error) {
	root, err := parseHTML(doc)
	if err != nil {
		return nil, err
	}
	section, err := container(root, "homework")
	if err != nil {
		return nil, err
	}

	var rows []TaskDTO
	for _, n := range findAll(section, byAttr("data-task-id")) {
		t := TaskDTO{
			ID:          attrOr(n, "data-task-id", ""),
			Title:       attrOr(n, "data-title", ""),
			Description: text(n),
			Subject:     attrOr(n, "data-subject", ""),
		}
		if d, err := parseDate(attrOr(n, "data-due", "")); err == nil {
			t.DueDate = d
		}
		rows = append(rows, t)
	}
	return keepValid("tasks", rows), nil
}

// ParsePerformance reads a .performance[data-term] table of
// data-subject/data-mark rows.
func ParsePerformance(doc *RawDocument) ([]TermMarkDTO, error) {
	root, err := parseHTML(doc)
	if err != nil {
		return nil, err
	}
	section, err := container(root, "performance")
	if err != nil {
		return nil, err
	}

	term := atoiOr(attrOr(section, "data-term", ""))
	var rows []TermMarkDTO
	for _, n := range findAll(section, byAttr("data-mark")) {
		rows = append(rows, TermMarkDTO{
			Term:    term,
			Subject: attrOr(n, "data-subject", ""),
			Mark:    attrOr(n, "data-mark", ""),
		})
	}
	return keepValid("performance", rows), nil
}
