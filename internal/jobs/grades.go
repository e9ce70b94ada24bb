package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kosavsech/SchoolDiary-sub000/internal/events"
	"github.com/kosavsech/SchoolDiary-sub000/internal/identity"
	"github.com/kosavsech/SchoolDiary-sub000/internal/models"
	"github.com/kosavsech/SchoolDiary-sub000/internal/notify"
	"github.com/kosavsech/SchoolDiary-sub000/internal/portal"
	"github.com/kosavsech/SchoolDiary-sub000/internal/reconcile"
	"github.com/kosavsech/SchoolDiary-sub000/internal/scheduler"
)

// GradesJob syncs the recent grades page and the teachers listed on it.
type GradesJob struct {
	base
}

// teacherInserter creates teachers only when absent
type teacherInserter struct{ j *GradesJob }

func (t teacherInserter) Exists(ctx context.Context, id string) (bool, error) {
	return t.j.d.Store.TeacherExists(ctx, id)
}

func (t teacherInserter) Insert(ctx context.Context, teacher *models.Teacher) error {
	return t.j.d.Store.UpsertTeacher(ctx, teacher)
}

func (j *GradesJob) Run(ctx context.Context) scheduler.Report {
	doc, err := j.fetch(ctx, portal.Selector{Page: portal.PageGrades})
	if err != nil {
		return j.fail(err)
	}

	j.state(stateParsing)
	page, err := portal.GradesParser.Parse(doc)
	if err != nil {
		return j.fail(err)
	}

	j.state(stateReconciling, "grades", len(page.Grades), "teachers", len(page.Teachers))
	subjects := newSubjectResolver(j.d.Store)
	subjectNames := make(map[string]string)
	now := j.now()
	skipped := 0

	items := make([]reconcile.Item[*models.Grade], 0, len(page.Grades))
	for _, g := range page.Grades {
		label := fmt.Sprintf("%s %s %s", strings.TrimSpace(g.Subject), g.Mark, g.Date.Format(models.DateLayout))
		subjectID, ok, err := subjects.resolve(ctx, g.Subject)
		if err != nil {
			return j.fail(err)
		}
		if !ok {
			skipped++
			j.skip(events.EntityGrades, label, "subject %q not found", strings.TrimSpace(g.Subject))
			continue
		}
		subjectNames[subjectID] = strings.TrimSpace(g.Subject)

		id := identity.GradeID(g.Date, g.Position, g.LessonIndex)
		items = append(items, reconcile.Item[*models.Grade]{
			ID:    id,
			Label: label,
			Value: &models.Grade{
				ID:          id,
				Mark:        strings.TrimSpace(g.Mark),
				Date:        g.Date,
				Position:    g.Position,
				LessonIndex: g.LessonIndex,
				SubjectID:   subjectID,
				SyncedAt:    now,
			},
		})
	}
	items = reconcile.Dedupe(items)

	res, err := reconcile.Reconcile(ctx, reconcile.StoreFuncs[*models.Grade]{
		ExistsFunc: j.d.Store.GradeExists,
		UpsertFunc: j.d.Store.UpsertGrade,
	}, items)
	if err != nil {
		return j.fail(err)
	}
	for _, it := range res.New {
		j.announce(events.EntityGrades, it.ID, it.Label)
	}

	newTeachers, linkSkips, err := j.syncTeachers(ctx, page.Teachers, subjects)
	if err != nil {
		return j.fail(err)
	}
	skipped += linkSkips

	notes := make([]itemNote, 0, len(res.New))
	for _, it := range res.New {
		g := it.Value
		notes = append(notes, itemNote{id: it.ID, content: notify.Content{
			Title:    subjectNames[g.SubjectID],
			Body:     fmt.Sprintf("Оценка %s за %s", g.Mark, g.Date.Format(models.DateLayout)),
			DeepLink: notify.GradeLink(g.ID),
		}})
	}
	j.notifyBatch(ctx, notify.ChannelGrades, notify.Content{
		Title: "Новые оценки",
		Body:  fmt.Sprintf("Новых оценок: %d", len(notes)),
	}, notes)

	return scheduler.Succeeded(len(res.New)+newTeachers, skipped)
}

// syncTeachers creates missing teachers, then links each to the subjects
// it teaches. A link whose subject is unknown is skipped; the teacher is
// kept.
func (j *GradesJob) syncTeachers(ctx context.Context, rows []portal.TeacherDTO, subjects *subjectResolver) (int, int, error) {
	if len(rows) == 0 {
		return 0, 0, nil
	}

	items := make([]reconcile.Item[*models.Teacher], 0, len(rows))
	links := make(map[string][]string, len(rows))
	for _, r := range rows {
		t := &models.Teacher{
			ID:         identity.TeacherID(r.LastName, r.FirstName, r.Patronymic),
			LastName:   strings.TrimSpace(r.LastName),
			FirstName:  strings.TrimSpace(r.FirstName),
			Patronymic: strings.TrimSpace(r.Patronymic),
		}
		items = append(items, reconcile.Item[*models.Teacher]{ID: t.ID, Label: t.FullName(), Value: t})
		links[t.ID] = append(links[t.ID], r.Subjects...)
	}
	items = reconcile.Dedupe(items)

	res, err := reconcile.InsertMissing(ctx, teacherInserter{j}, items)
	if err != nil {
		return len(res.New), 0, err
	}
	for _, it := range res.New {
		j.announce(events.EntityTeachers, it.ID, it.Label)
	}

	skipped := 0
	for _, it := range items {
		for _, name := range links[it.ID] {
			label := fmt.Sprintf("%s / %s", it.Label, name)
			subjectID, ok, err := subjects.resolve(ctx, name)
			if err != nil {
				return len(res.New), skipped, err
			}
			if !ok {
				skipped++
				j.skip(events.EntitySubjectTeachers, label, "subject %q not found", name)
				continue
			}
			link := models.SubjectTeacher{SubjectID: subjectID, TeacherID: it.ID}
			if err := j.d.Store.LinkSubjectTeacher(ctx, link); err != nil {
				skipped++
				slog.Warn("link teacher", "teacher", it.Label, "subject", name, "err", err)
				continue
			}
		}
	}
	return len(res.New), skipped, nil
}
