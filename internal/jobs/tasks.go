package jobs

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kosavsech/SchoolDiary-sub000/internal/events"
	"github.com/kosavsech/SchoolDiary-sub000/internal/models"
	"github.com/kosavsech/SchoolDiary-sub000/internal/notify"
	"github.com/kosavsech/SchoolDiary-sub000/internal/portal"
	"github.com/kosavsech/SchoolDiary-sub000/internal/reconcile"
	"github.com/kosavsech/SchoolDiary-sub000/internal/scheduler"
)

// Ellipsis marks a truncated task title
const Ellipsis = "…"

// TasksJob syncs upcoming homework.
type TasksJob struct {
	base
}

// TaskTitle renders a task for a notification: the title cut to maxLen
// runes with an ellipsis, followed by the due date.
func TaskTitle(title string, due time.Time, maxLen int) string {
	title = strings.TrimSpace(title)
	if maxLen > 0 && utf8.RuneCountInString(title) > maxLen {
		title = strings.TrimRight(string([]rune(title)[:maxLen]), " ") + Ellipsis
	}
	return fmt.Sprintf("%s (до %s)", title, due.Format(models.DateLayout))
}

func (j *TasksJob) Run(ctx context.Context) scheduler.Report {
	doc, err := j.fetch(ctx, portal.Selector{Page: portal.PageTasks, Date: j.today()})
	if err != nil {
		return j.fail(err)
	}

	j.state(stateParsing)
	rows, err := portal.TasksParser.Parse(doc)
	if err != nil {
		return j.fail(err)
	}

	j.state(stateReconciling, "tasks", len(rows))
	subjects := newSubjectResolver(j.d.Store)
	skipped := 0
	items := make([]reconcile.Item[*models.Task], 0, len(rows))
	for _, r := range rows {
		id := strings.TrimSpace(r.ID)
		label := strings.TrimSpace(r.Title)
		subjectID, ok, err := subjects.resolve(ctx, r.Subject)
		if err != nil {
			return j.fail(err)
		}
		if !ok {
			skipped++
			j.skip(events.EntityTasks, label, "subject %q not found", strings.TrimSpace(r.Subject))
			continue
		}
		items = append(items, reconcile.Item[*models.Task]{
			ID:    id,
			Label: label,
			Value: &models.Task{
				ID:          id,
				Title:       label,
				Description: strings.TrimSpace(r.Description),
				DueDate:     r.DueDate,
				SubjectID:   subjectID,
			},
		})
	}
	items = reconcile.Dedupe(items)

	res, err := reconcile.Reconcile(ctx, reconcile.StoreFuncs[*models.Task]{
		ExistsFunc: j.d.Store.TaskExists,
		UpsertFunc: j.d.Store.UpsertTask,
	}, items)
	if err != nil {
		return j.fail(err)
	}

	maxLen := j.d.Config.TaskTitleMaxLen
	if maxLen <= 0 {
		maxLen = DefaultConfig().TaskTitleMaxLen
	}
	notes := make([]itemNote, 0, len(res.New))
	for _, it := range res.New {
		j.announce(events.EntityTasks, it.ID, it.Label)
		t := it.Value
		notes = append(notes, itemNote{id: t.ID, content: notify.Content{
			Title:    TaskTitle(t.Title, t.DueDate, maxLen),
			Body:     t.Description,
			DeepLink: notify.TaskLink(t.ID),
		}})
	}
	j.notifyBatch(ctx, notify.ChannelTasks, notify.Content{
		Title: "Новые задания",
		Body:  fmt.Sprintf("Новых заданий: %d", len(notes)),
	}, notes)

	return scheduler.Succeeded(len(res.New), skipped)
}
