package jobs

import (
	"context"
	"fmt"
	"strings"

	"github.com/kosavsech/SchoolDiary-sub000/internal/events"
	"github.com/kosavsech/SchoolDiary-sub000/internal/identity"
	"github.com/kosavsech/SchoolDiary-sub000/internal/models"
	"github.com/kosavsech/SchoolDiary-sub000/internal/notify"
	"github.com/kosavsech/SchoolDiary-sub000/internal/portal"
	"github.com/kosavsech/SchoolDiary-sub000/internal/reconcile"
	"github.com/kosavsech/SchoolDiary-sub000/internal/scheduler"
)

// ScheduleJob syncs the upcoming days of the schedule. Days are compared
// by content, not existence: a known day whose lessons changed is
// reported as different and its previous lessons are kept for comparison.
type ScheduleJob struct {
	base
}

// dayResult is the outcome for one fetched day
type dayResult struct {
	day     *models.StudyDay
	status  reconcile.DayStatus
	skipped int
}

func (j *ScheduleJob) Run(ctx context.Context) scheduler.Report {
	days := j.d.Config.UpcomingDays
	if days <= 0 {
		days = DefaultConfig().UpcomingDays
	}
	doc, err := j.fetch(ctx, portal.Selector{Page: portal.PageSchedule, Date: j.today(), Days: days})
	if err != nil {
		return j.fail(err)
	}

	j.state(stateParsing)
	fetched, err := portal.ScheduleParser.Parse(doc)
	if err != nil {
		return j.fail(err)
	}

	j.state(stateReconciling, "days", len(fetched))
	subjects := newSubjectResolver(j.d.Store)
	var changed []dayResult
	skipped := 0
	for _, day := range fetched {
		res, err := j.syncDay(ctx, day, subjects)
		if err != nil {
			return j.fail(err)
		}
		skipped += res.skipped
		if res.status != reconcile.DayUnchanged {
			changed = append(changed, res)
		}
	}

	notes := make([]itemNote, 0, len(changed))
	for _, c := range changed {
		compare := c.status == reconcile.DayDifferent
		body := "Новое расписание"
		if compare {
			body = "Расписание изменилось"
		}
		notes = append(notes, itemNote{id: c.day.ID, content: notify.Content{
			Title:    "Расписание на " + c.day.Date.Format(models.DateLayout),
			Body:     body,
			DeepLink: notify.ScheduleLink(c.day.Date, compare),
		}})
	}
	j.notifyBatch(ctx, notify.ChannelSchedule, notify.Content{
		Title: "Расписание",
		Body:  fmt.Sprintf("Обновлено дней: %d", len(notes)),
	}, notes)

	return scheduler.Succeeded(len(changed), skipped)
}

// syncDay classifies and applies one fetched day. Lessons whose subject
// cannot be resolved are skipped and excluded from the comparison, so a
// missing subject does not make the day look changed.
func (j *ScheduleJob) syncDay(ctx context.Context, dto portal.ScheduleDayDTO, subjects *subjectResolver) (dayResult, error) {
	day := &models.StudyDay{ID: identity.StudyDayID(dto.Date), Date: dto.Date}
	res := dayResult{day: day}

	existed, err := j.d.Store.StudyDayExists(ctx, day.ID)
	if err != nil {
		return res, err
	}
	stored, err := j.d.Store.LessonsForDay(ctx, day.ID)
	if err != nil {
		return res, err
	}

	var lessons []models.Lesson
	seen := make(map[int]bool)
	unresolved := make(map[int]bool)
	for _, l := range dto.Lessons {
		if seen[l.Index] {
			continue
		}
		seen[l.Index] = true

		label := fmt.Sprintf("%s #%d %s", dto.Date.Format(models.DateLayout), l.Index, strings.TrimSpace(l.Subject))
		subjectID, ok, err := subjects.resolve(ctx, l.Subject)
		if err != nil {
			return res, err
		}
		if !ok {
			res.skipped++
			unresolved[l.Index] = true
			j.skip(events.EntityLessons, label, "subject %q not found", strings.TrimSpace(l.Subject))
			continue
		}
		lessons = append(lessons, models.Lesson{
			ID:         identity.LessonID(dto.Date, l.Index),
			StudyDayID: day.ID,
			Index:      l.Index,
			SubjectID:  subjectID,
			Cabinet:    strings.TrimSpace(l.Cabinet),
			StartTime:  l.StartTime,
			EndTime:    l.EndTime,
			Homework:   strings.TrimSpace(l.Homework),
		})
	}

	known := stored[:0:0]
	for _, l := range stored {
		if !unresolved[l.Index] {
			known = append(known, l)
		}
	}
	res.status = reconcile.DiffDay(existed, known, lessons, func(l models.Lesson) int { return l.Index })
	if res.status == reconcile.DayUnchanged {
		return res, nil
	}

	if res.status == reconcile.DayDifferent {
		if err := j.d.Store.SaveScheduleChange(ctx, &models.ScheduleChange{
			StudyDayID: day.ID,
			Date:       day.Date,
			Previous:   stored,
			ChangedAt:  j.now(),
		}); err != nil {
			return res, err
		}
	}

	if err := j.d.Store.UpsertStudyDay(ctx, day); err != nil {
		return res, err
	}
	keep := make([]string, 0, len(seen))
	for idx := range seen {
		keep = append(keep, identity.LessonID(dto.Date, idx))
	}
	for i := range lessons {
		if err := j.d.Store.UpsertLesson(ctx, &lessons[i]); err != nil {
			return res, err
		}
	}
	if _, err := j.d.Store.MarkLessonsRemoved(ctx, day.ID, keep); err != nil {
		return res, err
	}

	j.publish(events.Event{
		Kind:     events.KindDayChanged,
		Entity:   events.EntityStudyDays,
		EntityID: day.ID,
		Label:    day.Date.Format(models.DateLayout),
		Data:     map[string]any{"status": res.status.String(), "lessons": len(lessons)},
	})
	return res, nil
}
