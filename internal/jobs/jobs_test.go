package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kosavsech/SchoolDiary-sub000/internal/appversion"
	"github.com/kosavsech/SchoolDiary-sub000/internal/db"
	"github.com/kosavsech/SchoolDiary-sub000/internal/events"
	"github.com/kosavsech/SchoolDiary-sub000/internal/identity"
	"github.com/kosavsech/SchoolDiary-sub000/internal/notify"
	"github.com/kosavsech/SchoolDiary-sub000/internal/portal"
	"github.com/kosavsech/SchoolDiary-sub000/internal/scheduler"
)

const (
	pathSubjects    = "/journal/subjects"
	pathGrades      = "/journal/marks/recent"
	pathSchedule    = "/journal/schedule"
	pathTasks       = "/journal/homework"
	pathPerformance = "/journal/performance"
)

func marks(rows ...string) string {
	body := `<html><body><div class="marks">`
	for _, r := range rows {
		body += r
	}
	return body + `</div></body></html>`
}

func mark(value, date string, lesson, position int, subject string) string {
	return fmt.Sprintf(`<span data-mark=%q data-date=%q data-lesson="%d" data-position="%d" data-subject=%q></span>`,
		value, date, lesson, position, subject)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want scheduler.Result
	}{
		{"nil", nil, scheduler.Success},
		{"request timeout", fmt.Errorf("fetch: %w", portal.ErrRequestTimeout), scheduler.Retry},
		{"deadline", context.DeadlineExceeded, scheduler.Retry},
		{"socket timeout", fmt.Errorf("fetch: %w", portal.ErrSocketTimeout), scheduler.Failure},
		{"unauthorized", portal.ErrUnauthorized, scheduler.Failure},
		{"not logged in", portal.ErrNotLoggedIn, scheduler.Failure},
		{"http 404", &portal.StatusError{Code: 404}, scheduler.Failure},
		{"malformed url", portal.ErrMalformedURL, scheduler.Failure},
		{"content type", portal.ErrUnexpectedContentType, scheduler.Failure},
		{"parse", portal.ErrMalformedDocument, scheduler.Failure},
		{"io", errors.New("disk I/O error"), scheduler.Failure},
		{"canceled", context.Canceled, scheduler.Failure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}

func TestGradesNewThenIdempotent(t *testing.T) {
	h := newHarness(t)
	h.seedSubjects("Математика")
	h.set(pathGrades, marks(
		mark("5", "02.09.2024", 1, 0, "Математика"),
		mark("4", "02.09.2024", 2, 0, "Математика"),
	))

	rep := h.mustSucceed(NameGrades)
	if rep.New != 2 {
		t.Errorf("New = %d, want 2", rep.New)
	}
	if n := count(t, h.store.CountGrades); n != 2 {
		t.Errorf("grades = %d, want 2", n)
	}
	if s := h.sink.Summaries(); len(s) != 1 || s[0].ChannelID != notify.ChannelGrades.ID {
		t.Errorf("summaries = %+v", s)
	}
	items := h.sink.Items()
	if len(items) != 2 {
		t.Fatalf("item notifications = %d, want 2", len(items))
	}
	wantID := identity.GradeID(date(2, 9, 2024), 0, 1)
	if items[0].ItemID != wantID || items[0].DeepLink != notify.GradeLink(wantID) {
		t.Errorf("item 0 = %+v", items[0])
	}
	if items[0].Title != "Математика" {
		t.Errorf("item title = %q", items[0].Title)
	}

	// Same remote state again
	rep = h.mustSucceed(NameGrades)
	if rep.New != 0 {
		t.Errorf("second run New = %d, want 0", rep.New)
	}
	if n := count(t, h.store.CountGrades); n != 2 {
		t.Errorf("grades after rerun = %d, want 2", n)
	}
	if got := len(h.sink.Sent()); got != 3 {
		t.Errorf("notifications after rerun = %d, want 3", got)
	}
}

func TestGradesExistingWithNewValueNotNew(t *testing.T) {
	h := newHarness(t)
	h.seedSubjects("Математика")
	h.set(pathGrades, marks(mark("3", "02.09.2024", 1, 0, "Математика")))
	h.mustSucceed(NameGrades)

	h.set(pathGrades, marks(mark("5", "02.09.2024", 1, 0, "Математика")))
	rep := h.mustSucceed(NameGrades)
	if rep.New != 0 {
		t.Errorf("New = %d, want 0 for a changed mark", rep.New)
	}
	g, err := h.store.GetGrade(context.Background(), identity.GradeID(date(2, 9, 2024), 0, 1))
	if err != nil {
		t.Fatal(err)
	}
	if g.Mark != "5" {
		t.Errorf("mark = %q, want remote value 5", g.Mark)
	}
}

func TestGradesPartialFailureIsolation(t *testing.T) {
	h := newHarness(t)
	h.seedSubjects("Математика", "Химия")
	h.set(pathGrades, marks(
		mark("5", "02.09.2024", 1, 0, "Математика"),
		mark("4", "02.09.2024", 2, 0, "Астрономия"),
		mark("3", "02.09.2024", 3, 0, "Химия"),
	))

	rep := h.mustSucceed(NameGrades)
	if rep.New != 2 || rep.Skipped != 1 {
		t.Errorf("report = %+v", rep)
	}
	if n := count(t, h.store.CountGrades); n != 2 {
		t.Errorf("grades = %d, want 2", n)
	}
	for _, lesson := range []int{1, 3} {
		if _, err := h.store.GetGrade(context.Background(), identity.GradeID(date(2, 9, 2024), 0, lesson)); err != nil {
			t.Errorf("grade for lesson %d: %v", lesson, err)
		}
	}

	skipped := kinds(h.drain(), events.KindItemSkipped)
	if len(skipped) != 1 || skipped[0].Entity != events.EntityGrades || skipped[0].Job != NameGrades {
		t.Fatalf("skipped events = %+v", skipped)
	}
	if want := "Астрономия 4 02.09.2024"; skipped[0].Label != want {
		t.Errorf("label = %q, want %q", skipped[0].Label, want)
	}
}

func TestGradesTeacherWithUnknownSubject(t *testing.T) {
	h := newHarness(t)
	h.seedSubjects("Математика")
	h.set(pathGrades, `<html><body>
		<div class="marks">`+
		mark("5", "02.09.2024", 1, 0, "Математика")+
		mark("4", "03.09.2024", 1, 0, "Математика")+`
		</div>
		<div class="teachers">
			<div data-teacher="Иванов И.И." data-subjects="Физика"></div>
			<div data-teacher="Петрова Анна Сергеевна" data-subjects="Математика"></div>
		</div>
	</body></html>`)

	rep := h.mustSucceed(NameGrades)
	if rep.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", rep.Skipped)
	}
	if n := count(t, h.store.CountTeachers); n != 2 {
		t.Errorf("teachers = %d, want 2", n)
	}
	if n := count(t, h.store.CountSubjectTeachers); n != 1 {
		t.Errorf("links = %d, want 1", n)
	}
	if n := count(t, h.store.CountGrades); n != 2 {
		t.Errorf("grades = %d, want 2", n)
	}
	if _, err := h.store.GetTeacher(context.Background(), identity.TeacherID("Иванов", "И.И.", "")); err != nil {
		t.Errorf("teacher not created: %v", err)
	}

	skipped := kinds(h.drain(), events.KindItemSkipped)
	if len(skipped) != 1 || skipped[0].Entity != events.EntitySubjectTeachers {
		t.Errorf("skipped = %+v", skipped)
	}

	// Teachers are created once
	if rep := h.mustSucceed(NameGrades); rep.New != 0 {
		t.Errorf("rerun New = %d", rep.New)
	}
	if n := count(t, h.store.CountTeachers); n != 2 {
		t.Errorf("teachers after rerun = %d", n)
	}
}

func TestPermissionGating(t *testing.T) {
	body := marks(
		mark("5", "02.09.2024", 1, 0, "Математика"),
		mark("4", "02.09.2024", 2, 0, "Математика"),
	)

	granted := newHarness(t)
	granted.seedSubjects("Математика")
	granted.set(pathGrades, body)
	granted.mustSucceed(NameGrades)

	denied := newHarness(t)
	denied.allow.Store(false)
	denied.seedSubjects("Математика")
	denied.set(pathGrades, body)
	rep := denied.mustSucceed(NameGrades)
	if rep.New != 2 {
		t.Errorf("denied New = %d, want 2", rep.New)
	}

	ctx := context.Background()
	a, _ := granted.store.ListGrades(ctx, db.ListGradesOptions{})
	b, _ := denied.store.ListGrades(ctx, db.ListGradesOptions{})
	if len(a) != len(b) || len(a) != 2 {
		t.Fatalf("grades granted=%d denied=%d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID || a[i].Mark != b[i].Mark {
			t.Errorf("row %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
	if got := len(granted.sink.Sent()); got != 3 {
		t.Errorf("granted notifications = %d, want 3", got)
	}
	if got := len(denied.sink.Sent()); got != 0 {
		t.Errorf("denied notifications = %d, want 0", got)
	}
}

func TestFetchTimeoutRetriesWithoutWrites(t *testing.T) {
	h := newHarness(t)
	h.seedSubjects("Математика")
	h.client.Timeout = 30 * time.Millisecond
	h.setPage(pathGrades, page{
		body:  marks(mark("5", "02.09.2024", 1, 0, "Математика")),
		delay: 2 * time.Second,
	})

	rep := h.run(NameGrades)
	if rep.Result != scheduler.Retry {
		t.Fatalf("result = %s (%v), want retry", rep.Result, rep.Err)
	}
	if !errors.Is(rep.Err, portal.ErrRequestTimeout) {
		t.Errorf("err = %v", rep.Err)
	}
	if n := count(t, h.store.CountGrades); n != 0 {
		t.Errorf("grades = %d, want 0", n)
	}
}

func TestHTTPErrorsFail(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"not found", http.StatusNotFound, nil},
		{"server error", http.StatusInternalServerError, nil},
		{"unauthorized", http.StatusUnauthorized, portal.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.setPage(pathTasks, page{status: tt.status})
			rep := h.run(NameTasks)
			if rep.Result != scheduler.Failure {
				t.Fatalf("result = %s, want failure", rep.Result)
			}
			if tt.want != nil && !errors.Is(rep.Err, tt.want) {
				t.Errorf("err = %v, want %v", rep.Err, tt.want)
			}
			var se *portal.StatusError
			if tt.want == nil && (!errors.As(rep.Err, &se) || se.Code != tt.status) {
				t.Errorf("err = %v, want status %d", rep.Err, tt.status)
			}
		})
	}
}

func TestNotLoggedInFails(t *testing.T) {
	h := newHarness(t)
	h.client.SessionID = ""
	rep := h.run(NameSubjects)
	if rep.Result != scheduler.Failure || !errors.Is(rep.Err, portal.ErrNotLoggedIn) {
		t.Errorf("report = %+v", rep)
	}
}

func TestMalformedPageFails(t *testing.T) {
	h := newHarness(t)
	h.set(pathSubjects, `<html><body><p>Технические работы</p></body></html>`)
	rep := h.run(NameSubjects)
	if rep.Result != scheduler.Failure || !errors.Is(rep.Err, portal.ErrMalformedDocument) {
		t.Errorf("report = %+v", rep)
	}
}

func TestSubjectsAppendOnly(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedSubjects("Химия")
	chem, err := h.store.GetSubject(ctx, identity.SubjectID("Химия"))
	if err != nil {
		t.Fatal(err)
	}
	chem.Cabinet = "101"
	if err := h.store.UpsertSubject(ctx, chem); err != nil {
		t.Fatal(err)
	}

	h.set(pathSubjects, `<html><body><table class="subjects">
		<tr data-subject="  химия " data-cabinet="999"><td></td></tr>
		<tr data-subject="Математика" data-cabinet="204"><td></td></tr>
		<tr data-subject="Математика" data-cabinet="204"><td></td></tr>
	</table></body></html>`)

	rep := h.mustSucceed(NameSubjects)
	if rep.New != 1 {
		t.Errorf("New = %d, want 1", rep.New)
	}
	if n := count(t, h.store.CountSubjects); n != 2 {
		t.Errorf("subjects = %d, want 2", n)
	}
	got, err := h.store.GetSubject(ctx, identity.SubjectID("Химия"))
	if err != nil {
		t.Fatal(err)
	}
	if got.Cabinet != "101" || got.FullName != "Химия" {
		t.Errorf("existing subject modified: %+v", got)
	}

	if rep := h.mustSucceed(NameSubjects); rep.New != 0 {
		t.Errorf("rerun New = %d", rep.New)
	}
	if n := count(t, h.store.CountSubjects); n != 2 {
		t.Errorf("subjects after rerun = %d", n)
	}
	if len(h.sink.Sent()) != 0 {
		t.Error("subjects job should not notify")
	}
}

const scheduleV1 = `<html><body><div class="schedule">
	<div class="day" data-date="02.09.2024">
		<div class="lesson" data-index="1" data-subject="Математика" data-cabinet="204" data-start="08:30" data-end="09:15">№ 1</div>
		<div class="lesson" data-index="2" data-subject="Химия" data-cabinet="301" data-start="09:25" data-end="10:10"></div>
	</div>
	<div class="day" data-date="03.09.2024">
		<div class="lesson" data-index="1" data-subject="Химия" data-cabinet="301"></div>
	</div>
</div></body></html>`

const scheduleV2 = `<html><body><div class="schedule">
	<div class="day" data-date="02.09.2024">
		<div class="lesson" data-index="1" data-subject="Математика" data-cabinet="305" data-start="08:30" data-end="09:15">№ 1</div>
	</div>
	<div class="day" data-date="03.09.2024">
		<div class="lesson" data-index="1" data-subject="Химия" data-cabinet="301"></div>
	</div>
</div></body></html>`

func TestScheduleNewUnchangedDifferent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedSubjects("Математика", "Химия")
	d1, d2 := date(2, 9, 2024), date(3, 9, 2024)

	h.set(pathSchedule, scheduleV1)
	rep := h.mustSucceed(NameSchedule)
	if rep.New != 2 {
		t.Errorf("first run New = %d, want 2 days", rep.New)
	}
	if n := count(t, h.store.CountLessons); n != 3 {
		t.Errorf("lessons = %d, want 3", n)
	}
	items := h.sink.Items()
	if len(items) != 2 || items[0].ItemID != identity.StudyDayID(d1) {
		t.Fatalf("items = %+v", items)
	}
	if items[0].DeepLink != notify.ScheduleLink(d1, false) {
		t.Errorf("new day link = %q", items[0].DeepLink)
	}

	rep = h.mustSucceed(NameSchedule)
	if rep.New != 0 {
		t.Errorf("unchanged run New = %d", rep.New)
	}
	if got := len(h.sink.Sent()); got != 3 {
		t.Errorf("notifications after unchanged run = %d, want 3", got)
	}

	h.set(pathSchedule, scheduleV2)
	rep = h.mustSucceed(NameSchedule)
	if rep.New != 1 {
		t.Errorf("changed run New = %d, want 1", rep.New)
	}
	items = h.sink.Items()
	last := items[len(items)-1]
	if last.ItemID != identity.StudyDayID(d1) || last.DeepLink != notify.ScheduleLink(d1, true) {
		t.Errorf("changed day notification = %+v", last)
	}
	link, err := notify.ParseDeepLink(last.DeepLink)
	if err != nil || !link.Compare || !link.Date.Equal(d1) {
		t.Errorf("ParseDeepLink = %+v, %v", link, err)
	}

	lessons, err := h.store.LessonsForDay(ctx, identity.StudyDayID(d1))
	if err != nil {
		t.Fatal(err)
	}
	if len(lessons) != 1 || lessons[0].Cabinet != "305" {
		t.Errorf("lessons after change = %+v", lessons)
	}
	change, err := h.store.GetScheduleChange(ctx, identity.StudyDayID(d1))
	if err != nil {
		t.Fatal(err)
	}
	if len(change.Previous) != 2 || change.Previous[0].Cabinet != "204" {
		t.Errorf("previous lessons = %+v", change.Previous)
	}
	if _, err := h.store.GetScheduleChange(ctx, identity.StudyDayID(d2)); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("unchanged day has a snapshot: %v", err)
	}

	changed := kinds(h.drain(), events.KindDayChanged)
	if len(changed) != 3 || changed[2].Data["status"] != "different" {
		t.Errorf("day_changed events = %+v", changed)
	}
}

func TestScheduleKeepsVanishedLessonRows(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedSubjects("Математика", "Химия")
	d1 := date(2, 9, 2024)
	slot2 := identity.LessonID(d1, 2)

	h.set(pathSchedule, scheduleV1)
	h.mustSucceed(NameSchedule)
	h.set(pathSchedule, scheduleV2)
	h.mustSucceed(NameSchedule)

	gone, err := h.store.GetLesson(ctx, slot2)
	if err != nil {
		t.Fatalf("sync deleted vanished lesson: %v", err)
	}
	if !gone.Removed || gone.Cabinet != "301" {
		t.Errorf("vanished lesson = %+v", gone)
	}
	if n := count(t, h.store.CountLessons); n != 2 {
		t.Errorf("live lessons = %d, want 2", n)
	}

	h.set(pathSchedule, scheduleV1)
	if rep := h.mustSucceed(NameSchedule); rep.New != 1 {
		t.Errorf("restored day New = %d, want 1", rep.New)
	}
	back, err := h.store.GetLesson(ctx, slot2)
	if err != nil {
		t.Fatal(err)
	}
	if back.Removed {
		t.Error("restored lesson still marked removed")
	}
	if n := count(t, h.store.CountLessons); n != 3 {
		t.Errorf("live lessons = %d, want 3", n)
	}
}

func TestScheduleUnresolvedLessonIsolated(t *testing.T) {
	h := newHarness(t)
	h.seedSubjects("Математика")
	h.set(pathSchedule, `<html><body><div class="schedule">
		<div class="day" data-date="02.09.2024">
			<div class="lesson" data-index="1" data-subject="Математика"></div>
			<div class="lesson" data-index="2" data-subject="Физика"></div>
		</div>
	</div></body></html>`)

	rep := h.mustSucceed(NameSchedule)
	if rep.New != 1 || rep.Skipped != 1 {
		t.Errorf("report = %+v", rep)
	}
	if n := count(t, h.store.CountLessons); n != 1 {
		t.Errorf("lessons = %d, want 1", n)
	}

	rep = h.mustSucceed(NameSchedule)
	if rep.New != 0 {
		t.Errorf("rerun marked day changed: %+v", rep)
	}
}

func TestTaskTitle(t *testing.T) {
	due := date(10, 9, 2024)
	tests := []struct {
		title string
		max   int
		want  string
	}{
		{"Эссе", 20, "Эссе (до 10.09.2024)"},
		{"Сочинение по литературе на тему осени", 20, "Сочинение по литерат… (до 10.09.2024)"},
		{"abcde fghij", 6, "abcde… (до 10.09.2024)"},
		{"  nineteen-rune-title ", 19, "nineteen-rune-title (до 10.09.2024)"},
	}
	for _, tt := range tests {
		if got := TaskTitle(tt.title, due, tt.max); got != tt.want {
			t.Errorf("TaskTitle(%q, %d) = %q, want %q", tt.title, tt.max, got, tt.want)
		}
	}
}

func TestTasksNotifications(t *testing.T) {
	h := newHarness(t)
	h.seedSubjects("Литература")
	h.set(pathTasks, `<html><body><div class="homework">
		<div data-task-id="hw-7" data-title="Сочинение по литературе на тему осени" data-subject="Литература" data-due="10.09.2024">Тема: осень</div>
		<div data-task-id="hw-8" data-title="Стихотворение" data-subject="Музыка" data-due="11.09.2024"></div>
	</div></body></html>`)

	rep := h.mustSucceed(NameTasks)
	if rep.New != 1 || rep.Skipped != 1 {
		t.Errorf("report = %+v", rep)
	}
	items := h.sink.Items()
	if len(items) != 1 {
		t.Fatalf("items = %+v", items)
	}
	if items[0].ItemID != "hw-7" || items[0].Title != "Сочинение по литерат… (до 10.09.2024)" {
		t.Errorf("item = %+v", items[0])
	}
	if items[0].DeepLink != notify.TaskLink("hw-7") || items[0].Body != "Тема: осень" {
		t.Errorf("item = %+v", items[0])
	}

	ctx := context.Background()
	if err := h.store.SetTaskDone(ctx, "hw-7", true); err != nil {
		t.Fatal(err)
	}
	if rep := h.mustSucceed(NameTasks); rep.New != 0 {
		t.Errorf("rerun New = %d", rep.New)
	}
	task, err := h.store.GetTask(ctx, "hw-7")
	if err != nil {
		t.Fatal(err)
	}
	if !task.Done {
		t.Error("sync cleared the done flag")
	}
}

func performancePage(term int, rows ...string) string {
	body := fmt.Sprintf(`<html><body><table class="performance" data-term="%d">`, term)
	for _, r := range rows {
		body += r
	}
	return body + `</table></body></html>`
}

func TestPerformanceAllTerms(t *testing.T) {
	h := newHarness(t)
	h.seedSubjects("Математика")
	for term := 1; term <= Terms; term++ {
		h.set(fmt.Sprintf("%s?term=%d", pathPerformance, term), performancePage(term,
			`<tr data-subject="Математика" data-mark="5"></tr>`,
			`<tr data-subject="Черчение" data-mark="4"></tr>`,
		))
	}

	rep := h.mustSucceed(NamePerformance)
	if rep.New != Terms || rep.Skipped != Terms {
		t.Errorf("report = %+v", rep)
	}
	marks, err := h.store.ListTermMarks(context.Background(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(marks) != 1 || marks[0].ID != identity.TermMarkID(identity.SubjectID("Математика"), 3) {
		t.Errorf("term 3 marks = %+v", marks)
	}
	if rep := h.mustSucceed(NamePerformance); rep.New != 0 {
		t.Errorf("rerun New = %d", rep.New)
	}
}

func TestPerformanceOneTermFailsNoWrites(t *testing.T) {
	h := newHarness(t)
	h.seedSubjects("Математика")
	for term := 1; term <= Terms; term++ {
		key := fmt.Sprintf("%s?term=%d", pathPerformance, term)
		if term == 3 {
			h.setPage(key, page{status: http.StatusBadGateway})
			continue
		}
		h.set(key, performancePage(term, `<tr data-subject="Математика" data-mark="5"></tr>`))
	}

	rep := h.run(NamePerformance)
	if rep.Result != scheduler.Failure {
		t.Fatalf("result = %s", rep.Result)
	}
	var se *portal.StatusError
	if !errors.As(rep.Err, &se) || se.Code != http.StatusBadGateway {
		t.Errorf("err = %v", rep.Err)
	}
	if n := count(t, h.store.CountTermMarks); n != 0 {
		t.Errorf("term marks = %d, want 0", n)
	}
}

func TestAppVersionJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(appversion.Release{VersionCode: 12, VersionName: "1.2.0", Critical: true, URL: "https://example.test/dl"})
	}))
	defer srv.Close()

	h := newHarness(t)
	h.deps.Versions = appversion.NewChecker(srv.URL)
	h.deps.VersionState = appversion.NewHolder()
	h.deps.Config.BuildVersionCode = 10

	h.mustSucceed(NameAppVersion)
	st, ok := h.deps.VersionState.Current()
	if !ok || st.State != appversion.MustUpdate || st.RemoteName != "1.2.0" {
		t.Errorf("state = %+v, %v", st, ok)
	}
	ev := kinds(h.drain(), events.KindVersion)
	if len(ev) != 1 || ev[0].Data["state"] != "must_update" {
		t.Errorf("version events = %+v", ev)
	}
}

func TestAppVersionNotFoundSucceeds(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	h := newHarness(t)
	h.deps.Versions = appversion.NewChecker(srv.URL)
	h.deps.VersionState = appversion.NewHolder()
	h.deps.Config.BuildVersionCode = 10

	h.mustSucceed(NameAppVersion)
	if st, _ := h.deps.VersionState.Current(); st.State != appversion.NotFound {
		t.Errorf("state = %s", st.State)
	}
}

func TestAppVersionWithoutChecker(t *testing.T) {
	h := newHarness(t)
	if _, err := h.reg.Resolve(NameAppVersion); err == nil {
		t.Error("expected construction error without a checker")
	}
}

func TestRequests(t *testing.T) {
	reg := scheduler.NewRegistry()
	RegisterAll(reg, &Deps{}, false)

	reqs := Requests(reg, map[string]time.Duration{NameGrades: time.Hour})
	byName := make(map[string]scheduler.WorkRequest)
	for _, r := range reqs {
		byName[r.JobName] = r
		if !r.RequiresNetwork {
			t.Errorf("%s does not require network", r.JobName)
		}
	}
	if len(reqs) != 5 {
		t.Fatalf("requests = %d, want 5", len(reqs))
	}
	if _, ok := byName[NamePerformance]; ok {
		t.Error("performance registered without the feature")
	}
	if r := byName[NameAppVersion]; r.Periodic {
		t.Error("appversion should be one-time")
	}
	if r := byName[NameGrades]; !r.Periodic || r.Interval != time.Hour {
		t.Errorf("grades = %+v", r)
	}
	if r := byName[NameSubjects]; r.Interval != 24*time.Hour {
		t.Errorf("subjects = %+v", r)
	}
}

func TestRunnerRecordsJobRun(t *testing.T) {
	h := newHarness(t)
	h.seedSubjects("Математика")
	h.set(pathGrades, marks(mark("5", "02.09.2024", 1, 0, "Математика")))

	r := scheduler.NewRunner(h.reg)
	r.Recorder = h.store
	r.LockDir = t.TempDir()
	rep := r.Run(context.Background(), scheduler.Payload{JobName: NameGrades})
	if rep.Result != scheduler.Success {
		t.Fatalf("report = %+v", rep)
	}

	runs, err := h.store.JobRunsTail(context.Background(), NameGrades, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Outcome != "success" || runs[0].NewItems != 1 {
		t.Errorf("runs = %+v", runs)
	}
}
