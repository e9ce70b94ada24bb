// Package jobs implements the per-domain sync jobs. Each job fetches one
// portal page (or a fixed set of them), parses it, reconciles the rows
// against the local store and notifies about genuinely new records.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kosavsech/SchoolDiary-sub000/internal/appversion"
	"github.com/kosavsech/SchoolDiary-sub000/internal/db"
	"github.com/kosavsech/SchoolDiary-sub000/internal/events"
	"github.com/kosavsech/SchoolDiary-sub000/internal/identity"
	"github.com/kosavsech/SchoolDiary-sub000/internal/notify"
	"github.com/kosavsech/SchoolDiary-sub000/internal/portal"
	"github.com/kosavsech/SchoolDiary-sub000/internal/scheduler"
)

// Job names as registered with the scheduler
const (
	NameSubjects    = "subjects"
	NameGrades      = "grades"
	NameSchedule    = "schedule"
	NameTasks       = "tasks"
	NamePerformance = "performance"
	NameAppVersion  = "appversion"
)

// Fetcher is the remote page source (portal.Client in production).
type Fetcher interface {
	Fetch(ctx context.Context, sel portal.Selector) (*portal.RawDocument, error)
}

// Config holds job tuning
type Config struct {
	UpcomingDays     int // schedule window
	TaskTitleMaxLen  int // runes kept before the ellipsis
	BuildVersionCode int
	Now              func() time.Time
}

// DefaultConfig returns production job settings
func DefaultConfig() Config {
	return Config{UpcomingDays: 7, TaskTitleMaxLen: 20, Now: time.Now}
}

// Deps are the collaborators bound into every job at construction.
type Deps struct {
	Fetcher  Fetcher
	Store    *db.DB
	Notifier *notify.Notifier
	Events   events.Publisher

	Versions     *appversion.Checker
	VersionState *appversion.Holder

	Config Config
}

// Classify maps a job error to its outcome. Only a request timeout is
// worth retrying; everything else needs a new remote state or a user
// action first.
func Classify(err error) scheduler.Result {
	switch {
	case err == nil:
		return scheduler.Success
	case errors.Is(err, portal.ErrRequestTimeout):
		return scheduler.Retry
	case errors.Is(err, portal.ErrSocketTimeout):
		return scheduler.Failure
	case errors.Is(err, context.DeadlineExceeded):
		return scheduler.Retry
	default:
		return scheduler.Failure
	}
}

// Intervals returns the default period for each periodic job.
func Intervals() map[string]time.Duration {
	return map[string]time.Duration{
		NameSubjects:    24 * time.Hour,
		NameGrades:      6 * time.Hour,
		NameSchedule:    6 * time.Hour,
		NameTasks:       6 * time.Hour,
		NamePerformance: 24 * time.Hour,
	}
}

// RegisterAll registers every job under its name. The performance job is
// only registered when withPerformance is set.
func RegisterAll(reg *scheduler.Registry, d *Deps, withPerformance bool) {
	reg.Register(NameSubjects, func() (scheduler.Job, error) { return &SubjectsJob{base: d.base(NameSubjects)}, nil })
	reg.Register(NameGrades, func() (scheduler.Job, error) { return &GradesJob{base: d.base(NameGrades)}, nil })
	reg.Register(NameSchedule, func() (scheduler.Job, error) { return &ScheduleJob{base: d.base(NameSchedule)}, nil })
	reg.Register(NameTasks, func() (scheduler.Job, error) { return &TasksJob{base: d.base(NameTasks)}, nil })
	reg.Register(NameAppVersion, func() (scheduler.Job, error) {
		if d.Versions == nil {
			return nil, errors.New("version checker not configured")
		}
		return &AppVersionJob{base: d.base(NameAppVersion)}, nil
	})
	if withPerformance {
		reg.Register(NamePerformance, func() (scheduler.Job, error) {
			return &PerformanceJob{base: d.base(NamePerformance)}, nil
		})
	}
}

// Requests builds the work requests for registered jobs: one periodic
// request per periodic job plus a one-time startup version check.
// A missing or non-positive interval falls back to the default.
func Requests(reg *scheduler.Registry, intervals map[string]time.Duration) []scheduler.WorkRequest {
	defaults := Intervals()
	var reqs []scheduler.WorkRequest
	for _, name := range reg.Names() {
		if name == NameAppVersion {
			reqs = append(reqs, scheduler.OneTime(name, true))
			continue
		}
		every, ok := intervals[name]
		if !ok || every <= 0 {
			every = defaults[name]
		}
		if every <= 0 {
			continue
		}
		reqs = append(reqs, scheduler.Periodic(name, every, true))
	}
	return reqs
}

type state string

const (
	stateFetching    state = "fetching"
	stateParsing     state = "parsing"
	stateReconciling state = "reconciling"
	stateNotifying   state = "notifying"
)

// base carries what every job needs
type base struct {
	name string
	d    *Deps
}

func (d *Deps) base(name string) base {
	return base{name: name, d: d}
}

func (b base) state(s state, attrs ...any) {
	slog.Debug("job state", append([]any{"job", b.name, "state", s}, attrs...)...)
}

func (b base) now() time.Time {
	if b.d.Config.Now != nil {
		return b.d.Config.Now()
	}
	return time.Now()
}

// today is the local calendar date at midnight UTC, the form dates take
// when parsed from the portal.
func (b base) today() time.Time {
	y, m, d := b.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (b base) fetch(ctx context.Context, sel portal.Selector) (*portal.RawDocument, error) {
	b.state(stateFetching, "page", sel.String())
	if b.d.Fetcher == nil {
		return nil, portal.ErrNotLoggedIn
	}
	doc, err := b.d.Fetcher.Fetch(ctx, sel)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", sel, err)
	}
	return doc, nil
}

func (b base) fail(err error) scheduler.Report {
	return scheduler.Report{Result: Classify(err), Err: err}
}

func (b base) publish(e events.Event) {
	if b.d.Events == nil {
		return
	}
	e.Job = b.name
	b.d.Events.Publish(e)
}

// skip records a single-item failure. The batch continues.
func (b base) skip(entity events.EntityType, label, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	slog.Warn("item skipped", "job", b.name, "entity", entity, "item", label, "reason", msg)
	b.publish(events.Event{Kind: events.KindItemSkipped, Entity: entity, Label: label, Message: msg})
}

func (b base) announce(entity events.EntityType, id, label string) {
	b.publish(events.Event{Kind: events.KindItemNew, Entity: entity, EntityID: id, Label: label})
}

// subjectResolver resolves subject names to stored subject IDs, caching
// lookups for one run.
type subjectResolver struct {
	store *db.DB
	cache map[string]bool
}

func newSubjectResolver(store *db.DB) *subjectResolver {
	return &subjectResolver{store: store, cache: make(map[string]bool)}
}

// resolve returns the subject ID for name and whether it exists locally.
func (r *subjectResolver) resolve(ctx context.Context, name string) (string, bool, error) {
	id := identity.SubjectID(name)
	if ok, cached := r.cache[id]; cached {
		return id, ok, nil
	}
	ok, err := r.store.SubjectExists(ctx, id)
	if err != nil {
		return id, false, err
	}
	r.cache[id] = ok
	return id, ok, nil
}

func (b base) notifier() *notify.Notifier {
	return b.d.Notifier
}

// notifyBatch sends one summary and one item notification per entry.
// It returns how many notifications the sink accepted.
func (b base) notifyBatch(ctx context.Context, ch notify.Channel, summary notify.Content, items []itemNote) int {
	n := b.notifier()
	if n == nil || len(items) == 0 {
		return 0
	}
	b.state(stateNotifying, "items", len(items))
	if !n.Allowed() {
		return 0
	}
	sent := 0
	if n.DeliverSummary(ctx, ch.ID, ch, summary) {
		sent++
	}
	for _, it := range items {
		if n.Deliver(ctx, it.id, ch, it.content) {
			sent++
		}
	}
	return sent
}

type itemNote struct {
	id      string
	content notify.Content
}
