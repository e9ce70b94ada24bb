package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kosavsech/SchoolDiary-sub000/internal/events"
	"github.com/kosavsech/SchoolDiary-sub000/internal/filelock"
	"github.com/kosavsech/SchoolDiary-sub000/internal/models"
)

// ErrJobRunning is returned when another process holds the job's lock.
var ErrJobRunning = errors.New("job already running")

// RunRecorder persists job run history.
type RunRecorder interface {
	RecordJobRun(ctx context.Context, r *models.JobRun) error
}

// Runner is the delegating entry point: it resolves a payload's job by
// name, executes it under a per-job file lock and records the outcome.
type Runner struct {
	Registry *Registry
	Recorder RunRecorder      // optional
	LockDir  string           // empty disables cross-process locking
	Events   events.Publisher // optional
	Now      func() time.Time
}

// NewRunner creates a runner with no recorder, no locks and no events.
func NewRunner(reg *Registry) *Runner {
	return &Runner{Registry: reg, Events: events.Discard, Now: time.Now}
}

// Run executes the job named in p. An unknown name or a construction
// failure yields Failure without running anything.
func (r *Runner) Run(ctx context.Context, p Payload) Report {
	job, err := r.Registry.Resolve(p.JobName)
	if err != nil {
		slog.Error("resolve job", "job", p.JobName, "err", err)
		return Report{Result: Failure, Err: err}
	}

	if r.LockDir != "" {
		lock := filelock.New(filepath.Join(r.LockDir, p.JobName+".lock"))
		if err := lock.TryLock(); err != nil {
			if errors.Is(err, filelock.ErrHeld) {
				slog.Info("job locked elsewhere", "job", p.JobName, "holder", err)
				return Report{Result: Retry, Err: fmt.Errorf("%w: %s", ErrJobRunning, p.JobName)}
			}
			return Report{Result: Failure, Err: err}
		}
		defer lock.Release()
	}

	run := &models.JobRun{ID: uuid.NewString(), JobName: p.JobName, StartedAt: r.now()}
	r.publish(events.Event{Kind: events.KindJobStarted, Job: p.JobName, EntityID: run.ID})
	slog.Debug("job started", "job", p.JobName, "run", run.ID)

	rep := r.execute(ctx, p.JobName, job)

	run.FinishedAt = r.now()
	run.Outcome = rep.Result.String()
	run.NewItems = rep.New
	run.Skipped = rep.Skipped
	if rep.Err != nil {
		run.Error = rep.Err.Error()
	}

	attrs := []any{"job", p.JobName, "run", run.ID, "result", run.Outcome,
		"new", rep.New, "skipped", rep.Skipped, "took", run.Duration()}
	switch rep.Result {
	case Success:
		slog.Info("job finished", attrs...)
	case Retry:
		slog.Warn("job will retry", append(attrs, "err", rep.Err)...)
	default:
		slog.Error("job failed", append(attrs, "err", rep.Err)...)
	}

	if r.Recorder != nil {
		// Recording uses a fresh context so cancelled runs still land in history.
		recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		if err := r.Recorder.RecordJobRun(recCtx, run); err != nil {
			slog.Warn("record job run", "job", p.JobName, "err", err)
		}
		cancel()
	}

	r.publish(events.Event{
		Kind:     events.KindJobFinished,
		Job:      p.JobName,
		EntityID: run.ID,
		Message:  run.Error,
		Data: map[string]any{
			"result":  run.Outcome,
			"new":     rep.New,
			"skipped": rep.Skipped,
		},
	})
	return rep
}

func (r *Runner) execute(ctx context.Context, name string, job Job) (rep Report) {
	defer func() {
		if v := recover(); v != nil {
			slog.Error("job panicked", "job", name, "panic", v)
			rep = Report{Result: Failure, Err: fmt.Errorf("job %s panicked: %v", name, v)}
		}
	}()
	return job.Run(ctx)
}

func (r *Runner) publish(e events.Event) {
	if r.Events != nil {
		r.Events.Publish(e)
	}
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
