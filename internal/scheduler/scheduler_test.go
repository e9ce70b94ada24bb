package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kosavsech/SchoolDiary-sub000/internal/events"
	"github.com/kosavsech/SchoolDiary-sub000/internal/models"
)

type memRecorder struct {
	mu   sync.Mutex
	runs []models.JobRun
}

func (m *memRecorder) RecordJobRun(_ context.Context, r *models.JobRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, *r)
	return nil
}

func (m *memRecorder) snapshot() []models.JobRun {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.JobRun(nil), m.runs...)
}

func fixed(j Job) Factory {
	return func() (Job, error) { return j, nil }
}

func testConfig() Config {
	return Config{
		Backoff:      Backoff{Initial: 5 * time.Millisecond, Max: 20 * time.Millisecond, MaxAttempts: 3},
		Connectivity: AlwaysOnline,
		PollInterval: 5 * time.Millisecond,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestResultString(t *testing.T) {
	tests := map[Result]string{Success: "success", Retry: "retry", Failure: "failure"}
	for r, want := range tests {
		if got := r.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", r, got, want)
		}
	}
}

func TestRegistryPanicsOnDuplicate(t *testing.T) {
	reg := NewRegistry()
	reg.Register("a", fixed(JobFunc(func(context.Context) Report { return Succeeded(0, 0) })))

	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	reg.Register("a", fixed(JobFunc(func(context.Context) Report { return Succeeded(0, 0) })))
}

func TestRegistryPanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on nil factory")
		}
	}()
	NewRegistry().Register("a", nil)
}

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry()
	reg.Register("b", fixed(JobFunc(func(context.Context) Report { return Succeeded(1, 0) })))
	reg.Register("a", func() (Job, error) { return nil, errors.New("no session") })

	if got := reg.Names(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Names() = %v", got)
	}
	if !reg.IsRegistered("b") || reg.IsRegistered("c") {
		t.Error("IsRegistered mismatch")
	}
	if _, err := reg.Resolve("c"); !errors.Is(err, ErrJobNotRegistered) {
		t.Errorf("Resolve(c) err = %v, want ErrJobNotRegistered", err)
	}
	if _, err := reg.Resolve("a"); err == nil || !strings.Contains(err.Error(), "no session") {
		t.Errorf("Resolve(a) err = %v", err)
	}
	job, err := reg.Resolve("b")
	if err != nil {
		t.Fatal(err)
	}
	if rep := job.Run(context.Background()); rep.New != 1 {
		t.Errorf("New = %d, want 1", rep.New)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	data, err := Payload{JobName: "grades"}.Encode()
	if err != nil {
		t.Fatal(err)
	}
	p, err := DecodePayload(data)
	if err != nil {
		t.Fatal(err)
	}
	if p.JobName != "grades" {
		t.Errorf("JobName = %q", p.JobName)
	}
	if _, err := DecodePayload([]byte(`{"job_name":" "}`)); err == nil {
		t.Error("expected error for blank job name")
	}
}

func TestBackoffDelay(t *testing.T) {
	b := DefaultBackoff()
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 30 * time.Second},
		{1, 30 * time.Second},
		{2, time.Minute},
		{3, 2 * time.Minute},
		{10, 4*time.Hour + 16*time.Minute},
		{11, 5 * time.Hour},
		{100, 5 * time.Hour},
	}
	for _, tt := range tests {
		if got := b.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoffPolicyBudget(t *testing.T) {
	b := DefaultBackoff()
	p := b.Policy()
	var last time.Duration
	for i := 1; i <= b.MaxAttempts; i++ {
		d := p.NextBackOff()
		if d == backoff.Stop {
			t.Fatalf("retry %d: stopped early", i)
		}
		if d != b.Delay(i) {
			t.Errorf("retry %d: got %v, want %v", i, d, b.Delay(i))
		}
		last = d
	}
	if last != 4*time.Hour+16*time.Minute {
		t.Errorf("longest wait = %v, want 4h16m", last)
	}
	if d := p.NextBackOff(); d != backoff.Stop {
		t.Errorf("retry %d: got %v, want Stop", b.MaxAttempts+1, d)
	}

	p.Reset()
	if d := p.NextBackOff(); d != 30*time.Second {
		t.Errorf("after Reset got %v, want 30s", d)
	}
}

func TestBackoffPolicyUnlimited(t *testing.T) {
	p := Backoff{Initial: time.Second, Max: 4 * time.Second}.Policy()
	for i := 0; i < 50; i++ {
		if d := p.NextBackOff(); d == backoff.Stop || d > 4*time.Second {
			t.Fatalf("retry %d: got %v", i+1, d)
		}
	}
}

func TestWorkRequestValidate(t *testing.T) {
	if err := (WorkRequest{}).Validate(); err == nil {
		t.Error("empty name should fail")
	}
	if err := (WorkRequest{JobName: "x", Periodic: true}).Validate(); err == nil {
		t.Error("periodic without interval should fail")
	}
	if err := Periodic("x", time.Hour, true).Validate(); err != nil {
		t.Errorf("valid periodic: %v", err)
	}
}

func TestRunnerRecordsAndPublishes(t *testing.T) {
	reg := NewRegistry()
	reg.Register("grades", fixed(JobFunc(func(context.Context) Report { return Succeeded(3, 1) })))

	rec := &memRecorder{}
	bus := events.NewBus()
	ch, cancel := bus.Subscribe(8)
	defer cancel()

	r := NewRunner(reg)
	r.Recorder = rec
	r.Events = bus

	rep := r.Run(context.Background(), Payload{JobName: "grades"})
	if rep.Result != Success || rep.New != 3 || rep.Skipped != 1 {
		t.Fatalf("report = %+v", rep)
	}

	runs := rec.snapshot()
	if len(runs) != 1 {
		t.Fatalf("recorded %d runs, want 1", len(runs))
	}
	if runs[0].Outcome != "success" || runs[0].NewItems != 3 || runs[0].Skipped != 1 || runs[0].ID == "" {
		t.Errorf("run = %+v", runs[0])
	}

	first, second := <-ch, <-ch
	if first.Kind != events.KindJobStarted || second.Kind != events.KindJobFinished {
		t.Errorf("kinds = %s, %s", first.Kind, second.Kind)
	}
	if second.Data["result"] != "success" {
		t.Errorf("finished data = %v", second.Data)
	}
}

func TestRunnerUnknownJob(t *testing.T) {
	rec := &memRecorder{}
	r := NewRunner(NewRegistry())
	r.Recorder = rec

	rep := r.Run(context.Background(), Payload{JobName: "missing"})
	if rep.Result != Failure || !errors.Is(rep.Err, ErrJobNotRegistered) {
		t.Errorf("report = %+v", rep)
	}
	if len(rec.snapshot()) != 0 {
		t.Error("unknown job should not be recorded")
	}
}

func TestRunnerRecoversPanic(t *testing.T) {
	reg := NewRegistry()
	reg.Register("boom", fixed(JobFunc(func(context.Context) Report { panic("kaboom") })))
	rec := &memRecorder{}
	r := NewRunner(reg)
	r.Recorder = rec

	rep := r.Run(context.Background(), Payload{JobName: "boom"})
	if rep.Result != Failure || !strings.Contains(rep.Err.Error(), "kaboom") {
		t.Errorf("report = %+v", rep)
	}
	if runs := rec.snapshot(); len(runs) != 1 || runs[0].Outcome != "failure" {
		t.Errorf("runs = %+v", runs)
	}
}

func TestSchedulerOneTimeRunsOnce(t *testing.T) {
	var calls atomic.Int32
	reg := NewRegistry()
	reg.Register("subjects", fixed(JobFunc(func(context.Context) Report {
		calls.Add(1)
		return Succeeded(0, 0)
	})))

	s := New(NewRunner(reg), testConfig())
	s.Start(context.Background())
	defer s.Stop()

	if err := s.Enqueue(OneTime("subjects", false)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(s.Pending()) == 0 })
	time.Sleep(20 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestSchedulerRetriesWithBackoff(t *testing.T) {
	var calls atomic.Int32
	reg := NewRegistry()
	reg.Register("grades", fixed(JobFunc(func(context.Context) Report {
		if calls.Add(1) < 3 {
			return Report{Result: Retry, Err: errors.New("timeout")}
		}
		return Succeeded(1, 0)
	})))

	s := New(NewRunner(reg), testConfig())
	s.Start(context.Background())
	defer s.Stop()

	if err := s.Enqueue(OneTime("grades", false)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return calls.Load() == 3 && len(s.Pending()) == 0 })
}

func TestSchedulerFailureDoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	reg := NewRegistry()
	reg.Register("tasks", fixed(JobFunc(func(context.Context) Report {
		calls.Add(1)
		return Report{Result: Failure, Err: errors.New("parse")}
	})))

	s := New(NewRunner(reg), testConfig())
	s.Start(context.Background())
	defer s.Stop()

	if err := s.Enqueue(OneTime("tasks", false)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(s.Pending()) == 0 })
	time.Sleep(30 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestSchedulerRetryBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	reg := NewRegistry()
	reg.Register("grades", fixed(JobFunc(func(context.Context) Report {
		calls.Add(1)
		return Report{Result: Retry, Err: errors.New("timeout")}
	})))

	s := New(NewRunner(reg), testConfig())
	s.Start(context.Background())
	defer s.Stop()

	if err := s.Enqueue(OneTime("grades", false)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return len(s.Pending()) == 0 })
	// First run plus MaxAttempts retries.
	if got := calls.Load(); got != 4 {
		t.Errorf("calls = %d, want 4", got)
	}
}

func TestSchedulerReplaceCancelsRunning(t *testing.T) {
	var started, cancelled atomic.Int32
	reg := NewRegistry()
	reg.Register("schedule", fixed(JobFunc(func(ctx context.Context) Report {
		started.Add(1)
		<-ctx.Done()
		cancelled.Add(1)
		return Report{Result: Failure, Err: ctx.Err()}
	})))

	s := New(NewRunner(reg), testConfig())
	s.Start(context.Background())
	defer s.Stop()

	if err := s.Enqueue(OneTime("schedule", false)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return started.Load() == 1 })

	if err := s.Enqueue(OneTime("schedule", false)); err != nil {
		t.Fatal(err)
	}
	if got := cancelled.Load(); got != 1 {
		t.Errorf("cancelled = %d after replace, want 1", got)
	}
	waitFor(t, func() bool { return started.Load() == 2 })
	if got := s.Pending(); len(got) != 1 || got[0] != "schedule" {
		t.Errorf("Pending() = %v", got)
	}
}

func TestSchedulerKeepPolicy(t *testing.T) {
	var started atomic.Int32
	reg := NewRegistry()
	reg.Register("schedule", fixed(JobFunc(func(ctx context.Context) Report {
		started.Add(1)
		<-ctx.Done()
		return Report{Result: Failure, Err: ctx.Err()}
	})))

	s := New(NewRunner(reg), testConfig())
	s.Start(context.Background())
	defer s.Stop()

	if err := s.Enqueue(OneTime("schedule", false)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return started.Load() == 1 })

	keep := OneTime("schedule", false)
	keep.Policy = Keep
	if err := s.Enqueue(keep); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if got := started.Load(); got != 1 {
		t.Errorf("started = %d, want 1", got)
	}
}

func TestSchedulerPeriodic(t *testing.T) {
	var calls atomic.Int32
	reg := NewRegistry()
	reg.Register("grades", fixed(JobFunc(func(context.Context) Report {
		calls.Add(1)
		return Succeeded(0, 0)
	})))

	s := New(NewRunner(reg), testConfig())
	s.Start(context.Background())

	if err := s.Enqueue(Periodic("grades", 5*time.Millisecond, false)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return calls.Load() >= 3 })
	s.Stop()

	after := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != after {
		t.Error("periodic work kept running after Stop")
	}
}

func TestSchedulerWaitsForNetwork(t *testing.T) {
	var online atomic.Bool
	var calls atomic.Int32
	reg := NewRegistry()
	reg.Register("grades", fixed(JobFunc(func(context.Context) Report {
		calls.Add(1)
		return Succeeded(0, 0)
	})))

	cfg := testConfig()
	cfg.Connectivity = ConnectivityFunc(func(context.Context) bool { return online.Load() })
	s := New(NewRunner(reg), cfg)
	s.Start(context.Background())
	defer s.Stop()

	if err := s.Enqueue(OneTime("grades", true)); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatal("job ran while offline")
	}

	online.Store(true)
	waitFor(t, func() bool { return calls.Load() == 1 })
}

func TestSchedulerStopWhileOffline(t *testing.T) {
	var checks atomic.Int32
	reg := NewRegistry()
	reg.Register("grades", fixed(JobFunc(func(context.Context) Report {
		t.Error("job ran while offline")
		return Succeeded(0, 0)
	})))

	cfg := testConfig()
	cfg.Connectivity = ConnectivityFunc(func(context.Context) bool {
		checks.Add(1)
		return false
	})
	s := New(NewRunner(reg), cfg)
	s.Start(context.Background())

	if err := s.Enqueue(OneTime("grades", true)); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return checks.Load() >= 3 })

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop blocked while waiting for network")
	}
}

func TestSchedulerEnqueueBeforeStart(t *testing.T) {
	s := New(NewRunner(NewRegistry()), testConfig())
	if err := s.Enqueue(OneTime("x", false)); !errors.Is(err, ErrNotStarted) {
		t.Errorf("err = %v, want ErrNotStarted", err)
	}
}
