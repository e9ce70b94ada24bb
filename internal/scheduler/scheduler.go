package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrNotStarted is returned by Enqueue before Start or after Stop.
var ErrNotStarted = errors.New("scheduler not running")

// Config holds scheduler tuning.
type Config struct {
	Backoff      Backoff
	Connectivity Connectivity
	PollInterval time.Duration // how often to recheck connectivity while offline
}

// DefaultConfig returns production settings.
func DefaultConfig() Config {
	return Config{
		Backoff:      DefaultBackoff(),
		Connectivity: AlwaysOnline,
		PollInterval: 15 * time.Second,
	}
}

// Scheduler keeps at most one piece of work per job name.
type Scheduler struct {
	runner *Runner
	config Config

	enqueueMu sync.Mutex // serializes replace sequences
	mu        sync.Mutex
	work      map[string]*workItem

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type workItem struct {
	req    WorkRequest
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a scheduler around runner
func New(runner *Runner, cfg Config) *Scheduler {
	if cfg.Connectivity == nil {
		cfg.Connectivity = AlwaysOnline
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	return &Scheduler{runner: runner, config: cfg, work: make(map[string]*workItem)}
}

// Start binds the scheduler to ctx. Work is cancelled when ctx ends.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx, s.cancel = context.WithCancel(ctx)
}

// Enqueue schedules req. With the Replace policy, running work of the same
// name is cancelled and awaited before req starts.
func (s *Scheduler) Enqueue(req WorkRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	s.enqueueMu.Lock()
	defer s.enqueueMu.Unlock()

	s.mu.Lock()
	if s.ctx == nil || s.ctx.Err() != nil {
		s.mu.Unlock()
		return ErrNotStarted
	}
	old := s.work[req.JobName]
	if old != nil && req.Policy == Keep {
		s.mu.Unlock()
		slog.Debug("work kept", "job", req.JobName)
		return nil
	}
	s.mu.Unlock()

	if old != nil {
		old.cancel()
		<-old.done
		slog.Debug("work replaced", "job", req.JobName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return ErrNotStarted
	}
	ctx, cancel := context.WithCancel(s.ctx)
	item := &workItem{req: req, cancel: cancel, done: make(chan struct{})}
	s.work[req.JobName] = item

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(item.done)
		defer s.forget(item)
		s.loop(ctx, req)
	}()
	return nil
}

// Cancel stops work for name, if any, and waits for it to exit.
func (s *Scheduler) Cancel(name string) {
	s.mu.Lock()
	item := s.work[name]
	s.mu.Unlock()
	if item == nil {
		return
	}
	item.cancel()
	<-item.done
}

// Pending returns names of work currently scheduled or running.
func (s *Scheduler) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.work))
	for n := range s.work {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Stop cancels all work and waits for every loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Scheduler) forget(item *workItem) {
	item.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.work[item.req.JobName] == item {
		delete(s.work, item.req.JobName)
	}
}

func (s *Scheduler) loop(ctx context.Context, req WorkRequest) {
	policy := s.config.Backoff.Policy()
	attempt := 0
	for {
		if req.RequiresNetwork && !s.waitOnline(ctx, req.JobName) {
			return
		}

		rep := s.runner.Run(ctx, Payload{JobName: req.JobName})
		if ctx.Err() != nil {
			// Replaced or shut down; the outcome of a cancelled run is moot.
			return
		}

		var wait time.Duration
		if rep.Result == Retry {
			attempt++
			wait = policy.NextBackOff()
			if wait == backoff.Stop {
				slog.Warn("retries exhausted", "job", req.JobName, "attempts", attempt-1)
				if !req.Periodic {
					return
				}
				policy.Reset()
				attempt = 0
				wait = req.Interval
			} else {
				slog.Debug("retry scheduled", "job", req.JobName, "attempt", attempt, "in", wait)
			}
		} else {
			policy.Reset()
			attempt = 0
			if !req.Periodic {
				return
			}
			wait = req.Interval
		}

		if !sleep(ctx, wait) {
			return
		}
	}
}

var errOffline = errors.New("offline")

// waitOnline blocks until connectivity is reported or ctx ends.
func (s *Scheduler) waitOnline(ctx context.Context, name string) bool {
	logged := false
	poll := backoff.WithContext(backoff.NewConstantBackOff(s.config.PollInterval), ctx)
	err := backoff.Retry(func() error {
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if s.config.Connectivity.Online(ctx) {
			return nil
		}
		if !logged {
			slog.Info("waiting for network", "job", name)
			logged = true
		}
		return errOffline
	}, poll)
	return err == nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
