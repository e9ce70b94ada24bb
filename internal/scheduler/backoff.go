package scheduler

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Backoff configures exponential retry delays.
type Backoff struct {
	Initial     time.Duration
	Max         time.Duration
	MaxAttempts int // retries before giving up; 0 means unlimited
}

// DefaultBackoff doubles from 30s and caps single waits at 5h. Ten retries
// are allowed, so the longest wait actually taken is 30s<<9 = 4h16m.
func DefaultBackoff() Backoff {
	return Backoff{Initial: 30 * time.Second, Max: 5 * time.Hour, MaxAttempts: 10}
}

// exponential returns a deterministic doubling schedule with no elapsed
// time limit.
func (b Backoff) exponential() *backoff.ExponentialBackOff {
	e := backoff.NewExponentialBackOff()
	e.InitialInterval = b.Initial
	e.MaxInterval = b.Max
	e.Multiplier = 2
	e.RandomizationFactor = 0
	e.MaxElapsedTime = 0
	e.Reset()
	return e
}

// Policy returns a fresh retry policy. NextBackOff yields backoff.Stop once
// MaxAttempts delays have been handed out.
func (b Backoff) Policy() backoff.BackOff {
	var p backoff.BackOff = b.exponential()
	if b.MaxAttempts > 0 {
		p = backoff.WithMaxRetries(p, uint64(b.MaxAttempts))
	}
	return p
}

// Delay returns the wait before retry number attempt (1-based), ignoring
// the retry budget.
func (b Backoff) Delay(attempt int) time.Duration {
	e := b.exponential()
	d := e.NextBackOff()
	for i := 1; i < attempt; i++ {
		d = e.NextBackOff()
	}
	return d
}
