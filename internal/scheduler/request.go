package scheduler

import (
	"errors"
	"fmt"
	"time"
)

// Policy decides what Enqueue does when work with the same name exists.
type Policy int

const (
	// Replace cancels the existing work, waits for it to stop, then starts
	// the new request.
	Replace Policy = iota
	// Keep leaves existing work alone and drops the new request.
	Keep
)

// WorkRequest describes how and when to run a named job.
type WorkRequest struct {
	JobName         string
	Periodic        bool
	Interval        time.Duration
	RequiresNetwork bool
	Policy          Policy
}

// OneTime builds a request that runs once as soon as constraints allow.
func OneTime(name string, requiresNetwork bool) WorkRequest {
	return WorkRequest{JobName: name, RequiresNetwork: requiresNetwork}
}

// Periodic builds a request that runs now and then every interval.
func Periodic(name string, interval time.Duration, requiresNetwork bool) WorkRequest {
	return WorkRequest{JobName: name, Periodic: true, Interval: interval, RequiresNetwork: requiresNetwork}
}

// Validate checks request fields
func (r WorkRequest) Validate() error {
	if r.JobName == "" {
		return errors.New("work request: empty job name")
	}
	if r.Periodic && r.Interval <= 0 {
		return fmt.Errorf("work request %s: periodic work needs a positive interval", r.JobName)
	}
	return nil
}
