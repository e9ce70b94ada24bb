// Package scheduler runs named sync jobs once or periodically, resolving
// each job by name through a registry at execution time.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Result is a job's tri-state outcome
type Result int

const (
	Success Result = iota
	Retry
	Failure
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Retry:
		return "retry"
	default:
		return "failure"
	}
}

// Report is what one job execution returns. Err is set for Retry and
// Failure and may be set for Success when delivery-only problems occurred.
type Report struct {
	Result  Result
	New     int
	Skipped int
	Err     error
}

// Succeeded builds a Success report
func Succeeded(newItems, skipped int) Report {
	return Report{Result: Success, New: newItems, Skipped: skipped}
}

// Job is one unit of sync work.
type Job interface {
	Run(ctx context.Context) Report
}

// JobFunc adapts a function to Job
type JobFunc func(ctx context.Context) Report

func (f JobFunc) Run(ctx context.Context) Report { return f(ctx) }

// Factory constructs a job with its collaborators already bound.
type Factory func() (Job, error)

// Payload is the delegation payload: the name of the job to resolve.
type Payload struct {
	JobName string `json:"job_name"`
}

// Encode renders the payload as JSON
func (p Payload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// DecodePayload parses an encoded payload
func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	if strings.TrimSpace(p.JobName) == "" {
		return Payload{}, errors.New("decode payload: empty job name")
	}
	return p, nil
}
