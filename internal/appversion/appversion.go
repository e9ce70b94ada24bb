// Package appversion compares the running build with the latest published
// release and broadcasts the outcome.
package appversion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// State is the outcome of a version check
type State int

const (
	NotFound State = iota
	LatestVersion
	ShouldUpdate
	MustUpdate
	Suppressed
)

func (s State) String() string {
	switch s {
	case LatestVersion:
		return "latest"
	case ShouldUpdate:
		return "should_update"
	case MustUpdate:
		return "must_update"
	case Suppressed:
		return "suppressed"
	default:
		return "not_found"
	}
}

// Release is the remote version document
type Release struct {
	VersionCode int    `json:"version_code"`
	VersionName string `json:"version_name"`
	Critical    bool   `json:"critical"`
	URL         string `json:"url"`
}

// Status is what gets broadcast
type Status struct {
	State      State
	LocalCode  int
	RemoteCode int
	RemoteName string
	UpdateURL  string
	CheckedAt  time.Time
}

// IsDevelopmentBuild reports builds without a release version code.
func IsDevelopmentBuild(code int) bool {
	return code <= 0
}

// Evaluate compares a local build code with a release. A nil release is
// NotFound; a newer critical release is MustUpdate.
func Evaluate(localCode int, r *Release) State {
	switch {
	case r == nil:
		return NotFound
	case r.VersionCode <= localCode:
		return LatestVersion
	case r.Critical:
		return MustUpdate
	default:
		return ShouldUpdate
	}
}

// Checker fetches the release document
type Checker struct {
	URL  string
	HTTP *http.Client
}

// NewChecker returns a checker with a short timeout.
func NewChecker(url string) *Checker {
	return &Checker{URL: url, HTTP: &http.Client{Timeout: 5 * time.Second}}
}

// Latest fetches the current release. It returns nil without error when
// the server has no release (404 or empty body).
func (c *Checker) Latest(ctx context.Context) (*Release, error) {
	if c.URL == "" {
		return nil, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("version request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("version check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("version check: %s", resp.Status)
	}

	var r Release
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&r); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode version: %w", err)
	}
	if r.VersionCode <= 0 {
		return nil, nil
	}
	return &r, nil
}

// Check fetches the release and evaluates it against localCode.
// Development builds are reported as LatestVersion without a request.
func (c *Checker) Check(ctx context.Context, localCode int) (Status, error) {
	st := Status{LocalCode: localCode, CheckedAt: time.Now()}
	if IsDevelopmentBuild(localCode) {
		st.State = LatestVersion
		return st, nil
	}

	r, err := c.Latest(ctx)
	if err != nil {
		return st, err
	}
	st.State = Evaluate(localCode, r)
	if r != nil {
		st.RemoteCode = r.VersionCode
		st.RemoteName = r.VersionName
		st.UpdateURL = r.URL
	}
	return st, nil
}
