package portal

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// PageKind names a portal page
type PageKind string

const (
	PageSubjects    PageKind = "subjects"
	PageGrades      PageKind = "grades"
	PageSchedule    PageKind = "schedule"
	PageTasks       PageKind = "tasks"
	PagePerformance PageKind = "performance"
)

// Selector identifies one remote document: a page plus its date or term scope.
type Selector struct {
	Page PageKind
	Date time.Time // schedule and tasks start date
	Days int       // schedule window length
	Term int       // performance term, 1..4
}

func (s Selector) String() string {
	switch s.Page {
	case PageSchedule:
		return fmt.Sprintf("%s[%s+%d]", s.Page, s.Date.Format("2006-01-02"), s.Days)
	case PageTasks:
		return fmt.Sprintf("%s[%s]", s.Page, s.Date.Format("2006-01-02"))
	case PagePerformance:
		return fmt.Sprintf("%s[term %d]", s.Page, s.Term)
	default:
		return string(s.Page)
	}
}

// path renders the selector as a portal path with query.
func (s Selector) path() (string, error) {
	q := url.Values{}
	var p string
	switch s.Page {
	case PageSubjects:
		p = "/journal/subjects"
	case PageGrades:
		p = "/journal/marks/recent"
	case PageSchedule:
		p = "/journal/schedule"
		q.Set("from", s.Date.Format("2006-01-02"))
		days := s.Days
		if days <= 0 {
			days = 7
		}
		q.Set("days", strconv.Itoa(days))
	case PageTasks:
		p = "/journal/homework"
		q.Set("from", s.Date.Format("2006-01-02"))
	case PagePerformance:
		if s.Term < 1 || s.Term > 4 {
			return "", fmt.Errorf("%w: term %d out of range", ErrMalformedURL, s.Term)
		}
		p = "/journal/performance"
		q.Set("term", strconv.Itoa(s.Term))
	default:
		return "", fmt.Errorf("%w: unknown page %q", ErrMalformedURL, s.Page)
	}
	if len(q) > 0 {
		p += "?" + q.Encode()
	}
	return p, nil
}
