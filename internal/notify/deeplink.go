package notify

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Scheme of every deep link
const Scheme = "diary"

const linkDateLayout = "2006-01-02"

// Route is the screen a deep link opens
type Route string

const (
	RouteGrades   Route = "grades"
	RouteSchedule Route = "schedule"
	RouteTasks    Route = "tasks"
)

// ErrBadLink is returned by ParseDeepLink for anything it cannot route.
var ErrBadLink = errors.New("invalid deep link")

// Link is a parsed deep link
type Link struct {
	Route   Route
	ID      string    // grades, tasks
	Date    time.Time // schedule
	Compare bool      // schedule: open the old/new comparison
}

// GradeLink opens one grade
func GradeLink(id string) string {
	return fmt.Sprintf("%s://%s/%s", Scheme, RouteGrades, url.PathEscape(id))
}

// TaskLink opens one task
func TaskLink(id string) string {
	return fmt.Sprintf("%s://%s/%s", Scheme, RouteTasks, url.PathEscape(id))
}

// ScheduleLink opens a day, optionally in comparison mode
func ScheduleLink(date time.Time, compare bool) string {
	q := url.Values{}
	q.Set("date", date.Format(linkDateLayout))
	q.Set("compare", strconv.FormatBool(compare))
	return fmt.Sprintf("%s://%s?%s", Scheme, RouteSchedule, q.Encode())
}

// ParseDeepLink parses a link built by the helpers above.
func ParseDeepLink(raw string) (Link, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Link{}, fmt.Errorf("%w: %v", ErrBadLink, err)
	}
	if u.Scheme != Scheme {
		return Link{}, fmt.Errorf("%w: scheme %q", ErrBadLink, u.Scheme)
	}

	link := Link{Route: Route(u.Host)}
	switch link.Route {
	case RouteGrades, RouteTasks:
		link.ID = strings.Trim(u.Path, "/")
		if link.ID == "" {
			return Link{}, fmt.Errorf("%w: %s link without id", ErrBadLink, link.Route)
		}
	case RouteSchedule:
		q := u.Query()
		d, err := time.Parse(linkDateLayout, q.Get("date"))
		if err != nil {
			return Link{}, fmt.Errorf("%w: schedule date: %v", ErrBadLink, err)
		}
		link.Date = d
		if c := q.Get("compare"); c != "" {
			if link.Compare, err = strconv.ParseBool(c); err != nil {
				return Link{}, fmt.Errorf("%w: compare flag %q", ErrBadLink, c)
			}
		}
	default:
		return Link{}, fmt.Errorf("%w: unknown route %q", ErrBadLink, u.Host)
	}
	return link, nil
}
