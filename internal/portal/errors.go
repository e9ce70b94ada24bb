package portal

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Sentinel errors for fetch failures. Callers match them with errors.Is.
var (
	ErrUnauthorized          = errors.New("portal session expired or unauthorized")
	ErrNotLoggedIn           = errors.New("not logged in")
	ErrRequestTimeout        = errors.New("portal request timed out")
	ErrSocketTimeout         = errors.New("portal socket timed out")
	ErrMalformedURL          = errors.New("malformed portal url")
	ErrUnexpectedContentType = errors.New("unexpected content type")
	ErrMalformedDocument     = errors.New("malformed portal document")
)

// StatusError is returned for HTTP error statuses other than auth failures.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("portal %s: HTTP %d", e.URL, e.Code)
}

// classifyTransport maps an http.Client error to the portal taxonomy. A
// deadline on the request context is a request timeout; any other
// network-level timeout is a socket timeout.
func classifyTransport(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrRequestTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrSocketTimeout, err)
	}
	return fmt.Errorf("http request: %w", err)
}
