package output

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/kosavsech/SchoolDiary-sub000/internal/notify"
)

// ConsoleSink prints notifications to a terminal.
type ConsoleSink struct {
	W io.Writer

	mu sync.Mutex
}

// NewConsoleSink writes to stdout when w is nil
func NewConsoleSink(w io.Writer) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	return &ConsoleSink{W: w}
}

func (s *ConsoleSink) EnsureChannel(context.Context, notify.Channel) error { return nil }

func (s *ConsoleSink) Send(_ context.Context, n notify.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	title := titleStyle.Render(n.Title)
	if n.Summary() {
		title = warningStyle.Render("● ") + title
	}
	if _, err := fmt.Fprintf(s.W, "%s  %s\n", title, n.Body); err != nil {
		return err
	}
	if n.DeepLink != "" {
		_, err := fmt.Fprintln(s.W, IndentString(subtleStyle.Render(n.DeepLink), 2))
		return err
	}
	return nil
}
