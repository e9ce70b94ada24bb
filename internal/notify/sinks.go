package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/kosavsech/SchoolDiary-sub000/internal/webhook"
)

// LogSink writes notifications to a structured logger
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s LogSink) EnsureChannel(_ context.Context, ch Channel) error {
	s.logger().Debug("notification channel ready", "channel", ch.ID)
	return nil
}

func (s LogSink) Send(_ context.Context, n Notification) error {
	s.logger().Info("notification",
		"channel", n.ChannelID,
		"group", n.GroupID,
		"item", n.ItemID,
		"title", n.Title,
		"body", n.Body,
		"link", n.DeepLink)
	return nil
}

// WebhookSink posts each notification as a signed webhook payload
type WebhookSink struct {
	Dispatcher *webhook.Dispatcher
}

// NewWebhookSink creates a sink posting to url, signed with secret if set.
func NewWebhookSink(url, secret string) *WebhookSink {
	return &WebhookSink{Dispatcher: webhook.NewDispatcher(url, secret)}
}

func (s *WebhookSink) EnsureChannel(context.Context, Channel) error { return nil }

func (s *WebhookSink) Send(ctx context.Context, n Notification) error {
	return s.Dispatcher.Dispatch(ctx, webhook.NewPayload(n.ChannelID, webhook.ItemPayload{
		GroupID:  n.GroupID,
		ItemID:   n.ItemID,
		Summary:  n.Summary(),
		Title:    n.Title,
		Body:     n.Body,
		DeepLink: n.DeepLink,
	}))
}

// MultiSink fans out to several sinks. Every sink is attempted; errors are
// joined.
type MultiSink []Sink

func (m MultiSink) EnsureChannel(ctx context.Context, ch Channel) error {
	var errs []error
	for _, s := range m {
		if err := s.EnsureChannel(ctx, ch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiSink) Send(ctx context.Context, n Notification) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// MemorySink records notifications in memory
type MemorySink struct {
	mu       sync.Mutex
	channels map[string]int
	sent     []Notification
}

func (m *MemorySink) EnsureChannel(_ context.Context, ch Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.channels == nil {
		m.channels = make(map[string]int)
	}
	m.channels[ch.ID]++
	return nil
}

func (m *MemorySink) Send(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return nil
}

// Sent returns a copy of everything delivered so far
func (m *MemorySink) Sent() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification(nil), m.sent...)
}

// Summaries and Items split Sent by kind
func (m *MemorySink) Summaries() []Notification { return m.filter(true) }
func (m *MemorySink) Items() []Notification     { return m.filter(false) }

func (m *MemorySink) filter(summary bool) []Notification {
	var out []Notification
	for _, n := range m.Sent() {
		if n.Summary() == summary {
			out = append(out, n)
		}
	}
	return out
}

// ChannelCreations returns how often EnsureChannel reached this sink for id
func (m *MemorySink) ChannelCreations(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channels[id]
}
