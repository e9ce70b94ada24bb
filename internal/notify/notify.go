// Package notify delivers user notifications through pluggable sinks.
//
// Delivery is best effort. Sink failures are logged and never reach the
// caller, and a denied permission turns every delivery into a no-op.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Channel groups notifications of one kind
type Channel struct {
	ID          string
	Name        string
	Description string
}

// Built-in channels
var (
	ChannelGrades   = Channel{ID: "grades", Name: "Оценки", Description: "New grades"}
	ChannelSchedule = Channel{ID: "schedule", Name: "Расписание", Description: "Schedule changes"}
	ChannelTasks    = Channel{ID: "tasks", Name: "Задания", Description: "New homework"}
)

// Content is what the user sees
type Content struct {
	Title    string
	Body     string
	DeepLink string
}

// Notification is one delivery request. Summary notifications carry a
// GroupID and no ItemID.
type Notification struct {
	GroupID   string `json:"group_id,omitempty"`
	ChannelID string `json:"channel_id"`
	ItemID    string `json:"item_id,omitempty"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	DeepLink  string `json:"deep_link,omitempty"`
}

// Summary reports whether n is a group summary
func (n Notification) Summary() bool {
	return n.ItemID == ""
}

// Sink is a delivery backend
type Sink interface {
	EnsureChannel(ctx context.Context, ch Channel) error
	Send(ctx context.Context, n Notification) error
}

// Permission gates delivery
type Permission interface {
	NotificationsAllowed() bool
}

// PermissionFunc adapts a func to Permission
type PermissionFunc func() bool

func (f PermissionFunc) NotificationsAllowed() bool { return f() }

// Allowed is a Permission that always grants
var Allowed Permission = PermissionFunc(func() bool { return true })

// Notifier is the adapter sync jobs call.
type Notifier struct {
	sink Sink
	perm Permission

	mu      sync.Mutex
	ensured map[string]bool
}

// New creates a notifier. A nil permission grants delivery.
func New(sink Sink, perm Permission) *Notifier {
	if perm == nil {
		perm = Allowed
	}
	return &Notifier{sink: sink, perm: perm, ensured: make(map[string]bool)}
}

// Allowed reports the current permission
func (n *Notifier) Allowed() bool {
	return n.sink != nil && n.perm.NotificationsAllowed()
}

// EnsureChannel creates the channel on the sink once per notifier. Failed
// attempts are retried on the next call.
func (n *Notifier) EnsureChannel(ctx context.Context, ch Channel) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ensured[ch.ID] {
		return nil
	}
	if err := n.sink.EnsureChannel(ctx, ch); err != nil {
		return err
	}
	n.ensured[ch.ID] = true
	return nil
}

// DeliverSummary sends the group summary for a batch. It reports whether
// the sink accepted the notification.
func (n *Notifier) DeliverSummary(ctx context.Context, groupID string, ch Channel, c Content) bool {
	return n.deliver(ctx, ch, Notification{
		GroupID:   groupID,
		ChannelID: ch.ID,
		Title:     c.Title,
		Body:      c.Body,
		DeepLink:  c.DeepLink,
	})
}

// Deliver sends one per-item notification keyed by itemID.
func (n *Notifier) Deliver(ctx context.Context, itemID string, ch Channel, c Content) bool {
	return n.deliver(ctx, ch, Notification{
		GroupID:   ch.ID,
		ChannelID: ch.ID,
		ItemID:    itemID,
		Title:     c.Title,
		Body:      c.Body,
		DeepLink:  c.DeepLink,
	})
}

func (n *Notifier) deliver(ctx context.Context, ch Channel, note Notification) bool {
	if !n.Allowed() {
		slog.Debug("notification suppressed", "channel", ch.ID, "item", note.ItemID)
		return false
	}
	if err := n.EnsureChannel(ctx, ch); err != nil {
		slog.Warn("notification channel", "channel", ch.ID, "err", err)
		return false
	}
	if err := n.sink.Send(ctx, note); err != nil {
		slog.Warn("notification delivery", "channel", ch.ID, "item", note.ItemID, "err", err)
		return false
	}
	return true
}
