package courier

import (
	"context"
	"fmt"
	"time"

	"github.com/rbaliyan/event/v3"
)

// Event names for notification lifecycle events.
const (
	EventNameNotificationDispatched = "courier.notification.dispatched"
	EventNameNotificationSkipped    = "courier.notification.skipped"
	EventNameNotificationFailed     = "courier.notification.failed"
)

// NotificationDispatchedEvent is published after a notification has been
// fanned out to its resolved recipients.
type NotificationDispatchedEvent struct {
	DispatchID     string    `json:"dispatch_id"`
	NotificationID string    `json:"notification_id"`
	UserID         string    `json:"user_id,omitempty"`
	Recipients     []string  `json:"recipients"`
	Failed         []string  `json:"failed,omitempty"`
	DispatchedAt   time.Time `json:"dispatched_at"`
}

// NotificationSkippedEvent is published when a notification resolves to an
// empty recipient set and no delivery is attempted.
type NotificationSkippedEvent struct {
	DispatchID     string    `json:"dispatch_id"`
	NotificationID string    `json:"notification_id"`
	UserID         string    `json:"user_id,omitempty"`
	SkippedAt      time.Time `json:"skipped_at"`
}

// NotificationFailedEvent is published when recipient resolution fails and
// the notification is dropped.
type NotificationFailedEvent struct {
	DispatchID     string    `json:"dispatch_id"`
	NotificationID string    `json:"notification_id"`
	UserID         string    `json:"user_id,omitempty"`
	Reason         string    `json:"reason"`
	FailedAt       time.Time `json:"failed_at"`
}

// ProcessorEvents provides access to per-processor event instances.
// Each processor creates its own events bound to its own event bus,
// enabling independent event routing and parallel testing.
//
// Subscribe to events:
//
//	p.Events().NotificationDispatched.Subscribe(ctx, handler)
//	p.Events().NotificationSkipped.Subscribe(ctx, handler)
//	p.Events().NotificationFailed.Subscribe(ctx, handler)
type ProcessorEvents struct {
	// NotificationDispatched is published after fan-out completes.
	NotificationDispatched event.Event[NotificationDispatchedEvent]

	// NotificationSkipped is published when no recipients were resolved.
	NotificationSkipped event.Event[NotificationSkippedEvent]

	// NotificationFailed is published when resolution fails.
	NotificationFailed event.Event[NotificationFailedEvent]
}

// newProcessorEvents creates per-processor event instances with a unique name prefix.
func newProcessorEvents(namePrefix string) *ProcessorEvents {
	return &ProcessorEvents{
		NotificationDispatched: event.New[NotificationDispatchedEvent](namePrefix + "." + EventNameNotificationDispatched),
		NotificationSkipped:    event.New[NotificationSkippedEvent](namePrefix + "." + EventNameNotificationSkipped),
		NotificationFailed:     event.New[NotificationFailedEvent](namePrefix + "." + EventNameNotificationFailed),
	}
}

// registerProcessorEvents registers per-processor events with the given bus.
func registerProcessorEvents(ctx context.Context, bus *event.Bus, events *ProcessorEvents) error {
	if err := event.Register(ctx, bus, events.NotificationDispatched); err != nil {
		return fmt.Errorf("register NotificationDispatched: %w", err)
	}
	if err := event.Register(ctx, bus, events.NotificationSkipped); err != nil {
		return fmt.Errorf("register NotificationSkipped: %w", err)
	}
	if err := event.Register(ctx, bus, events.NotificationFailed); err != nil {
		return fmt.Errorf("register NotificationFailed: %w", err)
	}
	return nil
}
