// SPDX-License-Identifier: Apache-2.0
package notify

import (
	"context"
	"time"
)

// Store is the notification persistence contract. Every mutating call
// durably commits before returning; concurrent callers never corrupt the
// collection or duplicate ids.
type Store interface {
	// Send assigns a new monotonic id and persists the record. A future
	// deliverAt makes the record a pending reminder, excluded from List
	// until due.
	Send(ctx context.Context, title, message string, priority Priority, deliverAt *time.Time) (Notification, error)

	// List returns the currently visible notifications, newest first.
	List(ctx context.Context, unreadOnly bool) ([]Notification, error)

	// MarkRead flips the read flag. Fails with errors.CodeNotFound when
	// the id does not exist.
	MarkRead(ctx context.Context, id int64) (Notification, error)

	// Clear removes read notifications when onlyRead, else all. Returns
	// the number of removed records. Ids are never reused afterwards.
	Clear(ctx context.Context, onlyRead bool) (int, error)

	// ScheduleReminder persists a pending reminder due after delay.
	// An empty priority defaults to high.
	ScheduleReminder(ctx context.Context, title, message string, delay time.Duration, priority Priority) (Notification, error)
}

// reminderPriority applies the reminder default.
func reminderPriority(p Priority) Priority {
	if p == "" {
		return PriorityHigh
	}
	return p
}

// visibleNewestFirst filters items to those due at now and orders them
// newest first. Items must be in insertion (id) order.
func visibleNewestFirst(items []Notification, now time.Time, unreadOnly bool) []Notification {
	out := make([]Notification, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		n := items[i]
		if !n.visibleAt(now) {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n.clone())
	}
	return out
}
