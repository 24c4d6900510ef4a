// SPDX-License-Identifier: Apache-2.0
// Package notify provides the durable notification and reminder store.
//
// Reminders are pull-based: a notification with a future deliver-at time
// is persisted immediately but stays invisible to List until it is due.
// Due-checking happens on every read; no timer thread is involved.
package notify

import (
	"fmt"
	"time"
)

// Priority is the ordered severity of a notification.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParsePriority validates a priority string. An empty string maps to normal.
func ParsePriority(s string) (Priority, error) {
	switch Priority(s) {
	case "":
		return PriorityNormal, nil
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return Priority(s), nil
	default:
		return "", fmt.Errorf("unknown priority %q", s)
	}
}

// Rank returns the severity order of the priority, low first.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 0
	case PriorityNormal:
		return 1
	case PriorityHigh:
		return 2
	case PriorityUrgent:
		return 3
	default:
		return -1
	}
}

// Notification is one persisted alert or reminder. Store methods return
// copies; mutating a returned value never touches the persisted record.
type Notification struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Priority  Priority   `json:"priority"`
	CreatedAt time.Time  `json:"created_at"`
	Read      bool       `json:"read"`
	DeliverAt *time.Time `json:"deliver_at,omitempty"`
}

// clone deep-copies the notification so callers can never reach the
// stored record through a shared pointer.
func (n Notification) clone() Notification {
	out := n
	if n.DeliverAt != nil {
		t := *n.DeliverAt
		out.DeliverAt = &t
	}
	return out
}

// visibleAt reports whether the notification is due at the given instant.
func (n Notification) visibleAt(now time.Time) bool {
	return n.DeliverAt == nil || !n.DeliverAt.After(now)
}

// Clock supplies the current time. Injectable for reminder tests.
type Clock func() time.Time
