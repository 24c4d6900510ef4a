// SPDX-License-Identifier: Apache-2.0
package units

import (
	"context"
	"fmt"
	"time"

	"github.com/dmoret/adjutant/pkg/core"
	"github.com/dmoret/adjutant/pkg/notify"
)

// Notification exposes the notification store as a capability unit with
// the assistant's five notification operations.
type Notification struct {
	store notify.Store
}

func NewNotification(store notify.Store) *Notification {
	return &Notification{store: store}
}

func (n *Notification) Name() string { return "notification" }

func (n *Notification) Probe() core.Probe {
	if n.store == nil {
		return core.MissingDependency("notification store not configured")
	}
	return core.SatisfiedProbe()
}

// EntryOperation designates the operation the workflow engine invokes.
func (n *Notification) EntryOperation() string { return "send_notification" }

func (n *Notification) Build() ([]core.Operation, error) {
	if n.store == nil {
		return nil, fmt.Errorf("notification store is nil")
	}
	return []core.Operation{
		{
			Name:        "send_notification",
			Description: "Persist and deliver a notification.",
			InputSchema: map[string]string{"title": "string", "message": "string", "priority": "string (low|normal|high|urgent)"},
			Handler:     n.send,
		},
		{
			Name:        "get_notifications",
			Description: "List visible notifications, newest first.",
			InputSchema: map[string]string{"unread_only": "bool"},
			Handler:     n.list,
		},
		{
			Name:        "mark_notification_read",
			Description: "Mark a notification as read by id.",
			InputSchema: map[string]string{"id": "int"},
			Handler:     n.markRead,
		},
		{
			Name:        "clear_notifications",
			Description: "Remove notifications; keep_unread restricts removal to read ones.",
			InputSchema: map[string]string{"keep_unread": "bool"},
			Handler:     n.clear,
		},
		{
			Name:        "schedule_reminder",
			Description: "Schedule a reminder that becomes visible after the delay.",
			InputSchema: map[string]string{"title": "string", "message": "string", "delay_seconds": "int", "priority": "string"},
			Handler:     n.remind,
		},
	}, nil
}

func (n *Notification) send(ctx context.Context, input map[string]any) (any, error) {
	title := stringArg(input, "title")
	message := stringArg(input, "message")
	if title == "" && message == "" {
		// Workflow payloads carry the request; fall back so the unit can
		// act as the pipeline's delivery step.
		title = "Assistant update"
		message = stringArg(input, "request")
	}
	if message == "" {
		return nil, fmt.Errorf("message is required")
	}
	return n.store.Send(ctx, title, message, notify.Priority(stringArg(input, "priority")), nil)
}

func (n *Notification) list(ctx context.Context, input map[string]any) (any, error) {
	return n.store.List(ctx, boolArg(input, "unread_only", false))
}

func (n *Notification) markRead(ctx context.Context, input map[string]any) (any, error) {
	id := intArg(input, "id", 0)
	if id == 0 {
		return nil, fmt.Errorf("id is required")
	}
	return n.store.MarkRead(ctx, id)
}

func (n *Notification) clear(ctx context.Context, input map[string]any) (any, error) {
	removed, err := n.store.Clear(ctx, boolArg(input, "keep_unread", true))
	if err != nil {
		return nil, err
	}
	return map[string]any{"removed": removed}, nil
}

func (n *Notification) remind(ctx context.Context, input map[string]any) (any, error) {
	title := stringArg(input, "title")
	message := stringArg(input, "message")
	if title == "" || message == "" {
		return nil, fmt.Errorf("title and message are required")
	}
	delay := time.Duration(intArg(input, "delay_seconds", 60)) * time.Second
	return n.store.ScheduleReminder(ctx, title, message, delay, notify.Priority(stringArg(input, "priority")))
}
