// SPDX-License-Identifier: Apache-2.0
package core

import (
	"context"
	"time"
)

// EventType identifies a semantic event emitted by the registry or engine.
type EventType string

const (
	EventUnitLoaded      EventType = "unit.loaded"
	EventUnitDegraded    EventType = "unit.degraded"
	EventUnitLoadFailed  EventType = "unit.load.failed"
	EventStageStarted    EventType = "stage.started"
	EventStageCompleted  EventType = "stage.completed"
	EventMemberCompleted EventType = "member.completed"
	EventMemberFailed    EventType = "member.failed"
)

// Event captures a semantic streaming/logging event.
type Event struct {
	Type      EventType
	Unit      string
	RunID     string
	Timestamp time.Time
	Payload   map[string]any
}

// EventEmitter receives semantic events.
type EventEmitter interface {
	Emit(ctx context.Context, event Event)
}

// NoopEventEmitter is a default no-op implementation.
type NoopEventEmitter struct{}

// Emit implements EventEmitter.
func (NoopEventEmitter) Emit(_ context.Context, _ Event) {}

// NewEvent builds a default event with timestamp.
func NewEvent(eventType EventType, unit string, runID string, payload map[string]any) Event {
	return Event{
		Type:      eventType,
		Unit:      unit,
		RunID:     runID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
