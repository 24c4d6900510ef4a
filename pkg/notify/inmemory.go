// SPDX-License-Identifier: Apache-2.0
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/dmoret/adjutant/pkg/errors"
)

// InMemoryStore keeps notifications in process memory. Useful for tests
// and as the default backend of the notification capability unit.
type InMemoryStore struct {
	mu     sync.Mutex
	items  []Notification
	nextID int64
	clock  Clock
}

// InMemoryOption configures an InMemoryStore.
type InMemoryOption func(*InMemoryStore)

// WithInMemoryClock overrides the store clock.
func WithInMemoryClock(clock Clock) InMemoryOption {
	return func(s *InMemoryStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewInMemory creates an empty in-memory store.
func NewInMemory(opts ...InMemoryOption) *InMemoryStore {
	s := &InMemoryStore{nextID: 1, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send implements Store.
func (s *InMemoryStore) Send(_ context.Context, title, message string, priority Priority, deliverAt *time.Time) (Notification, error) {
	p, err := ParsePriority(string(priority))
	if err != nil {
		return Notification{}, errors.New(errors.CodeInvalidInput, "invalid priority", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := Notification{
		ID:        s.nextID,
		Title:     title,
		Message:   message,
		Priority:  p,
		CreatedAt: s.clock().UTC(),
	}
	if deliverAt != nil {
		t := deliverAt.UTC()
		n.DeliverAt = &t
	}
	s.nextID++
	s.items = append(s.items, n)
	return n.clone(), nil
}

// List implements Store.
func (s *InMemoryStore) List(_ context.Context, unreadOnly bool) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return visibleNewestFirst(s.items, s.clock(), unreadOnly), nil
}

// MarkRead implements Store.
func (s *InMemoryStore) MarkRead(_ context.Context, id int64) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Read = true
			return s.items[i].clone(), nil
		}
	}
	return Notification{}, errors.New(errors.CodeNotFound, "notification not found", nil).
		WithContext("id", id)
}

// Clear implements Store.
func (s *InMemoryStore) Clear(_ context.Context, onlyRead bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !onlyRead {
		removed := len(s.items)
		s.items = nil
		return removed, nil
	}

	kept := s.items[:0]
	removed := 0
	for _, n := range s.items {
		if n.Read {
			removed++
			continue
		}
		kept = append(kept, n)
	}
	s.items = kept
	return removed, nil
}

// ScheduleReminder implements Store.
func (s *InMemoryStore) ScheduleReminder(ctx context.Context, title, message string, delay time.Duration, priority Priority) (Notification, error) {
	due := s.clock().Add(delay).UTC()
	return s.Send(ctx, title, message, reminderPriority(priority), &due)
}
