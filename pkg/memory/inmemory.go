// SPDX-License-Identifier: Apache-2.0
package memory

import (
	"context"
	"strings"
	"sync"
)

// InMemory is a simple in-process memory backend.
type InMemory struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{}
}

// Remember appends the entry.
func (m *InMemory) Remember(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

// Recall matches entries whose text or topic contains the query,
// case-insensitively, newest first. An empty query matches everything.
func (m *InMemory) Recall(_ context.Context, query string, limit int) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return filterEntries(m.entries, query, limit), nil
}

func filterEntries(entries []Entry, query string, limit int) []Entry {
	if limit <= 0 {
		limit = 5
	}
	needle := strings.ToLower(query)

	out := make([]Entry, 0, limit)
	for i := len(entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := entries[i]
		if needle == "" ||
			strings.Contains(strings.ToLower(e.Text), needle) ||
			strings.Contains(strings.ToLower(e.Topic), needle) {
			out = append(out, e)
		}
	}
	return out
}
