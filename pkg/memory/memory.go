// SPDX-License-Identifier: Apache-2.0
// Package memory stores and recalls user preferences and facts for the
// assistant, with in-process, file, and vector-search backends.
package memory

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates no matching entry was found.
var ErrNotFound = errors.New("memory: not found")

// Entry is one remembered preference or fact.
type Entry struct {
	Topic    string    `json:"topic,omitempty"`
	Text     string    `json:"text"`
	StoredAt time.Time `json:"stored_at"`
}

// Recaller is the memory backend contract.
type Recaller interface {
	// Remember persists an entry.
	Remember(ctx context.Context, entry Entry) error

	// Recall returns up to limit entries relevant to the query, most
	// relevant first. An empty query returns the most recent entries.
	Recall(ctx context.Context, query string, limit int) ([]Entry, error)
}
