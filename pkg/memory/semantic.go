// SPDX-License-Identifier: Apache-2.0
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SemanticMemory recalls entries by embedding similarity over a vector
// store. It implements Recaller.
type SemanticMemory struct {
	store          VectorStore
	embedder       Embedder
	collection     string
	scoreThreshold float32
}

// NewSemanticMemory creates a semantic memory over the given store and
// embedder.
func NewSemanticMemory(store VectorStore, embedder Embedder, collection string) *SemanticMemory {
	return &SemanticMemory{
		store:          store,
		embedder:       embedder,
		collection:     collection,
		scoreThreshold: 0.6,
	}
}

// EnsureCollection creates the collection sized to the embedder's output.
// An existing collection is tolerated: if a probe search succeeds, the
// creation failure is ignored.
func (m *SemanticMemory) EnsureCollection(ctx context.Context) error {
	vec, err := m.embedder.Embed(ctx, "dimension probe")
	if err != nil {
		return fmt.Errorf("failed to get embedding dimension: %w", err)
	}

	if err := m.store.CreateCollection(ctx, m.collection, uint64(len(vec))); err != nil {
		if _, searchErr := m.store.Search(ctx, m.collection, vec, 1, 0.0); searchErr == nil {
			return nil
		}
		return err
	}
	return nil
}

// Remember embeds the entry text and upserts it.
func (m *SemanticMemory) Remember(ctx context.Context, entry Entry) error {
	vector, err := m.embedder.Embed(ctx, entry.Text)
	if err != nil {
		return fmt.Errorf("failed to embed entry: %w", err)
	}

	storedAt := entry.StoredAt
	if storedAt.IsZero() {
		storedAt = time.Now()
	}

	point := Point{
		ID:     uuid.New().String(),
		Vector: vector,
		Payload: map[string]any{
			"text":      entry.Text,
			"topic":     entry.Topic,
			"stored_at": storedAt.Unix(),
		},
		Timestamp: storedAt.Unix(),
	}
	if err := m.store.Upsert(ctx, m.collection, []Point{point}); err != nil {
		return fmt.Errorf("failed to store entry: %w", err)
	}
	return nil
}

// Recall embeds the query and returns the nearest entries.
func (m *SemanticMemory) Recall(ctx context.Context, query string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 5
	}
	vector, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := m.store.Search(ctx, m.collection, vector, limit, m.scoreThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	entries := make([]Entry, 0, len(results))
	for _, r := range results {
		entry := Entry{}
		if text, ok := r.Point.Payload["text"].(string); ok {
			entry.Text = text
		}
		if topic, ok := r.Point.Payload["topic"].(string); ok {
			entry.Topic = topic
		}
		if ts, ok := r.Point.Payload["stored_at"].(int64); ok {
			entry.StoredAt = time.Unix(ts, 0)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
