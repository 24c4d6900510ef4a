// SPDX-License-Identifier: Apache-2.0
package units

import (
	"context"
	"fmt"
	"time"

	"github.com/dmoret/adjutant/pkg/core"
	"github.com/dmoret/adjutant/pkg/memory"
)

// Memory stores and recalls user preferences through a memory backend.
type Memory struct {
	recaller memory.Recaller
}

func NewMemory(recaller memory.Recaller) *Memory {
	return &Memory{recaller: recaller}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Probe() core.Probe {
	if m.recaller == nil {
		return core.MissingDependency("memory backend not configured")
	}
	return core.SatisfiedProbe()
}

// EntryOperation designates recall as the workflow entry: the pipeline
// surfaces remembered context for the request.
func (m *Memory) EntryOperation() string { return "recall_preferences" }

func (m *Memory) Build() ([]core.Operation, error) {
	if m.recaller == nil {
		return nil, fmt.Errorf("memory backend is nil")
	}
	return []core.Operation{
		{
			Name:        "store_preference",
			Description: "Remember a user preference or fact.",
			InputSchema: map[string]string{"topic": "string", "text": "string"},
			Handler:     m.store,
		},
		{
			Name:        "recall_preferences",
			Description: "Recall remembered preferences relevant to a query.",
			InputSchema: map[string]string{"query": "string", "limit": "int"},
			Handler:     m.recall,
		},
	}, nil
}

func (m *Memory) store(ctx context.Context, input map[string]any) (any, error) {
	text := stringArg(input, "text")
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}
	entry := memory.Entry{
		Topic:    stringArg(input, "topic"),
		Text:     text,
		StoredAt: time.Now().UTC(),
	}
	if err := m.recaller.Remember(ctx, entry); err != nil {
		return nil, err
	}
	return map[string]any{"stored": entry.Text}, nil
}

func (m *Memory) recall(ctx context.Context, input map[string]any) (any, error) {
	query := stringArg(input, "query")
	if query == "" {
		query = stringArg(input, "request")
	}
	entries, err := m.recaller.Recall(ctx, query, int(intArg(input, "limit", 5)))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"query":   query,
		"entries": entries,
	}, nil
}
