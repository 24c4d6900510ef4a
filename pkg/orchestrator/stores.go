// SPDX-License-Identifier: Apache-2.0
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmoret/adjutant/pkg/config"
	"github.com/dmoret/adjutant/pkg/memory"
	"github.com/dmoret/adjutant/pkg/memory/ollama"
	"github.com/dmoret/adjutant/pkg/memory/qdrant"
	"github.com/dmoret/adjutant/pkg/notify"
	"github.com/dmoret/adjutant/pkg/telemetry"
)

// meteredStore counts persisted notifications by priority.
type meteredStore struct {
	notify.Store
	metrics *telemetry.WorkflowMetrics
}

func (s meteredStore) Send(ctx context.Context, title, message string, priority notify.Priority, deliverAt *time.Time) (notify.Notification, error) {
	record, err := s.Store.Send(ctx, title, message, priority, deliverAt)
	if err == nil {
		s.metrics.RecordNotification(ctx, string(record.Priority))
	}
	return record, err
}

func (s meteredStore) ScheduleReminder(ctx context.Context, title, message string, delay time.Duration, priority notify.Priority) (notify.Notification, error) {
	record, err := s.Store.ScheduleReminder(ctx, title, message, delay, priority)
	if err == nil {
		s.metrics.RecordNotification(ctx, string(record.Priority))
	}
	return record, err
}

// newNotifyStore builds the configured notification backend.
func newNotifyStore(cfg config.NotifyConfig) (notify.Store, error) {
	switch cfg.Backend {
	case "", "memory":
		return notify.NewInMemory(), nil
	case "file":
		if cfg.Path == "" {
			return nil, fmt.Errorf("notify: file backend requires a path")
		}
		return notify.NewFileStore(cfg.Path), nil
	case "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("notify: sqlite backend requires a path")
		}
		db, err := notify.OpenSQLite(cfg.Path)
		if err != nil {
			return nil, err
		}
		return notify.NewSQLiteStore(db)
	default:
		return nil, fmt.Errorf("notify: unknown backend %q", cfg.Backend)
	}
}

// newRecaller builds the memory backend. A vector setup that cannot
// connect falls back to the file store so the memory unit stays usable.
func newRecaller(cfg config.MemoryConfig, logger *slog.Logger) memory.Recaller {
	if !cfg.Enabled {
		return nil
	}

	switch cfg.Provider {
	case "vector":
		store, err := qdrant.New(cfg.QdrantAddr)
		if err != nil {
			logger.Warn("memory.vector.unavailable",
				slog.String("addr", cfg.QdrantAddr),
				slog.String("error", err.Error()),
			)
			return fallbackRecaller(cfg)
		}
		embedder := ollama.NewEmbedder(cfg.EmbedderBaseURL, cfg.EmbedderModel)
		return memory.NewSemanticMemory(store, embedder, "adjutant-preferences")
	case "file":
		return fallbackRecaller(cfg)
	case "", "inmemory":
		return memory.NewInMemory()
	default:
		logger.Warn("memory.provider.unknown", slog.String("provider", cfg.Provider))
		return memory.NewInMemory()
	}
}

func fallbackRecaller(cfg config.MemoryConfig) memory.Recaller {
	if cfg.Path == "" {
		return memory.NewInMemory()
	}
	return memory.NewFileStore(cfg.Path)
}
