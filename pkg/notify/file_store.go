// SPDX-License-Identifier: Apache-2.0
package notify

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmoret/adjutant/pkg/errors"
)

// FileStore persists notifications as a single JSON document. Writes go
// through a temp file, fsync, and rename so a committed call survives a
// crash immediately after it returns. All access is serialized on one
// mutex; the file round-trips exactly (field values, ordering, next id).
type FileStore struct {
	path  string
	mu    sync.Mutex
	clock Clock
}

// fileEnvelope is the on-disk layout. NextID persists so ids are never
// reused, even across Clear and process restarts.
type fileEnvelope struct {
	NextID int64          `json:"next_id"`
	Items  []Notification `json:"items"`
}

// FileOption configures a FileStore.
type FileOption func(*FileStore)

// WithFileClock overrides the store clock.
func WithFileClock(clock Clock) FileOption {
	return func(s *FileStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewFileStore creates a file-backed notification store.
func NewFileStore(path string, opts ...FileOption) *FileStore {
	s := &FileStore{path: path, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send implements Store.
func (s *FileStore) Send(_ context.Context, title, message string, priority Priority, deliverAt *time.Time) (Notification, error) {
	p, err := ParsePriority(string(priority))
	if err != nil {
		return Notification{}, errors.New(errors.CodeInvalidInput, "invalid priority", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.load()
	if err != nil {
		return Notification{}, err
	}

	n := Notification{
		ID:        env.NextID,
		Title:     title,
		Message:   message,
		Priority:  p,
		CreatedAt: s.clock().UTC(),
	}
	if deliverAt != nil {
		t := deliverAt.UTC()
		n.DeliverAt = &t
	}
	env.NextID++
	env.Items = append(env.Items, n)

	if err := s.persist(env); err != nil {
		return Notification{}, err
	}
	return n.clone(), nil
}

// List implements Store.
func (s *FileStore) List(_ context.Context, unreadOnly bool) ([]Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.load()
	if err != nil {
		return nil, err
	}
	return visibleNewestFirst(env.Items, s.clock(), unreadOnly), nil
}

// MarkRead implements Store.
func (s *FileStore) MarkRead(_ context.Context, id int64) (Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.load()
	if err != nil {
		return Notification{}, err
	}
	for i := range env.Items {
		if env.Items[i].ID == id {
			env.Items[i].Read = true
			if err := s.persist(env); err != nil {
				return Notification{}, err
			}
			return env.Items[i].clone(), nil
		}
	}
	return Notification{}, errors.New(errors.CodeNotFound, "notification not found", nil).
		WithContext("id", id)
}

// Clear implements Store.
func (s *FileStore) Clear(_ context.Context, onlyRead bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	env, err := s.load()
	if err != nil {
		return 0, err
	}

	removed := 0
	if onlyRead {
		kept := make([]Notification, 0, len(env.Items))
		for _, n := range env.Items {
			if n.Read {
				removed++
				continue
			}
			kept = append(kept, n)
		}
		env.Items = kept
	} else {
		removed = len(env.Items)
		env.Items = nil
	}

	if err := s.persist(env); err != nil {
		return 0, err
	}
	return removed, nil
}

// ScheduleReminder implements Store.
func (s *FileStore) ScheduleReminder(ctx context.Context, title, message string, delay time.Duration, priority Priority) (Notification, error) {
	due := s.clock().Add(delay).UTC()
	return s.Send(ctx, title, message, reminderPriority(priority), &due)
}

// load reads the envelope; a missing file is an empty store.
func (s *FileStore) load() (fileEnvelope, error) {
	env := fileEnvelope{NextID: 1}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return env, nil
		}
		return env, errors.New(errors.CodePersistence, "read notification file", err).
			WithContext("path", s.path)
	}
	if len(data) == 0 {
		return env, nil
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return env, errors.New(errors.CodePersistence, "decode notification file", err).
			WithContext("path", s.path)
	}
	if env.NextID < 1 {
		env.NextID = 1
	}
	return env, nil
}

// persist durably commits the envelope via temp file, fsync, and rename.
func (s *FileStore) persist(env fileEnvelope) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(errors.CodePersistence, "create notification dir", err).
			WithContext("path", s.path)
	}

	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return errors.New(errors.CodePersistence, "encode notifications", err)
	}

	tmp, err := os.CreateTemp(dir, ".notifications-*")
	if err != nil {
		return errors.New(errors.CodePersistence, "create temp file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.New(errors.CodePersistence, "write notifications", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.New(errors.CodePersistence, "sync notifications", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.New(errors.CodePersistence, "close temp file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.New(errors.CodePersistence, "commit notifications", err).
			WithContext("path", s.path)
	}
	return nil
}
