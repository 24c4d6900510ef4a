// SPDX-License-Identifier: Apache-2.0
package notify

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmoret/adjutant/pkg/errors"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// backends instantiates every store implementation against the same clock.
func backends(t *testing.T, clock Clock) map[string]Store {
	t.Helper()

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "notify.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	sqliteStore, err := NewSQLiteStore(db, WithSQLiteClock(clock))
	if err != nil {
		t.Fatalf("new sqlite store: %v", err)
	}

	return map[string]Store{
		"inmemory": NewInMemory(WithInMemoryClock(clock)),
		"file":     NewFileStore(filepath.Join(t.TempDir(), "notifications.json"), WithFileClock(clock)),
		"sqlite":   sqliteStore,
	}
}

func TestSendThenListRoundTrip(t *testing.T) {
	clock := newFakeClock()
	for name, store := range backends(t, clock.Now) {
		t.Run(name, func(t *testing.T) {
			sent, err := store.Send(context.Background(), "Standup", "Daily sync in 5 minutes", PriorityHigh, nil)
			if err != nil {
				t.Fatalf("send failed: %v", err)
			}
			if sent.ID == 0 {
				t.Fatal("expected assigned id")
			}
			if sent.Read {
				t.Fatal("expected unread on creation")
			}

			items, err := store.List(context.Background(), false)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if len(items) != 1 {
				t.Fatalf("expected 1 notification, got %d", len(items))
			}
			got := items[0]
			if got.Title != "Standup" || got.Message != "Daily sync in 5 minutes" || got.Priority != PriorityHigh {
				t.Fatalf("round-trip mismatch: %+v", got)
			}
			if got.Read {
				t.Fatal("expected read=false")
			}
		})
	}
}

func TestListNewestFirst(t *testing.T) {
	clock := newFakeClock()
	for name, store := range backends(t, clock.Now) {
		t.Run(name, func(t *testing.T) {
			for _, title := range []string{"first", "second", "third"} {
				if _, err := store.Send(context.Background(), title, "m", PriorityNormal, nil); err != nil {
					t.Fatalf("send failed: %v", err)
				}
			}
			items, err := store.List(context.Background(), false)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if len(items) != 3 {
				t.Fatalf("expected 3 items, got %d", len(items))
			}
			if items[0].Title != "third" || items[2].Title != "first" {
				t.Fatalf("expected newest first, got %q..%q", items[0].Title, items[2].Title)
			}
		})
	}
}

func TestMarkReadAndUnreadFilter(t *testing.T) {
	clock := newFakeClock()
	for name, store := range backends(t, clock.Now) {
		t.Run(name, func(t *testing.T) {
			a, _ := store.Send(context.Background(), "A", "m", PriorityNormal, nil)
			b, _ := store.Send(context.Background(), "B", "m", PriorityNormal, nil)

			marked, err := store.MarkRead(context.Background(), a.ID)
			if err != nil {
				t.Fatalf("mark read failed: %v", err)
			}
			if !marked.Read {
				t.Fatal("expected read=true after MarkRead")
			}

			// Second MarkRead on the same id succeeds and stays read.
			again, err := store.MarkRead(context.Background(), a.ID)
			if err != nil {
				t.Fatalf("second mark read failed: %v", err)
			}
			if !again.Read {
				t.Fatal("expected read to remain true")
			}

			unread, err := store.List(context.Background(), true)
			if err != nil {
				t.Fatalf("list unread failed: %v", err)
			}
			if len(unread) != 1 || unread[0].ID != b.ID {
				t.Fatalf("expected only B unread, got %+v", unread)
			}
		})
	}
}

func TestMarkReadNotFound(t *testing.T) {
	clock := newFakeClock()
	for name, store := range backends(t, clock.Now) {
		t.Run(name, func(t *testing.T) {
			_, err := store.MarkRead(context.Background(), 9999)
			var ae *errors.AdjutantError
			if !stderrors.As(err, &ae) {
				t.Fatalf("expected AdjutantError, got %v", err)
			}
			if ae.Code != errors.CodeNotFound {
				t.Fatalf("expected NOT_FOUND, got %s", ae.Code)
			}
		})
	}
}

func TestClearOnlyRead(t *testing.T) {
	clock := newFakeClock()
	for name, store := range backends(t, clock.Now) {
		t.Run(name, func(t *testing.T) {
			sent, _ := store.Send(context.Background(), "X", "Y", PriorityHigh, nil)

			// Nothing is read yet: clearing read records removes zero.
			removed, err := store.Clear(context.Background(), true)
			if err != nil {
				t.Fatalf("clear failed: %v", err)
			}
			if removed != 0 {
				t.Fatalf("expected 0 removed, got %d", removed)
			}

			if _, err := store.MarkRead(context.Background(), sent.ID); err != nil {
				t.Fatalf("mark read failed: %v", err)
			}
			removed, err = store.Clear(context.Background(), true)
			if err != nil {
				t.Fatalf("clear failed: %v", err)
			}
			if removed != 1 {
				t.Fatalf("expected exactly 1 removed, got %d", removed)
			}
		})
	}
}

func TestClearAll(t *testing.T) {
	clock := newFakeClock()
	for name, store := range backends(t, clock.Now) {
		t.Run(name, func(t *testing.T) {
			store.Send(context.Background(), "A", "m", PriorityLow, nil)
			store.Send(context.Background(), "B", "m", PriorityLow, nil)

			removed, err := store.Clear(context.Background(), false)
			if err != nil {
				t.Fatalf("clear failed: %v", err)
			}
			if removed != 2 {
				t.Fatalf("expected 2 removed, got %d", removed)
			}

			items, _ := store.List(context.Background(), false)
			if len(items) != 0 {
				t.Fatalf("expected empty store, got %d", len(items))
			}
		})
	}
}

func TestIDsNeverReusedAfterClear(t *testing.T) {
	clock := newFakeClock()
	for name, store := range backends(t, clock.Now) {
		t.Run(name, func(t *testing.T) {
			first, _ := store.Send(context.Background(), "A", "m", PriorityNormal, nil)
			if _, err := store.Clear(context.Background(), false); err != nil {
				t.Fatalf("clear failed: %v", err)
			}
			second, err := store.Send(context.Background(), "B", "m", PriorityNormal, nil)
			if err != nil {
				t.Fatalf("send failed: %v", err)
			}
			if second.ID <= first.ID {
				t.Fatalf("id reused after clear: first=%d second=%d", first.ID, second.ID)
			}
		})
	}
}

func TestScheduledReminderVisibility(t *testing.T) {
	clock := newFakeClock()
	for name, store := range backends(t, clock.Now) {
		t.Run(name, func(t *testing.T) {
			reminder, err := store.ScheduleReminder(context.Background(), "Dentist", "Leave now", time.Hour, "")
			if err != nil {
				t.Fatalf("schedule failed: %v", err)
			}
			if reminder.DeliverAt == nil {
				t.Fatal("expected deliver-at on reminder")
			}
			if reminder.Priority != PriorityHigh {
				t.Fatalf("expected reminder default priority high, got %s", reminder.Priority)
			}

			// Not yet due: invisible.
			items, _ := store.List(context.Background(), false)
			if len(items) != 0 {
				t.Fatalf("pending reminder should be invisible, got %d items", len(items))
			}

			clock.Advance(time.Hour + time.Minute)
			items, err = store.List(context.Background(), false)
			if err != nil {
				t.Fatalf("list failed: %v", err)
			}
			if len(items) != 1 || items[0].Title != "Dentist" {
				t.Fatalf("expected reminder visible after due, got %+v", items)
			}
		})
	}
}

func TestInvalidPriorityRejected(t *testing.T) {
	clock := newFakeClock()
	for name, store := range backends(t, clock.Now) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Send(context.Background(), "A", "m", Priority("critical"), nil)
			var ae *errors.AdjutantError
			if !stderrors.As(err, &ae) || ae.Code != errors.CodeInvalidInput {
				t.Fatalf("expected INVALID_INPUT, got %v", err)
			}
		})
	}
}

func TestConcurrentSendsAssignUniqueIDs(t *testing.T) {
	clock := newFakeClock()
	for name, store := range backends(t, clock.Now) {
		t.Run(name, func(t *testing.T) {
			const writers = 8
			const perWriter = 5

			var wg sync.WaitGroup
			idsCh := make(chan int64, writers*perWriter)
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < perWriter; i++ {
						n, err := store.Send(context.Background(), "load", "m", PriorityNormal, nil)
						if err != nil {
							t.Errorf("send failed: %v", err)
							return
						}
						idsCh <- n.ID
					}
				}()
			}
			wg.Wait()
			close(idsCh)

			seen := make(map[int64]bool)
			for id := range idsCh {
				if seen[id] {
					t.Fatalf("duplicate id %d", id)
				}
				seen[id] = true
			}
			if len(seen) != writers*perWriter {
				t.Fatalf("expected %d ids, got %d", writers*perWriter, len(seen))
			}
		})
	}
}

func TestCallersReceiveCopies(t *testing.T) {
	clock := newFakeClock()
	store := NewInMemory(WithInMemoryClock(clock.Now))

	due := clock.Now().Add(-time.Minute)
	store.Send(context.Background(), "A", "m", PriorityNormal, &due)

	items, _ := store.List(context.Background(), false)
	items[0].Read = true
	*items[0].DeliverAt = items[0].DeliverAt.Add(48 * time.Hour)

	again, _ := store.List(context.Background(), false)
	if again[0].Read {
		t.Fatal("mutating a returned copy leaked into the store")
	}
	if len(again) != 1 {
		t.Fatal("deliver-at mutation leaked into the store")
	}
}

func TestPriorityParsingAndRank(t *testing.T) {
	p, err := ParsePriority("")
	if err != nil || p != PriorityNormal {
		t.Fatalf("expected empty to default to normal, got %v %v", p, err)
	}
	if _, err := ParsePriority("severe"); err == nil {
		t.Fatal("expected error for unknown priority")
	}
	if !(PriorityLow.Rank() < PriorityNormal.Rank() &&
		PriorityNormal.Rank() < PriorityHigh.Rank() &&
		PriorityHigh.Rank() < PriorityUrgent.Rank()) {
		t.Fatal("priority ranks are not ordered")
	}
}
