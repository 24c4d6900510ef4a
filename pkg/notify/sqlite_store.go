// SPDX-License-Identifier: Apache-2.0
package notify

import (
	"context"
	"database/sql"
	"time"

	"github.com/dmoret/adjutant/pkg/errors"

	_ "modernc.org/sqlite"
)

const notificationTable = "notifications"

// SQLiteStore persists notifications in a SQLite database. Monotonic ids
// come from an AUTOINCREMENT key, which SQLite guarantees never to reuse
// within a database lifetime.
type SQLiteStore struct {
	db    *sql.DB
	clock Clock
}

// SQLiteOption configures a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithSQLiteClock overrides the store clock.
func WithSQLiteClock(clock Clock) SQLiteOption {
	return func(s *SQLiteStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// OpenSQLite opens (or creates) the notification database at path.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.New(errors.CodePersistence, "open notification database", err).
			WithContext("path", path)
	}
	// SQLite allows one writer at a time; serializing the pool avoids
	// SQLITE_BUSY under concurrent sends.
	db.SetMaxOpenConns(1)
	return db, nil
}

// NewSQLiteStore creates a SQLite-backed store and ensures schema.
func NewSQLiteStore(db *sql.DB, opts ...SQLiteOption) (*SQLiteStore, error) {
	if db == nil {
		return nil, errors.New(errors.CodeInvalidInput, "db is nil", nil)
	}
	if err := ensureSchema(db); err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func ensureSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + notificationTable + ` (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			priority TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			read INTEGER NOT NULL DEFAULT 0,
			deliver_at INTEGER
		);`,
		`CREATE INDEX IF NOT EXISTS idx_` + notificationTable + `_deliver ON ` + notificationTable + `(deliver_at);`,
		`CREATE INDEX IF NOT EXISTS idx_` + notificationTable + `_read ON ` + notificationTable + `(read);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return errors.New(errors.CodePersistence, "ensure notification schema", err)
		}
	}
	return nil
}

// Send implements Store.
func (s *SQLiteStore) Send(ctx context.Context, title, message string, priority Priority, deliverAt *time.Time) (Notification, error) {
	p, err := ParsePriority(string(priority))
	if err != nil {
		return Notification{}, errors.New(errors.CodeInvalidInput, "invalid priority", err)
	}

	created := s.clock().UTC()
	var deliver sql.NullInt64
	var deliverCopy *time.Time
	if deliverAt != nil {
		t := deliverAt.UTC()
		deliver = sql.NullInt64{Int64: t.UnixNano(), Valid: true}
		deliverCopy = &t
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO `+notificationTable+` (title, message, priority, created_at, read, deliver_at)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		title, message, string(p), created.UnixNano(), deliver,
	)
	if err != nil {
		return Notification{}, errors.New(errors.CodePersistence, "insert notification", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Notification{}, errors.New(errors.CodePersistence, "read inserted id", err)
	}

	return Notification{
		ID:        id,
		Title:     title,
		Message:   message,
		Priority:  p,
		CreatedAt: created,
		DeliverAt: deliverCopy,
	}, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, unreadOnly bool) ([]Notification, error) {
	now := s.clock().UTC().UnixNano()
	query := `SELECT id, title, message, priority, created_at, read, deliver_at
		FROM ` + notificationTable + `
		WHERE (deliver_at IS NULL OR deliver_at <= ?)`
	if unreadOnly {
		query += ` AND read = 0`
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, errors.New(errors.CodePersistence, "list notifications", err)
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.CodePersistence, "iterate notifications", err)
	}
	return out, nil
}

// MarkRead implements Store.
func (s *SQLiteStore) MarkRead(ctx context.Context, id int64) (Notification, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE `+notificationTable+` SET read = 1 WHERE id = ?`, id)
	if err != nil {
		return Notification{}, errors.New(errors.CodePersistence, "mark notification read", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Notification{}, errors.New(errors.CodePersistence, "read affected rows", err)
	}
	if affected == 0 {
		return Notification{}, errors.New(errors.CodeNotFound, "notification not found", nil).
			WithContext("id", id)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, message, priority, created_at, read, deliver_at
		 FROM `+notificationTable+` WHERE id = ?`, id)
	return scanNotification(row)
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context, onlyRead bool) (int, error) {
	query := `DELETE FROM ` + notificationTable
	if onlyRead {
		query += ` WHERE read = 1`
	}
	res, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return 0, errors.New(errors.CodePersistence, "clear notifications", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, errors.New(errors.CodePersistence, "read affected rows", err)
	}
	return int(affected), nil
}

// ScheduleReminder implements Store.
func (s *SQLiteStore) ScheduleReminder(ctx context.Context, title, message string, delay time.Duration, priority Priority) (Notification, error) {
	due := s.clock().Add(delay).UTC()
	return s.Send(ctx, title, message, reminderPriority(priority), &due)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNotification(row rowScanner) (Notification, error) {
	var (
		n        Notification
		priority string
		created  int64
		read     int64
		deliver  sql.NullInt64
	)
	if err := row.Scan(&n.ID, &n.Title, &n.Message, &priority, &created, &read, &deliver); err != nil {
		if err == sql.ErrNoRows {
			return Notification{}, errors.New(errors.CodeNotFound, "notification not found", err)
		}
		return Notification{}, errors.New(errors.CodePersistence, "scan notification", err)
	}
	n.Priority = Priority(priority)
	n.CreatedAt = time.Unix(0, created).UTC()
	n.Read = read != 0
	if deliver.Valid {
		t := time.Unix(0, deliver.Int64).UTC()
		n.DeliverAt = &t
	}
	return n, nil
}
