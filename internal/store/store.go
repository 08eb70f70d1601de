// Package store is the embedded persistence layer holding connection
// records, sync tasks, sync logs, and the event log.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested record does not exist or is not
// visible to the caller.
var ErrNotFound = errors.New("record not found")

// Store wraps the embedded database. One connection is acquired and
// released per logical operation through withConn.
type Store struct {
	db *sql.DB
}

// Open opens the store at path with foreign keys enforced.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	// The embedded engine serializes writers; a single connection avoids
	// SQLITE_BUSY churn under concurrent request handling.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// Close releases the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the store file is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// bootstrapStatements create the schema idempotently. Safe to run against a
// pre-existing store.
var bootstrapStatements = []string{
	`CREATE TABLE IF NOT EXISTS database_connections (
		id TEXT PRIMARY KEY,
		owner_user_id TEXT NOT NULL,
		name TEXT NOT NULL,
		engine TEXT NOT NULL,
		host TEXT NOT NULL DEFAULT '',
		port INTEGER NOT NULL DEFAULT 0,
		database_name TEXT NOT NULL DEFAULT '',
		username TEXT NOT NULL DEFAULT '',
		encrypted_password TEXT,
		ssl_enabled INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		last_connected_at TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_connections_owner ON database_connections(owner_user_id)`,
	`CREATE TABLE IF NOT EXISTS sync_tasks (
		id TEXT PRIMARY KEY,
		owner_user_id TEXT NOT NULL,
		source_connection_id TEXT NOT NULL
			REFERENCES database_connections(id) ON DELETE CASCADE,
		target_connection_id TEXT
			REFERENCES database_connections(id) ON DELETE CASCADE,
		tables TEXT,
		schedule TEXT NOT NULL DEFAULT 'never',
		enabled INTEGER NOT NULL DEFAULT 0,
		last_sync_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(owner_user_id, source_connection_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sync_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT,
		status TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		rows_synced INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_logs_task ON sync_logs(task_id, id)`,
	`CREATE TABLE IF NOT EXISTS event_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_user_id TEXT NOT NULL,
		connection_id TEXT,
		action TEXT NOT NULL,
		detail TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_event_logs_owner ON event_logs(owner_user_id, id)`,
}

// Bootstrap creates the schema if missing.
func (s *Store) Bootstrap(ctx context.Context) error {
	return s.withConn(ctx, func(conn *sql.Conn) error {
		for _, stmt := range bootstrapStatements {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to bootstrap schema: %w", err)
			}
		}
		return nil
	})
}

// withConn acquires one connection, runs fn, and releases it on every exit
// path.
func (s *Store) withConn(ctx context.Context, fn func(conn *sql.Conn) error) error {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire store connection: %w", err)
	}
	defer conn.Close()

	return fn(conn)
}

// Connections returns the connection-record repository.
func (s *Store) Connections() *ConnectionRepository {
	return &ConnectionRepository{store: s}
}

// SyncTasks returns the sync-task repository.
func (s *Store) SyncTasks() *SyncTaskRepository {
	return &SyncTaskRepository{store: s}
}

// SyncLogs returns the sync-log repository.
func (s *Store) SyncLogs() *SyncLogRepository {
	return &SyncLogRepository{store: s}
}

// Events returns the event-log repository.
func (s *Store) Events() *EventRepository {
	return &EventRepository{store: s}
}
