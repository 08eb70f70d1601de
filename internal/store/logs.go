package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SyncLogRepository appends and reads sync job logs.
type SyncLogRepository struct {
	store *Store
}

// Append records one job attempt and returns its id.
func (r *SyncLogRepository) Append(ctx context.Context, entry *SyncLogEntry) (int64, error) {
	var id int64
	err := r.store.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `
			INSERT INTO sync_logs (task_id, start_time, end_time, status, message, rows_synced)
			VALUES (?, ?, ?, ?, ?, ?)`,
			entry.TaskID, encodeTime(entry.StartTime), encodeTimePtr(entry.EndTime),
			entry.Status, entry.Message, entry.RowsSynced)
		if err != nil {
			return fmt.Errorf("failed to append sync log: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Latest returns the most recent entry for a task, or ErrNotFound.
func (r *SyncLogRepository) Latest(ctx context.Context, taskID string) (*SyncLogEntry, error) {
	var entry *SyncLogEntry
	err := r.store.withConn(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, `
			SELECT id, task_id, start_time, end_time, status, message, rows_synced
			FROM sync_logs
			WHERE task_id = ?
			ORDER BY id DESC
			LIMIT 1`, taskID)
		e, err := scanSyncLog(row)
		if err != nil {
			return err
		}
		entry = e
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// History returns the most recent entries for a task, newest first.
func (r *SyncLogRepository) History(ctx context.Context, taskID string, limit int) ([]*SyncLogEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	var entries []*SyncLogEntry
	err := r.store.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT id, task_id, start_time, end_time, status, message, rows_synced
			FROM sync_logs
			WHERE task_id = ?
			ORDER BY id DESC
			LIMIT ?`, taskID, limit)
		if err != nil {
			return fmt.Errorf("failed to read sync history: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanSyncLog(rows)
			if err != nil {
				return err
			}
			entries = append(entries, e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func scanSyncLog(row rowScanner) (*SyncLogEntry, error) {
	var entry SyncLogEntry
	var startTime string
	var endTime sql.NullString

	err := row.Scan(&entry.ID, &entry.TaskID, &startTime, &endTime,
		&entry.Status, &entry.Message, &entry.RowsSynced)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync log: %w", err)
	}

	entry.StartTime = decodeTime(startTime)
	entry.EndTime = decodeTimePtr(endTime)
	return &entry, nil
}

// EventRepository appends and reads the audit trail.
type EventRepository struct {
	store *Store
}

// Append records one audited action.
func (r *EventRepository) Append(ctx context.Context, entry *EventLogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	return r.store.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO event_logs (owner_user_id, connection_id, action, detail, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			entry.OwnerUserID, entry.ConnectionID, entry.Action, entry.Detail,
			encodeTime(entry.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to append event: %w", err)
		}
		return nil
	})
}

// Recent returns a user's latest events, newest first.
func (r *EventRepository) Recent(ctx context.Context, ownerUserID string, limit int) ([]*EventLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []*EventLogEntry
	err := r.store.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT id, owner_user_id, connection_id, action, detail, created_at
			FROM event_logs
			WHERE owner_user_id = ?
			ORDER BY id DESC
			LIMIT ?`, ownerUserID, limit)
		if err != nil {
			return fmt.Errorf("failed to read events: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var entry EventLogEntry
			var connectionID sql.NullString
			var createdAt string
			if err := rows.Scan(&entry.ID, &entry.OwnerUserID, &connectionID,
				&entry.Action, &entry.Detail, &createdAt); err != nil {
				return fmt.Errorf("failed to scan event: %w", err)
			}
			if connectionID.Valid {
				entry.ConnectionID = &connectionID.String
			}
			entry.CreatedAt = decodeTime(createdAt)
			entries = append(entries, &entry)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
