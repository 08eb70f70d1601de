package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SyncTaskRepository persists sync tasks.
type SyncTaskRepository struct {
	store *Store
}

const taskColumns = `id, owner_user_id, source_connection_id, target_connection_id,
	tables, schedule, enabled, last_sync_at, created_at, updated_at`

// Create inserts a task. A concurrent duplicate for the same (owner,
// source) pair trips the unique constraint; callers treat that as
// idempotent, not fatal.
func (r *SyncTaskRepository) Create(ctx context.Context, task *SyncTask) error {
	tables, err := encodeTables(task.Tables)
	if err != nil {
		return err
	}
	return r.store.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO sync_tasks (`+taskColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			task.ID, task.OwnerUserID, task.SourceConnectionID,
			task.TargetConnectionID, tables, string(task.Schedule),
			task.Enabled, encodeTimePtr(task.LastSyncAt),
			encodeTime(task.CreatedAt), encodeTime(task.UpdatedAt))
		if err != nil {
			return fmt.Errorf("failed to insert sync task: %w", err)
		}
		return nil
	})
}

// IsDuplicate reports whether an insert failed on the per-pair uniqueness
// constraint.
func IsDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Get fetches a task by id, scoped to its owner.
func (r *SyncTaskRepository) Get(ctx context.Context, id, ownerUserID string) (*SyncTask, error) {
	return r.one(ctx, `SELECT `+taskColumns+` FROM sync_tasks WHERE id = ? AND owner_user_id = ?`,
		id, ownerUserID)
}

// GetBySource fetches the task configured for a source connection.
func (r *SyncTaskRepository) GetBySource(ctx context.Context, sourceConnectionID, ownerUserID string) (*SyncTask, error) {
	return r.one(ctx, `SELECT `+taskColumns+` FROM sync_tasks WHERE source_connection_id = ? AND owner_user_id = ?`,
		sourceConnectionID, ownerUserID)
}

// GetByID fetches a task by id alone. Used by the worker callback, which
// carries no owner scope.
func (r *SyncTaskRepository) GetByID(ctx context.Context, id string) (*SyncTask, error) {
	return r.one(ctx, `SELECT `+taskColumns+` FROM sync_tasks WHERE id = ?`, id)
}

func (r *SyncTaskRepository) one(ctx context.Context, query string, args ...interface{}) (*SyncTask, error) {
	var task *SyncTask
	err := r.store.withConn(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, query, args...)
		t, err := scanTask(row)
		if err != nil {
			return err
		}
		task = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// List returns all tasks owned by a user.
func (r *SyncTaskRepository) List(ctx context.Context, ownerUserID string) ([]*SyncTask, error) {
	return r.many(ctx, `SELECT `+taskColumns+` FROM sync_tasks WHERE owner_user_id = ? ORDER BY created_at DESC`,
		ownerUserID)
}

// ListEnabled returns every enabled task with a real schedule, across all
// owners. The schedule loop consumes this.
func (r *SyncTaskRepository) ListEnabled(ctx context.Context) ([]*SyncTask, error) {
	return r.many(ctx, `SELECT `+taskColumns+` FROM sync_tasks WHERE enabled = 1 AND schedule != 'never'`)
}

func (r *SyncTaskRepository) many(ctx context.Context, query string, args ...interface{}) ([]*SyncTask, error) {
	var tasks []*SyncTask
	err := r.store.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to list sync tasks: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			t, err := scanTask(rows)
			if err != nil {
				return err
			}
			tasks = append(tasks, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update rewrites a task's mutable fields.
func (r *SyncTaskRepository) Update(ctx context.Context, task *SyncTask) error {
	tables, err := encodeTables(task.Tables)
	if err != nil {
		return err
	}
	return r.store.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `
			UPDATE sync_tasks
			SET target_connection_id = ?, tables = ?, schedule = ?, enabled = ?,
				last_sync_at = ?, updated_at = ?
			WHERE id = ? AND owner_user_id = ?`,
			task.TargetConnectionID, tables, string(task.Schedule),
			task.Enabled, encodeTimePtr(task.LastSyncAt),
			encodeTime(task.UpdatedAt), task.ID, task.OwnerUserID)
		if err != nil {
			return fmt.Errorf("failed to update sync task: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// SetLastSync stamps a successful run. Unscoped by owner: the worker
// callback addresses tasks by id.
func (r *SyncTaskRepository) SetLastSync(ctx context.Context, id string, at time.Time) error {
	return r.store.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx,
			`UPDATE sync_tasks SET last_sync_at = ?, updated_at = ? WHERE id = ?`,
			encodeTime(at), encodeTime(time.Now()), id)
		return err
	})
}

// Delete removes a task scoped to its owner.
func (r *SyncTaskRepository) Delete(ctx context.Context, id, ownerUserID string) error {
	return r.store.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx,
			`DELETE FROM sync_tasks WHERE id = ? AND owner_user_id = ?`, id, ownerUserID)
		if err != nil {
			return fmt.Errorf("failed to delete sync task: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func encodeTables(tables []string) (interface{}, error) {
	if tables == nil {
		return nil, nil
	}
	data, err := json.Marshal(tables)
	if err != nil {
		return nil, fmt.Errorf("failed to encode table filter: %w", err)
	}
	return string(data), nil
}

func scanTask(row rowScanner) (*SyncTask, error) {
	var task SyncTask
	var target, tables, lastSyncAt sql.NullString
	var schedule, createdAt, updatedAt string

	err := row.Scan(&task.ID, &task.OwnerUserID, &task.SourceConnectionID,
		&target, &tables, &schedule, &task.Enabled, &lastSyncAt,
		&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan sync task: %w", err)
	}

	if target.Valid {
		task.TargetConnectionID = &target.String
	}
	if tables.Valid && tables.String != "" {
		if err := json.Unmarshal([]byte(tables.String), &task.Tables); err != nil {
			return nil, fmt.Errorf("failed to decode table filter: %w", err)
		}
	}
	task.Schedule = SyncSchedule(schedule)
	task.LastSyncAt = decodeTimePtr(lastSyncAt)
	task.CreatedAt = decodeTime(createdAt)
	task.UpdatedAt = decodeTime(updatedAt)
	return &task, nil
}
