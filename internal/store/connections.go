package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Timestamps are stored as RFC 3339 text so the schema stays portable and
// human-inspectable.
func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func encodeTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}

func decodeTimePtr(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t := decodeTime(s.String)
	return &t
}

// ConnectionRepository persists connection records.
type ConnectionRepository struct {
	store *Store
}

const connectionColumns = `id, owner_user_id, name, engine, host, port, database_name,
	username, encrypted_password, ssl_enabled, notes, created_at, updated_at, last_connected_at`

// Create inserts a new connection record.
func (r *ConnectionRepository) Create(ctx context.Context, record *ConnectionRecord) error {
	return r.store.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `
			INSERT INTO database_connections (`+connectionColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ID, record.OwnerUserID, record.Name, record.Engine,
			record.Host, record.Port, record.DatabaseName, record.Username,
			record.EncryptedPassword, record.SSLEnabled, record.Notes,
			encodeTime(record.CreatedAt), encodeTime(record.UpdatedAt),
			encodeTimePtr(record.LastConnectedAt))
		if err != nil {
			return fmt.Errorf("failed to insert connection: %w", err)
		}
		return nil
	})
}

// Get fetches one record scoped to its owner. A record owned by someone
// else is indistinguishable from a missing one.
func (r *ConnectionRepository) Get(ctx context.Context, id, ownerUserID string) (*ConnectionRecord, error) {
	var record *ConnectionRecord
	err := r.store.withConn(ctx, func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, `
			SELECT `+connectionColumns+`
			FROM database_connections
			WHERE id = ? AND owner_user_id = ?`, id, ownerUserID)
		rec, err := scanConnection(row)
		if err != nil {
			return err
		}
		record = rec
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// List returns all records owned by a user, newest first.
func (r *ConnectionRepository) List(ctx context.Context, ownerUserID string) ([]*ConnectionRecord, error) {
	var records []*ConnectionRecord
	err := r.store.withConn(ctx, func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, `
			SELECT `+connectionColumns+`
			FROM database_connections
			WHERE owner_user_id = ?
			ORDER BY created_at DESC`, ownerUserID)
		if err != nil {
			return fmt.Errorf("failed to list connections: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			rec, err := scanConnection(rows)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Update rewrites a record's mutable fields, scoped to its owner.
func (r *ConnectionRepository) Update(ctx context.Context, record *ConnectionRecord) error {
	return r.store.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `
			UPDATE database_connections
			SET name = ?, engine = ?, host = ?, port = ?, database_name = ?,
				username = ?, encrypted_password = ?, ssl_enabled = ?, notes = ?,
				updated_at = ?, last_connected_at = ?
			WHERE id = ? AND owner_user_id = ?`,
			record.Name, record.Engine, record.Host, record.Port,
			record.DatabaseName, record.Username, record.EncryptedPassword,
			record.SSLEnabled, record.Notes, encodeTime(record.UpdatedAt),
			encodeTimePtr(record.LastConnectedAt),
			record.ID, record.OwnerUserID)
		if err != nil {
			return fmt.Errorf("failed to update connection: %w", err)
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

// TouchLastConnected stamps a successful session open.
func (r *ConnectionRepository) TouchLastConnected(ctx context.Context, id, ownerUserID string, at time.Time) error {
	return r.store.withConn(ctx, func(conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx, `
			UPDATE database_connections
			SET last_connected_at = ?
			WHERE id = ? AND owner_user_id = ?`,
			encodeTime(at), id, ownerUserID)
		return err
	})
}

// Delete removes a record scoped to its owner. Dependent sync tasks cascade.
func (r *ConnectionRepository) Delete(ctx context.Context, id, ownerUserID string) error {
	return r.store.withConn(ctx, func(conn *sql.Conn) error {
		res, err := conn.ExecContext(ctx, `
			DELETE FROM database_connections
			WHERE id = ? AND owner_user_id = ?`, id, ownerUserID)
		if err != nil {
			return fmt.Errorf("failed to delete connection: %w", err)
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

// CountByOwner returns how many records a user owns.
func (r *ConnectionRepository) CountByOwner(ctx context.Context, ownerUserID string) (int, error) {
	var count int
	err := r.store.withConn(ctx, func(conn *sql.Conn) error {
		return conn.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM database_connections WHERE owner_user_id = ?`,
			ownerUserID).Scan(&count)
	})
	return count, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConnection(row rowScanner) (*ConnectionRecord, error) {
	var rec ConnectionRecord
	var encryptedPassword sql.NullString
	var createdAt, updatedAt string
	var lastConnectedAt sql.NullString

	err := row.Scan(&rec.ID, &rec.OwnerUserID, &rec.Name, &rec.Engine,
		&rec.Host, &rec.Port, &rec.DatabaseName, &rec.Username,
		&encryptedPassword, &rec.SSLEnabled, &rec.Notes,
		&createdAt, &updatedAt, &lastConnectedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan connection: %w", err)
	}

	if encryptedPassword.Valid {
		rec.EncryptedPassword = &encryptedPassword.String
	}
	rec.CreatedAt = decodeTime(createdAt)
	rec.UpdatedAt = decodeTime(updatedAt)
	rec.LastConnectedAt = decodeTimePtr(lastConnectedAt)
	return &rec, nil
}
