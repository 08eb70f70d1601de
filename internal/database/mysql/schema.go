package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/burrowhq/burrow/internal/database"
	"github.com/burrowhq/burrow/internal/schema"
)

type schemaOps struct {
	s *Session
}

// tableColumnQuery reads tables, views, and their columns in one pass.
// Row counts are the engine's live estimates, not exact counts.
const tableColumnQuery = `
	SELECT
		t.table_name,
		t.table_type,
		COALESCE(t.table_rows, 0),
		COALESCE(t.data_length, 0) + COALESCE(t.index_length, 0),
		t.update_time,
		c.column_name,
		c.column_type,
		c.is_nullable,
		c.column_default
	FROM information_schema.tables t
	JOIN information_schema.columns c
		ON t.table_schema = c.table_schema AND t.table_name = c.table_name
	WHERE t.table_schema = DATABASE()
	ORDER BY t.table_name, c.ordinal_position`

// keyRoleQuery resolves each column's constraint membership.
const keyRoleQuery = `
	SELECT
		k.table_name,
		k.column_name,
		t.constraint_type
	FROM information_schema.table_constraints t
	JOIN information_schema.key_column_usage k
		USING(constraint_name, table_schema, table_name)
	WHERE t.table_schema = DATABASE()
		AND t.constraint_type IN ('PRIMARY KEY', 'UNIQUE', 'FOREIGN KEY')
	ORDER BY k.table_name, k.ordinal_position`

// Introspect builds a snapshot from information_schema. A failure of the
// detailed query degrades to the bare table list with Partial set.
func (o *schemaOps) Introspect(ctx context.Context) (*schema.Snapshot, error) {
	snap, err := o.introspectDetailed(ctx)
	if err == nil {
		return snap, nil
	}

	detailErr := err
	names, err := o.ListTables(ctx)
	if err != nil {
		return nil, database.NewQueryError(database.MySQL, tableColumnQuery, detailErr)
	}

	fallback := &schema.Snapshot{
		Tables:             make([]schema.Table, 0, len(names)),
		ColumnsByTable:     make(map[string][]schema.Column),
		TotalSizeFormatted: schema.FormatBytes(0),
		Partial:            true,
		Message:            fmt.Sprintf("detailed schema query failed: %v", detailErr),
	}
	for _, name := range names {
		fallback.Tables = append(fallback.Tables, schema.Table{
			Name:     name,
			Kind:     schema.KindTable,
			RowCount: schema.RowCountUnknown,
		})
	}
	return fallback, nil
}

func (o *schemaOps) introspectDetailed(ctx context.Context) (*schema.Snapshot, error) {
	rows, err := o.s.db.QueryContext(ctx, tableColumnQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query table and column catalog: %w", err)
	}
	defer rows.Close()

	snap := &schema.Snapshot{
		Tables:         make([]schema.Table, 0),
		ColumnsByTable: make(map[string][]schema.Column),
	}
	tableIndex := make(map[string]int)

	for rows.Next() {
		var tableName, tableType, columnName, columnType, isNullable string
		var rowCount, sizeBytes int64
		var updateTime sql.NullTime
		var columnDefault sql.NullString

		if err := rows.Scan(&tableName, &tableType, &rowCount, &sizeBytes,
			&updateTime, &columnName, &columnType, &isNullable, &columnDefault); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}

		idx, seen := tableIndex[tableName]
		if !seen {
			kind := schema.KindTable
			if tableType == "VIEW" {
				kind = schema.KindView
			}
			var lastUpdated *time.Time
			if updateTime.Valid {
				t := updateTime.Time
				lastUpdated = &t
			}
			snap.Tables = append(snap.Tables, schema.Table{
				Name:          tableName,
				Kind:          kind,
				RowCount:      rowCount,
				SizeBytes:     sizeBytes,
				SizeFormatted: schema.FormatBytes(sizeBytes),
				LastUpdated:   lastUpdated,
			})
			idx = len(snap.Tables) - 1
			tableIndex[tableName] = idx
		}

		column := schema.Column{
			Name:     columnName,
			DataType: columnType,
			Nullable: isNullable == "YES",
			KeyRole:  schema.KeyNone,
		}
		if columnDefault.Valid {
			def := columnDefault.String
			column.DefaultValue = &def
		}
		snap.ColumnsByTable[tableName] = append(snap.ColumnsByTable[tableName], column)
		snap.Tables[idx].ColumnCount++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog rows: %w", err)
	}

	if err := o.applyKeyRoles(ctx, snap); err != nil {
		return nil, err
	}

	snap.TotalSizeFormatted = schema.FormatBytes(snap.TotalSizeBytes())
	return snap, nil
}

func (o *schemaOps) applyKeyRoles(ctx context.Context, snap *schema.Snapshot) error {
	rows, err := o.s.db.QueryContext(ctx, keyRoleQuery)
	if err != nil {
		return fmt.Errorf("failed to query key constraints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, columnName, constraintType string
		if err := rows.Scan(&tableName, &columnName, &constraintType); err != nil {
			return fmt.Errorf("failed to scan constraint row: %w", err)
		}

		columns := snap.ColumnsByTable[tableName]
		for i := range columns {
			if columns[i].Name != columnName {
				continue
			}
			columns[i].KeyRole = schema.StrongerKeyRole(columns[i].KeyRole, schema.RoleForConstraint(constraintType))
		}
	}
	return rows.Err()
}

// ListTables returns bare table names, the degraded-path query.
func (o *schemaOps) ListTables(ctx context.Context) ([]string, error) {
	rows, err := o.s.db.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = DATABASE() ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
