package postgres

import (
	"context"
	"fmt"
	"sync"

	"github.com/burrowhq/burrow/internal/database"
	"github.com/burrowhq/burrow/internal/schema"
)

type schemaOps struct {
	s *Session
}

// tableQuery reads relations and their total on-disk size from pg_class.
const tableQuery = `
	SELECT
		c.relname,
		CASE WHEN c.relkind IN ('v', 'm') THEN 'VIEW' ELSE 'BASE TABLE' END,
		pg_total_relation_size(c.oid)
	FROM pg_class c
	JOIN pg_namespace n ON n.oid = c.relnamespace
	WHERE n.nspname = 'public' AND c.relkind IN ('r', 'p', 'v', 'm')
	ORDER BY c.relname`

const columnQuery = `
	SELECT
		table_name,
		column_name,
		data_type,
		is_nullable,
		column_default
	FROM information_schema.columns
	WHERE table_schema = 'public'
	ORDER BY table_name, ordinal_position`

// keyRoleQuery joins constraints, their key columns, and the owning tables.
const keyRoleQuery = `
	SELECT
		tc.table_name,
		kcu.column_name,
		tc.constraint_type
	FROM information_schema.table_constraints tc
	JOIN information_schema.key_column_usage kcu
		ON tc.constraint_name = kcu.constraint_name
		AND tc.table_schema = kcu.table_schema
	JOIN information_schema.tables t
		ON tc.table_name = t.table_name
		AND tc.table_schema = t.table_schema
	WHERE tc.table_schema = 'public'
		AND tc.constraint_type IN ('PRIMARY KEY', 'UNIQUE', 'FOREIGN KEY')
	ORDER BY tc.table_name, kcu.ordinal_position`

// Introspect builds a snapshot from the system catalogs. Row counts are
// exact, gathered with one COUNT(*) per table fanned out concurrently; a
// failing count marks that table unknown instead of failing the snapshot.
// A failure of the detailed queries degrades to the bare table list.
func (o *schemaOps) Introspect(ctx context.Context) (*schema.Snapshot, error) {
	snap, err := o.introspectDetailed(ctx)
	if err == nil {
		return snap, nil
	}

	detailErr := err
	names, err := o.ListTables(ctx)
	if err != nil {
		return nil, database.NewQueryError(database.Postgres, tableQuery, detailErr)
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
	snap := &schema.Snapshot{
		Tables:         make([]schema.Table, 0),
		ColumnsByTable: make(map[string][]schema.Column),
	}
	tableIndex := make(map[string]int)

	rows, err := o.s.pool.Query(ctx, tableQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to query relation catalog: %w", err)
	}
	for rows.Next() {
		var name, tableType string
		var sizeBytes int64
		if err := rows.Scan(&name, &tableType, &sizeBytes); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan relation row: %w", err)
		}
		kind := schema.KindTable
		if tableType == "VIEW" {
			kind = schema.KindView
		}
		snap.Tables = append(snap.Tables, schema.Table{
			Name:          name,
			Kind:          kind,
			RowCount:      schema.RowCountUnknown,
			SizeBytes:     sizeBytes,
			SizeFormatted: schema.FormatBytes(sizeBytes),
		})
		tableIndex[name] = len(snap.Tables) - 1
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read relation catalog: %w", err)
	}

	if err := o.loadColumns(ctx, snap, tableIndex); err != nil {
		return nil, err
	}
	if err := o.applyKeyRoles(ctx, snap); err != nil {
		return nil, err
	}
	o.countRows(ctx, snap, tableIndex)

	snap.TotalSizeFormatted = schema.FormatBytes(snap.TotalSizeBytes())
	return snap, nil
}

func (o *schemaOps) loadColumns(ctx context.Context, snap *schema.Snapshot, tableIndex map[string]int) error {
	rows, err := o.s.pool.Query(ctx, columnQuery)
	if err != nil {
		return fmt.Errorf("failed to query column catalog: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, columnName, dataType, isNullable string
		var columnDefault *string
		if err := rows.Scan(&tableName, &columnName, &dataType, &isNullable, &columnDefault); err != nil {
			return fmt.Errorf("failed to scan column row: %w", err)
		}

		idx, seen := tableIndex[tableName]
		if !seen {
			continue
		}
		snap.ColumnsByTable[tableName] = append(snap.ColumnsByTable[tableName], schema.Column{
			Name:         columnName,
			DataType:     dataType,
			Nullable:     isNullable == "YES",
			DefaultValue: columnDefault,
			KeyRole:      schema.KeyNone,
		})
		snap.Tables[idx].ColumnCount++
	}
	return rows.Err()
}

func (o *schemaOps) applyKeyRoles(ctx context.Context, snap *schema.Snapshot) error {
	rows, err := o.s.pool.Query(ctx, keyRoleQuery)
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

// countRows runs one exact COUNT(*) per base table concurrently. A slow or
// failing table keeps RowCountUnknown; the rest are unaffected.
func (o *schemaOps) countRows(ctx context.Context, snap *schema.Snapshot, tableIndex map[string]int) {
	var wg sync.WaitGroup
	var mu sync.Mutex

	for name, idx := range tableIndex {
		if snap.Tables[idx].Kind != schema.KindTable {
			continue
		}
		wg.Add(1)
		go func(name string, idx int) {
			defer wg.Done()
			var count int64
			err := o.s.pool.QueryRow(ctx,
				fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, name)).Scan(&count)
			if err != nil {
				return
			}
			mu.Lock()
			snap.Tables[idx].RowCount = count
			mu.Unlock()
		}(name, idx)
	}
	wg.Wait()
}

// ListTables returns bare table names, the degraded-path query.
func (o *schemaOps) ListTables(ctx context.Context) ([]string, error) {
	rows, err := o.s.pool.Query(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name`)
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
