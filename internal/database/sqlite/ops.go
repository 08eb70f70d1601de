package sqlite

import (
	"context"
	"fmt"
	"os"

	"github.com/burrowhq/burrow/internal/database"
	"github.com/burrowhq/burrow/internal/schema"
)

type schemaOps struct {
	s *Session
}

// Introspect reports an explicit not-implemented snapshot. File-based
// databases get no catalog walk in this design.
func (o *schemaOps) Introspect(ctx context.Context) (*schema.Snapshot, error) {
	names, err := o.ListTables(ctx)
	if err != nil {
		names = nil
	}

	snap := &schema.Snapshot{
		Tables:             make([]schema.Table, 0, len(names)),
		ColumnsByTable:     make(map[string][]schema.Column),
		TotalSizeFormatted: schema.FormatBytes(0),
		Partial:            true,
		Message:            "schema introspection is not implemented for sqlite connections",
	}
	for _, name := range names {
		snap.Tables = append(snap.Tables, schema.Table{
			Name:     name,
			Kind:     schema.KindTable,
			RowCount: schema.RowCountUnknown,
		})
	}
	return snap, nil
}

// ListTables reads table names from sqlite_master.
func (o *schemaOps) ListTables(ctx context.Context) ([]string, error) {
	rows, err := o.s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
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

type dataOps struct {
	s *Session
}

// Query runs one row-returning statement.
func (o *dataOps) Query(ctx context.Context, sqlText string, args ...interface{}) (*database.QueryResult, error) {
	rows, err := o.s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, database.NewQueryError(database.SQLite, sqlText, err)
	}
	defer rows.Close()

	result, err := database.CollectRows(rows)
	if err != nil {
		return nil, database.NewQueryError(database.SQLite, sqlText, err)
	}
	return result, nil
}

// Execute runs one non-row-returning statement.
func (o *dataOps) Execute(ctx context.Context, sqlText string, args ...interface{}) (int64, error) {
	res, err := o.s.db.ExecContext(ctx, sqlText, args...)
	if err != nil {
		return 0, database.NewQueryError(database.SQLite, sqlText, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, database.NewQueryError(database.SQLite, sqlText, err)
	}
	return affected, nil
}

// Run executes exactly one statement as given.
func (o *dataOps) Run(ctx context.Context, sqlText string) (*database.QueryResult, error) {
	if database.IsRowReturning(sqlText) {
		return o.Query(ctx, sqlText)
	}

	affected, err := o.Execute(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	return &database.QueryResult{
		Rows:             make([]map[string]interface{}, 0),
		AffectedRowCount: affected,
		Succeeded:        true,
		Message:          fmt.Sprintf("%d row(s) affected", affected),
	}, nil
}

// Fetch reads up to limit rows from a table.
func (o *dataOps) Fetch(ctx context.Context, table string, limit int) (*database.QueryResult, error) {
	if limit <= 0 {
		limit = 100
	}
	return o.Query(ctx, fmt.Sprintf(`SELECT * FROM "%s" LIMIT ?`, table), limit)
}

type statsOps struct {
	s *Session
}

// StorageInfo reports the database file size.
func (o *statsOps) StorageInfo(ctx context.Context) (*database.StorageInfo, error) {
	info, err := os.Stat(o.s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat database file: %w", err)
	}
	return &database.StorageInfo{
		SizeBytes:     info.Size(),
		SizeFormatted: schema.FormatBytes(info.Size()),
	}, nil
}

// TransactionStats has no server counters to read; it reports zeroes with
// an explanatory message.
func (o *statsOps) TransactionStats(ctx context.Context) (*database.TransactionStats, error) {
	return &database.TransactionStats{
		Message: "transaction statistics are not available for sqlite connections",
	}, nil
}
