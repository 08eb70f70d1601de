package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/burrowhq/burrow/internal/database"
)

type dataOps struct {
	s *Session
}

// Query runs one row-returning statement.
func (o *dataOps) Query(ctx context.Context, sqlText string, args ...interface{}) (*database.QueryResult, error) {
	rows, err := o.s.pool.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, database.NewQueryError(database.Postgres, sqlText, err)
	}
	defer rows.Close()

	result, err := collectPgxRows(rows)
	if err != nil {
		return nil, database.NewQueryError(database.Postgres, sqlText, err)
	}
	return result, nil
}

// Execute runs one non-row-returning statement.
func (o *dataOps) Execute(ctx context.Context, sqlText string, args ...interface{}) (int64, error) {
	tag, err := o.s.pool.Exec(ctx, sqlText, args...)
	if err != nil {
		return 0, database.NewQueryError(database.Postgres, sqlText, err)
	}
	return tag.RowsAffected(), nil
}

// Run executes exactly one statement as given, dispatching on the leading
// keyword.
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

// Fetch reads up to limit rows from a table. The table name must already be
// validated by the caller.
func (o *dataOps) Fetch(ctx context.Context, table string, limit int) (*database.QueryResult, error) {
	if limit <= 0 {
		limit = 100
	}
	return o.Query(ctx, fmt.Sprintf(`SELECT * FROM "%s" LIMIT $1`, table), limit)
}

// collectPgxRows drains pgx rows into a normalized QueryResult.
func collectPgxRows(rows pgx.Rows) (*database.QueryResult, error) {
	fields := rows.FieldDescriptions()
	columns := make([]database.ColumnMeta, len(fields))
	for i, f := range fields {
		columns[i] = database.ColumnMeta{Name: string(f.Name)}
	}

	result := &database.QueryResult{
		Columns:   columns,
		Rows:      make([]map[string]interface{}, 0),
		Succeeded: true,
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(fields))
		for i, f := range fields {
			row[string(f.Name)] = database.NormalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
