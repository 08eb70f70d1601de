package mysql

import (
	"context"
	"fmt"

	"github.com/burrowhq/burrow/internal/database"
)

type dataOps struct {
	s *Session
}

// Query runs one row-returning statement.
func (o *dataOps) Query(ctx context.Context, sqlText string, args ...interface{}) (*database.QueryResult, error) {
	rows, err := o.s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, database.NewQueryError(database.MySQL, sqlText, err)
	}
	defer rows.Close()

	result, err := database.CollectRows(rows)
	if err != nil {
		return nil, database.NewQueryError(database.MySQL, sqlText, err)
	}
	return result, nil
}

// Execute runs one non-row-returning statement.
func (o *dataOps) Execute(ctx context.Context, sqlText string, args ...interface{}) (int64, error) {
	res, err := o.s.db.ExecContext(ctx, sqlText, args...)
	if err != nil {
		return 0, database.NewQueryError(database.MySQL, sqlText, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, database.NewQueryError(database.MySQL, sqlText, err)
	}
	return affected, nil
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
// validated by the caller; it is quoted here, not parameterized.
func (o *dataOps) Fetch(ctx context.Context, table string, limit int) (*database.QueryResult, error) {
	if limit <= 0 {
		limit = 100
	}
	return o.Query(ctx, fmt.Sprintf("SELECT * FROM `%s` LIMIT ?", table), limit)
}
