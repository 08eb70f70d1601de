package mysql

import (
	"context"
	"fmt"
	"strconv"

	"github.com/burrowhq/burrow/internal/database"
	"github.com/burrowhq/burrow/internal/schema"
)

type statsOps struct {
	s *Session
}

// StorageInfo sums data and index bytes over the current schema.
func (o *statsOps) StorageInfo(ctx context.Context) (*database.StorageInfo, error) {
	var sizeBytes int64
	err := o.s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(data_length + index_length), 0)
		FROM information_schema.tables
		WHERE table_schema = DATABASE()`).Scan(&sizeBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read storage size: %w", err)
	}

	return &database.StorageInfo{
		SizeBytes:     sizeBytes,
		SizeFormatted: schema.FormatBytes(sizeBytes),
	}, nil
}

// TransactionStats reads activity counters from the server status.
func (o *statsOps) TransactionStats(ctx context.Context) (*database.TransactionStats, error) {
	rows, err := o.s.db.QueryContext(ctx,
		`SHOW GLOBAL STATUS WHERE Variable_name IN ('Com_commit', 'Com_rollback', 'Threads_connected')`)
	if err != nil {
		return nil, fmt.Errorf("failed to read server status: %w", err)
	}
	defer rows.Close()

	stats := &database.TransactionStats{}
	for rows.Next() {
		var name, raw string
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan status row: %w", err)
		}
		value, _ := strconv.ParseInt(raw, 10, 64)
		switch name {
		case "Com_commit":
			stats.TotalCommits = value
		case "Com_rollback":
			stats.TotalRollbacks = value
		case "Threads_connected":
			stats.ActiveConnections = value
		}
	}
	return stats, rows.Err()
}
