package postgres

import (
	"context"
	"fmt"

	"github.com/burrowhq/burrow/internal/database"
	"github.com/burrowhq/burrow/internal/schema"
)

type statsOps struct {
	s *Session
}

// StorageInfo reads the database's total on-disk size.
func (o *statsOps) StorageInfo(ctx context.Context) (*database.StorageInfo, error) {
	var sizeBytes int64
	err := o.s.pool.QueryRow(ctx,
		`SELECT pg_database_size(current_database())`).Scan(&sizeBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to read database size: %w", err)
	}

	return &database.StorageInfo{
		SizeBytes:     sizeBytes,
		SizeFormatted: schema.FormatBytes(sizeBytes),
	}, nil
}

// TransactionStats reads commit/rollback counters and the live backend count.
func (o *statsOps) TransactionStats(ctx context.Context) (*database.TransactionStats, error) {
	stats := &database.TransactionStats{}

	err := o.s.pool.QueryRow(ctx, `
		SELECT COALESCE(xact_commit, 0), COALESCE(xact_rollback, 0)
		FROM pg_stat_database
		WHERE datname = current_database()`).Scan(&stats.TotalCommits, &stats.TotalRollbacks)
	if err != nil {
		return nil, fmt.Errorf("failed to read transaction counters: %w", err)
	}

	err = o.s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM pg_stat_activity WHERE datname = current_database()`).
		Scan(&stats.ActiveConnections)
	if err != nil {
		return nil, fmt.Errorf("failed to read activity count: %w", err)
	}

	return stats, nil
}
