package engine

import (
	"context"

	"github.com/burrowhq/burrow/internal/database"
	"github.com/burrowhq/burrow/internal/mutation"
	"github.com/burrowhq/burrow/internal/schema"
)

// DefaultFetchLimit bounds table-data reads when the caller does not say.
const DefaultFetchLimit = 100

// GetSchema introspects a connection. A degraded snapshot (Partial set)
// is a successful outcome; only an unreachable engine errors.
func (s *Service) GetSchema(ctx context.Context, id, ownerUserID string) (snapshot *schema.Snapshot, err error) {
	done := s.begin()
	defer func() { done(err) }()

	err = s.withSession(ctx, id, ownerUserID, database.DefaultConnectTimeout,
		func(session database.Session) error {
			ops := session.SchemaOperations()
			if ops == nil {
				return database.NewUnsupportedOperationError(session.Engine(), "schema introspection", "no schema operator")
			}
			var opErr error
			snapshot, opErr = ops.Introspect(ctx)
			return opErr
		})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// RunQuery executes exactly one statement string as given and returns the
// normalized result.
func (s *Service) RunQuery(ctx context.Context, id, ownerUserID, sqlText string) (result *database.QueryResult, err error) {
	done := s.begin()
	defer func() { done(err) }()

	if sqlText == "" {
		return nil, mutation.NewValidationError("query", "must not be empty")
	}

	err = s.withSession(ctx, id, ownerUserID, database.DefaultConnectTimeout,
		func(session database.Session) error {
			var opErr error
			result, opErr = session.DataOperations().Run(ctx, sqlText)
			return opErr
		})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetTableData reads up to limit rows from a table.
func (s *Service) GetTableData(ctx context.Context, id, ownerUserID, table string, limit int) (result *database.QueryResult, err error) {
	done := s.begin()
	defer func() { done(err) }()

	if !mutation.ValidIdentifier(table) {
		return nil, mutation.NewValidationError("table", "invalid identifier")
	}
	if limit <= 0 {
		limit = DefaultFetchLimit
	}

	err = s.withSession(ctx, id, ownerUserID, database.DefaultConnectTimeout,
		func(session database.Session) error {
			var opErr error
			result, opErr = session.DataOperations().Fetch(ctx, table, limit)
			return opErr
		})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// StorageInfo probes a connection's on-disk footprint. Unsupported
// engine/feature combinations come back zeroed with a message, not as
// errors.
func (s *Service) StorageInfo(ctx context.Context, id, ownerUserID string) (info *database.StorageInfo, err error) {
	done := s.begin()
	defer func() { done(err) }()

	err = s.withSession(ctx, id, ownerUserID, database.ProbeConnectTimeout,
		func(session database.Session) error {
			var opErr error
			info, opErr = session.StatsOperations().StorageInfo(ctx)
			return opErr
		})
	if err != nil {
		return nil, err
	}
	return info, nil
}

// TransactionStats probes a connection's activity counters.
func (s *Service) TransactionStats(ctx context.Context, id, ownerUserID string) (stats *database.TransactionStats, err error) {
	done := s.begin()
	defer func() { done(err) }()

	err = s.withSession(ctx, id, ownerUserID, database.ProbeConnectTimeout,
		func(session database.Session) error {
			var opErr error
			stats, opErr = session.StatsOperations().TransactionStats(ctx)
			return opErr
		})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
