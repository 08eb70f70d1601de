package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/burrowhq/burrow/internal/audit"
	"github.com/burrowhq/burrow/internal/database"
	"github.com/burrowhq/burrow/internal/mutation"
	"github.com/burrowhq/burrow/internal/registry"
)

// MutationResult reports the outcome of one table or row mutation. A zero
// affected count on update/delete comes back with Success false and a
// "no matching row" message rather than an error.
type MutationResult struct {
	Success      bool   `json:"success"`
	AffectedRows int64  `json:"affectedRows"`
	Message      string `json:"message,omitempty"`
}

func (s *Service) guardMutable(id string) error {
	if s.registry.IsSample(id) {
		return registry.ErrSampleReadOnly
	}
	return nil
}

// execStatement runs one built statement against a connection.
func (s *Service) execStatement(ctx context.Context, id, ownerUserID string, stmt mutation.Statement) (int64, error) {
	var affected int64
	err := s.withSession(ctx, id, ownerUserID, database.DefaultConnectTimeout,
		func(session database.Session) error {
			var opErr error
			affected, opErr = session.DataOperations().Execute(ctx, stmt.SQL, stmt.Args...)
			return opErr
		})
	return affected, err
}

// CreateTable builds and runs a dialect-correct CREATE TABLE. An existing
// table of the same name is a conflict, not an engine error.
func (s *Service) CreateTable(ctx context.Context, id, ownerUserID, table string, columns []mutation.ColumnDef) (err error) {
	done := s.begin()
	defer func() { done(err) }()

	if err = s.guardMutable(id); err != nil {
		return err
	}

	record, err := s.registry.Get(ctx, id, ownerUserID)
	if err != nil {
		return err
	}

	stmt, err := mutation.CreateTable(database.Engine(record.Engine), table, columns)
	if err != nil {
		return err
	}

	if _, err = s.execStatement(ctx, id, ownerUserID, stmt); err != nil {
		if isDuplicateTable(err) {
			return fmt.Errorf("table %s already exists: %w", table, ErrConflict)
		}
		return err
	}

	s.recorder.Record(ctx, ownerUserID, &id, audit.ActionTableCreated, table)
	return nil
}

// DropTable removes a table.
func (s *Service) DropTable(ctx context.Context, id, ownerUserID, table string) (err error) {
	done := s.begin()
	defer func() { done(err) }()

	if err = s.guardMutable(id); err != nil {
		return err
	}

	record, err := s.registry.Get(ctx, id, ownerUserID)
	if err != nil {
		return err
	}

	stmt, err := mutation.DropTable(database.Engine(record.Engine), table)
	if err != nil {
		return err
	}
	if _, err = s.execStatement(ctx, id, ownerUserID, stmt); err != nil {
		return err
	}

	s.recorder.Record(ctx, ownerUserID, &id, audit.ActionTableDropped, table)
	return nil
}

// AddColumn appends a column to a table.
func (s *Service) AddColumn(ctx context.Context, id, ownerUserID, table string, column mutation.ColumnDef) (err error) {
	done := s.begin()
	defer func() { done(err) }()

	if err = s.guardMutable(id); err != nil {
		return err
	}

	record, err := s.registry.Get(ctx, id, ownerUserID)
	if err != nil {
		return err
	}

	stmt, err := mutation.AddColumn(database.Engine(record.Engine), table, column)
	if err != nil {
		return err
	}
	if _, err = s.execStatement(ctx, id, ownerUserID, stmt); err != nil {
		return err
	}

	s.recorder.Record(ctx, ownerUserID, &id, audit.ActionColumnAltered,
		fmt.Sprintf("added %s.%s", table, column.Name))
	return nil
}

// DropColumn removes a column.
func (s *Service) DropColumn(ctx context.Context, id, ownerUserID, table, column string) (err error) {
	done := s.begin()
	defer func() { done(err) }()

	if err = s.guardMutable(id); err != nil {
		return err
	}

	record, err := s.registry.Get(ctx, id, ownerUserID)
	if err != nil {
		return err
	}

	stmt, err := mutation.DropColumn(database.Engine(record.Engine), table, column)
	if err != nil {
		return err
	}
	if _, err = s.execStatement(ctx, id, ownerUserID, stmt); err != nil {
		return err
	}

	s.recorder.Record(ctx, ownerUserID, &id, audit.ActionColumnAltered,
		fmt.Sprintf("dropped %s.%s", table, column))
	return nil
}

// AlterColumn applies column changes. Engines that take one statement per
// property run them in sequence; the first failure aborts the rest and
// names the property that failed.
func (s *Service) AlterColumn(ctx context.Context, id, ownerUserID, table, column string, changes mutation.ColumnChanges) (err error) {
	done := s.begin()
	defer func() { done(err) }()

	if err = s.guardMutable(id); err != nil {
		return err
	}

	record, err := s.registry.Get(ctx, id, ownerUserID)
	if err != nil {
		return err
	}

	statements, err := mutation.AlterColumn(database.Engine(record.Engine), table, column, changes)
	if err != nil {
		return err
	}

	err = s.withSession(ctx, id, ownerUserID, database.DefaultConnectTimeout,
		func(session database.Session) error {
			for _, stmt := range statements {
				if _, opErr := session.DataOperations().Execute(ctx, stmt.SQL, stmt.Args...); opErr != nil {
					return fmt.Errorf("failed to change column %s of %s.%s: %w",
						stmt.Property, table, column, opErr)
				}
			}
			return nil
		})
	if err != nil {
		return err
	}

	s.recorder.Record(ctx, ownerUserID, &id, audit.ActionColumnAltered,
		fmt.Sprintf("altered %s.%s", table, column))
	return nil
}

// InsertRow inserts one row with parameterized values.
func (s *Service) InsertRow(ctx context.Context, id, ownerUserID, table string, row map[string]interface{}) (result *MutationResult, err error) {
	done := s.begin()
	defer func() { done(err) }()

	if err = s.guardMutable(id); err != nil {
		return nil, err
	}

	record, err := s.registry.Get(ctx, id, ownerUserID)
	if err != nil {
		return nil, err
	}

	stmt, err := mutation.InsertRow(database.Engine(record.Engine), table, row)
	if err != nil {
		return nil, err
	}
	affected, err := s.execStatement(ctx, id, ownerUserID, stmt)
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, ownerUserID, &id, audit.ActionRowInserted, table)
	return &MutationResult{Success: true, AffectedRows: affected}, nil
}

// UpdateRow updates rows matching the criteria. Zero matches is a
// non-exceptional failure.
func (s *Service) UpdateRow(ctx context.Context, id, ownerUserID, table string, criteria, row map[string]interface{}) (result *MutationResult, err error) {
	done := s.begin()
	defer func() { done(err) }()

	if err = s.guardMutable(id); err != nil {
		return nil, err
	}

	record, err := s.registry.Get(ctx, id, ownerUserID)
	if err != nil {
		return nil, err
	}

	stmt, err := mutation.UpdateRow(database.Engine(record.Engine), table, criteria, row)
	if err != nil {
		return nil, err
	}
	affected, err := s.execStatement(ctx, id, ownerUserID, stmt)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return &MutationResult{Success: false, Message: "no matching row"}, nil
	}

	s.recorder.Record(ctx, ownerUserID, &id, audit.ActionRowUpdated, table)
	return &MutationResult{Success: true, AffectedRows: affected}, nil
}

// DeleteRow deletes rows matching the criteria. Zero matches is a
// non-exceptional failure.
func (s *Service) DeleteRow(ctx context.Context, id, ownerUserID, table string, criteria map[string]interface{}) (result *MutationResult, err error) {
	done := s.begin()
	defer func() { done(err) }()

	if err = s.guardMutable(id); err != nil {
		return nil, err
	}

	record, err := s.registry.Get(ctx, id, ownerUserID)
	if err != nil {
		return nil, err
	}

	stmt, err := mutation.DeleteRow(database.Engine(record.Engine), table, criteria)
	if err != nil {
		return nil, err
	}
	affected, err := s.execStatement(ctx, id, ownerUserID, stmt)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return &MutationResult{Success: false, Message: "no matching row"}, nil
	}

	s.recorder.Record(ctx, ownerUserID, &id, audit.ActionRowDeleted, table)
	return &MutationResult{Success: true, AffectedRows: affected}, nil
}

// isDuplicateTable recognizes the per-engine "table already exists"
// messages.
func isDuplicateTable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") ||
		strings.Contains(msg, "1050")
}
