// Package sqlite implements the engine adapter for embedded file-based
// databases. There is no network session; connecting validates the file and
// opens it directly.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "modernc.org/sqlite"

	"github.com/burrowhq/burrow/internal/database"
)

func init() {
	database.Register(&Adapter{})
}

// Adapter opens local SQLite database files. The connection record's
// database name carries the file path.
type Adapter struct{}

// Type returns the canonical engine identifier.
func (a *Adapter) Type() database.Engine {
	return database.SQLite
}

// DefaultPort returns zero; file-based engines have no port.
func (a *Adapter) DefaultPort() int {
	return 0
}

// Connect checks that the database file exists and opens it.
func (a *Adapter) Connect(ctx context.Context, config database.Config) (database.Session, error) {
	path := config.DatabaseName
	if path == "" {
		return nil, database.NewConnectionError(database.SQLite, config.Host, config.Port,
			fmt.Errorf("no database file path configured"))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, database.NewConnectionError(database.SQLite, config.Host, config.Port,
			fmt.Errorf("database file not found: %s", path))
	}
	if info.IsDir() {
		return nil, database.NewConnectionError(database.SQLite, config.Host, config.Port,
			fmt.Errorf("database path is a directory: %s", path))
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, database.NewConnectionError(database.SQLite, config.Host, config.Port, err)
	}

	return &Session{db: db, path: path}, nil
}

// Session is an open handle to one SQLite file.
type Session struct {
	db   *sql.DB
	path string
}

// Engine returns the engine identifier.
func (s *Session) Engine() database.Engine {
	return database.SQLite
}

// Ping verifies the file is readable as a database.
func (s *Session) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the file handle.
func (s *Session) Close() error {
	return s.db.Close()
}

// SchemaOperations returns the schema operator.
func (s *Session) SchemaOperations() database.SchemaOperator {
	return &schemaOps{s}
}

// DataOperations returns the data operator.
func (s *Session) DataOperations() database.DataOperator {
	return &dataOps{s}
}

// StatsOperations returns the stats operator.
func (s *Session) StatsOperations() database.StatsOperator {
	return &statsOps{s}
}
