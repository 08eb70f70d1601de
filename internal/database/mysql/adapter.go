// Package mysql implements the engine adapter for MySQL-family databases.
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"github.com/burrowhq/burrow/internal/database"
)

func init() {
	database.Register(&Adapter{})
}

// Adapter connects to MySQL and MariaDB servers.
type Adapter struct{}

// Type returns the canonical engine identifier.
func (a *Adapter) Type() database.Engine {
	return database.MySQL
}

// DefaultPort returns the conventional MySQL port.
func (a *Adapter) DefaultPort() int {
	return 3306
}

// Connect establishes a session. The DSN enables parseTime so temporal
// columns scan as time.Time, and a dial timeout from the config budget.
// SSL is opt-in with certificate verification disabled by policy.
func (a *Adapter) Connect(ctx context.Context, config database.Config) (database.Session, error) {
	sslMode := "false"
	if config.SSLEnabled {
		sslMode = "skip-verify"
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?tls=%s&parseTime=true&timeout=%s",
		config.Username, config.Password, config.Host, config.Port,
		config.DatabaseName, sslMode, config.Timeout())

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, database.NewConnectionError(database.MySQL, config.Host, config.Port, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, config.Timeout())
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, database.NewConnectionError(database.MySQL, config.Host, config.Port, err)
	}

	// Sessions live for one operation; keep the pool minimal.
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(1)

	return &Session{db: db, config: config}, nil
}

// Session is an open connection to one MySQL database.
type Session struct {
	db     *sql.DB
	config database.Config
}

// NewSession wraps an existing *sql.DB. Used by tests driving a mock.
func NewSession(db *sql.DB, config database.Config) *Session {
	return &Session{db: db, config: config}
}

// Engine returns the engine identifier.
func (s *Session) Engine() database.Engine {
	return database.MySQL
}

// Ping verifies the session is alive.
func (s *Session) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close tears the session down.
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
