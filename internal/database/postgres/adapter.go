// Package postgres implements the engine adapter for PostgreSQL-family
// databases.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/burrowhq/burrow/internal/database"
)

func init() {
	database.Register(&Adapter{})
}

// Adapter connects to PostgreSQL servers.
type Adapter struct{}

// Type returns the canonical engine identifier.
func (a *Adapter) Type() database.Engine {
	return database.Postgres
}

// DefaultPort returns the conventional PostgreSQL port.
func (a *Adapter) DefaultPort() int {
	return 5432
}

// Connect establishes a session. SSL is opt-in; when enabled the mode is
// "require", which encrypts but does not verify the server certificate.
func (a *Adapter) Connect(ctx context.Context, config database.Config) (database.Session, error) {
	var connString strings.Builder

	fmt.Fprintf(&connString, "postgres://%s:%s@%s:%d/%s",
		config.Username,
		config.Password,
		config.Host,
		config.Port,
		config.DatabaseName)

	if config.SSLEnabled {
		connString.WriteString("?sslmode=require")
	} else {
		connString.WriteString("?sslmode=disable")
	}
	fmt.Fprintf(&connString, "&connect_timeout=%d", int(config.Timeout().Seconds()))

	pool, err := pgxpool.New(ctx, connString.String())
	if err != nil {
		return nil, database.NewConnectionError(database.Postgres, config.Host, config.Port, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, config.Timeout())
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, database.NewConnectionError(database.Postgres, config.Host, config.Port, err)
	}

	return &Session{pool: pool, config: config}, nil
}

// Session is an open connection pool to one PostgreSQL database. The pool
// lives for a single logical operation and is closed with the session.
type Session struct {
	pool   *pgxpool.Pool
	config database.Config
}

// Engine returns the engine identifier.
func (s *Session) Engine() database.Engine {
	return database.Postgres
}

// Ping verifies the session is alive.
func (s *Session) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close tears the session down.
func (s *Session) Close() error {
	s.pool.Close()
	return nil
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
