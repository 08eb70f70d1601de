package database

import (
	"context"

	"github.com/burrowhq/burrow/internal/schema"
)

// Adapter represents one database engine technology. Each supported engine
// implements this interface and registers itself at init time.
type Adapter interface {
	// Type returns the canonical engine identifier.
	Type() Engine

	// DefaultPort returns the engine's conventional port, used when a
	// connection record leaves the port unset.
	DefaultPort() int

	// Connect establishes a short-lived session. Sessions are never pooled
	// across requests; every operation opens, uses, and closes its own.
	Connect(ctx context.Context, config Config) (Session, error)
}

// Session is an active connection to one database. Close must run on every
// exit path.
type Session interface {
	Engine() Engine
	Ping(ctx context.Context) error
	Close() error

	// Operation interfaces. A nil return means the category is not
	// supported by this engine.
	SchemaOperations() SchemaOperator
	DataOperations() DataOperator
	StatsOperations() StatsOperator
}

// SchemaOperator handles catalog introspection.
type SchemaOperator interface {
	// Introspect produces a normalized snapshot of the database's tables
	// and columns. When the detailed catalog query fails it falls back to
	// a table-name-only snapshot with Partial set, rather than erroring.
	Introspect(ctx context.Context) (*schema.Snapshot, error)

	// ListTables returns the bare table names (the fallback query).
	ListTables(ctx context.Context) ([]string, error)
}

// DataOperator handles query and statement execution.
type DataOperator interface {
	// Query runs one row-returning statement.
	Query(ctx context.Context, sqlText string, args ...interface{}) (*QueryResult, error)

	// Execute runs one non-row-returning statement and reports affected rows.
	Execute(ctx context.Context, sqlText string, args ...interface{}) (int64, error)

	// Run executes exactly one statement as given, choosing Query or
	// Execute from the leading keyword, and normalizes the outcome.
	Run(ctx context.Context, sqlText string) (*QueryResult, error)

	// Fetch reads up to limit rows from a table.
	Fetch(ctx context.Context, table string, limit int) (*QueryResult, error)
}

// StatsOperator handles best-effort diagnostic probes.
type StatsOperator interface {
	StorageInfo(ctx context.Context) (*StorageInfo, error)
	TransactionStats(ctx context.Context) (*TransactionStats, error)
}

// ColumnMeta names one result column.
type ColumnMeta struct {
	Name string `json:"name"`
}

// QueryResult is the normalized outcome of one statement.
type QueryResult struct {
	Columns          []ColumnMeta             `json:"columns"`
	Rows             []map[string]interface{} `json:"rows"`
	AffectedRowCount int64                    `json:"affectedRowCount"`
	Succeeded        bool                     `json:"succeeded"`
	Message          string                   `json:"message,omitempty"`
}

// StorageInfo reports a database's on-disk footprint.
type StorageInfo struct {
	SizeBytes     int64  `json:"sizeBytes"`
	SizeFormatted string `json:"sizeFormatted"`
	Message       string `json:"message,omitempty"`
}

// TransactionStats reports engine activity counters.
type TransactionStats struct {
	ActiveConnections int64  `json:"activeConnections"`
	TotalCommits      int64  `json:"totalCommits"`
	TotalRollbacks    int64  `json:"totalRollbacks"`
	Message           string `json:"message,omitempty"`
}
