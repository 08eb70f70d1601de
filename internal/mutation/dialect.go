package mutation

import (
	"fmt"
	"strings"

	"github.com/burrowhq/burrow/internal/database"
)

// dialect captures the engine-specific bits of statement building.
type dialect interface {
	quoteIdent(name string) string
	placeholder(position int) string
	autoIncrementType(declared string) string
}

type mysqlDialect struct{}

func (mysqlDialect) quoteIdent(name string) string {
	return "`" + name + "`"
}

func (mysqlDialect) placeholder(int) string {
	return "?"
}

func (mysqlDialect) autoIncrementType(declared string) string {
	base := declared
	if strings.EqualFold(declared, "SERIAL") {
		base = "INT"
	}
	return base + " AUTO_INCREMENT"
}

type postgresDialect struct{}

func (postgresDialect) quoteIdent(name string) string {
	return `"` + name + `"`
}

func (postgresDialect) placeholder(position int) string {
	return fmt.Sprintf("$%d", position)
}

func (postgresDialect) autoIncrementType(declared string) string {
	if strings.EqualFold(declared, "BIGINT") {
		return "BIGSERIAL"
	}
	return "SERIAL"
}

type sqliteDialect struct{}

func (sqliteDialect) quoteIdent(name string) string {
	return `"` + name + `"`
}

func (sqliteDialect) placeholder(int) string {
	return "?"
}

func (sqliteDialect) autoIncrementType(string) string {
	return "INTEGER PRIMARY KEY AUTOINCREMENT"
}

func dialectFor(engine database.Engine) (dialect, error) {
	switch engine {
	case database.MySQL:
		return mysqlDialect{}, nil
	case database.Postgres:
		return postgresDialect{}, nil
	case database.SQLite:
		return sqliteDialect{}, nil
	default:
		return nil, NewValidationError("engine", "unsupported engine: "+string(engine))
	}
}
