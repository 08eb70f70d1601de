// Package database defines the contract all engine adapters implement and
// the registry the session factory dispatches through.
package database

import "fmt"

// Engine identifies a supported database engine.
type Engine string

const (
	MySQL    Engine = "mysql"
	Postgres Engine = "postgres"
	SQLite   Engine = "sqlite"
)

// ParseEngine resolves an engine identifier or common alias.
func ParseEngine(name string) (Engine, bool) {
	switch name {
	case "mysql", "mariadb":
		return MySQL, true
	case "postgres", "postgresql":
		return Postgres, true
	case "sqlite", "sqlite3":
		return SQLite, true
	default:
		return "", false
	}
}

// String implements fmt.Stringer.
func (e Engine) String() string {
	return string(e)
}

// Valid reports whether the engine is one of the supported set.
func (e Engine) Valid() bool {
	switch e {
	case MySQL, Postgres, SQLite:
		return true
	}
	return false
}

// MustParseEngine is ParseEngine for trusted inputs; it panics on failure.
func MustParseEngine(name string) Engine {
	engine, ok := ParseEngine(name)
	if !ok {
		panic(fmt.Sprintf("unknown engine: %s", name))
	}
	return engine
}
