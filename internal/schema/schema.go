// Package schema defines the normalized schema model produced by the
// per-engine introspectors.
package schema

import (
	"fmt"
	"time"
)

// TableKind distinguishes base tables from views.
type TableKind string

const (
	KindTable TableKind = "table"
	KindView  TableKind = "view"
)

// KeyRole classifies a column's strongest constraint membership.
type KeyRole string

const (
	KeyPrimary KeyRole = "primary"
	KeyUnique  KeyRole = "unique"
	KeyForeign KeyRole = "foreign"
	KeyNone    KeyRole = "none"
)

// RowCountUnknown marks a table whose row count could not be determined.
const RowCountUnknown int64 = -1

// Table describes one table or view of an introspected database.
type Table struct {
	Name          string     `json:"name"`
	Kind          TableKind  `json:"kind"`
	RowCount      int64      `json:"rowCount"`
	SizeBytes     int64      `json:"sizeBytes"`
	SizeFormatted string     `json:"sizeFormatted"`
	ColumnCount   int        `json:"columnCount"`
	LastUpdated   *time.Time `json:"lastUpdated,omitempty"`
}

// Column describes one column of an introspected table.
type Column struct {
	Name         string  `json:"name"`
	DataType     string  `json:"dataType"`
	Nullable     bool    `json:"nullable"`
	DefaultValue *string `json:"defaultValue,omitempty"`
	KeyRole      KeyRole `json:"keyRole"`
}

// Snapshot is one point-in-time view of a database's schema. It is produced
// fresh on every introspection call and never cached.
type Snapshot struct {
	Tables             []Table             `json:"tables"`
	ColumnsByTable     map[string][]Column `json:"columnsByTable"`
	TotalSizeFormatted string              `json:"totalSizeFormatted"`

	// Partial is set when the detailed catalog query failed and only the
	// fallback table list is populated. Message then carries the original
	// error text.
	Partial bool   `json:"partial"`
	Message string `json:"message,omitempty"`
}

// TotalSizeBytes sums the per-table sizes.
func (s *Snapshot) TotalSizeBytes() int64 {
	var total int64
	for _, t := range s.Tables {
		total += t.SizeBytes
	}
	return total
}

// RoleForConstraint maps a standard constraint type to a key role.
func RoleForConstraint(constraintType string) KeyRole {
	switch constraintType {
	case "PRIMARY KEY":
		return KeyPrimary
	case "UNIQUE":
		return KeyUnique
	case "FOREIGN KEY":
		return KeyForeign
	default:
		return KeyNone
	}
}

var keyRoleRank = map[KeyRole]int{
	KeyNone:    0,
	KeyForeign: 1,
	KeyUnique:  2,
	KeyPrimary: 3,
}

// StrongerKeyRole keeps the highest-precedence role when a column belongs
// to several constraints.
func StrongerKeyRole(current, candidate KeyRole) KeyRole {
	if keyRoleRank[candidate] > keyRoleRank[current] {
		return candidate
	}
	return current
}

// FormatBytes renders a byte count in human units, 1024-based with two
// decimal places.
func FormatBytes(size int64) string {
	if size < 0 {
		size = 0
	}
	units := []string{"Bytes", "KB", "MB", "GB", "TB"}
	value := float64(size)
	idx := 0
	for value >= 1024 && idx < len(units)-1 {
		value /= 1024
		idx++
	}
	return fmt.Sprintf("%.2f %s", value, units[idx])
}
