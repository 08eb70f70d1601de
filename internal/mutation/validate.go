package mutation

import (
	"regexp"
	"strconv"
	"strings"
)

// identifierPattern is the allow-list for table and column names.
// Identifiers cannot be parameterized in engine wire protocols, so anything
// outside this set is rejected before statement building.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// allowedBareTypes are the column types accepted without a length argument.
var allowedBareTypes = map[string]bool{
	"INT":       true,
	"INTEGER":   true,
	"SMALLINT":  true,
	"BIGINT":    true,
	"SERIAL":    true,
	"TEXT":      true,
	"BOOLEAN":   true,
	"DATE":      true,
	"DATETIME":  true,
	"TIMESTAMP": true,
	"TIME":      true,
	"FLOAT":     true,
	"DOUBLE":    true,
	"REAL":      true,
	"BLOB":      true,
	"JSON":      true,
	"UUID":      true,
}

// parameterizedTypePattern accepts length-carrying types like VARCHAR(255)
// and DECIMAL(10,2).
var parameterizedTypePattern = regexp.MustCompile(`^(VARCHAR|CHAR|DECIMAL|NUMERIC)\(\d+(,\d+)?\)$`)

// ValidIdentifier reports whether a name is usable as a table or column
// identifier.
func ValidIdentifier(name string) bool {
	return name != "" && identifierPattern.MatchString(name)
}

// ValidColumnType reports whether a declared type is on the whitelist.
func ValidColumnType(columnType string) bool {
	normalized := strings.ToUpper(strings.TrimSpace(columnType))
	if allowedBareTypes[normalized] {
		return true
	}
	return parameterizedTypePattern.MatchString(normalized)
}

func checkIdentifier(field, name string) error {
	if !ValidIdentifier(name) {
		return NewValidationError(field, "must match ^[A-Za-z0-9_]+$, got "+strconv.Quote(name))
	}
	return nil
}

func checkColumnType(columnType string) error {
	if !ValidColumnType(columnType) {
		return NewValidationError("column type", "type not allowed: "+strconv.Quote(columnType))
	}
	return nil
}
