package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// maxSafeInteger is the largest integer representable exactly in a float64,
// the boundary beyond which 64-bit values must be narrowed.
const maxSafeInteger int64 = 1 << 53

// NormalizeValue converts an engine-native value into a portable
// representation safe to serialize across the service boundary. Timestamps
// become RFC 3339 strings; 16-byte blobs that parse as UUIDs are formatted
// as such, other blobs become strings; integers beyond the float64-safe
// range are narrowed to float64 with precision loss.
func NormalizeValue(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		return v.Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.Format(time.RFC3339)
	case []byte:
		if len(v) == 16 {
			if id, err := uuid.FromBytes(v); err == nil {
				return id.String()
			}
		}
		return string(v)
	case sql.RawBytes:
		return NormalizeValue([]byte(v))
	case int64:
		if v > maxSafeInteger || v < -maxSafeInteger {
			return float64(v)
		}
		return v
	case uint64:
		if v > uint64(maxSafeInteger) {
			return float64(v)
		}
		return int64(v)
	default:
		return v
	}
}

// NormalizeRow normalizes every value of a row in place and returns it.
func NormalizeRow(row map[string]interface{}) map[string]interface{} {
	for k, v := range row {
		row[k] = NormalizeValue(v)
	}
	return row
}

// CollectRows drains a *sql.Rows into a normalized QueryResult. The caller
// retains ownership of rows and must still close them.
func CollectRows(rows *sql.Rows) (*QueryResult, error) {
	columnNames, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	columns := make([]ColumnMeta, len(columnNames))
	for i, name := range columnNames {
		columns[i] = ColumnMeta{Name: name}
	}

	result := &QueryResult{
		Columns:   columns,
		Rows:      make([]map[string]interface{}, 0),
		Succeeded: true,
	}

	values := make([]interface{}, len(columnNames))
	pointers := make([]interface{}, len(columnNames))
	for i := range values {
		pointers[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(columnNames))
		for i, name := range columnNames {
			row[name] = NormalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// IsRowReturning decides from the leading keyword whether a statement
// produces rows.
func IsRowReturning(sqlText string) bool {
	keyword := leadingKeyword(sqlText)
	switch keyword {
	case "select", "show", "describe", "desc", "explain", "with", "pragma", "values", "table":
		return true
	}
	return false
}

func leadingKeyword(sqlText string) string {
	i := 0
	for i < len(sqlText) {
		switch sqlText[i] {
		case ' ', '\t', '\r', '\n', '(':
			i++
			continue
		}
		break
	}
	j := i
	for j < len(sqlText) {
		c := sqlText[j]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			j++
			continue
		}
		break
	}
	word := sqlText[i:j]
	buf := make([]byte, len(word))
	for k := 0; k < len(word); k++ {
		c := word[k]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		buf[k] = c
	}
	return string(buf)
}
