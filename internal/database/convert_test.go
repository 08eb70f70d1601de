package database

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeValue(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	tests := []struct {
		name  string
		input interface{}
		want  interface{}
	}{
		{name: "nil", input: nil, want: nil},
		{name: "time to rfc3339", input: ts, want: "2024-05-01T12:30:00Z"},
		{name: "byte slice to string", input: []byte("hello"), want: "hello"},
		{name: "uuid bytes formatted", input: id[:], want: id.String()},
		{name: "safe int64 unchanged", input: int64(42), want: int64(42)},
		{name: "large int64 narrowed", input: int64(1<<53 + 2), want: float64(1<<53 + 2)},
		{name: "large negative narrowed", input: int64(-(1<<53 + 2)), want: float64(-(1<<53 + 2))},
		{name: "uint64 to int64", input: uint64(7), want: int64(7)},
		{name: "string passthrough", input: "plain", want: "plain"},
		{name: "float passthrough", input: 3.14, want: 3.14},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeValue(tt.input))
		})
	}
}

func TestIsRowReturning(t *testing.T) {
	tests := []struct {
		sqlText string
		want    bool
	}{
		{"SELECT * FROM users", true},
		{"  select 1", true},
		{"SHOW TABLES", true},
		{"EXPLAIN SELECT 1", true},
		{"WITH t AS (SELECT 1) SELECT * FROM t", true},
		{"INSERT INTO users VALUES (1)", false},
		{"UPDATE users SET name = 'x'", false},
		{"DELETE FROM users", false},
		{"CREATE TABLE t (id INT)", false},
		{"DROP TABLE t", false},
	}

	for _, tt := range tests {
		t.Run(tt.sqlText, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRowReturning(tt.sqlText))
		})
	}
}
