package mutation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/burrowhq/burrow/internal/database"
)

// ColumnDef declares one column for create-table and add-column operations.
type ColumnDef struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Nullable      bool    `json:"nullable"`
	Default       *string `json:"default,omitempty"`
	AutoIncrement bool    `json:"autoIncrement"`
	PrimaryKey    bool    `json:"primaryKey"`
}

// ColumnChanges describes an alter-column request. Nil fields are left
// unchanged.
type ColumnChanges struct {
	NewName     *string `json:"newName,omitempty"`
	NewType     *string `json:"newType,omitempty"`
	Nullable    *bool   `json:"nullable,omitempty"`
	NewDefault  *string `json:"newDefault,omitempty"`
	DropDefault bool    `json:"dropDefault"`
}

// Statement is one built statement with its bound values. Property names
// the altered column property so a mid-sequence failure can report which
// change did not apply.
type Statement struct {
	SQL      string
	Args     []interface{}
	Property string
}

// CreateTable builds one CREATE TABLE statement in the engine's dialect.
func CreateTable(engine database.Engine, table string, columns []ColumnDef) (Statement, error) {
	d, err := dialectFor(engine)
	if err != nil {
		return Statement{}, err
	}
	if err := checkIdentifier("table name", table); err != nil {
		return Statement{}, err
	}
	if len(columns) == 0 {
		return Statement{}, NewValidationError("columns", "at least one column is required")
	}

	defs := make([]string, 0, len(columns))
	for _, col := range columns {
		def, err := columnDefSQL(engine, d, col)
		if err != nil {
			return Statement{}, err
		}
		defs = append(defs, def)
	}

	return Statement{
		SQL: fmt.Sprintf("CREATE TABLE %s (%s)", d.quoteIdent(table), strings.Join(defs, ", ")),
	}, nil
}

// DropTable builds one DROP TABLE statement.
func DropTable(engine database.Engine, table string) (Statement, error) {
	d, err := dialectFor(engine)
	if err != nil {
		return Statement{}, err
	}
	if err := checkIdentifier("table name", table); err != nil {
		return Statement{}, err
	}
	return Statement{SQL: "DROP TABLE " + d.quoteIdent(table)}, nil
}

// AddColumn builds one ALTER TABLE ... ADD COLUMN statement.
func AddColumn(engine database.Engine, table string, column ColumnDef) (Statement, error) {
	d, err := dialectFor(engine)
	if err != nil {
		return Statement{}, err
	}
	if err := checkIdentifier("table name", table); err != nil {
		return Statement{}, err
	}
	def, err := columnDefSQL(engine, d, column)
	if err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL: fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.quoteIdent(table), def),
	}, nil
}

// DropColumn builds one ALTER TABLE ... DROP COLUMN statement.
func DropColumn(engine database.Engine, table, column string) (Statement, error) {
	d, err := dialectFor(engine)
	if err != nil {
		return Statement{}, err
	}
	if err := checkIdentifier("table name", table); err != nil {
		return Statement{}, err
	}
	if err := checkIdentifier("column name", column); err != nil {
		return Statement{}, err
	}
	return Statement{
		SQL: fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.quoteIdent(table), d.quoteIdent(column)),
	}, nil
}

// AlterColumn builds the statement sequence for a column change. Postgres
// gets one statement per changed property, to be run in order and aborted
// on first failure; MySQL folds type and nullability into a single MODIFY.
func AlterColumn(engine database.Engine, table, column string, changes ColumnChanges) ([]Statement, error) {
	d, err := dialectFor(engine)
	if err != nil {
		return nil, err
	}
	if err := checkIdentifier("table name", table); err != nil {
		return nil, err
	}
	if err := checkIdentifier("column name", column); err != nil {
		return nil, err
	}
	if changes.NewName != nil {
		if err := checkIdentifier("new column name", *changes.NewName); err != nil {
			return nil, err
		}
	}
	if changes.NewType != nil {
		if err := checkColumnType(*changes.NewType); err != nil {
			return nil, err
		}
	}
	if changes.NewDefault != nil && changes.DropDefault {
		return nil, NewValidationError("default", "cannot both set and drop the default")
	}

	switch engine {
	case database.Postgres:
		return alterColumnPostgres(d, table, column, changes)
	case database.MySQL:
		return alterColumnMySQL(d, table, column, changes)
	case database.SQLite:
		return alterColumnSQLite(d, table, column, changes)
	default:
		return nil, NewValidationError("engine", "unsupported engine: "+string(engine))
	}
}

func alterColumnPostgres(d dialect, table, column string, changes ColumnChanges) ([]Statement, error) {
	qt, qc := d.quoteIdent(table), d.quoteIdent(column)
	var statements []Statement

	if changes.NewType != nil {
		statements = append(statements, Statement{
			SQL:      fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s", qt, qc, strings.ToUpper(*changes.NewType)),
			Property: "type",
		})
	}
	if changes.Nullable != nil {
		action := "SET NOT NULL"
		if *changes.Nullable {
			action = "DROP NOT NULL"
		}
		statements = append(statements, Statement{
			SQL:      fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s", qt, qc, action),
			Property: "nullability",
		})
	}
	if changes.NewDefault != nil {
		statements = append(statements, Statement{
			SQL:      fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", qt, qc, defaultLiteral(*changes.NewDefault)),
			Property: "default",
		})
	}
	if changes.DropDefault {
		statements = append(statements, Statement{
			SQL:      fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", qt, qc),
			Property: "default",
		})
	}
	// Rename runs last so the preceding statements address the old name.
	if changes.NewName != nil {
		statements = append(statements, Statement{
			SQL:      fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", qt, qc, d.quoteIdent(*changes.NewName)),
			Property: "name",
		})
	}

	if len(statements) == 0 {
		return nil, NewValidationError("changes", "no changes specified")
	}
	return statements, nil
}

func alterColumnMySQL(d dialect, table, column string, changes ColumnChanges) ([]Statement, error) {
	qt, qc := d.quoteIdent(table), d.quoteIdent(column)
	var statements []Statement

	if changes.Nullable != nil && changes.NewType == nil {
		return nil, NewValidationError("changes", "changing nullability on mysql requires the column type")
	}
	if changes.NewType != nil {
		def := strings.ToUpper(*changes.NewType)
		if changes.Nullable != nil && !*changes.Nullable {
			def += " NOT NULL"
		}
		statements = append(statements, Statement{
			SQL:      fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s %s", qt, qc, def),
			Property: "type",
		})
	}
	if changes.NewDefault != nil {
		statements = append(statements, Statement{
			SQL:      fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET DEFAULT %s", qt, qc, defaultLiteral(*changes.NewDefault)),
			Property: "default",
		})
	}
	if changes.DropDefault {
		statements = append(statements, Statement{
			SQL:      fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", qt, qc),
			Property: "default",
		})
	}
	if changes.NewName != nil {
		statements = append(statements, Statement{
			SQL:      fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", qt, qc, d.quoteIdent(*changes.NewName)),
			Property: "name",
		})
	}

	if len(statements) == 0 {
		return nil, NewValidationError("changes", "no changes specified")
	}
	return statements, nil
}

func alterColumnSQLite(d dialect, table, column string, changes ColumnChanges) ([]Statement, error) {
	if changes.NewType != nil || changes.Nullable != nil || changes.NewDefault != nil || changes.DropDefault {
		return nil, NewValidationError("changes", "sqlite supports only column rename")
	}
	if changes.NewName == nil {
		return nil, NewValidationError("changes", "no changes specified")
	}
	return []Statement{{
		SQL: fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s",
			d.quoteIdent(table), d.quoteIdent(column), d.quoteIdent(*changes.NewName)),
		Property: "name",
	}}, nil
}

// InsertRow builds a parameterized INSERT for one row.
func InsertRow(engine database.Engine, table string, row map[string]interface{}) (Statement, error) {
	d, err := dialectFor(engine)
	if err != nil {
		return Statement{}, err
	}
	if err := checkIdentifier("table name", table); err != nil {
		return Statement{}, err
	}
	if len(row) == 0 {
		return Statement{}, NewValidationError("row", "no values provided")
	}

	keys := sortedKeys(row)
	columns := make([]string, len(keys))
	placeholders := make([]string, len(keys))
	args := make([]interface{}, len(keys))
	for i, key := range keys {
		if err := checkIdentifier("column name", key); err != nil {
			return Statement{}, err
		}
		columns[i] = d.quoteIdent(key)
		placeholders[i] = d.placeholder(i + 1)
		args[i] = row[key]
	}

	return Statement{
		SQL: fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			d.quoteIdent(table), strings.Join(columns, ", "), strings.Join(placeholders, ", ")),
		Args: args,
	}, nil
}

// UpdateRow builds a parameterized UPDATE. At least one criteria field is
// required.
func UpdateRow(engine database.Engine, table string, criteria, row map[string]interface{}) (Statement, error) {
	d, err := dialectFor(engine)
	if err != nil {
		return Statement{}, err
	}
	if err := checkIdentifier("table name", table); err != nil {
		return Statement{}, err
	}
	if len(row) == 0 {
		return Statement{}, NewValidationError("row", "no values provided")
	}
	if len(criteria) == 0 {
		return Statement{}, NewValidationError("criteria", "at least one criteria field is required")
	}

	var args []interface{}
	position := 0

	setKeys := sortedKeys(row)
	assignments := make([]string, len(setKeys))
	for i, key := range setKeys {
		if err := checkIdentifier("column name", key); err != nil {
			return Statement{}, err
		}
		position++
		assignments[i] = fmt.Sprintf("%s = %s", d.quoteIdent(key), d.placeholder(position))
		args = append(args, row[key])
	}

	where, whereArgs, err := buildCriteria(d, criteria, &position)
	if err != nil {
		return Statement{}, err
	}
	args = append(args, whereArgs...)

	return Statement{
		SQL: fmt.Sprintf("UPDATE %s SET %s WHERE %s",
			d.quoteIdent(table), strings.Join(assignments, ", "), where),
		Args: args,
	}, nil
}

// DeleteRow builds a parameterized DELETE. At least one criteria field is
// required.
func DeleteRow(engine database.Engine, table string, criteria map[string]interface{}) (Statement, error) {
	d, err := dialectFor(engine)
	if err != nil {
		return Statement{}, err
	}
	if err := checkIdentifier("table name", table); err != nil {
		return Statement{}, err
	}
	if len(criteria) == 0 {
		return Statement{}, NewValidationError("criteria", "at least one criteria field is required")
	}

	position := 0
	where, args, err := buildCriteria(d, criteria, &position)
	if err != nil {
		return Statement{}, err
	}

	return Statement{
		SQL:  fmt.Sprintf("DELETE FROM %s WHERE %s", d.quoteIdent(table), where),
		Args: args,
	}, nil
}

func buildCriteria(d dialect, criteria map[string]interface{}, position *int) (string, []interface{}, error) {
	keys := sortedKeys(criteria)
	clauses := make([]string, len(keys))
	args := make([]interface{}, len(keys))
	for i, key := range keys {
		if err := checkIdentifier("criteria column", key); err != nil {
			return "", nil, err
		}
		*position++
		clauses[i] = fmt.Sprintf("%s = %s", d.quoteIdent(key), d.placeholder(*position))
		args[i] = criteria[key]
	}
	return strings.Join(clauses, " AND "), args, nil
}

func columnDefSQL(engine database.Engine, d dialect, col ColumnDef) (string, error) {
	if err := checkIdentifier("column name", col.Name); err != nil {
		return "", err
	}
	if err := checkColumnType(col.Type); err != nil {
		return "", err
	}

	declared := strings.ToUpper(strings.TrimSpace(col.Type))
	if col.AutoIncrement {
		// SQLite folds auto-increment, the type, and the primary key into
		// one clause.
		if engine == database.SQLite {
			return d.quoteIdent(col.Name) + " " + d.autoIncrementType(declared), nil
		}
		declared = d.autoIncrementType(declared)
	}

	var b strings.Builder
	b.WriteString(d.quoteIdent(col.Name))
	b.WriteString(" ")
	b.WriteString(declared)
	if !col.Nullable {
		b.WriteString(" NOT NULL")
	}
	if col.Default != nil {
		b.WriteString(" DEFAULT ")
		b.WriteString(defaultLiteral(*col.Default))
	}
	if col.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	return b.String(), nil
}

var numericLiteral = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

var bareDefaults = map[string]bool{
	"TRUE":              true,
	"FALSE":             true,
	"NULL":              true,
	"CURRENT_TIMESTAMP": true,
	"CURRENT_DATE":      true,
	"CURRENT_TIME":      true,
}

// defaultLiteral renders a default value for DDL, where binding is not
// possible. Numbers and recognized keywords pass through; everything else
// becomes a single-quoted string with embedded quotes doubled.
func defaultLiteral(value string) string {
	if numericLiteral.MatchString(value) || bareDefaults[strings.ToUpper(value)] {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
