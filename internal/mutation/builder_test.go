package mutation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrowhq/burrow/internal/database"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestValidIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{name: "plain word", input: "users", want: true},
		{name: "underscored", input: "order_items", want: true},
		{name: "digits", input: "t2", want: true},
		{name: "injection attempt", input: "users; DROP TABLE users", want: false},
		{name: "hyphenated", input: "my-table", want: false},
		{name: "quoted", input: `"users"`, want: false},
		{name: "empty", input: "", want: false},
		{name: "spaces", input: "user table", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidIdentifier(tt.input))
		})
	}
}

func TestValidColumnType(t *testing.T) {
	assert.True(t, ValidColumnType("INT"))
	assert.True(t, ValidColumnType("text"))
	assert.True(t, ValidColumnType("VARCHAR(255)"))
	assert.True(t, ValidColumnType("DECIMAL(10,2)"))
	assert.False(t, ValidColumnType("VARCHAR(255); DROP TABLE users"))
	assert.False(t, ValidColumnType("GEOMETRY"))
	assert.False(t, ValidColumnType(""))
}

func TestCreateTable(t *testing.T) {
	columns := []ColumnDef{
		{Name: "id", Type: "INT", AutoIncrement: true, PrimaryKey: true},
		{Name: "email", Type: "VARCHAR(255)"},
		{Name: "bio", Type: "TEXT", Nullable: true},
	}

	t.Run("mysql", func(t *testing.T) {
		stmt, err := CreateTable(database.MySQL, "users", columns)
		require.NoError(t, err)
		assert.Equal(t,
			"CREATE TABLE `users` (`id` INT AUTO_INCREMENT NOT NULL PRIMARY KEY, `email` VARCHAR(255) NOT NULL, `bio` TEXT)",
			stmt.SQL)
	})

	t.Run("postgres", func(t *testing.T) {
		stmt, err := CreateTable(database.Postgres, "users", columns)
		require.NoError(t, err)
		assert.Equal(t,
			`CREATE TABLE "users" ("id" SERIAL NOT NULL PRIMARY KEY, "email" VARCHAR(255) NOT NULL, "bio" TEXT)`,
			stmt.SQL)
	})

	t.Run("sqlite", func(t *testing.T) {
		stmt, err := CreateTable(database.SQLite, "users", columns)
		require.NoError(t, err)
		assert.Equal(t,
			`CREATE TABLE "users" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "email" VARCHAR(255) NOT NULL, "bio" TEXT)`,
			stmt.SQL)
	})
}

func TestCreateTableRejectsBadInput(t *testing.T) {
	_, err := CreateTable(database.MySQL, "users; DROP TABLE users", []ColumnDef{{Name: "id", Type: "INT"}})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	_, err = CreateTable(database.MySQL, "users", []ColumnDef{{Name: "id", Type: "INT; DROP TABLE users"}})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	_, err = CreateTable(database.MySQL, "users", nil)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestAlterColumnPostgresOneStatementPerProperty(t *testing.T) {
	statements, err := AlterColumn(database.Postgres, "users", "email", ColumnChanges{
		NewType:  strPtr("TEXT"),
		Nullable: boolPtr(true),
		NewName:  strPtr("contact_email"),
	})
	require.NoError(t, err)

	require.Len(t, statements, 3)
	assert.Equal(t, `ALTER TABLE "users" ALTER COLUMN "email" TYPE TEXT`, statements[0].SQL)
	assert.Equal(t, "type", statements[0].Property)
	assert.Equal(t, `ALTER TABLE "users" ALTER COLUMN "email" DROP NOT NULL`, statements[1].SQL)
	assert.Equal(t, "nullability", statements[1].Property)
	assert.Equal(t, `ALTER TABLE "users" RENAME COLUMN "email" TO "contact_email"`, statements[2].SQL)
	assert.Equal(t, "name", statements[2].Property)
}

func TestAlterColumnMySQLFoldsTypeAndNullability(t *testing.T) {
	statements, err := AlterColumn(database.MySQL, "users", "email", ColumnChanges{
		NewType:  strPtr("VARCHAR(320)"),
		Nullable: boolPtr(false),
	})
	require.NoError(t, err)

	require.Len(t, statements, 1)
	assert.Equal(t, "ALTER TABLE `users` MODIFY COLUMN `email` VARCHAR(320) NOT NULL", statements[0].SQL)
}

func TestAlterColumnMySQLNullabilityRequiresType(t *testing.T) {
	_, err := AlterColumn(database.MySQL, "users", "email", ColumnChanges{Nullable: boolPtr(true)})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestAlterColumnSQLiteRenameOnly(t *testing.T) {
	statements, err := AlterColumn(database.SQLite, "users", "email", ColumnChanges{NewName: strPtr("mail")})
	require.NoError(t, err)
	require.Len(t, statements, 1)
	assert.Equal(t, `ALTER TABLE "users" RENAME COLUMN "email" TO "mail"`, statements[0].SQL)

	_, err = AlterColumn(database.SQLite, "users", "email", ColumnChanges{NewType: strPtr("TEXT")})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestAlterColumnNoChanges(t *testing.T) {
	_, err := AlterColumn(database.Postgres, "users", "email", ColumnChanges{})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestInsertRow(t *testing.T) {
	stmt, err := InsertRow(database.Postgres, "users", map[string]interface{}{
		"name":  "alice",
		"email": "a@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, `INSERT INTO "users" ("email", "name") VALUES ($1, $2)`, stmt.SQL)
	assert.Equal(t, []interface{}{"a@example.com", "alice"}, stmt.Args)

	mysqlStmt, err := InsertRow(database.MySQL, "users", map[string]interface{}{"name": "bob"})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO `users` (`name`) VALUES (?)", mysqlStmt.SQL)
}

func TestUpdateRowRequiresCriteria(t *testing.T) {
	_, err := UpdateRow(database.MySQL, "users", nil, map[string]interface{}{"name": "x"})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	stmt, err := UpdateRow(database.Postgres, "users",
		map[string]interface{}{"id": 7},
		map[string]interface{}{"name": "x"})
	require.NoError(t, err)
	assert.Equal(t, `UPDATE "users" SET "name" = $1 WHERE "id" = $2`, stmt.SQL)
	assert.Equal(t, []interface{}{"x", 7}, stmt.Args)
}

func TestDeleteRowRequiresCriteria(t *testing.T) {
	_, err := DeleteRow(database.MySQL, "users", nil)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	stmt, err := DeleteRow(database.MySQL, "users", map[string]interface{}{"id": 3})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM `users` WHERE `id` = ?", stmt.SQL)
	assert.Equal(t, []interface{}{3}, stmt.Args)
}

func TestInsertRowRejectsBadColumn(t *testing.T) {
	_, err := InsertRow(database.MySQL, "users", map[string]interface{}{
		"name; DROP TABLE users": "x",
	})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}
