package mysql

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrowhq/burrow/internal/database"
)

func TestRunSelectReturnsRows(t *testing.T) {
	session, mock := newMockSession(t)

	mock.ExpectQuery("SELECT id, name FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "alice").
			AddRow(int64(2), "bob"))

	result, err := session.DataOperations().Run(context.Background(), "SELECT id, name FROM users")
	require.NoError(t, err)

	assert.True(t, result.Succeeded)
	require.Len(t, result.Columns, 2)
	assert.Equal(t, "id", result.Columns[0].Name)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "alice", result.Rows[0]["name"])
}

func TestRunUpdateReportsAffectedRows(t *testing.T) {
	session, mock := newMockSession(t)

	mock.ExpectExec("UPDATE users SET name").
		WillReturnResult(sqlmock.NewResult(0, 3))

	result, err := session.DataOperations().Run(context.Background(), "UPDATE users SET name = 'x'")
	require.NoError(t, err)

	assert.True(t, result.Succeeded)
	assert.Equal(t, int64(3), result.AffectedRowCount)
	assert.Empty(t, result.Rows)
}

func TestQueryErrorCarriesHint(t *testing.T) {
	session, mock := newMockSession(t)

	mock.ExpectQuery("SELECT \\* FROM my-table").
		WillReturnError(errors.New("You have an error in your SQL syntax near '-table'"))

	_, err := session.DataOperations().Query(context.Background(), "SELECT * FROM my-table")
	require.Error(t, err)

	var qerr *database.QueryError
	require.ErrorAs(t, err, &qerr)
	assert.Contains(t, qerr.Hint, "my-table")
	assert.Contains(t, qerr.Hint, "`my-table`")
}

func TestFetchAppliesLimit(t *testing.T) {
	session, mock := newMockSession(t)

	mock.ExpectQuery("SELECT \\* FROM `users` LIMIT").
		WithArgs(50).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	result, err := session.DataOperations().Fetch(context.Background(), "users", 50)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)

	require.NoError(t, mock.ExpectationsWereMet())
}
