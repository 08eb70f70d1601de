package mysql

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageInfo(t *testing.T) {
	session, mock := newMockSession(t)

	mock.ExpectQuery("SUM\\(data_length \\+ index_length\\)").
		WillReturnRows(sqlmock.NewRows([]string{"size"}).AddRow(int64(1572864)))

	info, err := session.StatsOperations().StorageInfo(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1572864), info.SizeBytes)
	assert.Equal(t, "1.50 MB", info.SizeFormatted)
}

func TestTransactionStats(t *testing.T) {
	session, mock := newMockSession(t)

	mock.ExpectQuery("SHOW GLOBAL STATUS").
		WillReturnRows(sqlmock.NewRows([]string{"Variable_name", "Value"}).
			AddRow("Com_commit", "120").
			AddRow("Com_rollback", "4").
			AddRow("Threads_connected", "7"))

	stats, err := session.StatsOperations().TransactionStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(120), stats.TotalCommits)
	assert.Equal(t, int64(4), stats.TotalRollbacks)
	assert.Equal(t, int64(7), stats.ActiveConnections)
}
