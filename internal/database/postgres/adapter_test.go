package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrowhq/burrow/internal/database"
	"github.com/burrowhq/burrow/internal/schema"
)

func TestAdapterIdentity(t *testing.T) {
	a := &Adapter{}
	assert.Equal(t, database.Postgres, a.Type())
	assert.Equal(t, 5432, a.DefaultPort())
}

func TestConnectRefused(t *testing.T) {
	a := &Adapter{}

	_, err := a.Connect(context.Background(), database.Config{
		Engine:         database.Postgres,
		Host:           "127.0.0.1",
		Port:           1,
		DatabaseName:   "nope",
		Username:       "u",
		Password:       "p",
		ConnectTimeout: 2 * time.Second,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, database.ErrConnectionFailed)
}

// TestIntrospectLive exercises the full introspection path against a real
// server when one is available.
func TestIntrospectLive(t *testing.T) {
	host := os.Getenv("BURROW_TEST_PG_HOST")
	if host == "" {
		t.Skipf("BURROW_TEST_PG_HOST not set; skipping live introspection test")
	}

	a := &Adapter{}
	session, err := a.Connect(context.Background(), database.Config{
		Engine:       database.Postgres,
		Host:         host,
		Port:         5432,
		DatabaseName: os.Getenv("BURROW_TEST_PG_DATABASE"),
		Username:     os.Getenv("BURROW_TEST_PG_USER"),
		Password:     os.Getenv("BURROW_TEST_PG_PASSWORD"),
	})
	if err != nil {
		t.Skipf("postgres not reachable: %v", err)
	}
	defer session.Close()

	snap, err := session.SchemaOperations().Introspect(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap.ColumnsByTable)
	assert.NotEmpty(t, snap.TotalSizeFormatted)
	for _, table := range snap.Tables {
		if table.Kind == schema.KindTable {
			assert.GreaterOrEqual(t, table.RowCount, schema.RowCountUnknown)
		}
	}
}
