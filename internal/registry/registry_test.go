package registry

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/burrowhq/burrow/internal/audit"
	"github.com/burrowhq/burrow/internal/config"
	"github.com/burrowhq/burrow/internal/store"
	"github.com/burrowhq/burrow/pkg/encryption"
)

const demoUser = "demo"

func newTestRegistry(t *testing.T) (*Registry, *store.Store, *encryption.SecretBox) {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "burrow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Bootstrap(context.Background()))

	box := encryption.NewSecretBox("test-secret")
	sample := NewStaticSampleProvider(config.SampleConfig{
		Name: "Sample Database", Engine: "mysql", Host: "localhost",
		Port: 3306, Database: "sample", Username: "sample_ro", Password: "sample-pass",
	})
	recorder := audit.NewRecorder(s.Events(), nil, nil)
	return New(s.Connections(), box, sample, demoUser, recorder), s, box
}

func TestCreateSealsPassword(t *testing.T) {
	reg, s, box := newTestRegistry(t)
	ctx := context.Background()

	record, err := reg.Create(ctx, "user-1", ConnectionRequest{
		Name: "shop", Engine: "postgres", Host: "db1", Port: 5432,
		DatabaseName: "shopdb", Username: "u", Password: "p",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, record.ID)
	assert.Nil(t, record.EncryptedPassword)

	full, err := s.Connections().Get(ctx, record.ID, "user-1")
	require.NoError(t, err)
	require.NotNil(t, full.EncryptedPassword)
	assert.NotEqual(t, "p", *full.EncryptedPassword)

	plaintext, err := box.Open(*full.EncryptedPassword)
	require.NoError(t, err)
	assert.Equal(t, "p", plaintext)
}

func TestCreateRejectsUnknownEngine(t *testing.T) {
	reg, _, _ := newTestRegistry(t)

	_, err := reg.Create(context.Background(), "user-1", ConnectionRequest{
		Name: "x", Engine: "mongodb",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidEngine)
}

func TestGetScopesToOwner(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	record, err := reg.Create(ctx, "user-1", ConnectionRequest{Name: "shop", Engine: "mysql"})
	require.NoError(t, err)

	_, err = reg.Get(ctx, record.ID, "user-2")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListInjectsSample(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	// Empty account sees only the sample.
	list, err := reg.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].IsSample)

	// Owning a real connection hides the sample for regular users.
	_, err = reg.Create(ctx, "user-1", ConnectionRequest{Name: "shop", Engine: "mysql"})
	require.NoError(t, err)
	list, err = reg.List(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].IsSample)

	// The demo account always sees the sample.
	_, err = reg.Create(ctx, demoUser, ConnectionRequest{Name: "demo-own", Engine: "mysql"})
	require.NoError(t, err)
	list, err = reg.List(ctx, demoUser)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[1].IsSample)
}

func TestListNeverLeaksSecrets(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Create(ctx, "user-1", ConnectionRequest{
		Name: "shop", Engine: "mysql", Password: "secret",
	})
	require.NoError(t, err)

	list, err := reg.List(ctx, "user-1")
	require.NoError(t, err)
	for _, record := range list {
		assert.Nil(t, record.EncryptedPassword)
	}
}

func TestUpdateKeepsPasswordWhenOmitted(t *testing.T) {
	reg, s, box := newTestRegistry(t)
	ctx := context.Background()

	record, err := reg.Create(ctx, "user-1", ConnectionRequest{
		Name: "shop", Engine: "mysql", Host: "db1", Password: "original",
	})
	require.NoError(t, err)

	_, err = reg.Update(ctx, record.ID, "user-1", ConnectionRequest{
		Name: "shop-2", Engine: "mysql", Host: "db2",
	})
	require.NoError(t, err)

	full, err := s.Connections().Get(ctx, record.ID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "shop-2", full.Name)
	assert.Equal(t, "db2", full.Host)
	require.NotNil(t, full.EncryptedPassword)

	plaintext, err := box.Open(*full.EncryptedPassword)
	require.NoError(t, err)
	assert.Equal(t, "original", plaintext)
}

func TestSampleIsReadOnly(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Update(ctx, SampleID, "user-1", ConnectionRequest{Name: "hacked"})
	assert.ErrorIs(t, err, ErrSampleReadOnly)

	err = reg.Delete(ctx, SampleID, "user-1")
	assert.ErrorIs(t, err, ErrSampleReadOnly)
}

func TestRevealPassword(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	record, err := reg.Create(ctx, "user-1", ConnectionRequest{
		Name: "shop", Engine: "mysql", Password: "hunter2",
	})
	require.NoError(t, err)

	full, err := reg.FetchFull(ctx, record.ID, "user-1")
	require.NoError(t, err)

	plaintext, err := reg.RevealPassword(full)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", plaintext)
}

func TestRevealPasswordForeignCiphertext(t *testing.T) {
	reg, s, _ := newTestRegistry(t)
	ctx := context.Background()

	record, err := reg.Create(ctx, "user-1", ConnectionRequest{
		Name: "shop", Engine: "mysql", Password: "hunter2",
	})
	require.NoError(t, err)

	// Simulate a key rotation: reseal under a different secret.
	foreign, err := encryption.NewSecretBox("other-secret").Seal("hunter2")
	require.NoError(t, err)
	full, err := s.Connections().Get(ctx, record.ID, "user-1")
	require.NoError(t, err)
	full.EncryptedPassword = &foreign
	require.NoError(t, s.Connections().Update(ctx, full))

	full, err = reg.FetchFull(ctx, record.ID, "user-1")
	require.NoError(t, err)
	_, err = reg.RevealPassword(full)
	require.Error(t, err)
	assert.True(t, encryption.IsDecryptionError(err))
}

func TestFetchFullSample(t *testing.T) {
	reg, _, _ := newTestRegistry(t)
	ctx := context.Background()

	full, err := reg.FetchFull(ctx, SampleID, "user-1")
	require.NoError(t, err)
	assert.True(t, full.IsSample)

	password, err := reg.RevealPassword(full)
	require.NoError(t, err)
	assert.Equal(t, "sample-pass", password)
}

func TestDeleteRecordsEvent(t *testing.T) {
	reg, s, _ := newTestRegistry(t)
	ctx := context.Background()

	record, err := reg.Create(ctx, "user-1", ConnectionRequest{Name: "shop", Engine: "mysql"})
	require.NoError(t, err)
	require.NoError(t, reg.Delete(ctx, record.ID, "user-1"))

	events, err := s.Events().Recent(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "connection.deleted", events[0].Action)
	assert.Equal(t, "connection.created", events[1].Action)
}
