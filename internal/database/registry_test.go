package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAdapter struct {
	engine      Engine
	defaultPort int
	lastConfig  Config
}

func (a *stubAdapter) Type() Engine     { return a.engine }
func (a *stubAdapter) DefaultPort() int { return a.defaultPort }
func (a *stubAdapter) Connect(_ context.Context, config Config) (Session, error) {
	a.lastConfig = config
	return nil, errors.New("stub")
}

func TestRegistryRegisterAndGet(t *testing.T) {
	registry := NewRegistry()
	adapter := &stubAdapter{engine: MySQL, defaultPort: 3306}

	registry.Register(adapter)

	got, err := registry.Get(MySQL)
	require.NoError(t, err)
	assert.Same(t, adapter, got.(*stubAdapter))
	assert.True(t, registry.IsRegistered(MySQL))
	assert.False(t, registry.IsRegistered(Postgres))
}

func TestRegistryGetUnregistered(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Get(Postgres)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAdapterNotFound)
}

func TestRegistryOpenFillsDefaultPort(t *testing.T) {
	registry := NewRegistry()
	adapter := &stubAdapter{engine: Postgres, defaultPort: 5432}
	registry.Register(adapter)

	_, _ = registry.Open(context.Background(), Config{Engine: Postgres, Host: "db1"})
	assert.Equal(t, 5432, adapter.lastConfig.Port)

	_, _ = registry.Open(context.Background(), Config{Engine: Postgres, Host: "db1", Port: 6543})
	assert.Equal(t, 6543, adapter.lastConfig.Port)
}

func TestParseEngine(t *testing.T) {
	tests := []struct {
		input string
		want  Engine
		ok    bool
	}{
		{"mysql", MySQL, true},
		{"mariadb", MySQL, true},
		{"postgres", Postgres, true},
		{"postgresql", Postgres, true},
		{"sqlite", SQLite, true},
		{"sqlite3", SQLite, true},
		{"oracle", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseEngine(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
