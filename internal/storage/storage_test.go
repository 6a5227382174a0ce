package storage_test

import (
	"context"
	"encoding/hex"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jrsteele09/go-oauth-connect/credentials"
	"github.com/jrsteele09/go-oauth-connect/internal/config"
	apperrors "github.com/jrsteele09/go-oauth-connect/internal/errors"
	"github.com/jrsteele09/go-oauth-connect/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_SQLiteWithSealing(t *testing.T) {
	t.Setenv("STORE_DRIVER", config.StoreDriverSQLite)
	t.Setenv("SQLITE_PATH", filepath.Join(t.TempDir(), "nested", "credentials.db"))
	t.Setenv("TOKEN_ENCRYPTION_KEY", hex.EncodeToString([]byte(strings.Repeat("k", 32))))

	store, err := storage.Open(context.Background(), config.New(), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	assert.Equal(t, config.StoreDriverSQLite, store.Driver)

	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, &credentials.Record{
		UserID:       "u1",
		ServiceName:  "fortnox",
		AccessToken:  "at",
		RefreshToken: "rt",
	}))
	record, err := store.Get(ctx, "u1", "fortnox")
	require.NoError(t, err)
	assert.Equal(t, "at", record.AccessToken)
	assert.Equal(t, "rt", record.RefreshToken)
}

func TestOpen_Memory(t *testing.T) {
	t.Setenv("STORE_DRIVER", config.StoreDriverMemory)

	store, err := storage.Open(context.Background(), config.New(), zerolog.Nop())
	require.NoError(t, err)
	assert.NoError(t, store.Close())

	_, err = store.Get(context.Background(), "u1", "fortnox")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOpen_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"STORE_DRIVER": "mongo"}},
		{"postgres without url", map[string]string{"STORE_DRIVER": config.StoreDriverPostgres}},
		{"short key", map[string]string{"STORE_DRIVER": config.StoreDriverMemory, "TOKEN_ENCRYPTION_KEY": "abcd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			t.Setenv("TOKEN_ENCRYPTION_KEY", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := storage.Open(context.Background(), config.New(), zerolog.Nop())
			assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
		})
	}
}
