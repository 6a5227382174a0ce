package sqlite

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-oauth-connect/credentials"
	"github.com/jrsteele09/go-oauth-connect/credentials/seal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegrationsRepo_UpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewIntegrationsRepo(db, nil)
	ctx := context.Background()

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := repo.Upsert(ctx, &credentials.Record{
		ID:           "id-1",
		UserID:       "u1",
		ServiceName:  "google-analytics",
		AccessToken:  "at",
		RefreshToken: "rt",
		Scopes:       []string{"https://www.googleapis.com/auth/analytics.readonly"},
		ExpiresAt:    created.Add(time.Hour),
		CreatedAt:    created,
		UpdatedAt:    created,
	})
	require.NoError(t, err)

	record, err := repo.Get(ctx, "u1", "google-analytics")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "id-1", record.ID)
	assert.Equal(t, "at", record.AccessToken)
	assert.Equal(t, "rt", record.RefreshToken)
	assert.Equal(t, []string{"https://www.googleapis.com/auth/analytics.readonly"}, record.Scopes)
	assert.Equal(t, created.Add(time.Hour), record.ExpiresAt)
	assert.Equal(t, created, record.CreatedAt)
}

func TestIntegrationsRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewIntegrationsRepo(db, nil)

	record, err := repo.Get(context.Background(), "u1", "fortnox")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestIntegrationsRepo_UpsertKeepsIdentity(t *testing.T) {
	db := setupTestDB(t)
	repo := NewIntegrationsRepo(db, nil)
	ctx := context.Background()

	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(48 * time.Hour)

	require.NoError(t, repo.Upsert(ctx, &credentials.Record{
		ID: "id-1", UserID: "u1", ServiceName: "fortnox", AccessToken: "a1", RefreshToken: "r1",
		ExpiresAt: first.Add(time.Hour), CreatedAt: first, UpdatedAt: first,
	}))
	require.NoError(t, repo.Upsert(ctx, &credentials.Record{
		ID: "id-2", UserID: "u1", ServiceName: "fortnox", AccessToken: "a2", RefreshToken: "r2",
		CreatedAt: second, UpdatedAt: second,
	}))

	record, err := repo.Get(ctx, "u1", "fortnox")
	require.NoError(t, err)
	assert.Equal(t, "id-1", record.ID)
	assert.Equal(t, first, record.CreatedAt)
	assert.Equal(t, second, record.UpdatedAt)
	assert.Equal(t, "a2", record.AccessToken)
	assert.False(t, record.ExpiryKnown(), "a replace writes the whole row")
}

func TestIntegrationsRepo_SealedColumns(t *testing.T) {
	db := setupTestDB(t)
	sealer, err := seal.New(bytes.Repeat([]byte{3}, 32))
	require.NoError(t, err)
	repo := NewIntegrationsRepo(db, sealer)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.Upsert(ctx, &credentials.Record{
		ID: "id-1", UserID: "u1", ServiceName: "tiktok", AccessToken: "act.secret", CreatedAt: now, UpdatedAt: now,
	}))

	var raw string
	require.NoError(t, db.Reader.QueryRow(`SELECT access_token FROM integrations WHERE id = ?`, "id-1").Scan(&raw))
	assert.NotContains(t, raw, "act.secret")

	record, err := repo.Get(ctx, "u1", "tiktok")
	require.NoError(t, err)
	assert.Equal(t, "act.secret", record.AccessToken)
	assert.Empty(t, record.RefreshToken)
}

func TestIntegrationsRepo_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewIntegrationsRepo(db, nil)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, repo.Upsert(ctx, &credentials.Record{
		ID: "id-1", UserID: "u1", ServiceName: "threads", AccessToken: "a", CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, repo.Delete(ctx, "u1", "threads"))

	record, err := repo.Get(ctx, "u1", "threads")
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestStore_OverSQLite(t *testing.T) {
	db := setupTestDB(t)
	store, err := credentials.NewStore(NewIntegrationsRepo(db, nil), NewSettingsRepo(db, nil))
	require.NoError(t, err)
	ctx := context.Background()

	insertSettings(t, db, "u1", "fortnox", "legacy-at", "", `{"facebook":{"access_token":"fb-at"}}`)

	fortnox, err := store.Get(ctx, "u1", "fortnox")
	require.NoError(t, err)
	assert.Equal(t, "legacy-at", fortnox.AccessToken)

	facebook, err := store.Get(ctx, "u1", "facebook")
	require.NoError(t, err)
	assert.Equal(t, "fb-at", facebook.AccessToken)

	require.NoError(t, store.Upsert(ctx, &credentials.Record{UserID: "u1", ServiceName: "fortnox", AccessToken: "new-at"}))
	fortnox, err = store.Get(ctx, "u1", "fortnox")
	require.NoError(t, err)
	assert.Equal(t, "new-at", fortnox.AccessToken)
}
