package credentials_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jrsteele09/go-oauth-connect/credentials"
	credentialrepofake "github.com/jrsteele09/go-oauth-connect/credentials/repofake"
	apperrors "github.com/jrsteele09/go-oauth-connect/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*credentials.Store, *credentialrepofake.FakeIntegrationsRepo, *credentialrepofake.FakeSettingsRepo) {
	t.Helper()
	primary := credentialrepofake.NewFakeIntegrationsRepo()
	legacy := credentialrepofake.NewFakeSettingsRepo()
	store, err := credentials.NewStore(primary, legacy, credentials.WithNowFunc(func() time.Time { return fixedNow }))
	require.NoError(t, err)
	return store, primary, legacy
}

func TestStore_UpsertThenGet(t *testing.T) {
	ctx := context.Background()
	store, primary, _ := newTestStore(t)

	record := &credentials.Record{
		UserID:       "u1",
		ServiceName:  "google-calendar",
		AccessToken:  "at",
		RefreshToken: "rt",
		Scopes:       []string{"https://www.googleapis.com/auth/calendar"},
		ExpiresAt:    fixedNow.Add(time.Hour),
	}
	require.NoError(t, store.Upsert(ctx, record))
	require.NoError(t, store.Upsert(ctx, record))

	got, err := store.Get(ctx, "u1", "google-calendar")
	require.NoError(t, err)
	assert.Equal(t, "at", got.AccessToken)
	assert.Equal(t, "rt", got.RefreshToken)
	assert.Equal(t, record.Scopes, got.Scopes)
	assert.Equal(t, fixedNow.Add(time.Hour), got.ExpiresAt)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, fixedNow, got.CreatedAt)
	assert.Len(t, primary.All(), 1)

	// The caller's record is not mutated by the store.
	assert.Empty(t, record.ID)
}

func TestStore_UpsertReplacesWholeRecord(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, &credentials.Record{UserID: "u1", ServiceName: "fortnox", AccessToken: "a1", RefreshToken: "r1"}))
	first, err := store.Get(ctx, "u1", "fortnox")
	require.NoError(t, err)

	require.NoError(t, store.Upsert(ctx, &credentials.Record{UserID: "u1", ServiceName: "fortnox", AccessToken: "a2", RefreshToken: "r2"}))
	second, err := store.Get(ctx, "u1", "fortnox")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "a2", second.AccessToken)
	assert.Equal(t, "r2", second.RefreshToken)
}

func TestStore_GetFallsBackToSettingsColumns(t *testing.T) {
	ctx := context.Background()
	store, _, legacy := newTestStore(t)

	legacy.Put(&credentials.LegacySettings{
		UserID:       "u1",
		ServiceName:  "Fortnox",
		AccessToken:  "legacy-at",
		RefreshToken: "legacy-rt",
		ExpiresAt:    fixedNow.Add(-time.Minute),
	})

	got, err := store.Get(ctx, "u1", "fortnox")
	require.NoError(t, err)
	assert.Equal(t, "legacy-at", got.AccessToken)
	assert.Equal(t, "fortnox", got.ServiceName)
	assert.Equal(t, "u1", got.UserID)
}

func TestStore_GetFallsBackToSettingsJSONBlob(t *testing.T) {
	ctx := context.Background()
	store, _, legacy := newTestStore(t)

	legacy.Put(&credentials.LegacySettings{
		UserID:           "u1",
		ServiceName:      "fortnox",
		AccessToken:      "columns-at",
		IntegrationsJSON: []byte(`{
			"facebook": {"access_token": "fb-at", "scope": "pages_show_list,pages_manage_posts", "expires_at": 1714564800},
			"tiktok":   {"refresh_token": "tt-rt", "expires_at": "2024-05-01T13:00:00Z"}
		}`),
	})

	fb, err := store.Get(ctx, "u1", "facebook")
	require.NoError(t, err)
	assert.Equal(t, "fb-at", fb.AccessToken)
	assert.Equal(t, []string{"pages_show_list", "pages_manage_posts"}, fb.Scopes)
	assert.Equal(t, time.Unix(1714564800, 0).UTC(), fb.ExpiresAt)

	tt, err := store.Get(ctx, "u1", "tiktok")
	require.NoError(t, err)
	assert.Equal(t, "tt-rt", tt.RefreshToken)
	assert.Equal(t, fixedNow.Add(time.Hour), tt.ExpiresAt)
}

func TestStore_PrimaryWinsOverLegacy(t *testing.T) {
	ctx := context.Background()
	store, _, legacy := newTestStore(t)

	legacy.Put(&credentials.LegacySettings{UserID: "u1", ServiceName: "fortnox", AccessToken: "legacy"})
	require.NoError(t, store.Upsert(ctx, &credentials.Record{UserID: "u1", ServiceName: "fortnox", AccessToken: "primary"}))

	got, err := store.Get(ctx, "u1", "fortnox")
	require.NoError(t, err)
	assert.Equal(t, "primary", got.AccessToken)
}

func TestStore_RecordWithoutTokensIsNotFound(t *testing.T) {
	ctx := context.Background()
	store, _, legacy := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, &credentials.Record{UserID: "u1", ServiceName: "threads"}))
	legacy.Put(&credentials.LegacySettings{UserID: "u1", IntegrationsJSON: []byte(`{"threads": {"scope": "threads_basic"}}`)})

	_, err := store.Get(ctx, "u1", "threads")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestStore_MalformedLegacyBlobIsAMiss(t *testing.T) {
	ctx := context.Background()
	store, _, legacy := newTestStore(t)

	legacy.Put(&credentials.LegacySettings{UserID: "u1", IntegrationsJSON: []byte(`{not json`)})

	_, err := store.Get(ctx, "u1", "facebook")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	assert.False(t, apperrors.Is(err, apperrors.ErrStoreUnavailable))
}

func TestStore_BadLegacyEntryDoesNotHideOthers(t *testing.T) {
	ctx := context.Background()
	store, _, legacy := newTestStore(t)

	legacy.Put(&credentials.LegacySettings{
		UserID: "u1",
		IntegrationsJSON: []byte(`{
			"fortnox":  {"access_token": "fx-at", "expires_at": "2024-05-01T13:00:00Z"},
			"tiktok":   {"access_token": "tt-at", "expires_at": "2024-05-01 13:00:00+00"},
			"facebook": {"access_token": "fb-at", "expires_at": "next tuesday"}
		}`),
	})

	fx, err := store.Get(ctx, "u1", "fortnox")
	require.NoError(t, err)
	assert.Equal(t, "fx-at", fx.AccessToken)

	tt, err := store.Get(ctx, "u1", "tiktok")
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(time.Hour), tt.ExpiresAt)

	_, err = store.Get(ctx, "u1", "facebook")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestStore_Unavailable(t *testing.T) {
	ctx := context.Background()

	_, err := credentials.NewStore(nil, nil)
	assert.True(t, apperrors.Is(err, apperrors.ErrStoreUnavailable))

	store, primary, legacy := newTestStore(t)
	outage := errors.New("connection refused")

	primary.FailWith(outage)
	_, err = store.Get(ctx, "u1", "fortnox")
	assert.True(t, apperrors.Is(err, apperrors.ErrStoreUnavailable))
	assert.True(t, apperrors.Is(err, outage))

	err = store.Upsert(ctx, &credentials.Record{UserID: "u1", ServiceName: "fortnox", AccessToken: "a"})
	assert.True(t, apperrors.Is(err, apperrors.ErrStoreUnavailable))

	primary.FailWith(nil)
	legacy.FailWith(outage)
	_, err = store.Get(ctx, "u1", "fortnox")
	assert.True(t, apperrors.Is(err, apperrors.ErrStoreUnavailable))
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newTestStore(t)

	require.NoError(t, store.Upsert(ctx, &credentials.Record{UserID: "u1", ServiceName: "tiktok", AccessToken: "a"}))
	require.NoError(t, store.Delete(ctx, "u1", "tiktok"))

	_, err := store.Get(ctx, "u1", "tiktok")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestStore_EmptyKey(t *testing.T) {
	store, _, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "", "fortnox")
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
	assert.Error(t, store.Upsert(context.Background(), &credentials.Record{UserID: "u1"}))
}
