// Package storage opens the credential store selected by STORE_DRIVER.
package storage

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-oauth-connect/credentials"
	"github.com/jrsteele09/go-oauth-connect/credentials/postgres"
	credentialrepofake "github.com/jrsteele09/go-oauth-connect/credentials/repofake"
	"github.com/jrsteele09/go-oauth-connect/credentials/seal"
	"github.com/jrsteele09/go-oauth-connect/credentials/sqlite"
	"github.com/jrsteele09/go-oauth-connect/internal/config"
	apperrors "github.com/jrsteele09/go-oauth-connect/internal/errors"
	"github.com/rs/zerolog"
)

// Store is an opened credential store and the function that releases it.
type Store struct {
	*credentials.Store
	Driver string
	close  func() error
}

func (s *Store) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// Open connects the configured backend, applies its migrations and wraps it in
// the credential store adapter.
func Open(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger) (*Store, error) {
	key, err := cfg.GetTokenEncryptionKey()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrInvalidConfig, err)
	}
	sealer, err := seal.New(key)
	if err != nil {
		return nil, fmt.Errorf("token sealer: %w", err)
	}

	driver := cfg.GetStoreDriver()
	var (
		primary credentials.IntegrationsRepo
		legacy  credentials.SettingsRepo
		closer  func() error
	)
	switch driver {
	case config.StoreDriverPostgres:
		dsn := cfg.GetDatabaseURL()
		if dsn == "" {
			return nil, fmt.Errorf("%w: DATABASE_URL is required for the postgres store", apperrors.ErrInvalidConfig)
		}
		db, err := postgres.Open(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrStoreUnavailable, err)
		}
		if err := postgres.RunMigrations(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		primary = postgres.NewIntegrationsRepository(db, sealer)
		legacy = postgres.NewSettingsRepository(db, sealer)
		closer = db.Close

	case config.StoreDriverSQLite:
		db, err := sqlite.NewDB(cfg.GetSQLitePath())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperrors.ErrStoreUnavailable, err)
		}
		if err := sqlite.RunMigrations(db.Writer); err != nil {
			_ = db.Close()
			return nil, err
		}
		primary = sqlite.NewIntegrationsRepo(db, sealer)
		legacy = sqlite.NewSettingsRepo(db, sealer)
		closer = db.Close

	case config.StoreDriverMemory:
		logger.Warn().Msg("using the in-memory credential store; credentials are lost on restart")
		primary = credentialrepofake.NewFakeIntegrationsRepo()
		legacy = credentialrepofake.NewFakeSettingsRepo()

	default:
		return nil, fmt.Errorf("%w: unknown STORE_DRIVER %q", apperrors.ErrInvalidConfig, driver)
	}

	if sealer == nil && driver != config.StoreDriverMemory {
		logger.Warn().Msg("TOKEN_ENCRYPTION_KEY not set; tokens are stored in plaintext")
	}

	store, err := credentials.NewStore(primary, legacy, credentials.WithLogger(logger))
	if err != nil {
		if closer != nil {
			_ = closer()
		}
		return nil, err
	}
	logger.Info().Str("driver", driver).Msg("credential store ready")
	return &Store{Store: store, Driver: driver, close: closer}, nil
}
