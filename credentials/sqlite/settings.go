package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-oauth-connect/credentials"
	"github.com/jrsteele09/go-oauth-connect/credentials/seal"
)

var _ credentials.SettingsRepo = (*SettingsRepo)(nil)

type SettingsRepo struct {
	db     *DB
	sealer *seal.Sealer
}

func NewSettingsRepo(db *DB, sealer *seal.Sealer) *SettingsRepo {
	return &SettingsRepo{db: db, sealer: sealer}
}

func (r *SettingsRepo) Get(ctx context.Context, userID string) (*credentials.LegacySettings, error) {
	const query = `SELECT service_name, access_token, refresh_token, expires_at, integrations, updated_at
		FROM settings WHERE user_id = ?`

	var (
		serviceName, accessToken, refreshToken sql.NullString
		expiresAt, integrations                sql.NullString
		updatedAt                              string
	)
	err := r.db.Reader.QueryRowContext(ctx, query, userID).Scan(
		&serviceName, &accessToken, &refreshToken, &expiresAt, &integrations, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get settings %s: %w", userID, err)
	}

	settings := &credentials.LegacySettings{UserID: userID, ServiceName: serviceName.String}
	if settings.AccessToken, err = r.sealer.Open(accessToken.String); err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	if settings.RefreshToken, err = r.sealer.Open(refreshToken.String); err != nil {
		return nil, fmt.Errorf("decrypt refresh token: %w", err)
	}
	if settings.ExpiresAt, err = parseTime(expiresAt.String); err != nil {
		return nil, err
	}
	if settings.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if integrations.Valid {
		settings.IntegrationsJSON = []byte(integrations.String)
	}
	return settings, nil
}
