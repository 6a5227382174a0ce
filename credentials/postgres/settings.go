package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jrsteele09/go-oauth-connect/credentials"
	"github.com/jrsteele09/go-oauth-connect/credentials/seal"
)

var _ credentials.SettingsRepo = (*SettingsRepository)(nil)

// SettingsRepository reads the legacy settings table. It never writes.
type SettingsRepository struct {
	db     DBTX
	sealer *seal.Sealer
}

func NewSettingsRepository(db DBTX, sealer *seal.Sealer) *SettingsRepository {
	return &SettingsRepository{db: db, sealer: sealer}
}

func (r *SettingsRepository) Get(ctx context.Context, userID string) (*credentials.LegacySettings, error) {
	query :=
		`SELECT user_id, service_name, access_token, refresh_token, expires_at, integrations, updated_at
		 FROM settings
		 WHERE user_id = $1
		 `

	var (
		settings     credentials.LegacySettings
		serviceName  sql.NullString
		accessToken  sql.NullString
		refreshToken sql.NullString
		expiresAt    sql.NullTime
		integrations []byte
	)
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&settings.UserID, &serviceName, &accessToken, &refreshToken,
		&expiresAt, &integrations, &settings.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	settings.ServiceName = serviceName.String
	if settings.AccessToken, err = r.sealer.Open(accessToken.String); err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}
	if settings.RefreshToken, err = r.sealer.Open(refreshToken.String); err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if expiresAt.Valid {
		settings.ExpiresAt = expiresAt.Time.UTC()
	}
	settings.IntegrationsJSON = integrations
	return &settings, nil
}
