package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jrsteele09/go-oauth-connect/credentials"
	"github.com/jrsteele09/go-oauth-connect/credentials/seal"
	"github.com/jrsteele09/go-oauth-connect/scopes"
)

var _ credentials.IntegrationsRepo = (*IntegrationsRepository)(nil)

type IntegrationsRepository struct {
	db     DBTX
	sealer *seal.Sealer
}

// NewIntegrationsRepository returns the primary-table repository. A nil sealer
// stores tokens in plaintext.
func NewIntegrationsRepository(db DBTX, sealer *seal.Sealer) *IntegrationsRepository {
	return &IntegrationsRepository{db: db, sealer: sealer}
}

func (r *IntegrationsRepository) Get(ctx context.Context, userID, serviceName string) (*credentials.Record, error) {
	query :=
		`SELECT id, user_id, service_name, access_token, refresh_token, scopes, expires_at, created_at, updated_at
		 FROM integrations
		 WHERE user_id = $1 AND service_name = $2
		 `

	var (
		record    credentials.Record
		scopeList string
		expiresAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, userID, serviceName).Scan(
		&record.ID, &record.UserID, &record.ServiceName,
		&record.AccessToken, &record.RefreshToken, &scopeList,
		&expiresAt, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if record.AccessToken, err = r.sealer.Open(record.AccessToken); err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}
	if record.RefreshToken, err = r.sealer.Open(record.RefreshToken); err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	record.Scopes = scopes.Split(scopeList)
	if expiresAt.Valid {
		record.ExpiresAt = expiresAt.Time.UTC()
	}
	return &record, nil
}

func (r *IntegrationsRepository) Upsert(ctx context.Context, record *credentials.Record) error {
	accessToken, err := r.sealer.Seal(record.AccessToken)
	if err != nil {
		return err
	}
	refreshToken, err := r.sealer.Seal(record.RefreshToken)
	if err != nil {
		return err
	}

	query :=
		`INSERT INTO integrations (id, user_id, service_name, access_token, refresh_token, scopes, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (user_id, service_name) DO UPDATE SET
		     access_token = EXCLUDED.access_token,
		     refresh_token = EXCLUDED.refresh_token,
		     scopes = EXCLUDED.scopes,
		     expires_at = EXCLUDED.expires_at,
		     updated_at = EXCLUDED.updated_at
		 `

	_, err = r.db.ExecContext(ctx, query,
		record.ID, record.UserID, record.ServiceName,
		accessToken, refreshToken, strings.Join(record.Scopes, " "),
		nullTime(record), record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *IntegrationsRepository) Delete(ctx context.Context, userID, serviceName string) error {
	query := `DELETE FROM integrations WHERE user_id = $1 AND service_name = $2`

	if _, err := r.db.ExecContext(ctx, query, userID, serviceName); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func nullTime(record *credentials.Record) sql.NullTime {
	return sql.NullTime{Time: record.ExpiresAt, Valid: record.ExpiryKnown()}
}
