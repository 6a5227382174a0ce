package sqlite

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

var _ credentials.IntegrationsRepo = (*IntegrationsRepo)(nil)

type IntegrationsRepo struct {
	db     *DB
	sealer *seal.Sealer
}

func NewIntegrationsRepo(db *DB, sealer *seal.Sealer) *IntegrationsRepo {
	return &IntegrationsRepo{db: db, sealer: sealer}
}

func (r *IntegrationsRepo) Get(ctx context.Context, userID, serviceName string) (*credentials.Record, error) {
	const query = `SELECT id, access_token, refresh_token, scopes, expires_at, created_at, updated_at
		FROM integrations WHERE user_id = ? AND service_name = ?`

	record := credentials.Record{UserID: userID, ServiceName: serviceName}
	var (
		scopeList, createdAt, updatedAt string
		expiresAt                       sql.NullString
	)
	err := r.db.Reader.QueryRowContext(ctx, query, userID, serviceName).Scan(
		&record.ID, &record.AccessToken, &record.RefreshToken, &scopeList, &expiresAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get integration %s/%s: %w", userID, serviceName, err)
	}

	if record.AccessToken, err = r.sealer.Open(record.AccessToken); err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	if record.RefreshToken, err = r.sealer.Open(record.RefreshToken); err != nil {
		return nil, fmt.Errorf("decrypt refresh token: %w", err)
	}
	record.Scopes = scopes.Split(scopeList)
	if record.ExpiresAt, err = parseTime(expiresAt.String); err != nil {
		return nil, err
	}
	if record.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if record.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &record, nil
}

// Upsert replaces token columns in place so the row keeps its id and created_at.
func (r *IntegrationsRepo) Upsert(ctx context.Context, record *credentials.Record) error {
	accessToken, err := r.sealer.Seal(record.AccessToken)
	if err != nil {
		return err
	}
	refreshToken, err := r.sealer.Seal(record.RefreshToken)
	if err != nil {
		return err
	}

	const query = `INSERT INTO integrations
		(id, user_id, service_name, access_token, refresh_token, scopes, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, service_name) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			scopes = excluded.scopes,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`

	_, err = r.db.Writer.ExecContext(ctx, query,
		record.ID, record.UserID, record.ServiceName,
		accessToken, refreshToken, strings.Join(record.Scopes, " "),
		nullableTime(record.ExpiresAt), formatTime(record.CreatedAt), formatTime(record.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert integration %s: %w", record.Key(), err)
	}
	return nil
}

func (r *IntegrationsRepo) Delete(ctx context.Context, userID, serviceName string) error {
	const query = `DELETE FROM integrations WHERE user_id = ? AND service_name = ?`
	if _, err := r.db.Writer.ExecContext(ctx, query, userID, serviceName); err != nil {
		return fmt.Errorf("delete integration %s/%s: %w", userID, serviceName, err)
	}
	return nil
}
