package credentials

import "context"

// IntegrationsRepo is the primary location: one row per (user_id, service_name).
// Get returns (nil, nil) when no row exists. Upsert replaces the whole row
// atomically, keeping the existing ID and CreatedAt on conflict.
type IntegrationsRepo interface {
	Get(ctx context.Context, userID, serviceName string) (*Record, error)
	Upsert(ctx context.Context, record *Record) error
	Delete(ctx context.Context, userID, serviceName string) error
}

// SettingsRepo is the legacy per-user settings row. Get returns (nil, nil) when the
// user has no settings row. The legacy table is read-only to this package.
type SettingsRepo interface {
	Get(ctx context.Context, userID string) (*LegacySettings, error)
}
