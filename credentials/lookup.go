package credentials

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-oauth-connect/scopes"
)

// Lookup is one strategy for locating a record. It returns (nil, nil) on a miss.
type Lookup func(ctx context.Context, userID, serviceName string) (*Record, error)

type namedLookup struct {
	name   string
	lookup Lookup
}

const (
	SourceIntegrations     = "integrations"
	SourceSettingsColumns  = "settings.columns"
	SourceSettingsJSONBlob = "settings.integrations_json"
)

func integrationsLookup(repo IntegrationsRepo) Lookup {
	return func(ctx context.Context, userID, serviceName string) (*Record, error) {
		return repo.Get(ctx, userID, serviceName)
	}
}

// settingsColumnsLookup reads the single set of token columns on the legacy row.
func settingsColumnsLookup(repo SettingsRepo) Lookup {
	return func(ctx context.Context, userID, serviceName string) (*Record, error) {
		settings, err := repo.Get(ctx, userID)
		if err != nil || settings == nil {
			return nil, err
		}
		if !strings.EqualFold(settings.ServiceName, serviceName) {
			return nil, nil
		}
		return &Record{
			UserID:       userID,
			ServiceName:  serviceName,
			AccessToken:  settings.AccessToken,
			RefreshToken: settings.RefreshToken,
			ExpiresAt:    settings.ExpiresAt,
			UpdatedAt:    settings.UpdatedAt,
		}, nil
	}
}

// settingsJSONLookup reads the nested integrations blob on the legacy row.
func settingsJSONLookup(repo SettingsRepo) Lookup {
	return func(ctx context.Context, userID, serviceName string) (*Record, error) {
		settings, err := repo.Get(ctx, userID)
		if err != nil || settings == nil {
			return nil, err
		}
		entry, err := ParseLegacyIntegration(settings.IntegrationsJSON, serviceName)
		if err != nil || entry == nil {
			// A malformed entry is a miss, not an outage.
			return nil, nil
		}
		return &Record{
			UserID:       userID,
			ServiceName:  serviceName,
			AccessToken:  entry.AccessToken,
			RefreshToken: entry.RefreshToken,
			Scopes:       scopes.Split(entry.Scope),
			ExpiresAt:    entry.ExpiresAt,
			UpdatedAt:    settings.UpdatedAt,
		}, nil
	}
}
