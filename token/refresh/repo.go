package refresh

import (
	"context"

	"github.com/jrsteele09/go-oauth-connect/credentials"
	"github.com/jrsteele09/go-oauth-connect/providers"
)

// Store is the engine's view of the credential store. *credentials.Store
// satisfies it.
type Store interface {
	Get(ctx context.Context, userID, serviceName string) (*credentials.Record, error)
	Upsert(ctx context.Context, record *credentials.Record) error
}

// Providers resolves the provider that issues a service's tokens.
type Providers interface {
	ForService(serviceName string) (*providers.Provider, error)
}

var (
	_ Store     = (*credentials.Store)(nil)
	_ Providers = (*providers.Registry)(nil)
)
