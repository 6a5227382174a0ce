package providers

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jrsteele09/go-oauth-connect/internal/config"
	apperrors "github.com/jrsteele09/go-oauth-connect/internal/errors"
	"github.com/jrsteele09/go-oauth-connect/scopes"
)

// Registry holds the validated providers enabled for this deployment.
type Registry struct {
	providers map[string]*Provider
}

// NewRegistry validates every provider. A registry never holds a provider that
// would fail at request time for lack of configuration.
func NewRegistry(list ...*Provider) (*Registry, error) {
	r := &Registry{providers: make(map[string]*Provider, len(list))}
	for _, p := range list {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.providers[p.Name]; dup {
			return nil, fmt.Errorf("%w: provider %q registered twice", apperrors.ErrInvalidConfig, p.Name)
		}
		r.providers[p.Name] = p
	}
	return r, nil
}

type registryConfig interface {
	config.OAuthConfig
	GetBaseURL() string
}

// FromConfig builds the registry for the enabled built-in providers. A missing
// redirect URI defaults to {BASE_URL}/oauth/{name}/callback.
func FromConfig(cfg registryConfig) (*Registry, error) {
	var list []*Provider
	for _, name := range cfg.GetEnabledProviders() {
		name = strings.ToLower(strings.TrimSpace(name))
		settings := cfg.GetProviderSettings(name)
		if settings.RedirectURI == "" {
			settings.RedirectURI = cfg.GetBaseURL() + "/oauth/" + name + "/callback"
		}
		p, ok := Builtin(name, settings)
		if !ok {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownProvider, name)
		}
		list = append(list, p)
	}
	return NewRegistry(list...)
}

func (r *Registry) Get(name string) (*Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownProvider, name)
	}
	return p, nil
}

// Names returns the registered provider names in sorted order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ForService returns the provider that issues credentials for a service. Every
// google-* service shares the google grant; Instagram rides on Facebook Login.
func (r *Registry) ForService(serviceName string) (*Provider, error) {
	return r.Get(ProviderNameFor(serviceName))
}

// ProviderNameFor maps a service id to the provider that issues its tokens
func ProviderNameFor(serviceName string) string {
	switch {
	case strings.HasPrefix(serviceName, "google-"):
		return Google
	case serviceName == string(scopes.Instagram):
		return Facebook
	default:
		return serviceName
	}
}
