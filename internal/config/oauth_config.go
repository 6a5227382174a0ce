package config

import (
	"strings"
	"time"
)

type OAuthConfig interface {
	GetEnabledProviders() []string
	GetProviderSettings(name string) ProviderSettings
	GetStateSecret() string
	GetRefreshLookahead() time.Duration
	GetTokenEndpointTimeout() time.Duration
	GetStateCookieMaxAge() time.Duration
	GetTrustedUserHeader() string
}

// ProviderSettings carries the per-provider values read from the environment.
// Empty strings mean "use the built-in default" for URLs.
type ProviderSettings struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURI  string

	// ValidityExtension overrides the provider's artificial validity window
	// only when ValidityExtensionSet is true.
	ValidityExtension    time.Duration
	ValidityExtensionSet bool
}

type OAuth struct{}

var _ OAuthConfig = OAuth{}

func (OAuth) GetEnabledProviders() []string {
	return GetList("OAUTH_PROVIDERS", []string{"google", "fortnox"})
}

// GetProviderSettings reads {NAME}_CLIENT_ID, {NAME}_CLIENT_SECRET, {NAME}_AUTH_URL,
// {NAME}_TOKEN_URL, {NAME}_REDIRECT_URI and {NAME}_VALIDITY_EXTENSION_SECONDS.
func (OAuth) GetProviderSettings(name string) ProviderSettings {
	prefix := strings.ToUpper(strings.ReplaceAll(name, "-", "_")) + "_"
	extension, set := GetSeconds(prefix + "VALIDITY_EXTENSION_SECONDS")
	return ProviderSettings{
		ClientID:             GetEnv(prefix+"CLIENT_ID", ""),
		ClientSecret:         GetEnv(prefix+"CLIENT_SECRET", ""),
		AuthURL:              GetEnv(prefix+"AUTH_URL", ""),
		TokenURL:             GetEnv(prefix+"TOKEN_URL", ""),
		RedirectURI:          GetEnv(prefix+"REDIRECT_URI", ""),
		ValidityExtension:    extension,
		ValidityExtensionSet: set,
	}
}

// GetStateSecret enables signed (JWT) state parameters when non-empty.
func (OAuth) GetStateSecret() string {
	return GetEnv("OAUTH_STATE_SECRET", "")
}

func (OAuth) GetRefreshLookahead() time.Duration {
	return GetDuration("TOKEN_REFRESH_LOOKAHEAD", 5*time.Minute)
}

func (OAuth) GetTokenEndpointTimeout() time.Duration {
	return GetDuration("TOKEN_ENDPOINT_TIMEOUT", 10*time.Second)
}

func (OAuth) GetStateCookieMaxAge() time.Duration {
	return 10 * time.Minute
}

// GetTrustedUserHeader names the request header the fronting CRM proxy sets to
// the authenticated user id. Empty disables the check on /authorize.
func (OAuth) GetTrustedUserHeader() string {
	return strings.TrimSpace(GetEnv("TRUSTED_USER_HEADER", ""))
}
