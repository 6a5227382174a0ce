// Package providers describes the OAuth providers the service talks to and how
// each one's token endpoint errors map onto the error taxonomy.
package providers

import (
	"fmt"
	"net/url"
	"time"

	apperrors "github.com/jrsteele09/go-oauth-connect/internal/errors"
	"github.com/jrsteele09/go-oauth-connect/scopes"
	"golang.org/x/oauth2"
)

// Provider is the static configuration for one OAuth provider.
type Provider struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	RedirectURI  string
	AuthStyle    oauth2.AuthStyle

	// DefaultScopes are requested when the caller names no services.
	DefaultScopes  []string
	ScopeDelimiter string

	// DefaultService is recorded for every callback regardless of the granted
	// scopes. Used by providers whose grants don't echo partitioned scopes.
	DefaultService scopes.ServiceID

	// ValidityExtension is a floor on the lifetime of an issued token. Meta
	// long-lived tokens report a short expires_in but stay valid for ~60 days.
	ValidityExtension time.Duration

	// ExtraParams are added to every token endpoint request body.
	ExtraParams url.Values
	// AuthParams are added to the consent URL.
	AuthParams url.Values

	// RotatesRefreshTokens marks providers that invalidate a refresh token
	// once used. Refreshes for these are serialized per credential.
	RotatesRefreshTokens bool

	Classify Classifier

	// TransientCookies are cleared after the callback along with the state cookie.
	TransientCookies []string
}

// Validate fails fast on missing credentials or endpoints.
func (p *Provider) Validate() error {
	var missing []string
	if p.Name == "" {
		missing = append(missing, "name")
	}
	if p.ClientID == "" {
		missing = append(missing, "client id")
	}
	if p.ClientSecret == "" {
		missing = append(missing, "client secret")
	}
	if p.TokenURL == "" {
		missing = append(missing, "token url")
	}
	if p.RedirectURI == "" {
		missing = append(missing, "redirect uri")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: provider %q missing %v", apperrors.ErrInvalidConfig, p.Name, missing)
	}
	if _, err := url.ParseRequestURI(p.TokenURL); err != nil {
		return fmt.Errorf("%w: provider %q token url: %v", apperrors.ErrInvalidConfig, p.Name, err)
	}
	return nil
}

// OAuth2Config returns the x/oauth2 configuration for this provider. Scopes are
// left to the caller.
func (p *Provider) OAuth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.ClientID,
		ClientSecret: p.ClientSecret,
		RedirectURL:  p.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   p.AuthURL,
			TokenURL:  p.TokenURL,
			AuthStyle: p.authStyle(),
		},
	}
}

func (p *Provider) authStyle() oauth2.AuthStyle {
	if p.AuthStyle == oauth2.AuthStyleAutoDetect {
		return oauth2.AuthStyleInParams
	}
	return p.AuthStyle
}

// StateCookieName is the per-provider cookie that pins the state parameter to
// the browser that started the flow.
func (p *Provider) StateCookieName() string {
	return "oauth_state_" + p.Name
}

// Classifier maps a token endpoint failure to ErrReauthorizationRequired or
// ErrTokenExchangeFailed.
type Classifier func(status int, body []byte) error

// ClassifyError runs the provider's classifier, falling back to the standard
// OAuth 2.0 one.
func (p *Provider) ClassifyError(status int, body []byte) error {
	if p.Classify == nil {
		return ClassifyOAuth2(status, body)
	}
	return p.Classify(status, body)
}
