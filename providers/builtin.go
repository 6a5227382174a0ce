package providers

import (
	"net/url"
	"time"

	"github.com/jrsteele09/go-oauth-connect/internal/config"
	"github.com/jrsteele09/go-oauth-connect/scopes"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	Google   = "google"
	Fortnox  = "fortnox"
	Facebook = "facebook"
	Threads  = "threads"
	TikTok   = "tiktok"
)

// Meta long-lived tokens outlive the expires_in they report.
const metaTokenValidity = 60 * 24 * time.Hour

type builder func(s config.ProviderSettings) *Provider

var builtins = map[string]builder{
	Google:   googleProvider,
	Fortnox:  fortnoxProvider,
	Facebook: facebookProvider,
	Threads:  threadsProvider,
	TikTok:   tiktokProvider,
}

// Builtin returns the provider with its defaults and the given settings applied.
func Builtin(name string, s config.ProviderSettings) (*Provider, bool) {
	build, ok := builtins[name]
	if !ok {
		return nil, false
	}
	p := build(s)
	applySettings(p, s)
	return p, true
}

func applySettings(p *Provider, s config.ProviderSettings) {
	p.ClientID = s.ClientID
	p.ClientSecret = s.ClientSecret
	p.RedirectURI = s.RedirectURI
	if s.AuthURL != "" {
		p.AuthURL = s.AuthURL
	}
	if s.TokenURL != "" {
		p.TokenURL = s.TokenURL
	}
	if s.ValidityExtensionSet {
		p.ValidityExtension = s.ValidityExtension
	}
}

func googleProvider(config.ProviderSettings) *Provider {
	return &Provider{
		Name:      Google,
		AuthURL:   google.Endpoint.AuthURL,
		TokenURL:  google.Endpoint.TokenURL,
		AuthStyle: google.Endpoint.AuthStyle,
		DefaultScopes: scopes.ScopesFor(
			scopes.GoogleAnalytics,
			scopes.GoogleCalendar,
			scopes.GoogleSearchConsole,
		),
		// offline + consent makes Google issue a refresh token on every grant
		AuthParams: url.Values{
			"access_type":            {"offline"},
			"prompt":                 {"consent"},
			"include_granted_scopes": {"true"},
		},
		Classify: ClassifyOAuth2,
	}
}

func fortnoxProvider(config.ProviderSettings) *Provider {
	return &Provider{
		Name:                 Fortnox,
		AuthURL:              "https://apps.fortnox.se/oauth-v1/auth",
		TokenURL:             "https://apps.fortnox.se/oauth-v1/token",
		AuthStyle:            oauth2.AuthStyleInHeader,
		DefaultScopes:        scopes.ScopesFor(scopes.Fortnox),
		DefaultService:       scopes.Fortnox,
		AuthParams:           url.Values{"access_type": {"offline"}},
		RotatesRefreshTokens: true,
		Classify:             ClassifyOAuth2,
	}
}

func facebookProvider(config.ProviderSettings) *Provider {
	return &Provider{
		Name:              Facebook,
		AuthURL:           "https://www.facebook.com/v19.0/dialog/oauth",
		TokenURL:          "https://graph.facebook.com/v19.0/oauth/access_token",
		AuthStyle:         oauth2.AuthStyleInParams,
		DefaultScopes:     scopes.ScopesFor(scopes.Facebook, scopes.Instagram),
		ScopeDelimiter:    ",",
		DefaultService:    scopes.Facebook,
		ValidityExtension: metaTokenValidity,
		Classify:          ClassifyMeta,
	}
}

func threadsProvider(config.ProviderSettings) *Provider {
	return &Provider{
		Name:              Threads,
		AuthURL:           "https://threads.net/oauth/authorize",
		TokenURL:          "https://graph.threads.net/oauth/access_token",
		AuthStyle:         oauth2.AuthStyleInParams,
		DefaultScopes:     scopes.ScopesFor(scopes.Threads),
		ScopeDelimiter:    ",",
		DefaultService:    scopes.Threads,
		ValidityExtension: metaTokenValidity,
		Classify:          ClassifyMeta,
	}
}

// TikTok names the client id client_key on both the consent URL and the token endpoint.
func tiktokProvider(s config.ProviderSettings) *Provider {
	return &Provider{
		Name:             TikTok,
		AuthURL:          "https://www.tiktok.com/v2/auth/authorize/",
		TokenURL:         "https://open.tiktokapis.com/v2/oauth/token/",
		AuthStyle:        oauth2.AuthStyleInParams,
		DefaultScopes:    scopes.ScopesFor(scopes.TikTok),
		ScopeDelimiter:   ",",
		DefaultService:   scopes.TikTok,
		ExtraParams:      url.Values{"client_key": {s.ClientID}},
		AuthParams:       url.Values{"client_key": {s.ClientID}},
		Classify:         ClassifyOAuth2,
		TransientCookies: []string{"csrfState"},
	}
}
