package connect_test

import (
	"net/url"
	"strings"
	"testing"

	"github.com/jrsteele09/go-oauth-connect/connect"
	"github.com/jrsteele09/go-oauth-connect/internal/config"
	"github.com/jrsteele09/go-oauth-connect/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func providersSettings() config.ProviderSettings {
	return config.ProviderSettings{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://crm.example.com/oauth/callback",
	}
}

func TestAuthorizeURL_Google(t *testing.T) {
	h := newHarness(t, googleGrant(""))

	authURL, state, err := h.orchestrator.AuthorizeURL(builtin(t, providers.Google), connect.State{
		UserID:   "u1",
		Services: []string{"google-analytics", "google-gmail"},
	})
	require.NoError(t, err)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "accounts.google.com", u.Host)
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, "client-id", q.Get("client_id"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "https://www.googleapis.com/auth/analytics.readonly https://mail.google.com/", q.Get("scope"))

	decoded, err := connect.NewStateCodec("", 0).Decode(state)
	require.NoError(t, err)
	assert.Equal(t, "u1", decoded.UserID)
}

func TestAuthorizeURL_DefaultsAndCommaScopes(t *testing.T) {
	h := newHarness(t, googleGrant(""))

	authURL, _, err := h.orchestrator.AuthorizeURL(builtin(t, providers.TikTok), connect.State{UserID: "u1"})
	require.NoError(t, err)

	q, err := url.ParseQuery(authURL[strings.Index(authURL, "?")+1:])
	require.NoError(t, err)
	assert.Equal(t, "client-id", q.Get("client_key"))
	assert.Equal(t, "user.info.basic,video.upload,video.publish", q.Get("scope"))
}
