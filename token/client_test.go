package token_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-oauth-connect/internal/errors"
	"github.com/jrsteele09/go-oauth-connect/providers"
	"github.com/jrsteele09/go-oauth-connect/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var receivedAt = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func fixClock(t *testing.T) {
	t.Helper()
	orig := token.NowTimeFunc
	token.NowTimeFunc = func() time.Time { return receivedAt }
	t.Cleanup(func() { token.NowTimeFunc = orig })
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type formLog struct {
	mu    sync.Mutex
	forms []url.Values
}

func (l *formLog) all() []url.Values {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]url.Values(nil), l.forms...)
}

// tokenEndpoint serves handler and records every parsed form.
func tokenEndpoint(t *testing.T, handler func(w http.ResponseWriter, form url.Values)) (*httptest.Server, *formLog) {
	t.Helper()
	log := &formLog{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		log.mu.Lock()
		log.forms = append(log.forms, r.PostForm)
		log.mu.Unlock()
		handler(w, r.PostForm)
	}))
	t.Cleanup(srv.Close)
	return srv, log
}

func testProvider(tokenURL string) *providers.Provider {
	return &providers.Provider{
		Name:         "google",
		ClientID:     "cid",
		ClientSecret: "secret",
		TokenURL:     tokenURL,
		RedirectURI:  "https://crm.example.com/oauth/google/callback",
		AuthStyle:    oauth2.AuthStyleInParams,
		Classify:     providers.ClassifyOAuth2,
	}
}

func TestExchange_Success(t *testing.T) {
	fixClock(t)
	srv, forms := tokenEndpoint(t, func(w http.ResponseWriter, _ url.Values) {
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "at",
			"refresh_token": "rt",
			"expires_in":    3599,
			"token_type":    "Bearer",
			"scope":         "https://www.googleapis.com/auth/analytics https://www.googleapis.com/auth/calendar",
		})
	})

	resp, err := token.NewClient().Exchange(context.Background(), "auth-code", "", testProvider(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "at", resp.AccessToken)
	assert.Equal(t, "rt", resp.RefreshToken)
	assert.Equal(t, int64(3599), resp.ExpiresIn)
	assert.Equal(t, receivedAt, resp.ReceivedAt)
	assert.Equal(t, receivedAt.Add(3599*time.Second), resp.ExpiresAt())
	assert.Len(t, resp.Scopes(), 2)

	require.Len(t, forms.all(), 1)
	form := forms.all()[0]
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "auth-code", form.Get("code"))
	assert.Equal(t, "cid", form.Get("client_id"))
	assert.Equal(t, "secret", form.Get("client_secret"))
	assert.Equal(t, "https://crm.example.com/oauth/google/callback", form.Get("redirect_uri"))
}

func TestExchange_RedirectOverrideAndNoExpiry(t *testing.T) {
	fixClock(t)
	srv, forms := tokenEndpoint(t, func(w http.ResponseWriter, _ url.Values) {
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "at", "token_type": "bearer"})
	})

	resp, err := token.NewClient().Exchange(context.Background(), "c", "https://other.example.com/cb", testProvider(srv.URL))
	require.NoError(t, err)
	assert.Zero(t, resp.ExpiresIn)
	assert.True(t, resp.ExpiresAt().IsZero())
	assert.Empty(t, resp.RefreshToken)
	assert.Equal(t, "https://other.example.com/cb", forms.all()[0].Get("redirect_uri"))
}

func TestRefresh_KeepsRefreshTokenWhenOmitted(t *testing.T) {
	fixClock(t)
	srv, forms := tokenEndpoint(t, func(w http.ResponseWriter, _ url.Values) {
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "new-at", "expires_in": 3600, "token_type": "Bearer"})
	})

	resp, err := token.NewClient().Refresh(context.Background(), "old-rt", testProvider(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "new-at", resp.AccessToken)
	assert.Equal(t, "old-rt", resp.RefreshToken)
	assert.Equal(t, receivedAt.Add(time.Hour), resp.ExpiresAt())

	form := forms.all()[0]
	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Equal(t, "old-rt", form.Get("refresh_token"))
}

func TestRefresh_RotatedToken(t *testing.T) {
	srv, _ := tokenEndpoint(t, func(w http.ResponseWriter, _ url.Values) {
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "a2", "refresh_token": "r2", "expires_in": "3600", "token_type": "Bearer"})
	})

	resp, err := token.NewClient().Refresh(context.Background(), "r1", testProvider(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "r2", resp.RefreshToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
}

func TestRefresh_NoRefreshTokenMakesNoCall(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { hits.Add(1) }))
	t.Cleanup(srv.Close)

	_, err := token.NewClient().Refresh(context.Background(), "", testProvider(srv.URL))
	assert.ErrorIs(t, err, apperrors.ErrReauthorizationRequired)
	assert.Zero(t, hits.Load())
}

func TestTokenErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     any
		classify providers.Classifier
		want     error
		code     string
	}{
		{"invalid_grant", http.StatusBadRequest, map[string]any{"error": "invalid_grant"}, providers.ClassifyOAuth2, apperrors.ErrReauthorizationRequired, "invalid_grant"},
		{"server error", http.StatusBadGateway, map[string]any{"error": "temporarily_unavailable"}, providers.ClassifyOAuth2, apperrors.ErrTokenExchangeFailed, "temporarily_unavailable"},
		{"meta 190", http.StatusBadRequest, map[string]any{"error": map[string]any{"type": "OAuthException", "code": 190}}, providers.ClassifyMeta, apperrors.ErrReauthorizationRequired, "OAuthException"},
		{"error in 200", http.StatusOK, map[string]any{"error": "invalid_grant", "error_description": "expired"}, providers.ClassifyOAuth2, apperrors.ErrReauthorizationRequired, "invalid_grant"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := tokenEndpoint(t, func(w http.ResponseWriter, _ url.Values) {
				writeJSON(w, tt.status, tt.body)
			})
			p := testProvider(srv.URL)
			p.Classify = tt.classify

			_, err := token.NewClient().Refresh(context.Background(), "rt", p)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var tokenErr *apperrors.TokenError
			require.ErrorAs(t, err, &tokenErr)
			assert.Equal(t, tt.status, tokenErr.Status)
			assert.Equal(t, tt.code, tokenErr.Code)
			assert.Equal(t, "google", tokenErr.Provider)
		})
	}
}

func TestExchange_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := token.NewClient().Exchange(context.Background(), "c", "", testProvider(addr))
	assert.ErrorIs(t, err, apperrors.ErrTokenExchangeFailed)
	assert.NotErrorIs(t, err, apperrors.ErrReauthorizationRequired)
}

func TestExchange_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	client := token.NewClient(token.WithTimeout(50 * time.Millisecond))
	_, err := client.Exchange(context.Background(), "c", "", testProvider(srv.URL))
	assert.ErrorIs(t, err, apperrors.ErrTokenExchangeFailed)
}

func TestExtraParams_TikTokClientKey(t *testing.T) {
	srv, forms := tokenEndpoint(t, func(w http.ResponseWriter, _ url.Values) {
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "act", "refresh_token": "rft", "expires_in": 86400, "token_type": "Bearer"})
	})
	p := testProvider(srv.URL)
	p.Name = "tiktok"
	p.ExtraParams = url.Values{"client_key": {"tt-key"}}

	client := token.NewClient()
	_, err := client.Exchange(context.Background(), "c", "", p)
	require.NoError(t, err)
	_, err = client.Refresh(context.Background(), "rft", p)
	require.NoError(t, err)

	require.Len(t, forms.all(), 2)
	for _, form := range forms.all() {
		assert.Equal(t, "tt-key", form.Get("client_key"))
	}
}

func TestHeaderAuthStyle(t *testing.T) {
	var user, pass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, _ = r.BasicAuth()
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "at", "token_type": "Bearer"})
	}))
	t.Cleanup(srv.Close)

	p := testProvider(srv.URL)
	p.AuthStyle = oauth2.AuthStyleInHeader

	_, err := token.NewClient().Refresh(context.Background(), "rt", p)
	require.NoError(t, err)
	assert.Equal(t, "cid", user)
	assert.Equal(t, "secret", pass)
}

func TestExchange_ScopeArray(t *testing.T) {
	srv, _ := tokenEndpoint(t, func(w http.ResponseWriter, _ url.Values) {
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "at",
			"token_type":   "Bearer",
			"scope":        []any{"user.info.basic", "video.publish", 7},
		})
	})

	resp, err := token.NewClient().Exchange(context.Background(), "code", "", testProvider(srv.URL))
	require.NoError(t, err)
	assert.Equal(t, []string{"user.info.basic", "video.publish"}, resp.Scopes())
}
