package refresh

import (
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/jrsteele09/go-oauth-connect/internal/errors"
)

// Client returns an HTTP client for calling a provider API on behalf of a
// user. Requests carry the user's bearer token; a 401 triggers one forced
// refresh and one replay of the request.
func (e *Engine) Client(userID, serviceName string) *http.Client {
	return &http.Client{
		Transport: &bearerTransport{
			engine:      e,
			base:        e.transport,
			userID:      userID,
			serviceName: serviceName,
		},
	}
}

type bearerTransport struct {
	engine      *Engine
	base        http.RoundTripper
	userID      string
	serviceName string
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	tok, err := t.engine.AccessToken(ctx, t.userID, t.serviceName)
	if err != nil {
		return nil, err
	}

	resp, err := t.base.RoundTrip(withBearer(req, tok.AccessToken, req.Body))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	// a consumed body without GetBody cannot be replayed
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}
	drain(resp)

	refreshed, err := t.engine.ForceRefresh(ctx, t.userID, t.serviceName)
	if err != nil {
		return nil, reauthorizationRequired(err)
	}

	body := req.Body
	if req.GetBody != nil {
		if body, err = req.GetBody(); err != nil {
			return nil, err
		}
	}
	resp, err = t.base.RoundTrip(withBearer(req, refreshed.AccessToken, body))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		return nil, fmt.Errorf("%s rejected refreshed token: %w", req.URL.Host, apperrors.ErrReauthorizationRequired)
	}
	return resp, nil
}

func withBearer(req *http.Request, accessToken string, body io.ReadCloser) *http.Request {
	clone := req.Clone(req.Context())
	clone.Body = body
	clone.Header.Set("Authorization", "Bearer "+accessToken)
	return clone
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
