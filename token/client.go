// Package token talks to provider token endpoints: authorization code exchange
// and refresh-token grants.
package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	apperrors "github.com/jrsteele09/go-oauth-connect/internal/errors"
	"github.com/jrsteele09/go-oauth-connect/providers"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const DefaultTimeout = 10 * time.Second

// Exchanger is the token endpoint surface used by the callback and refresh paths.
type Exchanger interface {
	Exchange(ctx context.Context, code, redirectURI string, p *providers.Provider) (*Response, error)
	Refresh(ctx context.Context, refreshToken string, p *providers.Provider) (*Response, error)
}

var _ Exchanger = (*Client)(nil)

type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     zerolog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

func NewClient(options ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Exchange trades an authorization code for tokens. redirectURI must match the
// one sent on the consent URL; empty means the provider's configured URI.
func (c *Client) Exchange(ctx context.Context, code, redirectURI string, p *providers.Provider) (*Response, error) {
	cfg := p.OAuth2Config()
	if redirectURI != "" {
		cfg.RedirectURL = redirectURI
	}

	ctx, cancel := c.withClient(ctx, p)
	defer cancel()

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, c.tokenError(p, "exchange", err)
	}
	resp := newResponse(tok, NowTimeFunc())
	c.logger.Debug().
		Str("provider", p.Name).
		Int64("expires_in", resp.ExpiresIn).
		Bool("refresh_token", resp.RefreshToken != "").
		Msg("authorization code exchanged")
	return resp, nil
}

// Refresh runs the refresh_token grant. When the provider omits a new refresh
// token the response carries the one that was sent.
func (c *Client) Refresh(ctx context.Context, refreshToken string, p *providers.Provider) (*Response, error) {
	if refreshToken == "" {
		return nil, &apperrors.TokenError{Provider: p.Name, Err: apperrors.ErrReauthorizationRequired}
	}

	ctx, cancel := c.withClient(ctx, p)
	defer cancel()

	tok, err := p.OAuth2Config().TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, c.tokenError(p, "refresh", err)
	}
	resp := newResponse(tok, NowTimeFunc())
	c.logger.Debug().
		Str("provider", p.Name).
		Int64("expires_in", resp.ExpiresIn).
		Bool("rotated", resp.RefreshToken != refreshToken).
		Msg("access token refreshed")
	return resp, nil
}

// withClient bounds the call and hands x/oauth2 the HTTP client to use.
func (c *Client) withClient(ctx context.Context, p *providers.Provider) (context.Context, context.CancelFunc) {
	httpClient := c.httpClient
	if len(p.ExtraParams) > 0 {
		base := httpClient.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		httpClient = &http.Client{
			Transport:     &paramTransport{base: base, params: p.ExtraParams},
			CheckRedirect: c.httpClient.CheckRedirect,
			Jar:           c.httpClient.Jar,
			Timeout:       c.httpClient.Timeout,
		}
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	return context.WithValue(ctx, oauth2.HTTPClient, httpClient), cancel
}

// tokenError converts x/oauth2 and transport failures into a TokenError. Raw
// bodies stay on the error for logs; callers only ever surface the sentinel.
func (c *Client) tokenError(p *providers.Provider, op string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		code := retrieveErr.ErrorCode
		if code == "" {
			code = providers.ErrorCode(retrieveErr.Body)
		}
		tokenErr := &apperrors.TokenError{
			Provider: p.Name,
			Status:   status,
			Code:     code,
			Body:     string(retrieveErr.Body),
			Err:      p.ClassifyError(status, retrieveErr.Body),
		}
		c.logger.Warn().
			Str("provider", p.Name).
			Str("op", op).
			Int("status", status).
			Str("code", code).
			Msg("token endpoint rejected request")
		return tokenErr
	}

	c.logger.Warn().Err(err).Str("provider", p.Name).Str("op", op).Msg("token endpoint unreachable")
	return &apperrors.TokenError{
		Provider: p.Name,
		Err:      fmt.Errorf("%w: %w", apperrors.ErrTokenExchangeFailed, err),
	}
}
