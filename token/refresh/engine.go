// Package refresh keeps stored access tokens usable: proactively before a call
// when the token is near expiry, and reactively after a provider rejects it.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/go-oauth-connect/credentials"
	apperrors "github.com/jrsteele09/go-oauth-connect/internal/errors"
	"github.com/jrsteele09/go-oauth-connect/providers"
	"github.com/jrsteele09/go-oauth-connect/token"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const DefaultLookahead = 5 * time.Minute

// DefaultTokenLifetime is assumed for a refreshed token when the provider
// reports no expires_in and has no validity extension.
const DefaultTokenLifetime = time.Hour

// Token is an access token ready for a provider call. Stale is set when the
// token is past (or near) its expiry and could not be refreshed; the call may
// still succeed and the reactive path covers it if not.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
	Stale       bool
}

type Engine struct {
	store     Store
	providers Providers
	tokens    token.Exchanger
	lookahead time.Duration
	transport http.RoundTripper
	logger    zerolog.Logger

	// serializes refreshes of rotating refresh tokens per credential
	rotating singleflight.Group
}

type Option func(*Engine)

func WithLookahead(lookahead time.Duration) Option {
	return func(e *Engine) {
		if lookahead > 0 {
			e.lookahead = lookahead
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithTransport sets the base transport used by Client.
func WithTransport(transport http.RoundTripper) Option {
	return func(e *Engine) {
		e.transport = transport
	}
}

func NewEngine(store Store, registry Providers, tokens token.Exchanger, options ...Option) *Engine {
	e := &Engine{
		store:     store,
		providers: registry,
		tokens:    tokens,
		lookahead: DefaultLookahead,
		transport: http.DefaultTransport,
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// StateOf classifies a stored record. An unknown expiry is treated as stale.
func (e *Engine) StateOf(record *credentials.Record) State {
	if record.ExpiryKnown() && NowTimeFunc().Add(e.lookahead).Before(record.ExpiresAt) {
		return Fresh
	}
	return StaleCheckNeeded
}

// Proactive returns a record whose access token is fresh: the input itself when
// it is not near expiry, otherwise the refreshed and persisted record. It
// returns (nil, nil) when no fresh token can be had, in which case the caller
// keeps using the old one.
func (e *Engine) Proactive(ctx context.Context, record *credentials.Record) (*credentials.Record, error) {
	if e.StateOf(record) == Fresh {
		return record, nil
	}

	log := e.recordLogger(record)
	if record.RefreshToken == "" {
		log.Debug().Stringer("state", StaleCheckNeeded).Msg("token stale and no refresh token stored")
		return nil, nil
	}

	refreshed, err := e.refresh(ctx, record)
	if err != nil {
		log.Warn().Err(err).Stringer("state", RefreshFailed).Msg("proactive refresh failed")
		return nil, nil
	}
	return refreshed, nil
}

// AccessToken returns the token to use for a provider call, refreshing first if
// it is near expiry. A missing record or one without an access token (and no way
// to get one) is ErrReauthorizationRequired.
func (e *Engine) AccessToken(ctx context.Context, userID, serviceName string) (Token, error) {
	record, err := e.load(ctx, userID, serviceName)
	if err != nil {
		return Token{}, err
	}

	fresh, err := e.Proactive(ctx, record)
	if err != nil {
		return Token{}, err
	}
	if fresh != nil && fresh.AccessToken != "" {
		return Token{AccessToken: fresh.AccessToken, ExpiresAt: fresh.ExpiresAt}, nil
	}
	if record.AccessToken == "" {
		return Token{}, fmt.Errorf("%s/%s: no usable access token: %w", userID, serviceName, apperrors.ErrReauthorizationRequired)
	}
	return Token{AccessToken: record.AccessToken, ExpiresAt: record.ExpiresAt, Stale: true}, nil
}

// ForceRefresh refreshes regardless of the stored expiry.
func (e *Engine) ForceRefresh(ctx context.Context, userID, serviceName string) (*credentials.Record, error) {
	record, err := e.load(ctx, userID, serviceName)
	if err != nil {
		return nil, err
	}
	if record.RefreshToken == "" {
		return nil, fmt.Errorf("%s/%s: no refresh token: %w", userID, serviceName, apperrors.ErrReauthorizationRequired)
	}
	return e.refresh(ctx, record)
}

// Do runs fn with a valid access token. When fn reports an auth failure the
// token is refreshed once and fn retried once; a second auth failure, or a
// failed refresh, is ErrReauthorizationRequired.
func (e *Engine) Do(ctx context.Context, userID, serviceName string, fn func(ctx context.Context, accessToken string) error) error {
	tok, err := e.AccessToken(ctx, userID, serviceName)
	if err != nil {
		return err
	}

	err = fn(ctx, tok.AccessToken)
	if !IsAuthFailure(err) {
		return err
	}

	e.logger.Info().Str("user_id", userID).Str("service", serviceName).Msg("provider rejected token, refreshing")
	refreshed, refreshErr := e.ForceRefresh(ctx, userID, serviceName)
	if refreshErr != nil {
		return reauthorizationRequired(refreshErr)
	}

	if err = fn(ctx, refreshed.AccessToken); IsAuthFailure(err) {
		return reauthorizationRequired(err)
	}
	return err
}

// StatusError carries a provider API status for Do callbacks that want the
// engine to judge it.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider api status %d", e.StatusCode)
}

// IsAuthFailure reports whether err means the access token was rejected.
func IsAuthFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, apperrors.ErrUnauthorized) || errors.Is(err, apperrors.ErrReauthorizationRequired) {
		return true
	}
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnauthorized
}

func (e *Engine) load(ctx context.Context, userID, serviceName string) (*credentials.Record, error) {
	record, err := e.store.Get(ctx, userID, serviceName)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("%s/%s: no credential: %w", userID, serviceName, apperrors.ErrReauthorizationRequired)
	}
	return record, err
}

// refresh calls the token endpoint and persists the result. A failed write is
// logged but the fresh token is still returned: for rotating providers the old
// refresh token is already dead.
func (e *Engine) refresh(ctx context.Context, record *credentials.Record) (*credentials.Record, error) {
	p, err := e.providers.ForService(record.ServiceName)
	if err != nil {
		return nil, err
	}
	if !p.RotatesRefreshTokens {
		return e.doRefresh(ctx, record, p)
	}

	v, err, shared := e.rotating.Do(record.Key().String(), func() (interface{}, error) {
		return e.doRefresh(ctx, record, p)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log := e.recordLogger(record)
		log.Debug().Msg("joined in-flight refresh")
	}
	return v.(*credentials.Record).Clone(), nil
}

func (e *Engine) doRefresh(ctx context.Context, record *credentials.Record, p *providers.Provider) (*credentials.Record, error) {
	log := e.recordLogger(record)
	log.Debug().Stringer("state", Refreshing).Msg("refreshing access token")

	resp, err := e.tokens.Refresh(ctx, record.RefreshToken, p)
	if err != nil {
		return nil, err
	}

	next := record.Clone()
	next.AccessToken = resp.AccessToken
	if resp.RefreshToken != "" {
		next.RefreshToken = resp.RefreshToken
	}
	if granted := resp.Scopes(); len(granted) > 0 {
		next.Scopes = granted
	}
	next.ExpiresAt = resp.ValidUntil(p.ValidityExtension)
	if next.ExpiresAt.IsZero() {
		next.ExpiresAt = resp.ReceivedAt.Add(DefaultTokenLifetime)
		log.Debug().Dur("assumed_lifetime", DefaultTokenLifetime).Msg("refresh reply carried no expires_in")
	}

	if err := e.store.Upsert(ctx, next); err != nil {
		log.Error().Err(err).Msg("refreshed token could not be persisted")
	}
	log.Info().Stringer("state", Refreshed).Time("expires_at", next.ExpiresAt).Msg("access token refreshed")
	return next, nil
}

func (e *Engine) recordLogger(record *credentials.Record) zerolog.Logger {
	return e.logger.With().Str("user_id", record.UserID).Str("service", record.ServiceName).Logger()
}

func reauthorizationRequired(err error) error {
	if errors.Is(err, apperrors.ErrReauthorizationRequired) {
		return err
	}
	return fmt.Errorf("%w: %w", apperrors.ErrReauthorizationRequired, err)
}
