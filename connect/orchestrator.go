// Package connect runs the OAuth connect flow: it builds consent URLs and turns
// a provider callback into one stored credential per granted service.
package connect

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/jrsteele09/go-oauth-connect/credentials"
	apperrors "github.com/jrsteele09/go-oauth-connect/internal/errors"
	"github.com/jrsteele09/go-oauth-connect/providers"
	"github.com/jrsteele09/go-oauth-connect/scopes"
	"github.com/jrsteele09/go-oauth-connect/token"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

// Error codes placed on the settings redirect. Nothing else about a failure
// reaches the browser.
const (
	ErrorCodeNoCode           = "no_code"
	ErrorCodeInvalidState     = "invalid_state"
	ErrorCodeNoUserID         = "no_user_id"
	ErrorCodeExchangeFailed   = "exchange_failed"
	ErrorCodeStoreUnavailable = "store_unavailable"
	ErrorCodeProviderError    = "provider_error"
)

// Provider error values passed through to the redirect unchanged. Anything else
// becomes provider_error.
var passThroughProviderErrors = map[string]struct{}{
	"access_denied":             {},
	"invalid_request":           {},
	"invalid_scope":             {},
	"unauthorized_client":       {},
	"unsupported_response_type": {},
	"server_error":              {},
	"temporarily_unavailable":   {},
	"consent_required":          {},
	"interaction_required":      {},
	"login_required":            {},
}

// CredentialStore is the part of the credential store the callback needs.
type CredentialStore interface {
	Get(ctx context.Context, userID, serviceName string) (*credentials.Record, error)
	Upsert(ctx context.Context, record *credentials.Record) error
}

var _ CredentialStore = (*credentials.Store)(nil)

// CallbackParams are the query (or form_post) values of a provider callback.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

// Outcome is the result of one callback. ErrorCode is empty on success; a
// success may still list Failed services whose write did not go through.
type Outcome struct {
	UserID    string
	Services  []string
	Failed    []string
	ErrorCode string
}

func (o Outcome) Success() bool {
	return o.ErrorCode == ""
}

// RedirectURL appends the outcome to the settings URL:
// ?auth=a,b&status=success or ?status=error&error=code.
func (o Outcome) RedirectURL(settingsURL string) string {
	sep := "?"
	if strings.Contains(settingsURL, "?") {
		sep = "&"
	}
	if !o.Success() {
		return settingsURL + sep + "status=error&error=" + url.QueryEscape(o.ErrorCode)
	}
	return settingsURL + sep + "auth=" + strings.Join(o.Services, ",") + "&status=success"
}

type Orchestrator struct {
	tokens token.Exchanger
	store  CredentialStore
	codec  *StateCodec
	logger zerolog.Logger
}

type Option func(*Orchestrator)

func WithLogger(logger zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

func NewOrchestrator(tokens token.Exchanger, store CredentialStore, codec *StateCodec, options ...Option) *Orchestrator {
	o := &Orchestrator{
		tokens: tokens,
		store:  store,
		codec:  codec,
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(o)
	}
	return o
}

// AuthorizeURL builds the provider consent URL for the services named in state
// (the provider defaults when none are named). It returns the encoded state so
// the caller can pin it in a cookie.
func (o *Orchestrator) AuthorizeURL(p *providers.Provider, state State) (string, string, error) {
	if p.AuthURL == "" {
		return "", "", fmt.Errorf("%w: provider %q has no authorization url", apperrors.ErrInvalidConfig, p.Name)
	}
	encoded, err := o.codec.Encode(state)
	if err != nil {
		return "", "", err
	}

	services := make([]scopes.ServiceID, 0, len(state.Services))
	for _, s := range state.Services {
		services = append(services, scopes.ServiceID(s))
	}
	requested := scopes.ScopesFor(services...)
	if len(requested) == 0 {
		requested = p.DefaultScopes
	}

	cfg := p.OAuth2Config()
	var opts []oauth2.AuthCodeOption
	if p.ScopeDelimiter != "" && p.ScopeDelimiter != " " {
		opts = append(opts, oauth2.SetAuthURLParam("scope", strings.Join(requested, p.ScopeDelimiter)))
	} else {
		cfg.Scopes = requested
	}
	for key, values := range p.AuthParams {
		if len(values) > 0 {
			opts = append(opts, oauth2.SetAuthURLParam(key, values[0]))
		}
	}
	return cfg.AuthCodeURL(encoded, opts...), encoded, nil
}

// HandleCallback runs Start -> ParseState -> ExchangeCode -> ResolveScopes ->
// PersistCredentials -> Done. It never returns an error: every failure is an
// Outcome error code and the details go to the log.
func (o *Orchestrator) HandleCallback(ctx context.Context, p *providers.Provider, params CallbackParams) Outcome {
	log := o.logger.With().Str("provider", p.Name).Logger()

	if params.Error != "" {
		code := sanitizeProviderError(params.Error)
		log.Info().Str("error", code).Msg("provider returned an error on callback")
		return Outcome{ErrorCode: code}
	}
	if params.Code == "" {
		log.Info().Msg("callback without authorization code")
		return Outcome{ErrorCode: ErrorCodeNoCode}
	}

	state, err := o.codec.Decode(params.State)
	if err != nil {
		log.Warn().Err(err).Msg("callback state rejected")
		return Outcome{ErrorCode: ErrorCodeInvalidState}
	}
	if state.UserID == "" {
		log.Warn().Msg("callback state has no user id")
		return Outcome{ErrorCode: ErrorCodeNoUserID}
	}
	log = log.With().Str("user_id", state.UserID).Logger()

	resp, err := o.tokens.Exchange(ctx, params.Code, p.RedirectURI, p)
	if err != nil {
		log.Error().Err(err).Msg("authorization code exchange failed")
		return Outcome{UserID: state.UserID, ErrorCode: ErrorCodeExchangeFailed}
	}

	granted := resp.Scopes()
	services := resolveServices(p, granted)
	if requested := state.Services; len(requested) > 0 && !sameServices(requested, services) {
		log.Info().Strs("requested", requested).Strs("granted", services).Msg("granted services differ from requested")
	}

	failed := o.persist(ctx, log, state.UserID, p, resp, granted, services)
	outcome := Outcome{UserID: state.UserID}
	for _, service := range services {
		if _, bad := failed[service]; !bad {
			outcome.Services = append(outcome.Services, service)
		}
	}
	if len(failed) == 0 {
		log.Info().Strs("services", services).Msg("integration connected")
		return outcome
	}

	persistErr := &apperrors.PersistError{Failed: failed}
	outcome.Failed = persistErr.Services()
	if len(outcome.Services) == 0 {
		log.Error().Err(persistErr).Msg("no credential could be stored")
		outcome.ErrorCode = ErrorCodeStoreUnavailable
		return outcome
	}
	log.Error().Err(persistErr).Strs("stored", outcome.Services).Msg("credentials partially stored")
	return outcome
}

// persist writes one record per service, all sharing the same tokens and
// expiry. It returns the services whose write failed.
func (o *Orchestrator) persist(ctx context.Context, log zerolog.Logger, userID string, p *providers.Provider, resp *token.Response, granted, services []string) map[string]error {
	failed := make(map[string]error)
	expiresAt := resp.ValidUntil(p.ValidityExtension)

	for _, service := range services {
		record := &credentials.Record{
			UserID:       userID,
			ServiceName:  service,
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			Scopes:       granted,
			ExpiresAt:    expiresAt,
		}
		if record.RefreshToken == "" {
			record.RefreshToken = o.existingRefreshToken(ctx, userID, service)
		}
		if err := o.store.Upsert(ctx, record); err != nil {
			log.Warn().Err(err).Str("service", service).Msg("credential write failed")
			failed[service] = err
		}
	}
	return failed
}

// existingRefreshToken keeps a stored refresh token when a re-consent grant
// omits one. Lookup failures just mean there is nothing to keep.
func (o *Orchestrator) existingRefreshToken(ctx context.Context, userID, service string) string {
	existing, err := o.store.Get(ctx, userID, service)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			o.logger.Debug().Err(err).Str("service", service).Msg("could not read existing credential")
		}
		return ""
	}
	return existing.RefreshToken
}

// resolveServices maps the granted scopes to services and adds the provider's
// default service. The result is sorted and may be empty.
func resolveServices(p *providers.Provider, granted []string) []string {
	resolved := scopes.ResolveAll(granted)
	if p.DefaultService != "" && !slices.Contains(resolved, p.DefaultService) {
		resolved = append(resolved, p.DefaultService)
		slices.Sort(resolved)
	}
	return scopes.Strings(resolved)
}

func sanitizeProviderError(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if _, ok := passThroughProviderErrors[value]; ok {
		return value
	}
	return ErrorCodeProviderError
}

func sameServices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; !ok {
			return false
		}
	}
	return true
}
