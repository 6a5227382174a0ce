package credentials

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-oauth-connect/internal/errors"
	"github.com/rs/zerolog"
)

// Store is the credential store adapter. Reads walk an ordered list of lookup
// strategies and return the first record carrying a token; writes and deletes go
// to the primary integrations table only.
type Store struct {
	primary IntegrationsRepo
	lookups []namedLookup
	nowFunc func() time.Time
	logger  zerolog.Logger
}

type Option func(*Store)

func WithNowFunc(now func() time.Time) Option {
	return func(s *Store) {
		s.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithLookup appends an extra strategy after the built-in ones.
func WithLookup(name string, lookup Lookup) Option {
	return func(s *Store) {
		s.lookups = append(s.lookups, namedLookup{name: name, lookup: lookup})
	}
}

// NewStore builds the adapter. The primary repo is required; a nil legacy repo
// disables the settings fallbacks.
func NewStore(primary IntegrationsRepo, legacy SettingsRepo, options ...Option) (*Store, error) {
	if primary == nil {
		return nil, fmt.Errorf("%w: no integrations repository configured", apperrors.ErrStoreUnavailable)
	}

	s := &Store{
		primary: primary,
		lookups: []namedLookup{{name: SourceIntegrations, lookup: integrationsLookup(primary)}},
		nowFunc: time.Now,
		logger:  zerolog.Nop(),
	}
	if legacy != nil {
		s.lookups = append(s.lookups,
			namedLookup{name: SourceSettingsColumns, lookup: settingsColumnsLookup(legacy)},
			namedLookup{name: SourceSettingsJSONBlob, lookup: settingsJSONLookup(legacy)},
		)
	}

	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Get returns the current record for the pair, or ErrNotFound when no location
// holds a record with at least one token.
func (s *Store) Get(ctx context.Context, userID, serviceName string) (*Record, error) {
	if userID == "" || serviceName == "" {
		return nil, fmt.Errorf("credentials get: empty key: %w", apperrors.ErrNotFound)
	}

	for _, l := range s.lookups {
		record, err := l.lookup(ctx, userID, serviceName)
		if err != nil {
			return nil, storeUnavailable(fmt.Sprintf("credentials %s lookup", l.name), err)
		}
		if !record.HasTokens() {
			continue
		}
		if l.name != SourceIntegrations {
			s.logger.Debug().
				Str("user_id", userID).
				Str("service", serviceName).
				Str("source", l.name).
				Msg("credential resolved from fallback location")
		}
		record.UserID = userID
		record.ServiceName = serviceName
		return record, nil
	}
	return nil, fmt.Errorf("credentials %s/%s: %w", userID, serviceName, apperrors.ErrNotFound)
}

// Upsert writes the whole record to the primary location. Repeating the same
// upsert leaves the same stored tokens, scopes and expiry.
func (s *Store) Upsert(ctx context.Context, record *Record) error {
	if record == nil || record.UserID == "" || record.ServiceName == "" {
		return fmt.Errorf("credentials upsert: user id and service name are required")
	}

	r := record.Clone()
	now := s.nowFunc().UTC()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	if err := s.primary.Upsert(ctx, r); err != nil {
		return storeUnavailable(fmt.Sprintf("credentials upsert %s", r.Key()), err)
	}
	return nil
}

// Delete removes the record from the primary location. Legacy rows are left alone.
func (s *Store) Delete(ctx context.Context, userID, serviceName string) error {
	if userID == "" || serviceName == "" {
		return fmt.Errorf("credentials delete: user id and service name are required")
	}
	if err := s.primary.Delete(ctx, userID, serviceName); err != nil {
		return storeUnavailable(fmt.Sprintf("credentials delete %s/%s", userID, serviceName), err)
	}
	return nil
}

func storeUnavailable(op string, err error) error {
	if apperrors.Is(err, apperrors.ErrStoreUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, apperrors.ErrStoreUnavailable, err)
}
