// Package credentials resolves and persists the OAuth credential record for a
// (user_id, service_name) pair across the primary integrations table and the
// legacy settings table.
package credentials

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Record is the unit the token lifecycle manipulates. At most one current record
// exists per (UserID, ServiceName).
type Record struct {
	ID           string
	UserID       string
	ServiceName  string
	AccessToken  string
	RefreshToken string
	Scopes       []string
	ExpiresAt    time.Time // zero when unknown; treat as stale
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Key identifies a record
type Key struct {
	UserID      string
	ServiceName string
}

func (k Key) String() string {
	return k.UserID + "/" + k.ServiceName
}

func (r *Record) Key() Key {
	return Key{UserID: r.UserID, ServiceName: r.ServiceName}
}

// HasTokens reports whether either token is present. A record with neither is
// treated as not found.
func (r *Record) HasTokens() bool {
	return r != nil && (r.AccessToken != "" || r.RefreshToken != "")
}

// ExpiryKnown is false for legacy records written without expires_at.
func (r *Record) ExpiryKnown() bool {
	return !r.ExpiresAt.IsZero()
}

func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	if r.Scopes != nil {
		c.Scopes = append([]string(nil), r.Scopes...)
	}
	return &c
}

// LegacySettings is the per-user row of the legacy settings table. It carries one
// set of token columns for a single service and a JSON blob of further integrations.
type LegacySettings struct {
	UserID           string
	ServiceName      string
	AccessToken      string
	RefreshToken     string
	ExpiresAt        time.Time
	IntegrationsJSON []byte
	UpdatedAt        time.Time
}

// LegacyIntegration is one entry of the settings integrations blob, keyed by
// service name: {"fortnox": {"access_token": "...", "expires_at": "..."}}.
type LegacyIntegration struct {
	AccessToken  string
	RefreshToken string
	Scope        string
	ExpiresAt    time.Time
}

func (l *LegacyIntegration) UnmarshalJSON(data []byte) error {
	var raw struct {
		AccessToken  string          `json:"access_token"`
		RefreshToken string          `json:"refresh_token"`
		Scope        string          `json:"scope"`
		ExpiresAt    json.RawMessage `json:"expires_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	expiresAt, err := parseLegacyTime(raw.ExpiresAt)
	if err != nil {
		return fmt.Errorf("expires_at: %w", err)
	}
	*l = LegacyIntegration{
		AccessToken:  raw.AccessToken,
		RefreshToken: raw.RefreshToken,
		Scope:        raw.Scope,
		ExpiresAt:    expiresAt,
	}
	return nil
}

// legacyTimeLayouts covers RFC3339 and the text forms Postgres and SQLite emit
// for timestamps. Fractional seconds parse under each of them.
var legacyTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z07",
	"2006-01-02 15:04:05",
}

// parseLegacyTime accepts timestamp strings, unix seconds, or unix milliseconds.
func parseLegacyTime(raw json.RawMessage) (time.Time, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return time.Time{}, nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return time.Time{}, err
		}
		if str == "" {
			return time.Time{}, nil
		}
		for _, layout := range legacyTimeLayouts {
			if t, err := time.Parse(layout, str); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognized time format: %s", str)
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return time.Time{}, err
	}
	if n > 1e12 {
		return time.UnixMilli(int64(n)).UTC(), nil
	}
	return time.Unix(int64(n), 0).UTC(), nil
}

// ParseLegacyIntegration decodes the entry for one service from the settings
// integrations blob. Other entries are left raw, so a bad neighbour does not
// hide a good one. A missing entry returns (nil, nil).
func ParseLegacyIntegration(data []byte, serviceName string) (*LegacyIntegration, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var entries map[string]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse settings integrations: %w", err)
	}
	raw, ok := entries[serviceName]
	if !ok {
		return nil, nil
	}
	var entry LegacyIntegration
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("parse settings integration %s: %w", serviceName, err)
	}
	return &entry, nil
}
