package connect

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-oauth-connect/internal/errors"
)

// State is the JSON payload carried through the provider round trip. UserID is
// the only identity the callback trusts.
type State struct {
	UserID   string   `json:"userId"`
	Services []string `json:"services,omitempty"`
}

type stateClaims struct {
	State
	jwt.RegisteredClaims
}

// StateCodec encodes and decodes the state parameter. With a secret it issues
// and requires HS256-signed JWTs; without one it accepts the unsigned JSON
// forms older clients send.
type StateCodec struct {
	secret []byte
	maxAge time.Duration
}

const DefaultStateMaxAge = 10 * time.Minute

func NewStateCodec(secret string, maxAge time.Duration) *StateCodec {
	if maxAge <= 0 {
		maxAge = DefaultStateMaxAge
	}
	c := &StateCodec{maxAge: maxAge}
	if secret != "" {
		c.secret = []byte(secret)
	}
	return c
}

func (c *StateCodec) Signed() bool {
	return len(c.secret) > 0
}

func (c *StateCodec) Encode(state State) (string, error) {
	if !c.Signed() {
		raw, err := json.Marshal(state)
		if err != nil {
			return "", fmt.Errorf("encode state: %w", err)
		}
		return base64.RawURLEncoding.EncodeToString(raw), nil
	}

	now := time.Now()
	claims := stateClaims{
		State: state,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.maxAge)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}
	return signed, nil
}

// Decode parses a state parameter. It fails with ErrInvalidState when the value
// cannot be decoded; a decodable state without a user id is returned as is.
func (c *StateCodec) Decode(raw string) (State, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return State{}, fmt.Errorf("empty state: %w", apperrors.ErrInvalidState)
	}
	if c.Signed() {
		return c.decodeSigned(raw)
	}

	for _, candidate := range stateCandidates(raw) {
		var state State
		if err := json.Unmarshal(candidate, &state); err == nil {
			return state, nil
		}
	}
	return State{}, fmt.Errorf("undecodable state: %w", apperrors.ErrInvalidState)
}

func (c *StateCodec) decodeSigned(raw string) (State, error) {
	var claims stateClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return State{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidState, err)
	}
	return claims.State, nil
}

// stateCandidates lists the byte forms to try as JSON: as sent, URL-decoded,
// and each base64 alphabet with and without padding. Form decoding turns a
// standard-alphabet "+" into a space, so that is undone before base64.
func stateCandidates(raw string) [][]byte {
	candidates := [][]byte{[]byte(raw)}
	if unescaped, err := url.QueryUnescape(raw); err == nil && unescaped != raw {
		candidates = append(candidates, []byte(unescaped))
	}
	b64 := strings.ReplaceAll(raw, " ", "+")
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		if decoded, err := enc.DecodeString(b64); err == nil {
			candidates = append(candidates, decoded)
		}
	}
	return candidates
}
