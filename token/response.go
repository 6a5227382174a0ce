package token

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/go-oauth-connect/internal/utils"
	"github.com/jrsteele09/go-oauth-connect/scopes"
	"golang.org/x/oauth2"
)

// Response is a successful token endpoint reply. ReceivedAt is stamped once,
// when the response arrives, and is the only time base for ExpiresAt.
type Response struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds, zero when the provider omitted it
	Scope        string
	ReceivedAt   time.Time
}

// ExpiresAt is ReceivedAt + ExpiresIn, or zero when the lifetime is unknown.
func (r *Response) ExpiresAt() time.Time {
	if r.ExpiresIn <= 0 {
		return time.Time{}
	}
	return r.ReceivedAt.Add(time.Duration(r.ExpiresIn) * time.Second)
}

// ValidUntil is the expiry to persist: the reported lifetime, raised to floor
// when the provider issues tokens that outlive what they report. Zero when both
// are unknown.
func (r *Response) ValidUntil(floor time.Duration) time.Time {
	lifetime := time.Duration(r.ExpiresIn) * time.Second
	if floor > lifetime {
		lifetime = floor
	}
	if lifetime <= 0 {
		return time.Time{}
	}
	return r.ReceivedAt.Add(lifetime)
}

// Scopes splits the granted scope string. Google separates with spaces, Meta and
// TikTok with commas.
func (r *Response) Scopes() []string {
	return scopes.Split(r.Scope)
}

func newResponse(tok *oauth2.Token, receivedAt time.Time) *Response {
	resp := &Response{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn(tok, receivedAt),
		ReceivedAt:   receivedAt,
	}
	switch scope := tok.Extra("scope").(type) {
	case string:
		resp.Scope = scope
	case []any:
		resp.Scope = strings.Join(utils.ToStringSlice(scope), " ")
	}
	return resp
}

// expiresIn prefers the raw expires_in field and falls back to the expiry
// x/oauth2 derived from it.
func expiresIn(tok *oauth2.Token, receivedAt time.Time) int64 {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	if tok.ExpiresIn > 0 {
		return tok.ExpiresIn
	}
	if tok.Expiry.IsZero() {
		return 0
	}
	return int64(math.Max(0, math.Round(tok.Expiry.Sub(receivedAt).Seconds())))
}
