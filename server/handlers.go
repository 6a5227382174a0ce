package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-oauth-connect/credentials"
	apperrors "github.com/jrsteele09/go-oauth-connect/internal/errors"
	"github.com/jrsteele09/go-oauth-connect/internal/utils"
	"github.com/jrsteele09/go-oauth-connect/token/refresh"
)

const contentTypeJSON = "application/json; charset=utf-8"

// CredentialReader is the read side of the credential store.
type CredentialReader interface {
	Get(ctx context.Context, userID, serviceName string) (*credentials.Record, error)
}

// StateReporter classifies a stored credential without refreshing it.
type StateReporter interface {
	StateOf(record *credentials.Record) refresh.State
}

var (
	_ CredentialReader = (*credentials.Store)(nil)
	_ StateReporter    = (*refresh.Engine)(nil)
)

type integrationStatus struct {
	store  CredentialReader
	engine StateReporter
}

// IntegrationStatusResponse never carries token material.
type IntegrationStatusResponse struct {
	Service   string     `json:"service"`
	Connected bool       `json:"connected"`
	State     string     `json:"state,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Scopes    []string   `json:"scopes,omitempty"`
}

// Health is a liveness probe listing the enabled providers
func (s *Server) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"providers": s.providers.Names(),
		})
	}
}

// IntegrationStatus reports whether a user has a usable credential for a
// service: GET /integrations/{service}/status?userId=
func (s *Server) IntegrationStatus() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		service := r.PathValue("service")
		userID := strings.TrimSpace(r.URL.Query().Get("userId"))
		if userID == "" {
			writeJSONError(w, "invalid_request", "userId is required", http.StatusBadRequest)
			return
		}

		record, err := s.integrations.store.Get(r.Context(), userID, service)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			writeJSON(w, http.StatusOK, IntegrationStatusResponse{Service: service})
			return
		case err != nil:
			s.requestLogger(r).Error().Err(err).Str("service", service).Str("user_id", userID).Msg("integration status lookup failed")
			writeJSONError(w, "store_unavailable", "credential store unavailable", http.StatusServiceUnavailable)
			return
		}

		resp := IntegrationStatusResponse{
			Service:   service,
			Connected: true,
			State:     s.integrations.engine.StateOf(record).String(),
			Scopes:    record.Scopes,
		}
		if record.ExpiryKnown() {
			resp.ExpiresAt = utils.Ptr(record.ExpiresAt.UTC())
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, errorCode, description string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{
		"error":             errorCode,
		"error_description": description,
	})
}
