package server

import (
	"net/http"
	"strings"

	"github.com/jrsteele09/go-oauth-connect/connect"
)

// Authorize starts the connect flow: GET /oauth/{provider}/authorize?userId=&services=a,b
//
// The grant is stored under userId, so the route must sit behind the CRM's own
// authentication. With TRUSTED_USER_HEADER set, userId must match the header
// the fronting proxy sets and defaults to it.
func (s *Server) Authorize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := s.providers.Get(r.PathValue("provider"))
		if err != nil {
			writeJSONError(w, "unknown_provider", "provider is not configured", http.StatusNotFound)
			return
		}

		query := r.URL.Query()
		userID := strings.TrimSpace(query.Get("userId"))
		if s.userHeader != "" {
			authenticated := strings.TrimSpace(r.Header.Get(s.userHeader))
			switch {
			case authenticated == "":
				writeJSONError(w, "unauthenticated", "no authenticated user", http.StatusUnauthorized)
				return
			case userID == "":
				userID = authenticated
			case userID != authenticated:
				s.requestLogger(r).Warn().Str("provider", p.Name).Msg("authorize userId does not match authenticated user")
				writeJSONError(w, "forbidden", "userId does not match the authenticated user", http.StatusForbidden)
				return
			}
		}
		if userID == "" {
			writeJSONError(w, "invalid_request", "userId is required", http.StatusBadRequest)
			return
		}
		services, ok := parseServices(query.Get("services"), p)
		if !ok {
			writeJSONError(w, "invalid_request", "service is unknown or not issued by this provider", http.StatusBadRequest)
			return
		}

		authURL, state, err := s.orchestrator.AuthorizeURL(p, connect.State{UserID: userID, Services: services})
		if err != nil {
			s.requestLogger(r).Error().Err(err).Str("provider", p.Name).Msg("could not build authorization url")
			writeJSONError(w, "server_error", "could not start authorization", http.StatusInternalServerError)
			return
		}

		s.setStateCookie(w, r, p, state)
		http.Redirect(w, r, authURL, http.StatusFound)
	}
}

// Callback completes the connect flow and always lands the browser on the
// settings page, with the outcome in the query string.
func (s *Server) Callback() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := s.requestLogger(r)

		p, err := s.providers.Get(r.PathValue("provider"))
		if err != nil {
			logger.Warn().Str("provider", r.PathValue("provider")).Msg("callback for unknown provider")
			s.redirectToSettings(w, r, connect.Outcome{ErrorCode: connect.ErrorCodeProviderError})
			return
		}

		// FormValue covers both the query string and form_post bodies
		params := connect.CallbackParams{
			Code:             r.FormValue("code"),
			State:            r.FormValue("state"),
			Error:            r.FormValue("error"),
			ErrorDescription: r.FormValue("error_description"),
		}

		// Cookies are not sent on cross-site form_post, so only a present cookie is checked
		if cookie, err := r.Cookie(p.StateCookieName()); err == nil && params.Error == "" && cookie.Value != params.State {
			logger.Warn().Str("provider", p.Name).Msg("state does not match the state cookie")
			clearFlowCookies(w, r, p)
			s.redirectToSettings(w, r, connect.Outcome{ErrorCode: connect.ErrorCodeInvalidState})
			return
		}

		outcome := s.orchestrator.HandleCallback(r.Context(), p, params)
		clearFlowCookies(w, r, p)
		s.redirectToSettings(w, r, outcome)
	}
}

func (s *Server) redirectToSettings(w http.ResponseWriter, r *http.Request, outcome connect.Outcome) {
	http.Redirect(w, r, outcome.RedirectURL(s.settingsURL), http.StatusSeeOther)
}
