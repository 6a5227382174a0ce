package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-oauth-connect/providers"
	"github.com/jrsteele09/go-oauth-connect/scopes"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// setStateCookie pins the encoded state to the browser that started the flow.
// Lax is required: the provider sends the browser back with a top-level GET.
func (s *Server) setStateCookie(w http.ResponseWriter, r *http.Request, p *providers.Provider, state string) {
	http.SetCookie(w, &http.Cookie{
		Name:     p.StateCookieName(),
		Value:    state,
		Path:     stateCookiePath(p),
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.stateCookieAge / time.Second),
	})
}

// clearFlowCookies expires the state cookie and any provider specific cookies
// left behind by the consent flow.
func clearFlowCookies(w http.ResponseWriter, r *http.Request, p *providers.Provider) {
	secure := getScheme(r) == "https"
	http.SetCookie(w, &http.Cookie{
		Name:     p.StateCookieName(),
		Value:    "",
		Path:     stateCookiePath(p),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
	for _, name := range p.TransientCookies {
		http.SetCookie(w, &http.Cookie{
			Name:   name,
			Value:  "",
			Path:   "/",
			Secure: secure,
			MaxAge: -1,
		})
	}
}

func stateCookiePath(p *providers.Provider) string {
	return "/oauth/" + p.Name
}

// parseServices splits the services query value and rejects ids that are
// unknown or issued by a provider other than p.
func parseServices(raw string, p *providers.Provider) ([]string, bool) {
	var services []string
	for _, service := range strings.Split(raw, ",") {
		service = strings.TrimSpace(service)
		if service == "" {
			continue
		}
		if !scopes.Known(scopes.ServiceID(service)) || providers.ProviderNameFor(service) != p.Name {
			return nil, false
		}
		services = append(services, service)
	}
	return services, true
}

// requestLogger returns the request scoped logger set by RequestIDMiddleware,
// or the server logger outside that chain.
func (s *Server) requestLogger(r *http.Request) *zerolog.Logger {
	if l := log.Ctx(r.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &s.logger
}
