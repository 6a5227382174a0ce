package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-oauth-connect/connect"
	"github.com/jrsteele09/go-oauth-connect/internal/config"
	"github.com/jrsteele09/go-oauth-connect/providers"
	"github.com/rs/zerolog"
)

type Server struct {
	env            string // Environment (e.g., "DEV", "PROD")
	mux            *http.ServeMux
	routes         []string
	settingsURL    string
	stateCookieAge time.Duration
	userHeader     string
	providers      *providers.Registry
	orchestrator   *connect.Orchestrator
	integrations   *integrationStatus
	logger         zerolog.Logger
}

type Option func(*Server)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithIntegrations enables the read-only integration status route.
func WithIntegrations(store CredentialReader, engine StateReporter) Option {
	return func(s *Server) {
		s.integrations = &integrationStatus{store: store, engine: engine}
	}
}

func New(config config.Config, registry *providers.Registry, orchestrator *connect.Orchestrator, options ...Option) *Server {
	s := &Server{
		env:            config.GetEnv(),
		mux:            http.NewServeMux(),
		settingsURL:    config.GetSettingsURL(),
		stateCookieAge: config.GetStateCookieMaxAge(),
		userHeader:     config.GetTrustedUserHeader(),
		providers:      registry,
		orchestrator:   orchestrator,
		logger:         zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		method, path, found := strings.Cut(route, " ")
		if !found {
			method, path = "", route
		}
		s.logger.Info().Msgf("[%-19s] %s", colourMethod(method), path)
	}
}

func colourMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if colour, ok := methodColors[method]; ok {
		return colour + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
