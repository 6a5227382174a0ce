package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-oauth-connect/connect"
	"github.com/jrsteele09/go-oauth-connect/internal/config"
	"github.com/jrsteele09/go-oauth-connect/internal/logging"
	"github.com/jrsteele09/go-oauth-connect/internal/storage"
	"github.com/jrsteele09/go-oauth-connect/providers"
	"github.com/jrsteele09/go-oauth-connect/server"
	"github.com/jrsteele09/go-oauth-connect/token"
	"github.com/jrsteele09/go-oauth-connect/token/refresh"
	"github.com/rs/zerolog"
)

func main() {
	c := config.New()
	logger := logging.New(c.GetEnv(), os.Stderr)
	logging.SetGlobal(logger)

	if err := run(c, logger); err != nil {
		logger.Fatal().Err(err).Msg("error running server")
	}
	logger.Info().Msg("server stopped")
}

func run(c config.Config, logger zerolog.Logger) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("panic", fmt.Sprint(r)).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	displayAppname(c.GetAppName())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	store, err := storage.Open(ctx, c, logger)
	cancel()
	if err != nil {
		return fmt.Errorf("storage.Open: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("closing credential store")
		}
	}()

	registry, err := providers.FromConfig(c)
	if err != nil {
		return fmt.Errorf("providers.FromConfig: %w", err)
	}
	logger.Info().Strs("providers", registry.Names()).Msg("providers enabled")

	tokens := token.NewClient(
		token.WithTimeout(c.GetTokenEndpointTimeout()),
		token.WithLogger(logger.With().Str("component", "token").Logger()),
	)
	engine := refresh.NewEngine(store, registry, tokens,
		refresh.WithLookahead(c.GetRefreshLookahead()),
		refresh.WithLogger(logger.With().Str("component", "refresh").Logger()),
	)

	codec := connect.NewStateCodec(c.GetStateSecret(), c.GetStateCookieMaxAge())
	if !codec.Signed() {
		logger.Warn().Msg("OAUTH_STATE_SECRET not set; state parameters are unsigned")
	}
	orchestrator := connect.NewOrchestrator(tokens, store, codec,
		connect.WithLogger(logger.With().Str("component", "connect").Logger()),
	)

	handler := server.New(c, registry, orchestrator,
		server.WithIntegrations(store, engine),
		server.WithLogger(logger),
	)
	srv := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- listenAndServe(srv, logger)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(srv)
}

func listenAndServe(server *http.Server, logger zerolog.Logger) error {
	logger.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
