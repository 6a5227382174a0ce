package main

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-oauth-connect/internal/config"
	"github.com/jrsteele09/go-oauth-connect/internal/logging"
	"github.com/jrsteele09/go-oauth-connect/internal/storage"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type app struct {
	cfg    config.Config
	logger zerolog.Logger
}

func newRootCmd(cfg config.Config) *cobra.Command {
	a := &app{cfg: cfg, logger: zerolog.Nop()}
	cmd := &cobra.Command{
		Use:          "tokenctl",
		Short:        "Inspect and maintain stored OAuth credentials",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			a.logger = logging.New(cfg.GetEnv(), cmd.ErrOrStderr())
		},
	}
	cmd.AddCommand(
		newShowCmd(a),
		newRefreshCmd(a),
		newDisconnectCmd(a),
		newMigrateCmd(a),
	)
	return cmd
}

// withStore opens the configured store (applying migrations) for one command.
func (a *app) withStore(ctx context.Context, fn func(store *storage.Store) error) error {
	store, err := storage.Open(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("closing credential store")
		}
	}()
	return fn(store)
}

type keyOptions struct {
	userID  string
	service string
}

func (o *keyOptions) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&o.userID, "user", "u", "", "CRM user id")
	fs.StringVarP(&o.service, "service", "s", "", "service name, e.g. google-analytics or fortnox")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("service")
}
