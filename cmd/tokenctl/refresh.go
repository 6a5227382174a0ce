package main

import (
	"fmt"
	"time"

	"github.com/jrsteele09/go-oauth-connect/internal/storage"
	"github.com/jrsteele09/go-oauth-connect/providers"
	"github.com/jrsteele09/go-oauth-connect/token"
	"github.com/jrsteele09/go-oauth-connect/token/refresh"
	"github.com/spf13/cobra"
)

func newRefreshCmd(a *app) *cobra.Command {
	var opts keyOptions
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Force a refresh of the stored access token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := providers.FromConfig(a.cfg)
			if err != nil {
				return err
			}
			return a.withStore(cmd.Context(), func(store *storage.Store) error {
				tokens := token.NewClient(
					token.WithTimeout(a.cfg.GetTokenEndpointTimeout()),
					token.WithLogger(a.logger),
				)
				engine := refresh.NewEngine(store, registry, tokens,
					refresh.WithLookahead(a.cfg.GetRefreshLookahead()),
					refresh.WithLogger(a.logger),
				)

				record, err := engine.ForceRefresh(cmd.Context(), opts.userID, opts.service)
				if err != nil {
					return fmt.Errorf("refresh %s/%s: %w", opts.userID, opts.service, err)
				}
				expires := "unknown expiry"
				if record.ExpiryKnown() {
					expires = "expires " + record.ExpiresAt.UTC().Format(time.RFC3339)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "refreshed %s for %s, %s\n", record.ServiceName, record.UserID, expires)
				return nil
			})
		},
	}
	opts.bind(cmd)
	return cmd
}
