package main

import (
	"fmt"

	"github.com/jrsteele09/go-oauth-connect/internal/storage"
	"github.com/spf13/cobra"
)

func newDisconnectCmd(a *app) *cobra.Command {
	var opts keyOptions
	cmd := &cobra.Command{
		Use:   "disconnect",
		Short: "Delete the stored credential from the integrations table",
		Long: "Delete the stored credential from the integrations table. Legacy settings rows are\n" +
			"left alone, so a credential still held there keeps resolving.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(store *storage.Store) error {
				if err := store.Delete(cmd.Context(), opts.userID, opts.service); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "disconnected %s for %s\n", opts.service, opts.userID)
				return nil
			})
		},
	}
	opts.bind(cmd)
	return cmd
}
