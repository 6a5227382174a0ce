package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jrsteele09/go-oauth-connect/credentials"
	"github.com/jrsteele09/go-oauth-connect/internal/storage"
	"github.com/jrsteele09/go-oauth-connect/token/refresh"
	"github.com/spf13/cobra"
)

func newShowCmd(a *app) *cobra.Command {
	var opts keyOptions
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective credential for a user and service (tokens masked)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(cmd.Context(), func(store *storage.Store) error {
				record, err := store.Get(cmd.Context(), opts.userID, opts.service)
				if err != nil {
					return err
				}
				// StateOf only looks at the expiry, so no providers are needed
				engine := refresh.NewEngine(store, nil, nil, refresh.WithLookahead(a.cfg.GetRefreshLookahead()))
				return printRecord(cmd.OutOrStdout(), record, engine.StateOf(record))
			})
		},
	}
	opts.bind(cmd)
	return cmd
}

func printRecord(out io.Writer, record *credentials.Record, state refresh.State) error {
	expires := "unknown"
	if record.ExpiryKnown() {
		expires = fmt.Sprintf("%s (%s)", record.ExpiresAt.UTC().Format(time.RFC3339), until(record.ExpiresAt))
	}
	refreshToken := "absent"
	if record.RefreshToken != "" {
		refreshToken = "present"
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "user:\t%s\n", record.UserID)
	fmt.Fprintf(w, "service:\t%s\n", record.ServiceName)
	fmt.Fprintf(w, "access token:\t%s\n", mask(record.AccessToken))
	fmt.Fprintf(w, "refresh token:\t%s\n", refreshToken)
	fmt.Fprintf(w, "scopes:\t%s\n", strings.Join(record.Scopes, " "))
	fmt.Fprintf(w, "expires at:\t%s\n", expires)
	fmt.Fprintf(w, "state:\t%s\n", state)
	return w.Flush()
}

func mask(token string) string {
	if token == "" {
		return "absent"
	}
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return fmt.Sprintf("%s... (%d chars)", token[:4], len(token))
}

func until(t time.Time) string {
	d := time.Until(t).Round(time.Second)
	if d < 0 {
		return "expired " + (-d).String() + " ago"
	}
	return "in " + d.String()
}
