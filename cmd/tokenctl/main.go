// Command tokenctl inspects and maintains stored OAuth credentials.
package main

import (
	"os"

	"github.com/jrsteele09/go-oauth-connect/internal/config"
)

func main() {
	if err := newRootCmd(config.New()).Execute(); err != nil {
		os.Exit(1)
	}
}
