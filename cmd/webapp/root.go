package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command of the webapp CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "webapp",
		Short: "Bongo cat web app",
		Long: `webapp serves the bongo cat game: accounts with password reset,
a per-user score ledger and a public leaderboard.

Configuration is read from the environment; see SECRET_KEY and STORE_DRIVER.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
