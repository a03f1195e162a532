package main

import (
	"github.com/spf13/cobra"

	"github.com/bongocat/webapp/internal/infrastructure/config"
	"github.com/bongocat/webapp/pkg/logger"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations to the configured store",
		Long: `Apply pending goose migrations for the postgres and sqlite stores,
or create the unique and leaderboard indexes for the mongo store.`,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.IsDevelopment(), Service: "webapp"})

	s, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer s.close()

	applied, err := s.Migrate(ctx)
	if err != nil {
		return err
	}
	log.Info().Str("driver", s.driver).Ints64("applied", applied).Msg("migrations complete")
	return nil
}
