package main

import (
	"context"

	"github.com/spf13/cobra"

	"jyra/internal/config"
	"jyra/internal/logging"
	"jyra/internal/store"
)

func newDBInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "db-init",
		Short: "Create the schema and seed default roles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Environment, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			s, err := store.Open(cfg.DatabasePath, logger)
			if err != nil {
				return err
			}
			defer s.CloseAll()

			return s.SeedDefaultRoles(context.Background())
		},
	}
}
