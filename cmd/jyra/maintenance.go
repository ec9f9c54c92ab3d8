package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jyra/internal/config"
	"jyra/internal/di"
	"jyra/internal/memory"
)

func newMaintenanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maintenance",
		Short: "Run one consolidation+decay pass for every user and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			container, err := di.Build(ctx, cfg)
			if err != nil {
				return err
			}
			defer container.Close()

			params := memory.DefaultSchedulerParams()
			params.IntervalHours = cfg.DecayIntervalHours
			params.Consolidation.MinSimilarity = cfg.ConsolidationMinSimilarity
			params.ConversationMaxAge = time.Duration(cfg.ConversationRetentionDays) * 24 * time.Hour

			if err := container.Scheduler.RunOnce(ctx, params); err != nil {
				return err
			}
			container.Logger.Info("maintenance pass complete", zap.Int("decay_interval_hours", cfg.DecayIntervalHours))
			return nil
		},
	}
}
