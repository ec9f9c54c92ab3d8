package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jyra/internal/config"
	"jyra/internal/di"
	"jyra/internal/memory"
	"jyra/internal/ratelimit"
)

func newBotCmd() *cobra.Command {
	var adminAddr string

	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the persona-memory core: admin HTTP surface + background maintenance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(adminAddr)
		},
	}
	cmd.Flags().StringVar(&adminAddr, "admin-addr", ":8081", "address for the healthz/metrics admin HTTP surface")
	return cmd
}

// runBot wires the Container, starts the admin HTTP surface and the
// maintenance scheduler, and blocks until SIGINT/SIGTERM.
//
// The out-of-core chat adapter (Telegram or otherwise) is not implemented
// here; this command brings up everything the core needs so an adapter
// process can attach to the same database.
func runBot(adminAddr string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	container, err := di.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer container.Close()

	instanceID := uuid.NewString()
	container.Logger.Info("starting jyra core", zap.String("instance_id", instanceID), zap.String("environment", cfg.Environment))

	metrics := di.NewMetricsCollector("jyra")
	srv := &http.Server{Addr: adminAddr, Handler: di.AdminRouter(container, metrics)}

	go func() {
		container.Logger.Info("admin http surface listening", zap.String("addr", adminAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			container.Logger.Error("admin http surface failed", zap.Error(err))
		}
	}()

	params := memory.DefaultSchedulerParams()
	params.IntervalHours = cfg.DecayIntervalHours
	params.Consolidation.MinSimilarity = cfg.ConsolidationMinSimilarity
	params.ConversationMaxAge = time.Duration(cfg.ConversationRetentionDays) * 24 * time.Hour
	go container.Scheduler.Run(ctx, params)

	if configFilePath != "" {
		watcher, err := config.NewWatcher(configFilePath, container.Logger)
		if err != nil {
			container.Logger.Warn("config hot-reload disabled", zap.Error(err))
		} else {
			defer watcher.Close()
			watcher.OnChange(func(newCfg *config.Config) {
				container.RateLimiter.SetParams(ratelimit.Params{
					Window:      time.Duration(newCfg.RateLimitWindow) * time.Second,
					MaxRequests: newCfg.RateLimitMaxRequests,
				})
				container.RateLimiter.SetAdmins(newCfg.AdminUserIDs)
			})
		}
	}

	<-ctx.Done()
	container.Logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
