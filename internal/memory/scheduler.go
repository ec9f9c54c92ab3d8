package memory

import (
	"context"
	"time"

	"go.uber.org/zap"

	"jyra/internal/store"
)

// SchedulerParams bundles MaintenanceScheduler's tunables.
type SchedulerParams struct {
	IntervalHours      int
	Consolidation      ConsolidationParams
	Decay              DecayParams
	ConversationMaxAge time.Duration
}

func DefaultSchedulerParams() SchedulerParams {
	return SchedulerParams{
		IntervalHours: 24,
		Consolidation: DefaultConsolidationParams(),
		Decay: DecayParams{
			DecayFactor:   0.9,
			MinAgeDays:    30,
			MinImportance: 1,
			MaxPerRun:     200,
		},
		ConversationMaxAge: 90 * 24 * time.Hour,
	}
}

// retryBackoff is the sleep-and-retry interval after an unexpected
// loop-body failure.
const retryBackoff = time.Hour

// Scheduler ticks Consolidator and DecayEngine across every user and prunes
// stale conversation history. A per-user failure is logged and never stops
// the loop; an unexpected failure in the loop body itself backs off and
// retries.
type Scheduler struct {
	store        *store.Store
	consolidator *Consolidator
	decay        *DecayEngine
	logger       *zap.Logger
}

func NewScheduler(s *store.Store, c *Consolidator, d *DecayEngine, logger *zap.Logger) *Scheduler {
	return &Scheduler{store: s, consolidator: c, decay: d, logger: logger}
}

// Run blocks until ctx is cancelled, ticking every IntervalHours.
func (sch *Scheduler) Run(ctx context.Context, p SchedulerParams) {
	interval := time.Duration(p.IntervalHours) * time.Hour
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sch.runCycleWithRetry(ctx, p)
		}
	}
}

// runCycleWithRetry runs one maintenance cycle; if the cycle itself fails
// unexpectedly (as opposed to a single user's work failing, which RunOnce
// already isolates), it sleeps retryBackoff and tries once more before
// giving up until the next regular tick.
func (sch *Scheduler) runCycleWithRetry(ctx context.Context, p SchedulerParams) {
	if err := sch.RunOnce(ctx, p); err != nil {
		sch.logger.Error("maintenance cycle failed, backing off", zap.Error(err), zap.Duration("retry_in", retryBackoff))
		select {
		case <-ctx.Done():
			return
		case <-time.After(retryBackoff):
		}
		if err := sch.RunOnce(ctx, p); err != nil {
			sch.logger.Error("maintenance retry failed, waiting for next tick", zap.Error(err))
		}
	}
}

// RunOnce performs a single consolidation+decay pass for every user, then
// prunes conversation history older than ConversationMaxAge. A failure for
// one user is logged and does not abort the remaining users.
func (sch *Scheduler) RunOnce(ctx context.Context, p SchedulerParams) error {
	userIDs, err := sch.store.AllUserIDs(ctx)
	if err != nil {
		return err
	}

	for _, userID := range userIDs {
		if _, err := sch.consolidator.Run(ctx, userID, p.Consolidation); err != nil {
			sch.logger.Warn("maintenance: consolidation failed for user", zap.Int64("user_id", userID), zap.Error(err))
		}
		if _, err := sch.decay.Apply(ctx, userID, p.Decay); err != nil {
			sch.logger.Warn("maintenance: decay failed for user", zap.Int64("user_id", userID), zap.Error(err))
		}
	}

	if p.ConversationMaxAge > 0 {
		removed, err := sch.store.PruneConversations(ctx, p.ConversationMaxAge)
		if err != nil {
			sch.logger.Warn("maintenance: conversation pruning failed", zap.Error(err))
		} else if removed > 0 {
			sch.logger.Info("maintenance: pruned stale conversations", zap.Int64("removed", removed))
		}
	}
	return nil
}
