package memory

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"jyra/internal/store"
)

// DecayParams bundles Apply's tunables.
type DecayParams struct {
	DecayFactor   float64 // [0.5, 0.95]
	MinAgeDays    int
	MinImportance int
	MaxPerRun     int
}

// DecayEngine lowers the importance of memories that haven't been touched
// in a while, using a floor(importance*decay_factor) step floored at 1.
type DecayEngine struct {
	store  *store.Store
	logger *zap.Logger
}

func NewDecayEngine(s *store.Store, logger *zap.Logger) *DecayEngine {
	return &DecayEngine{store: s, logger: logger}
}

// Apply decays one user's memories and returns the count whose importance
// actually decreased.
func (d *DecayEngine) Apply(ctx context.Context, userID int64, p DecayParams) (int, error) {
	candidates, err := d.store.DecayCandidates(ctx, userID, store.DecayFilter{
		MinImportance: p.MinImportance,
		OlderThan:     time.Now().AddDate(0, 0, -p.MinAgeDays),
		Limit:         p.MaxPerRun,
	})
	if err != nil {
		return 0, err
	}

	decreased := 0
	for _, mem := range candidates {
		newImportance := int(math.Floor(float64(mem.Importance) * p.DecayFactor))
		if newImportance < 1 {
			newImportance = 1
		}
		if newImportance >= mem.Importance {
			continue
		}
		if err := d.store.SetImportanceRaw(ctx, mem.MemoryID, newImportance); err != nil {
			d.logger.Warn("decay: write importance failed", zap.Int64("memory_id", mem.MemoryID), zap.Error(err))
			continue
		}
		if err := d.store.AppendContext(ctx, mem.MemoryID, fmt.Sprintf("Importance decayed to %d", newImportance)); err != nil {
			d.logger.Warn("decay: append context failed", zap.Int64("memory_id", mem.MemoryID), zap.Error(err))
		}
		decreased++
	}
	return decreased, nil
}

// ApplyAll iterates every distinct user_id in the memory table.
func (d *DecayEngine) ApplyAll(ctx context.Context, p DecayParams) (int, error) {
	userIDs, err := d.store.AllUserIDs(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, uid := range userIDs {
		n, err := d.Apply(ctx, uid, p)
		if err != nil {
			d.logger.Warn("decay: apply failed for user", zap.Int64("user_id", uid), zap.Error(err))
			continue
		}
		total += n
	}
	return total, nil
}
