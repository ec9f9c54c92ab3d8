package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jyra/internal/store"
	"jyra/internal/vectorindex"
)

func openTestScheduler(t *testing.T) (*store.Store, *Scheduler) {
	t.Helper()
	s, err := store.Open("file::memory:?cache=shared", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.CloseAll() })
	idx := vectorindex.New(s)
	router := newTestRouter(t, "summary")
	c := NewConsolidator(s, idx, router, zap.NewNop())
	d := NewDecayEngine(s, zap.NewNop())
	return s, NewScheduler(s, c, d, zap.NewNop())
}

func TestScheduler_RunOnce_DecaysEveryUserEvenWithoutConsolidationCandidates(t *testing.T) {
	s, sch := openTestScheduler(t)
	ctx := context.Background()

	mem, _, err := s.AddMemory(ctx, store.AddMemoryParams{UserID: 1, Content: "solo", Importance: 4})
	require.NoError(t, err)

	params := DefaultSchedulerParams()
	params.Decay.MinAgeDays = 0
	params.Decay.DecayFactor = 0.5

	require.NoError(t, sch.RunOnce(ctx, params))

	got, err := s.GetMemory(ctx, mem.MemoryID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Importance)
}

func TestScheduler_RunOnce_PrunesConversationsOlderThanMaxAge(t *testing.T) {
	s, sch := openTestScheduler(t)
	ctx := context.Background()

	_, err := s.AppendConversation(ctx, 1, 1, "hello", "hi there")
	require.NoError(t, err)

	params := DefaultSchedulerParams()
	params.ConversationMaxAge = time.Nanosecond

	require.NoError(t, sch.RunOnce(ctx, params))

	rows, err := s.RecentHistory(ctx, 1, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestScheduler_RunOnce_SkipsConversationPruneWhenMaxAgeIsZero(t *testing.T) {
	s, sch := openTestScheduler(t)
	ctx := context.Background()

	_, err := s.AppendConversation(ctx, 1, 1, "hello", "hi there")
	require.NoError(t, err)

	params := DefaultSchedulerParams()
	params.Decay.MinAgeDays = 0
	params.ConversationMaxAge = 0

	require.NoError(t, sch.RunOnce(ctx, params))

	rows, err := s.RecentHistory(ctx, 1, 1, 10)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestScheduler_Run_StopsWhenContextCancelled(t *testing.T) {
	_, sch := openTestScheduler(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sch.Run(ctx, SchedulerParams{IntervalHours: 0, Consolidation: DefaultConsolidationParams(), Decay: DefaultSchedulerParams().Decay})
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}
