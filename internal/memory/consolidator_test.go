package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"jyra/internal/aimodel"
	"jyra/internal/store"
	"jyra/internal/vectorindex"
)

func TestDBSCAN_GroupsDenseNeighborsAndLabelsNoise(t *testing.T) {
	// three points clustered near 0, one far outlier.
	dist := [][]float64{
		{0, 0.05, 0.05, 0.9},
		{0.05, 0, 0.05, 0.9},
		{0.05, 0.05, 0, 0.9},
		{0.9, 0.9, 0.9, 0},
	}
	labels := dbscan(dist, 0.25, 1)
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[1], labels[2])
	assert.Equal(t, -1, labels[3])
}

func TestDBSCAN_AllNoiseWhenEpsTooSmall(t *testing.T) {
	dist := [][]float64{
		{0, 0.5},
		{0.5, 0},
	}
	labels := dbscan(dist, 0.1, 1)
	assert.Equal(t, []int{-1, -1}, labels)
}

func TestRound_HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 3, round(2.5))
	assert.Equal(t, 2, round(2.4))
	assert.Equal(t, -3, round(-2.5))
}

func TestClampToFive_Bounds(t *testing.T) {
	assert.Equal(t, 1, clampToFive(-5))
	assert.Equal(t, 5, clampToFive(99))
	assert.Equal(t, 3, clampToFive(3))
}

func TestModeCategory_PrefersHighestCountThenLexical(t *testing.T) {
	assert.Equal(t, "fact", modeCategory(map[string]int{"fact": 2, "preference": 1}))
	assert.Equal(t, "fact", modeCategory(map[string]int{"fact": 1, "zzz": 1}))
	assert.Equal(t, "general", modeCategory(nil))
}

func TestMeanPairwiseSimilarity_SinglePointIsZero(t *testing.T) {
	dist := [][]float64{{0}}
	assert.Equal(t, 0.0, meanPairwiseSimilarity(dist, []int{0}))
}

type fixedModelProvider struct {
	text string
}

func (p *fixedModelProvider) Generate(ctx context.Context, prompt string, role aimodel.RoleContext, history []aimodel.Turn, memoryContext string, opts aimodel.Options) (string, error) {
	return p.text, nil
}
func (p *fixedModelProvider) Capabilities() aimodel.Capabilities {
	return aimodel.Capabilities{Name: "fixed", Provider: "test"}
}
func (p *fixedModelProvider) Available(ctx context.Context) bool { return true }

func newTestRouter(t *testing.T, text string) *aimodel.ModelRouter {
	t.Helper()
	cache, err := aimodel.NewResponseCache(t.TempDir(), time.Hour, zap.NewNop())
	require.NoError(t, err)
	return aimodel.NewModelRouter(zap.NewNop(), cache, &fixedModelProvider{text: text})
}

func TestConsolidator_MergesClusterAndMarksSources(t *testing.T) {
	s, err := store.Open("file::memory:?cache=shared", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.CloseAll() })
	idx := vectorindex.New(s)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		mem, _, err := s.AddMemory(ctx, store.AddMemoryParams{
			UserID: 1, Content: string(rune('a' + i)), Category: "preference", Importance: 3,
		})
		require.NoError(t, err)
		require.NoError(t, idx.Upsert(ctx, mem.MemoryID, []float32{1, 0, 0}))
		ids = append(ids, mem.MemoryID)
	}

	router := newTestRouter(t, "consolidated summary")
	c := NewConsolidator(s, idx, router, zap.NewNop())

	params := DefaultConsolidationParams()
	params.MinClusterSize = 2
	created, err := c.Run(ctx, 1, params)
	require.NoError(t, err)
	require.Len(t, created, 1)

	consolidated, err := s.GetMemory(ctx, created[0])
	require.NoError(t, err)
	assert.Equal(t, "consolidated summary", consolidated.Content)
	assert.True(t, consolidated.IsConsolidated)

	edges, err := s.ConsolidationEdges(ctx, created[0])
	require.NoError(t, err)
	assert.Len(t, edges, 3)
}

func TestConsolidator_TooFewCandidatesIsNoOp(t *testing.T) {
	s, err := store.Open("file::memory:?cache=shared", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.CloseAll() })
	idx := vectorindex.New(s)
	ctx := context.Background()

	mem, _, err := s.AddMemory(ctx, store.AddMemoryParams{UserID: 1, Content: "lonely", Importance: 3})
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(ctx, mem.MemoryID, []float32{1, 0, 0}))

	router := newTestRouter(t, "anything")
	c := NewConsolidator(s, idx, router, zap.NewNop())

	created, err := c.Run(ctx, 1, DefaultConsolidationParams())
	require.NoError(t, err)
	assert.Empty(t, created)
}
