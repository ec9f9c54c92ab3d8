package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("file::memory:?cache=shared", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.CloseAll() })
	return s
}

func TestAddMemory_InsertsNewRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mem, reinforced, err := s.AddMemory(ctx, AddMemoryParams{
		UserID: 1, Content: "likes tea", Category: "preference", Importance: 3, Source: SourceExtracted, Confidence: 0.8,
	})
	require.NoError(t, err)
	assert.False(t, reinforced)
	assert.Equal(t, 0, mem.RecallCount)
	assert.Equal(t, 3, mem.Importance)
}

func TestAddMemory_DuplicateReinforces(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, _, err := s.AddMemory(ctx, AddMemoryParams{
		UserID: 1, Content: "likes tea", Category: "preference", Importance: 2, Source: SourceExtracted, Confidence: 0.5,
	})
	require.NoError(t, err)

	second, reinforced, err := s.AddMemory(ctx, AddMemoryParams{
		UserID: 1, Content: "likes tea", Category: "preference", Importance: 4, Source: SourceExtracted, Confidence: 0.5,
	})
	require.NoError(t, err)
	assert.True(t, reinforced)
	assert.Equal(t, first.MemoryID, second.MemoryID)
	assert.Equal(t, 4, second.Importance) // max(2,4)
	assert.InDelta(t, 0.55, second.Confidence, 1e-9) // min(1, 0.5+0.1*0.5)
	assert.Equal(t, 1, second.RecallCount)
}

func TestAddMemory_ImportanceAndConfidenceClamped(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mem, _, err := s.AddMemory(ctx, AddMemoryParams{
		UserID: 2, Content: "x", Importance: 99, Confidence: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, mem.Importance)
	assert.Equal(t, 1.0, mem.Confidence)
	assert.Equal(t, "general", mem.Category)
}

func TestUpdateImportance_ClampsToFive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mem, _, err := s.AddMemory(ctx, AddMemoryParams{UserID: 3, Content: "x", Importance: 2})
	require.NoError(t, err)

	require.NoError(t, s.UpdateImportance(ctx, mem.MemoryID, 9))

	got, err := s.GetMemory(ctx, mem.MemoryID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Importance)
}

func TestSetImportanceRaw_DoesNotClamp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mem, _, err := s.AddMemory(ctx, AddMemoryParams{UserID: 3, Content: "x", Importance: 2})
	require.NoError(t, err)

	require.NoError(t, s.SetImportanceRaw(ctx, mem.MemoryID, 9))

	got, err := s.GetMemory(ctx, mem.MemoryID)
	require.NoError(t, err)
	assert.Equal(t, 9, got.Importance)
}

func TestGetMemoriesByIDs_ScopedToUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	m1, _, _ := s.AddMemory(ctx, AddMemoryParams{UserID: 1, Content: "a"})
	m2, _, _ := s.AddMemory(ctx, AddMemoryParams{UserID: 2, Content: "b"})

	rows, err := s.GetMemoriesByIDs(ctx, 1, []int64{m1.MemoryID, m2.MemoryID})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, m1.MemoryID, rows[0].MemoryID)
}

func TestDecayCandidates_FiltersByAgeAndImportance(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	old, _, err := s.AddMemory(ctx, AddMemoryParams{UserID: 1, Content: "old", Importance: 3})
	require.NoError(t, err)
	require.NoError(t, s.db.Model(&Memory{}).Where("memory_id = ?", old.MemoryID).
		Update("created_at", time.Now().AddDate(0, 0, -60)).Error)

	_, _, err = s.AddMemory(ctx, AddMemoryParams{UserID: 1, Content: "recent", Importance: 3})
	require.NoError(t, err)

	rows, err := s.DecayCandidates(ctx, 1, DecayFilter{
		MinImportance: 1,
		OlderThan:     time.Now().AddDate(0, 0, -30),
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, old.MemoryID, rows[0].MemoryID)
}

func TestConsolidationCandidates_ExcludesAlreadyConsolidated(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	m1, _, err := s.AddMemory(ctx, AddMemoryParams{UserID: 1, Content: "a", Importance: 3})
	require.NoError(t, err)
	_, _, err = s.AddMemory(ctx, AddMemoryParams{UserID: 1, Content: "b", Importance: 3})
	require.NoError(t, err)

	target, _, err := s.AddMemory(ctx, AddMemoryParams{UserID: 1, Content: "merged", Importance: 3})
	require.NoError(t, err)
	require.NoError(t, s.MarkConsolidated(ctx, []int64{m1.MemoryID}, target.MemoryID, 1, "[]"))

	rows, err := s.ConsolidationCandidates(ctx, 1, 1, 10)
	require.NoError(t, err)

	var ids []int64
	for _, r := range rows {
		ids = append(ids, r.MemoryID)
	}
	assert.Contains(t, ids, m1.MemoryID) // source memory itself isn't marked consolidated
	assert.NotContains(t, ids, target.MemoryID)
}

func TestMarkConsolidated_RecordsEdgesAndLog(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	m1, _, err := s.AddMemory(ctx, AddMemoryParams{UserID: 1, Content: "a"})
	require.NoError(t, err)
	m2, _, err := s.AddMemory(ctx, AddMemoryParams{UserID: 1, Content: "b"})
	require.NoError(t, err)
	target, _, err := s.AddMemory(ctx, AddMemoryParams{UserID: 1, Content: "merged"})
	require.NoError(t, err)

	require.NoError(t, s.MarkConsolidated(ctx, []int64{m1.MemoryID, m2.MemoryID}, target.MemoryID, 1, "[1,2]"))

	edges, err := s.ConsolidationEdges(ctx, target.MemoryID)
	require.NoError(t, err)
	assert.Len(t, edges, 2)

	var logs []MemoryConsolidationLog
	require.NoError(t, s.db.Where("consolidated_memory_id = ?", target.MemoryID).Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "[1,2]", logs[0].SourceMemories)

	got, err := s.GetMemory(ctx, target.MemoryID)
	require.NoError(t, err)
	assert.True(t, got.IsConsolidated)
}
