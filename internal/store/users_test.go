package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateUser_CreatesUserAndDefaultPreferences(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u, err := s.GetOrCreateUser(ctx, 1, "alice", "Alice", "A", "en")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.False(t, u.CreatedAt.IsZero())

	prefs, err := s.GetPreferences(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, ResponseMedium, prefs.ResponseLength)
	assert.Equal(t, FormalityNeutral, prefs.FormalityLevel)
	assert.True(t, prefs.MemoryEnabled)
}

func TestGetOrCreateUser_SecondCallReturnsExistingRowWithUpdatedInteraction(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.GetOrCreateUser(ctx, 1, "alice", "Alice", "A", "en")
	require.NoError(t, err)

	second, err := s.GetOrCreateUser(ctx, 1, "alice-renamed", "Alice", "A", "en")
	require.NoError(t, err)

	assert.Equal(t, first.UserID, second.UserID)
	assert.Equal(t, "alice", second.Username)
	assert.True(t, second.LastInteraction.Equal(first.LastInteraction) || second.LastInteraction.After(first.LastInteraction))
}

func TestUpdatePreferences_PersistsChanges(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreateUser(ctx, 1, "alice", "Alice", "A", "en")
	require.NoError(t, err)

	prefs, err := s.GetPreferences(ctx, 1)
	require.NoError(t, err)
	prefs.MemoryEnabled = false
	require.NoError(t, s.UpdatePreferences(ctx, prefs))

	reloaded, err := s.GetPreferences(ctx, 1)
	require.NoError(t, err)
	assert.False(t, reloaded.MemoryEnabled)
}

func TestSetCurrentRole_UpdatesUserRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreateUser(ctx, 1, "alice", "Alice", "A", "en")
	require.NoError(t, err)
	require.NoError(t, s.SetCurrentRole(ctx, 1, 42))

	var u User
	require.NoError(t, s.db.First(&u, "user_id = ?", int64(1)).Error)
	require.NotNil(t, u.CurrentRoleID)
	assert.Equal(t, int64(42), *u.CurrentRoleID)
}

func TestAllUserIDs_ReturnsDistinctUsersWithMemories(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, _, err := s.AddMemory(ctx, AddMemoryParams{UserID: 1, Content: "a", Importance: 3})
	require.NoError(t, err)
	_, _, err = s.AddMemory(ctx, AddMemoryParams{UserID: 1, Content: "b", Importance: 3})
	require.NoError(t, err)
	_, _, err = s.AddMemory(ctx, AddMemoryParams{UserID: 2, Content: "c", Importance: 3})
	require.NoError(t, err)

	ids, err := s.AllUserIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 2}, ids)
}
