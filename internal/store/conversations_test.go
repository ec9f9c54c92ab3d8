package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendConversation_PersistsExchange(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	c, err := s.AppendConversation(ctx, 1, 1, "hello", "hi there")
	require.NoError(t, err)
	assert.Equal(t, "hello", c.UserMessage)
	assert.Equal(t, "hi there", c.BotResponse)
}

func TestRecentHistory_ReturnsOldestFirstLimitedToN(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := s.AppendConversation(ctx, 1, 1, "msg", "reply")
		require.NoError(t, err)
	}

	rows, err := s.RecentHistory(ctx, 1, 1, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for i := 0; i+1 < len(rows); i++ {
		assert.True(t, rows[i].Timestamp.Before(rows[i+1].Timestamp) || rows[i].Timestamp.Equal(rows[i+1].Timestamp))
	}
}

func TestRecentHistory_ScopedToUserAndRole(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.AppendConversation(ctx, 1, 1, "a", "b")
	require.NoError(t, err)
	_, err = s.AppendConversation(ctx, 2, 1, "c", "d")
	require.NoError(t, err)

	rows, err := s.RecentHistory(ctx, 1, 1, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "a", rows[0].UserMessage)
}

func TestPruneConversations_RemovesOnlyOlderThanMaxAge(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.AppendConversation(ctx, 1, 1, "old", "reply")
	require.NoError(t, err)
	require.NoError(t, s.db.Model(&Conversation{}).Where("user_id = ?", int64(1)).
		Update("timestamp", time.Now().Add(-48*time.Hour)).Error)

	_, err = s.AppendConversation(ctx, 1, 1, "new", "reply")
	require.NoError(t, err)

	removed, err := s.PruneConversations(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	rows, err := s.RecentHistory(ctx, 1, 1, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "new", rows[0].UserMessage)
}
