package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"jyra/internal/apperrors"
)

// AppendConversation persists one append-only exchange. Ordered per
// (user, role) because the caller persists synchronously before replying.
func (s *Store) AppendConversation(ctx context.Context, userID, roleID int64, userMessage, botResponse string) (*Conversation, error) {
	c := Conversation{
		UserID:      userID,
		RoleID:      roleID,
		UserMessage: userMessage,
		BotResponse: botResponse,
		Timestamp:   time.Now(),
	}
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&c).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, "append conversation", err)
	}
	return &c, nil
}

// RecentHistory returns the last n conversation turns for (user, role),
// oldest first, for MAX_CONVERSATION_HISTORY.
func (s *Store) RecentHistory(ctx context.Context, userID, roleID int64, n int) ([]Conversation, error) {
	var rows []Conversation
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		return tx.Where("user_id = ? AND role_id = ?", userID, roleID).
			Order("timestamp desc").Limit(n).Find(&rows).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, "recent history", err)
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// PruneConversations deletes conversation rows older than maxAge, returning
// the number removed. Maintenance-driven: pruned beyond an age threshold.
func (s *Store) PruneConversations(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge)
	var affected int64
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		res := tx.Where("timestamp < ?", cutoff).Delete(&Conversation{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindQuery, "prune conversations", err)
	}
	return affected, nil
}
