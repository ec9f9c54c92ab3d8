package store

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jyra/internal/apperrors"
)

// UpsertEmbedding replaces any prior blob for memoryID.
func (s *Store) UpsertEmbedding(ctx context.Context, memoryID int64, blob []byte) error {
	now := time.Now()
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "memory_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"embedding", "updated_at"}),
		}).Create(&MemoryEmbedding{MemoryID: memoryID, Embedding: blob, CreatedAt: now, UpdatedAt: now}).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.KindQuery, "upsert embedding", err)
	}
	return nil
}

// GetEmbedding returns the raw blob for memoryID, or (nil, false) if absent.
func (s *Store) GetEmbedding(ctx context.Context, memoryID int64) ([]byte, bool, error) {
	var e MemoryEmbedding
	var found bool
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		err := tx.First(&e, "memory_id = ?", memoryID).Error
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.KindQuery, "get embedding", err)
	}
	return e.Embedding, found, nil
}

// DeleteEmbedding removes a memory's embedding row.
func (s *Store) DeleteEmbedding(ctx context.Context, memoryID int64) error {
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		return tx.Delete(&MemoryEmbedding{}, "memory_id = ?", memoryID).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.KindQuery, "delete embedding", err)
	}
	return nil
}

// UserEmbeddings returns every embedding owned by userID's memories, the
// scope filter Index.Search relies on: joining with Memory.user_id here in
// the Store rather than filtering after the fact.
func (s *Store) UserEmbeddings(ctx context.Context, userID int64) ([]MemoryEmbedding, error) {
	var rows []MemoryEmbedding
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		return tx.Joins("JOIN memories ON memories.memory_id = memory_embeddings.memory_id").
			Where("memories.user_id = ?", userID).
			Find(&rows).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, "user embeddings", err)
	}
	return rows, nil
}
