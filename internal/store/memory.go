package store

import (
	"math"
	"time"

	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"jyra/internal/apperrors"
)

// MemoryFilters is the recognized filter/sort set of ListMemories.
type MemoryFilters struct {
	Category       string
	MinImportance  int
	MaxImportance  int
	MinConfidence  float64
	IncludeExpired bool
	Tags           []string // all-of semantics
	Sort           SortField
	Limit          int
}

type SortField string

const (
	SortImportance  SortField = "importance"
	SortConfidence  SortField = "confidence"
	SortRecency     SortField = "recency"
	SortRecallCount SortField = "recall_count"
)

// clampImportance/clampConfidence enforce memory field range invariants.
func clampImportance(i int) int {
	if i < 1 {
		return 1
	}
	if i > 5 {
		return 5
	}
	return i
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// AddMemoryParams bundles the optional fields of add_memory.
type AddMemoryParams struct {
	UserID     int64
	Content    string
	Category   string
	Importance int
	Source     MemorySource
	Context    string
	Confidence float64
	ExpiresAt  *time.Time
	Tags       []string
}

// AddMemory deduplicates on exact (user_id, content) equality: a duplicate
// is reinforced (importance <- max(old,new), confidence <- min(1, old+0.1*new),
// recall_count += 1, last_reinforced <- now); otherwise a new row is
// inserted. Returns the resulting row and whether it was a reinforcement.
func (s *Store) AddMemory(ctx context.Context, p AddMemoryParams) (*Memory, bool, error) {
	if p.Category == "" {
		p.Category = "general"
	}
	p.Importance = clampImportance(p.Importance)
	p.Confidence = clampConfidence(p.Confidence)

	var result Memory
	var reinforced bool

	err := s.withTx(ctx, func(tx *gorm.DB) error {
		var existing Memory
		err := tx.Where("user_id = ? AND content = ?", p.UserID, p.Content).First(&existing).Error
		now := time.Now()

		if err == nil {
			existing.Importance = clampImportance(max(existing.Importance, p.Importance))
			existing.Confidence = clampConfidence(math.Min(1.0, existing.Confidence+0.1*p.Confidence))
			existing.RecallCount++
			existing.LastReinforced = now
			existing.LastAccessed = now
			if saveErr := tx.Save(&existing).Error; saveErr != nil {
				return saveErr
			}
			if tagErr := s.attachTagsTx(tx, &existing, p.Tags); tagErr != nil {
				return tagErr
			}
			result = existing
			reinforced = true
			return nil
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		m := Memory{
			UserID:         p.UserID,
			Content:        p.Content,
			Category:       p.Category,
			Importance:     p.Importance,
			Source:         p.Source,
			Context:        p.Context,
			Confidence:     p.Confidence,
			ExpiresAt:      p.ExpiresAt,
			RecallCount:    0,
			CreatedAt:      now,
			LastAccessed:   now,
			LastReinforced: now,
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		if tagErr := s.attachTagsTx(tx, &m, p.Tags); tagErr != nil {
			return tagErr
		}
		result = m
		reinforced = false
		return nil
	})
	if err != nil {
		return nil, false, apperrors.Wrap(apperrors.KindQuery, "add memory", err)
	}
	return &result, reinforced, nil
}

// attachTagsTx ensures each tag name exists for the user and links it to m.
func (s *Store) attachTagsTx(tx *gorm.DB, m *Memory, tagNames []string) error {
	if len(tagNames) == 0 {
		return nil
	}
	var tags []Tag
	for _, name := range tagNames {
		var t Tag
		err := tx.Where("user_id = ? AND name = ?", m.UserID, name).First(&t).Error
		if err == gorm.ErrRecordNotFound {
			t = Tag{UserID: m.UserID, Name: name}
			if err := tx.Create(&t).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		tags = append(tags, t)
	}
	return tx.Model(m).Association("Tags").Append(tags)
}

// GetMemory returns a memory snapshot by id, bumping last_accessed.
func (s *Store) GetMemory(ctx context.Context, memoryID int64) (*Memory, error) {
	var m Memory
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Preload("Tags").First(&m, "memory_id = ?", memoryID).Error; err != nil {
			return err
		}
		m.LastAccessed = time.Now()
		return tx.Model(&Memory{}).Where("memory_id = ?", memoryID).Update("last_accessed", m.LastAccessed).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.KindValidation, "memory not found")
		}
		return nil, apperrors.Wrap(apperrors.KindQuery, "get memory", err)
	}
	return &m, nil
}

// GetMemoriesByIDs fetches a batch of a user's memories by id, bumping
// last_accessed on each, for MemoryManager.retrieve's semantic-search path
// where candidates arrive as VectorIndex.Search matches rather than a
// filtered scan.
func (s *Store) GetMemoriesByIDs(ctx context.Context, userID int64, ids []int64) ([]Memory, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []Memory
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Preload("Tags").Where("user_id = ? AND memory_id IN ?", userID, ids).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) > 0 {
			now := time.Now()
			foundIDs := make([]int64, len(rows))
			for i, r := range rows {
				foundIDs[i] = r.MemoryID
			}
			if err := tx.Model(&Memory{}).Where("memory_id IN ?", foundIDs).Update("last_accessed", now).Error; err != nil {
				return err
			}
			for i := range rows {
				rows[i].LastAccessed = now
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, "get memories by ids", err)
	}
	return rows, nil
}

// ListMemories returns a user's memories matching the given filters and sort.
func (s *Store) ListMemories(ctx context.Context, userID int64, f MemoryFilters) ([]Memory, error) {
	var rows []Memory
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		q := tx.Model(&Memory{}).Where("memories.user_id = ?", userID)

		if f.Category != "" {
			q = q.Where("category = ?", f.Category)
		}
		if f.MinImportance > 0 {
			q = q.Where("importance >= ?", f.MinImportance)
		}
		if f.MaxImportance > 0 {
			q = q.Where("importance <= ?", f.MaxImportance)
		}
		if f.MinConfidence > 0 {
			q = q.Where("confidence >= ?", f.MinConfidence)
		}
		if !f.IncludeExpired {
			q = q.Where("expires_at IS NULL OR expires_at > ?", time.Now())
		}
		if len(f.Tags) > 0 {
			q = q.Joins("JOIN memory_tag_associations mta ON mta.memory_id = memories.memory_id").
				Joins("JOIN memory_tags mt ON mt.tag_id = mta.tag_id").
				Where("mt.user_id = ? AND mt.name IN ?", userID, f.Tags).
				Group("memories.memory_id").
				Having("COUNT(DISTINCT mt.name) = ?", len(f.Tags))
		}

		switch f.Sort {
		case SortImportance:
			q = q.Order("importance desc")
		case SortConfidence:
			q = q.Order("confidence desc")
		case SortRecallCount:
			q = q.Order("recall_count desc")
		default:
			q = q.Order("created_at desc")
		}
		if f.Limit > 0 {
			q = q.Limit(f.Limit)
		}

		if err := q.Preload("Tags").Find(&rows).Error; err != nil {
			return err
		}

		// Every read that returns Memory rows bumps last_accessed, without
		// incrementing recall_count.
		if len(rows) > 0 {
			ids := make([]int64, len(rows))
			for i, r := range rows {
				ids[i] = r.MemoryID
			}
			now := time.Now()
			if err := tx.Model(&Memory{}).Where("memory_id IN ?", ids).Update("last_accessed", now).Error; err != nil {
				return err
			}
			for i := range rows {
				rows[i].LastAccessed = now
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, "list memories", err)
	}
	return rows, nil
}

// DeleteMemory removes a memory and its embedding (cascade), tag
// associations, and relationship edges.
func (s *Store) DeleteMemory(ctx context.Context, memoryID int64) error {
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("memory_id = ?", memoryID).Delete(&MemoryEmbedding{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM memory_tag_associations WHERE memory_id = ?", memoryID).Error; err != nil {
			return err
		}
		if err := tx.Where("source_memory_id = ? OR target_memory_id = ?", memoryID, memoryID).Delete(&MemoryRelationship{}).Error; err != nil {
			return err
		}
		return tx.Delete(&Memory{}, "memory_id = ?", memoryID).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.KindQuery, "delete memory", err)
	}
	return nil
}

// UpdateImportance persists a new importance value, clamped to the
// storage-level [1,5] bound every write path except reinforce() observes.
func (s *Store) UpdateImportance(ctx context.Context, memoryID int64, importance int) error {
	return s.SetImportanceRaw(ctx, memoryID, clampImportance(importance))
}

// SetImportanceRaw writes importance without clamping, for
// MemoryManager.Reinforce, which applies its own wider [1,10] clamp (note
// the wider range compared to ingest), and for DecayEngine, which floors
// the decayed value at 1.
func (s *Store) SetImportanceRaw(ctx context.Context, memoryID int64, importance int) error {
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		return tx.Model(&Memory{}).Where("memory_id = ?", memoryID).Update("importance", importance).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.KindQuery, "update importance", err)
	}
	return nil
}

const maxContextLen = 500

// AppendContext appends a note to a memory's context field, capping its
// total length (oldest content dropped rather than growing a separate
// audit log table).
func (s *Store) AppendContext(ctx context.Context, memoryID int64, note string) error {
	return s.withTx(ctx, func(tx *gorm.DB) error {
		var m Memory
		if err := tx.First(&m, "memory_id = ?", memoryID).Error; err != nil {
			return err
		}
		combined := m.Context
		if combined != "" {
			combined += "; "
		}
		combined += note
		if len(combined) > maxContextLen {
			combined = combined[len(combined)-maxContextLen:]
		}
		return tx.Model(&Memory{}).Where("memory_id = ?", memoryID).Update("context", combined).Error
	})
}

// MarkConsolidated sets is_consolidated and records consolidation edges plus
// a log entry atomically.
func (s *Store) MarkConsolidated(ctx context.Context, originalIDs []int64, consolidatedID int64, userID int64, sourceMemoriesJSON string) error {
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Model(&Memory{}).Where("memory_id = ?", consolidatedID).Update("is_consolidated", true).Error; err != nil {
			return err
		}
		now := time.Now()
		for _, origID := range originalIDs {
			edge := MemoryConsolidation{OriginalMemoryID: origID, ConsolidatedMemoryID: consolidatedID, CreatedAt: now}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&edge).Error; err != nil {
				return err
			}
		}
		logEntry := MemoryConsolidationLog{
			UserID:               userID,
			SourceMemories:       sourceMemoriesJSON,
			ConsolidatedMemoryID: consolidatedID,
			ConsolidationType:    "semantic_cluster",
			CreatedAt:            now,
		}
		return tx.Create(&logEntry).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.KindQuery, "mark consolidated", err)
	}
	return nil
}

// ConsolidationEdges returns every MemoryConsolidation row targeting
// consolidatedID, i.e. the memories it was merged from.
func (s *Store) ConsolidationEdges(ctx context.Context, consolidatedID int64) ([]MemoryConsolidation, error) {
	var rows []MemoryConsolidation
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		return tx.Where("consolidated_memory_id = ?", consolidatedID).Find(&rows).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, "consolidation edges", err)
	}
	return rows, nil
}

// AddRelationship inserts a directed MemoryRelationship edge.
func (s *Store) AddRelationship(ctx context.Context, sourceID, targetID int64, relType RelationshipType, strength float64) error {
	rel := MemoryRelationship{
		SourceMemoryID: sourceID, TargetMemoryID: targetID,
		RelationshipType: relType, Strength: strength, CreatedAt: time.Now(),
	}
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&rel).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.KindQuery, "add relationship", err)
	}
	return nil
}

// DirectRelationships returns the one-hop neighbors of a memory; graph
// queries never recurse past depth 1.
func (s *Store) DirectRelationships(ctx context.Context, memoryID int64) ([]MemoryRelationship, error) {
	var rows []MemoryRelationship
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		return tx.Where("source_memory_id = ? OR target_memory_id = ?", memoryID, memoryID).Find(&rows).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, "direct relationships", err)
	}
	return rows, nil
}

// GetSummary returns the at-most-one MemorySummary row for (user, category).
func (s *Store) GetSummary(ctx context.Context, userID int64, category string) (*MemorySummary, error) {
	var sum MemorySummary
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		return tx.First(&sum, "user_id = ? AND category = ?", userID, category).Error
	})
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, apperrors.Wrap(apperrors.KindQuery, "get summary", err)
	}
	return &sum, nil
}

// UpsertSummary writes the (user, category) summary row.
func (s *Store) UpsertSummary(ctx context.Context, userID int64, category, summary string) error {
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "category"}},
			DoUpdates: clause.AssignmentColumns([]string{"summary", "last_updated"}),
		}).Create(&MemorySummary{UserID: userID, Category: category, Summary: summary, LastUpdated: time.Now()}).Error
	})
	if err != nil {
		return apperrors.Wrap(apperrors.KindQuery, "upsert summary", err)
	}
	return nil
}

// DecayFilter selects DecayEngine.Apply's candidate set.
type DecayFilter struct {
	MinImportance int
	OlderThan     time.Time
	Limit         int
}

// DecayCandidates returns non-consolidated memories at or above
// MinImportance created before OlderThan, ordered (last_accessed asc,
// recall_count asc, created_at asc).
func (s *Store) DecayCandidates(ctx context.Context, userID int64, f DecayFilter) ([]Memory, error) {
	var rows []Memory
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		q := tx.Where("user_id = ? AND importance >= ? AND created_at < ? AND is_consolidated = ?",
			userID, f.MinImportance, f.OlderThan, false).
			Order("last_accessed asc, recall_count asc, created_at asc")
		if f.Limit > 0 {
			q = q.Limit(f.Limit)
		}
		return q.Find(&rows).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, "decay candidates", err)
	}
	return rows, nil
}

// ConsolidationCandidates returns up to N of a user's most recently
// accessed, non-consolidated memories at or above minImportance.
func (s *Store) ConsolidationCandidates(ctx context.Context, userID int64, minImportance, n int) ([]Memory, error) {
	var rows []Memory
	err := s.withTx(ctx, func(tx *gorm.DB) error {
		return tx.Where("user_id = ? AND importance >= ? AND is_consolidated = ?", userID, minImportance, false).
			Order("last_accessed desc").
			Limit(n).
			Preload("Tags").
			Find(&rows).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, "consolidation candidates", err)
	}
	return rows, nil
}
