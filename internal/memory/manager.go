package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"jyra/internal/embedding"
	"jyra/internal/store"
	"jyra/internal/vectorindex"
)

// defaultCandidatePoolMultiple and defaultCandidatePoolFloor size the
// candidate pool Retrieve scores: 3x the requested count, floored at 15.
const (
	defaultCandidatePoolMultiple = 3
	defaultCandidatePoolFloor    = 15
)

// Manager is the top-level API the conversation handler calls to ingest
// and retrieve a user's memories.
type Manager struct {
	store     *store.Store
	index     *vectorindex.Index
	embedder  embedding.Provider
	extractor *Extractor
	logger    *zap.Logger
}

func NewManager(s *store.Store, idx *vectorindex.Index, embedder embedding.Provider, extractor *Extractor, logger *zap.Logger) *Manager {
	return &Manager{store: s, index: idx, embedder: embedder, extractor: extractor, logger: logger}
}

// Ingest extracts candidate memories from utterance and persists each with
// source "extracted". A failure on one record never aborts the batch.
// Each record's embedding is generated in a background goroutine that
// Ingest does not wait for; its failure is logged and swallowed: retrieval
// degrades gracefully without it.
func (m *Manager) Ingest(ctx context.Context, userID int64, utterance string, userContext map[string]string) []ExtractedMemory {
	extracted := m.extractor.Extract(ctx, utterance, userContext)
	for _, rec := range extracted {
		mem, _, err := m.store.AddMemory(ctx, store.AddMemoryParams{
			UserID:     userID,
			Content:    rec.Content,
			Category:   rec.Category,
			Importance: rec.Importance,
			Source:     store.SourceExtracted,
			Confidence: 0.8,
		})
		if err != nil {
			m.logger.Warn("ingest: persist memory failed", zap.Error(err), zap.Int64("user_id", userID))
			continue
		}
		m.embedAsync(mem.MemoryID, rec.Content)
	}
	return extracted
}

// embedAsync generates and upserts an embedding in its own goroutine; a
// record is usable for semantic retrieval only once this completes, but
// Ingest itself never blocks on it.
func (m *Manager) embedAsync(memoryID int64, content string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		vec, err := m.embedder.Embed(ctx, content)
		if err != nil {
			m.logger.Warn("embed memory failed", zap.Int64("memory_id", memoryID), zap.Error(err))
			return
		}
		if err := m.index.Upsert(ctx, memoryID, vec); err != nil {
			m.logger.Warn("upsert embedding failed", zap.Int64("memory_id", memoryID), zap.Error(err))
		}
	}()
}

// RetrieveOptions bundles retrieve()'s parameters.
type RetrieveOptions struct {
	MaxMemories   int
	MinImportance int
	UseSemantic   bool
	RecencyWeight float64 // < 0 means "unspecified": use the 0.2 default
}

// scored pairs a Memory with its composite relevance score for sorting.
type scored struct {
	mem   store.Memory
	score float64
}

// Retrieve builds a candidate pool (semantic search or a recency-filtered
// scan), scores each candidate on normalized semantic/importance/recency
// components, and returns the top MaxMemories. last_accessed is reinforced
// along the way by the Store calls feeding the pool.
func (m *Manager) Retrieve(ctx context.Context, userID int64, contextText string, opts RetrieveOptions) ([]store.Memory, error) {
	if opts.MaxMemories <= 0 {
		opts.MaxMemories = 5
	}
	poolSize := opts.MaxMemories * defaultCandidatePoolMultiple
	if poolSize < defaultCandidatePoolFloor {
		poolSize = defaultCandidatePoolFloor
	}

	var pool []store.Memory
	similarity := map[int64]float64{}

	if opts.UseSemantic && strings.TrimSpace(contextText) != "" {
		vec, err := m.embedder.Embed(ctx, contextText)
		if err == nil {
			matches, searchErr := m.index.Search(ctx, userID, vec, poolSize, 0)
			if searchErr == nil && len(matches) > 0 {
				ids := make([]int64, len(matches))
				for i, mt := range matches {
					ids[i] = mt.MemoryID
					similarity[mt.MemoryID] = mt.Score
				}
				rows, getErr := m.store.GetMemoriesByIDs(ctx, userID, ids)
				if getErr == nil {
					pool = filterByImportance(rows, opts.MinImportance)
				}
			}
		}
	}

	if pool == nil {
		rows, err := m.store.ListMemories(ctx, userID, store.MemoryFilters{
			MinImportance: opts.MinImportance,
			Sort:          store.SortRecency,
			Limit:         poolSize,
		})
		if err != nil {
			return nil, err
		}
		pool = rows
	}

	if len(pool) == 0 {
		return nil, nil
	}

	recencyWeight := opts.RecencyWeight
	var wSemantic, wImportance, wRecency float64
	if recencyWeight < 0 {
		wSemantic, wImportance, wRecency = 0.5, 0.3, 0.2
	} else {
		wRecency = recencyWeight
		wSemantic = (1 - recencyWeight) * 0.625
		wImportance = (1 - recencyWeight) * 0.375
	}

	maxImportance := 1
	oldest, newest := pool[0].CreatedAt, pool[0].CreatedAt
	for _, mem := range pool {
		if mem.Importance > maxImportance {
			maxImportance = mem.Importance
		}
		if mem.CreatedAt.Before(oldest) {
			oldest = mem.CreatedAt
		}
		if mem.CreatedAt.After(newest) {
			newest = mem.CreatedAt
		}
	}
	timeRange := newest.Sub(oldest).Seconds()

	results := make([]scored, len(pool))
	for i, mem := range pool {
		sem, ok := similarity[mem.MemoryID]
		if !ok {
			sem = 0.5
		}
		imp := float64(mem.Importance) / float64(maxImportance)
		var rec float64
		if timeRange > 0 {
			rec = mem.CreatedAt.Sub(oldest).Seconds() / timeRange
		}
		results[i] = scored{mem: mem, score: wSemantic*sem + wImportance*imp + wRecency*rec}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].score > results[j].score })
	if len(results) > opts.MaxMemories {
		results = results[:opts.MaxMemories]
	}

	out := make([]store.Memory, len(results))
	for i, r := range results {
		out[i] = r.mem
	}
	return out, nil
}

func filterByImportance(rows []store.Memory, minImportance int) []store.Memory {
	if minImportance <= 0 {
		return rows
	}
	out := rows[:0]
	for _, r := range rows {
		if r.Importance >= minImportance {
			out = append(out, r)
		}
	}
	return out
}

// FormatForPrompt renders memories sorted by importance desc, one line
// each, truncated with an ellipsis to at most maxChars bytes if it exceeds
// maxChars.
func FormatForPrompt(memories []store.Memory, maxChars int) string {
	sorted := make([]store.Memory, len(memories))
	copy(sorted, memories)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Importance > sorted[j].Importance })

	var b strings.Builder
	b.WriteString("User Memory Context:\n")
	for _, mem := range sorted {
		b.WriteString(fmt.Sprintf("%s [I:%d]: %s\n", capitalize(mem.Category), mem.Importance, mem.Content))
	}

	const ellipsis = "…"
	out := b.String()
	if maxChars > 0 && len(out) > maxChars {
		if maxChars > len(ellipsis) {
			out = out[:maxChars-len(ellipsis)] + ellipsis
		} else {
			out = ellipsis
		}
	}
	return out
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// reinforceClampMax is the wider clamp Reinforce uses, distinct from the
// storage-level [1,5] clamp every other write path enforces.
const reinforceClampMax = 10

// Reinforce applies delta to a memory's importance, clamped to [1,10],
// writing back only if the value actually changed.
func (m *Manager) Reinforce(ctx context.Context, memoryID int64, delta int) error {
	mem, err := m.store.GetMemory(ctx, memoryID)
	if err != nil {
		return err
	}
	newImportance := mem.Importance + delta
	if newImportance < 1 {
		newImportance = 1
	} else if newImportance > reinforceClampMax {
		newImportance = reinforceClampMax
	}
	if newImportance == mem.Importance {
		return nil
	}
	return m.store.SetImportanceRaw(ctx, memoryID, newImportance)
}

// Summarize and SetSummary are the getter/setter pair over MemorySummary.
func (m *Manager) Summarize(ctx context.Context, userID int64, category string) (string, error) {
	s, err := m.store.GetSummary(ctx, userID, category)
	if err != nil {
		return "", err
	}
	if s == nil {
		return "", nil
	}
	return s.Summary, nil
}

func (m *Manager) SetSummary(ctx context.Context, userID int64, category, summary string) error {
	return m.store.UpsertSummary(ctx, userID, category, summary)
}
