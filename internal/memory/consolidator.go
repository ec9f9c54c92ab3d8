package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"jyra/internal/aimodel"
	"jyra/internal/embedding"
	"jyra/internal/store"
	"jyra/internal/vectorindex"
)

// ConsolidationParams bundles Consolidator.Run's tunables.
type ConsolidationParams struct {
	CandidatePoolSize int     // N, default 100
	MinImportance     int     // threshold, default 1
	MinClusterSize    int     // default 2
	MaxClusterSize    int     // default 5
	MinSimilarity     float64 // default 0.75
	MaxConsolidations int     // per invocation
}

func DefaultConsolidationParams() ConsolidationParams {
	return ConsolidationParams{
		CandidatePoolSize: 100,
		MinImportance:     1,
		MinClusterSize:    2,
		MaxClusterSize:    5,
		MinSimilarity:     0.75,
		MaxConsolidations: 3,
	}
}

// Consolidator clusters a user's semantically similar memories and asks a
// ModelProvider to synthesize one condensed memory per cluster.
type Consolidator struct {
	store  *store.Store
	index  *vectorindex.Index
	router *aimodel.ModelRouter
	logger *zap.Logger
}

func NewConsolidator(s *store.Store, idx *vectorindex.Index, router *aimodel.ModelRouter, logger *zap.Logger) *Consolidator {
	return &Consolidator{store: s, index: idx, router: router, logger: logger}
}

var consolidatorRole = aimodel.RoleContext{
	Name:           "Memory Consolidator",
	Personality:    "Analytical and precise",
	SpeakingStyle:  "Concise and structured",
	KnowledgeAreas: "Information synthesis, pattern recognition",
	Behaviors:      "Identifies patterns, summarizes effectively",
}

// Run performs one consolidation pass for userID, returning the IDs of the
// new consolidated memories created.
func (c *Consolidator) Run(ctx context.Context, userID int64, p ConsolidationParams) ([]int64, error) {
	candidates, err := c.store.ConsolidationCandidates(ctx, userID, p.MinImportance, p.CandidatePoolSize)
	if err != nil {
		return nil, err
	}
	if len(candidates) < p.MinClusterSize {
		return nil, nil
	}

	type member struct {
		mem store.Memory
		vec []float32
	}
	members := make([]member, 0, len(candidates))
	for _, mem := range candidates {
		vec, ok, err := c.index.Get(ctx, mem.MemoryID)
		if err != nil || !ok {
			continue
		}
		members = append(members, member{mem: mem, vec: vec})
	}
	if len(members) < p.MinClusterSize {
		return nil, nil
	}

	n := len(members)
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			sim := embedding.Similarity(members[i].vec, members[j].vec)
			d := 1 - sim
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	eps := 1 - p.MinSimilarity
	minSamples := p.MinClusterSize - 1
	labels := dbscan(dist, eps, minSamples)

	clusterOf := map[int][]int{}
	for i, label := range labels {
		if label < 0 {
			continue
		}
		clusterOf[label] = append(clusterOf[label], i)
	}

	type rankedCluster struct {
		indices    []int
		coherence  float64
	}
	var ranked []rankedCluster
	for _, indices := range clusterOf {
		if len(indices) < p.MinClusterSize || len(indices) > p.MaxClusterSize {
			continue
		}
		ranked = append(ranked, rankedCluster{indices: indices, coherence: meanPairwiseSimilarity(dist, indices)})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].coherence > ranked[j].coherence })

	if p.MaxConsolidations > 0 && len(ranked) > p.MaxConsolidations {
		ranked = ranked[:p.MaxConsolidations]
	}

	var created []int64
	for _, rc := range ranked {
		clusterMembers := make([]store.Memory, len(rc.indices))
		for i, idx := range rc.indices {
			clusterMembers[i] = members[idx].mem
		}
		id, err := c.consolidateCluster(ctx, userID, clusterMembers)
		if err != nil {
			c.logger.Warn("consolidate cluster failed", zap.Int64("user_id", userID), zap.Error(err))
			continue
		}
		created = append(created, id)
	}
	return created, nil
}

func (c *Consolidator) consolidateCluster(ctx context.Context, userID int64, cluster []store.Memory) (int64, error) {
	var lines strings.Builder
	for _, m := range cluster {
		lines.WriteString("- " + m.Content + "\n")
	}
	prompt := fmt.Sprintf(`Below are several related memories:

%s
Combine all important information, remove redundancy, preserve specifics, and output only the consolidated text.`, lines.String())

	content, _, err := c.router.Generate(ctx, prompt, consolidatorRole, nil, "", aimodel.Options{
		Temperature: 0.3,
		MaxTokens:   150,
	}, true)
	if err != nil {
		return 0, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return 0, fmt.Errorf("consolidator: empty synthesized content")
	}

	ids := make([]int64, len(cluster))
	importanceSum := 0
	categoryCounts := map[string]int{}
	tagSet := map[string]struct{}{}
	for i, m := range cluster {
		ids[i] = m.MemoryID
		importanceSum += m.Importance
		categoryCounts[m.Category]++
		for _, t := range m.Tags {
			tagSet[t.Name] = struct{}{}
		}
	}
	importance := clampToFive(round(float64(importanceSum) / float64(len(cluster))))
	category := modeCategory(categoryCounts)
	tags := make([]string, 0, len(tagSet))
	for t := range tagSet {
		tags = append(tags, t)
	}
	sort.Strings(tags)

	idsJSON, _ := json.Marshal(ids)
	consolidated, _, err := c.store.AddMemory(ctx, store.AddMemoryParams{
		UserID:     userID,
		Content:    content,
		Category:   category,
		Importance: importance,
		Source:     store.SourceConsolidated,
		Confidence: 0.9,
		Context:    fmt.Sprintf("Consolidated from %d memories: %s", len(ids), string(idsJSON)),
		Tags:       tags,
	})
	if err != nil {
		return 0, err
	}

	if err := c.store.MarkConsolidated(ctx, ids, consolidated.MemoryID, userID, string(idsJSON)); err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := c.store.AppendContext(ctx, id, fmt.Sprintf("Consolidated into memory %d", consolidated.MemoryID)); err != nil {
			c.logger.Warn("mark source consolidated failed", zap.Int64("memory_id", id), zap.Error(err))
		}
	}
	return consolidated.MemoryID, nil
}

func round(f float64) int {
	if f < 0 {
		return int(f - 0.5)
	}
	return int(f + 0.5)
}

func clampToFive(i int) int {
	if i < 1 {
		return 1
	}
	if i > 5 {
		return 5
	}
	return i
}

// modeCategory returns the single category if unique, else the
// highest-count category, ties broken by lexical order for determinism.
func modeCategory(counts map[string]int) string {
	type entry struct {
		name  string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, entry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})
	if len(entries) == 0 {
		return "general"
	}
	return entries[0].name
}

func meanPairwiseSimilarity(dist [][]float64, indices []int) float64 {
	if len(indices) < 2 {
		return 0
	}
	var sum float64
	var count int
	for i := 0; i < len(indices); i++ {
		for j := i + 1; j < len(indices); j++ {
			sum += 1 - dist[indices[i]][indices[j]]
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// dbscan is a density clustering pass over a precomputed distance matrix.
// Returns a label per point: -1 for noise, otherwise a 0-based cluster id.
func dbscan(dist [][]float64, eps float64, minSamples int) []int {
	n := len(dist)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = -2 // unvisited
	}
	neighbors := func(i int) []int {
		var out []int
		for j := 0; j < n; j++ {
			if j != i && dist[i][j] <= eps {
				out = append(out, j)
			}
		}
		return out
	}

	clusterID := 0
	for i := 0; i < n; i++ {
		if labels[i] != -2 {
			continue
		}
		neigh := neighbors(i)
		if len(neigh) < minSamples {
			labels[i] = -1
			continue
		}

		labels[i] = clusterID
		queue := append([]int{}, neigh...)
		for len(queue) > 0 {
			j := queue[0]
			queue = queue[1:]
			if labels[j] == -1 {
				labels[j] = clusterID
			}
			if labels[j] != -2 {
				continue
			}
			labels[j] = clusterID
			jn := neighbors(j)
			if len(jn) >= minSamples {
				queue = append(queue, jn...)
			}
		}
		clusterID++
	}
	return labels
}
