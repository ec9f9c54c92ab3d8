// Package vectorindex persists embeddings as little-endian float32 blobs and
// performs brute-force cosine similarity search over a user's memories. It
// is a thin wrapper over internal/store: the blob format and scan loop live
// here, row ownership lives in Store.
package vectorindex

import (
	"context"
	"encoding/binary"
	"math"
	"sort"

	"jyra/internal/apperrors"
	"jyra/internal/embedding"
	"jyra/internal/store"
)

// Index wraps a *store.Store to provide embedding persistence and search.
type Index struct {
	store *store.Store
}

func New(s *store.Store) *Index {
	return &Index{store: s}
}

// Serialize encodes a float32 vector as concatenated little-endian bytes.
func Serialize(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Deserialize decodes a little-endian float32 blob back into a vector;
// vector length is implicit in the byte count (len/4).
func Deserialize(b []byte) []float32 {
	n := len(b) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(b[i*4:])
		out[i] = math.Float32frombits(bits)
	}
	return out
}

// Upsert replaces any prior blob for memoryID.
func (idx *Index) Upsert(ctx context.Context, memoryID int64, vector []float32) error {
	return idx.store.UpsertEmbedding(ctx, memoryID, Serialize(vector))
}

// Get returns the deserialized vector, or (nil, false) if absent.
func (idx *Index) Get(ctx context.Context, memoryID int64) ([]float32, bool, error) {
	blob, ok, err := idx.store.GetEmbedding(ctx, memoryID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	return Deserialize(blob), true, nil
}

// Delete removes a memory's embedding row (also cascaded by Memory delete).
func (idx *Index) Delete(ctx context.Context, memoryID int64) error {
	return idx.store.DeleteEmbedding(ctx, memoryID)
}

// Match is one scored result of Search.
type Match struct {
	MemoryID int64
	Score    float64
}

// Search scans every embedding owned by userID, computing cosine similarity
// against query, and returns the top `limit` matches scoring >= minSimilarity,
// sorted by score descending then memory_id descending (deterministic ties).
func (idx *Index) Search(ctx context.Context, userID int64, query []float32, limit int, minSimilarity float64) ([]Match, error) {
	candidates, err := idx.store.UserEmbeddings(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, "search embeddings", err)
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		vec := Deserialize(c.Embedding)
		score := embedding.Similarity(query, vec)
		if score >= minSimilarity {
			matches = append(matches, Match{MemoryID: c.MemoryID, Score: score})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].MemoryID > matches[j].MemoryID
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}
