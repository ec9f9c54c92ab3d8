package aimodel

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"go.uber.org/zap"

	"jyra/internal/apperrors"
)

// cacheEntry is a fingerprint's request+response tuple, persisted as
// <32-hex>.json under the cache directory.
type cacheEntry struct {
	Prompt    string `json:"prompt"`
	Response  string `json:"response"`
	Timestamp int64  `json:"timestamp"`
}

// fingerprintInput is the canonical tuple hashed into a cache key. Field
// order here doesn't matter for the hash (json.Marshal on a struct is
// already field-order-stable), but roles/history are flattened to plain
// values so two equal RoleContext/Turn slices always hash identically.
type fingerprintInput struct {
	Prompt              string      `json:"prompt"`
	RoleContext         RoleContext `json:"role_context"`
	ConversationHistory []Turn      `json:"conversation_history"`
}

// Fingerprint returns the stable hex digest used as a cache key: a
// canonical-JSON, key-sorted dump of {prompt, role_context,
// conversation_history}, MD5'd to a 128-bit hex string.
func Fingerprint(prompt string, role RoleContext, history []Turn) string {
	if history == nil {
		history = []Turn{}
	}
	b, _ := json.Marshal(fingerprintInput{Prompt: prompt, RoleContext: role, ConversationHistory: history})
	// Re-marshal through a generic map: encoding/json sorts map[string]any
	// keys on Marshal, giving a canonical key-sorted form regardless of the
	// order fingerprintInput's fields were declared in.
	var generic map[string]any
	_ = json.Unmarshal(b, &generic)
	sorted, _ := json.Marshal(generic)
	sum := md5.Sum(sorted)
	return hex.EncodeToString(sum[:])
}

// ResponseCache is the disk-backed cache for generated responses, fronted
// by an in-process ristretto cache so repeated Get calls in the same
// process skip the stat+read. The disk layer is always the source of
// truth; ristretto never substitutes for it, only shortcuts redundant
// reads.
type ResponseCache struct {
	dir    string
	ttl    time.Duration
	front  *ristretto.Cache[string, cacheEntry]
	logger *zap.Logger
}

func NewResponseCache(dir string, ttl time.Duration, logger *zap.Logger) (*ResponseCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, "create cache dir", err)
	}
	front, err := ristretto.NewCache(&ristretto.Config[string, cacheEntry]{
		NumCounters: 1e6,
		MaxCost:     1 << 26,
		BufferItems: 64,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindQuery, "create front cache", err)
	}
	return &ResponseCache{dir: dir, ttl: ttl, front: front, logger: logger}, nil
}

func (c *ResponseCache) path(fingerprint string) string {
	return filepath.Join(c.dir, fingerprint+".json")
}

// Get returns the cached response iff the entry exists and is within TTL.
func (c *ResponseCache) Get(ctx context.Context, fingerprint string) (string, bool) {
	if e, ok := c.front.Get(fingerprint); ok {
		if time.Since(time.Unix(e.Timestamp, 0)) <= c.ttl {
			return e.Response, true
		}
		c.front.Del(fingerprint)
	}

	data, err := os.ReadFile(c.path(fingerprint))
	if err != nil {
		return "", false
	}
	var e cacheEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return "", false
	}
	if time.Since(time.Unix(e.Timestamp, 0)) > c.ttl {
		return "", false
	}
	c.front.SetWithTTL(fingerprint, e, 1, c.ttl)
	c.front.Wait()
	return e.Response, true
}

// Set writes the entry atomically (temp file + rename) to avoid torn reads
// under concurrent readers.
func (c *ResponseCache) Set(ctx context.Context, fingerprint, prompt, response string) error {
	e := cacheEntry{Prompt: prompt, Response: response, Timestamp: time.Now().Unix()}
	data, err := json.Marshal(e)
	if err != nil {
		return apperrors.Wrap(apperrors.KindQuery, "marshal cache entry", err)
	}

	tmp, err := os.CreateTemp(c.dir, "tmp-*.json")
	if err != nil {
		return apperrors.Wrap(apperrors.KindQuery, "create temp cache file", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return apperrors.Wrap(apperrors.KindQuery, "write temp cache file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return apperrors.Wrap(apperrors.KindQuery, "close temp cache file", err)
	}
	if err := os.Rename(tmpPath, c.path(fingerprint)); err != nil {
		os.Remove(tmpPath)
		return apperrors.Wrap(apperrors.KindQuery, "rename temp cache file", err)
	}

	c.front.SetWithTTL(fingerprint, e, 1, c.ttl)
	c.front.Wait()
	return nil
}

// Sweep removes every on-disk entry older than maxAge (defaulting to the
// cache's own TTL), returning the count removed. front-cache entries expire
// on their own TTL and need no sweeping.
func (c *ResponseCache) Sweep(maxAge time.Duration) (int, error) {
	if maxAge <= 0 {
		maxAge = c.ttl
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.KindQuery, "read cache dir", err)
	}
	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		full := filepath.Join(c.dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(full); err == nil {
				removed++
			}
		}
	}
	c.logger.Info("response cache sweep complete", zap.Int("removed", removed))
	return removed, nil
}
