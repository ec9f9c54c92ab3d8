// Package ratelimit implements an in-memory sliding-window request
// throttle with admin bypass. State lives in a sharded in-process map.
package ratelimit

import (
	"sync"
	"time"
)

// Params bundles the sliding-window tunables.
type Params struct {
	Window      time.Duration
	MaxRequests int
}

// shardCount controls how many independent locks guard the user map,
// keyed by user_id % N, rather than one global lock.
const shardCount = 16

type shard struct {
	mu      sync.Mutex
	history map[int64][]time.Time
}

// Limiter is a single-node sliding-window counter per user, with a
// runtime-reconfigurable admin set and window/max-requests parameters.
type Limiter struct {
	shards [shardCount]*shard

	mu     sync.RWMutex
	params Params
	admins map[int64]bool
}

func New(p Params, adminIDs []int64) *Limiter {
	l := &Limiter{
		params: p,
		admins: make(map[int64]bool, len(adminIDs)),
	}
	for i := range l.shards {
		l.shards[i] = &shard{history: make(map[int64][]time.Time)}
	}
	for _, id := range adminIDs {
		l.admins[id] = true
	}
	return l
}

func (l *Limiter) shardFor(userID int64) *shard {
	idx := userID % shardCount
	if idx < 0 {
		idx += shardCount
	}
	return l.shards[idx]
}

// Check admits or rejects a request for userID. Admins always pass;
// otherwise timestamps older than the window are pruned, and the request
// is admitted iff the pruned count is still below MaxRequests.
func (l *Limiter) Check(userID int64) (limited bool, count int, secondsUntilReset int) {
	l.mu.RLock()
	isAdmin := l.admins[userID]
	params := l.params
	l.mu.RUnlock()

	if isAdmin {
		return false, 0, 0
	}

	s := l.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-params.Window)

	timestamps := s.history[userID]
	kept := timestamps[:0]
	for _, t := range timestamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) < params.MaxRequests {
		kept = append(kept, now)
		s.history[userID] = kept
		return false, len(kept), 0
	}

	s.history[userID] = kept
	oldest := kept[0]
	reset := oldest.Add(params.Window).Sub(now)
	resetSeconds := int(reset.Seconds())
	if reset > 0 {
		resetSeconds++
	} else {
		resetSeconds = 1
	}
	return true, len(kept), resetSeconds
}

// Reset clears one user's window.
func (l *Limiter) Reset(userID int64) {
	s := l.shardFor(userID)
	s.mu.Lock()
	delete(s.history, userID)
	s.mu.Unlock()
}

// ResetAll clears every user's window.
func (l *Limiter) ResetAll() {
	for _, s := range l.shards {
		s.mu.Lock()
		s.history = make(map[int64][]time.Time)
		s.mu.Unlock()
	}
}

// SetParams updates the window/max-requests parameters at runtime.
func (l *Limiter) SetParams(p Params) {
	l.mu.Lock()
	l.params = p
	l.mu.Unlock()
}

// SetAdmins replaces the admin bypass set at runtime.
func (l *Limiter) SetAdmins(adminIDs []int64) {
	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	l.mu.Lock()
	l.admins = admins
	l.mu.Unlock()
}
