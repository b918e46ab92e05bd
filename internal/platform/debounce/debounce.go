// Package debounce provides a short-lived guard against duplicate submissions.
//
// The guard is advisory: it suppresses accidental double-clicks on interactive
// actions, it is not a correctness mechanism. Entries expire automatically and
// the set is size-bounded so abandoned keys cannot accumulate.
package debounce

import (
	"strings"
	"sync"
	"time"
)

const (
	defaultTTL        = 5 * time.Second
	defaultMaxEntries = 1024
)

// Guard tracks in-flight request keys with automatic expiry.
type Guard struct {
	mu      sync.Mutex
	ttl     time.Duration
	max     int
	clock   func() time.Time
	entries map[string]time.Time
}

// New creates a guard holding keys for ttl, capped at max entries.
// Non-positive arguments fall back to defaults.
func New(ttl time.Duration, max int) *Guard {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if max <= 0 {
		max = defaultMaxEntries
	}
	return &Guard{
		ttl:     ttl,
		max:     max,
		clock:   time.Now,
		entries: make(map[string]time.Time),
	}
}

// NewWithClock creates a guard with an injected clock for tests.
func NewWithClock(ttl time.Duration, max int, clock func() time.Time) *Guard {
	guard := New(ttl, max)
	if clock != nil {
		guard.clock = clock
	}
	return guard
}

// TryAcquire claims key and reports whether the claim succeeded. A key already
// held within its TTL cannot be re-acquired until it expires or is released.
func (g *Guard) TryAcquire(key string) bool {
	if g == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock()
	if expiry, held := g.entries[key]; held && now.Before(expiry) {
		return false
	}
	g.evictLocked(now)
	g.entries[key] = now.Add(g.ttl)
	return true
}

// Release drops key before its TTL elapses.
func (g *Guard) Release(key string) {
	if g == nil {
		return
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, key)
}

// Len reports how many keys are currently tracked, expired or not.
func (g *Guard) Len() int {
	if g == nil {
		return 0
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

// evictLocked removes expired entries, and if the set is still at capacity,
// drops the entry closest to expiry to make room.
func (g *Guard) evictLocked(now time.Time) {
	for key, expiry := range g.entries {
		if !now.Before(expiry) {
			delete(g.entries, key)
		}
	}
	if len(g.entries) < g.max {
		return
	}
	var oldestKey string
	var oldestExpiry time.Time
	for key, expiry := range g.entries {
		if oldestKey == "" || expiry.Before(oldestExpiry) {
			oldestKey = key
			oldestExpiry = expiry
		}
	}
	if oldestKey != "" {
		delete(g.entries, oldestKey)
	}
}
