// Package caching implements Supplemented Feature #1 (SPEC_FULL.md): a
// short-TTL, per-user read cache in front of the combined real/virtual
// balance summary (/wallet/dual-balance). It is a read-path accelerator
// only — never authoritative, never consulted by a mutating pipeline —
// to absorb poll pressure from a trading UI.
//
// Grounded on the teacher's semantic cache engine: an in-memory,
// mutex-guarded namespace map with per-entry expiry and eviction
// counters. The embedding-similarity matching core has no analog here
// and is dropped; what is kept is the TTL-namespace-invalidate shape.
package caching

import (
	"sync"
	"time"

	"github.com/booms-platform/booms-core/money"
	"github.com/rs/zerolog"
)

// DualBalance is the cached response shape for /wallet/dual-balance.
type DualBalance struct {
	RealBalance money.Decimal `json:"real_balance"`
	VirtualBalance money.Decimal `json:"virtual_balance"`
	TotalBalance money.Decimal `json:"total_balance"`
	Currency money.Currency `json:"currency"`
}

type entry struct {
	value DualBalance
	expiresAt time.Time
}

// Stats tracks cache effectiveness.
type Stats struct {
	Hits int64
	Misses int64
	Evictions int64
}

// BalanceCache is a per-user TTL cache for DualBalance reads.
type BalanceCache struct {
	mu sync.RWMutex
	ttl time.Duration
	entries map[int64]entry
	logger zerolog.Logger
	stats Stats
}

// New builds a BalanceCache with the given entry TTL. A few seconds is
// enough to absorb a trading UI's poll rate without staling a balance for
// long after a real mutation (read-without-lock display
// policy already accepts this degree of eventual consistency).
func New(ttl time.Duration, logger zerolog.Logger) *BalanceCache {
	return &BalanceCache{
		ttl: ttl,
		entries: make(map[int64]entry),
		logger: logger.With().Str("component", "caching").Logger(),
	}
}

// Get returns the cached balance for userID if present and unexpired.
func (c *BalanceCache) Get(userID int64) (DualBalance, bool) {
	c.mu.RLock()
	e, ok := c.entries[userID]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		c.mu.Lock()
		c.stats.Misses++
		c.mu.Unlock()
		return DualBalance{}, false
	}
	c.mu.Lock()
	c.stats.Hits++
	c.mu.Unlock()
	return e.value, true
}

// Set stores the current balance for userID, resetting its TTL.
func (c *BalanceCache) Set(userID int64, value DualBalance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = entry{value: value, expiresAt: time.Now().Add(c.ttl)}
}

// Invalidate drops any cached entry for userID. No pipeline calls it:
// a cached snapshot otherwise stays in place until its TTL expires.
func (c *BalanceCache) Invalidate(userID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[userID]; ok {
		delete(c.entries, userID)
		c.stats.Evictions++
	}
}

// Stats returns a snapshot of hit/miss/eviction counters.
func (c *BalanceCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}
