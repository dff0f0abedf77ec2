// Package cache holds summaries in memory with an absolute expiry per entry.
//
// Expired entries are never returned by Get. They are kept around for a
// bounded stale window so callers can fall back to them when the upstream is
// down, and are dropped for good by Sweep.
package cache

import (
	"context"
	"sync"
	"time"

	"lol-tracker/internal/clock"
)

type entry[V any] struct {
	value     V
	storedAt  time.Time
	expiresAt time.Time
}

type Stats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Entries   int    `json:"entries"`
}

type Cache[V any] struct {
	mu             sync.RWMutex
	entries        map[string]entry[V]
	clock          clock.Clock
	staleRetention time.Duration
	hits           uint64
	misses         uint64
	evictions      uint64
}

func New[V any](clk clock.Clock, staleRetention time.Duration) *Cache[V] {
	if clk == nil {
		clk = clock.New()
	}
	return &Cache[V]{
		entries:        make(map[string]entry[V]),
		clock:          clk,
		staleRetention: staleRetention,
	}
}

// Get returns the value only while now is strictly before its expiry.
func (c *Cache[V]) Get(key string) (V, bool) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !now.Before(e.expiresAt) {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	return e.value, true
}

// GetStale ignores expiry but honours the stale window. It reports when the
// value was stored.
func (c *Cache[V]) GetStale(key string) (V, time.Time, bool) {
	now := c.clock.Now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || now.After(e.expiresAt.Add(c.staleRetention)) {
		var zero V
		return zero, time.Time{}, false
	}
	return e.value, e.storedAt, true
}

func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{
		value:     value,
		storedAt:  now,
		expiresAt: now.Add(ttl),
	}
}

func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Sweep drops entries whose stale window has passed and returns how many went.
func (c *Cache[V]) Sweep() int {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if now.After(e.expiresAt.Add(c.staleRetention)) {
			delete(c.entries, k)
			removed++
		}
	}
	c.evictions += uint64(removed)
	return removed
}

// Run sweeps every interval until ctx is done.
func (c *Cache[V]) Run(ctx context.Context, interval time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.clock.After(interval):
			c.Sweep()
		}
	}
}

func (c *Cache[V]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Entries:   len(c.entries),
	}
}
