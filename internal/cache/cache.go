// Package cache implements the gateway's in-memory response cache: a
// keyed, TTL-bounded, size-bounded store shared across all dispatches.
package cache

import (
	"encoding/json"
	"strings"
	"sync"
	"time"
)

type entry struct {
	body       json.RawMessage
	insertedAt time.Time
	hitCount   int64
}

// Cache is safe for concurrent use. A single mutex guards the whole map,
// which is adequate at the target scale of at most a few thousand entries.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	maxSize int
	enabled bool

	now func() time.Time

	stopSweep chan struct{}
	sweepOnce sync.Once
}

// New builds a Cache. If enabled is false, Get always misses and Set is a
// no-op, but the store is otherwise fully constructed so callers don't
// need to special-case a disabled cache.
func New(ttl time.Duration, maxSize int, enabled bool) *Cache {
	c := &Cache{
		entries:   make(map[string]*entry),
		ttl:       ttl,
		maxSize:   maxSize,
		enabled:   enabled,
		now:       time.Now,
		stopSweep: make(chan struct{}),
	}
	if enabled {
		go c.sweepLoop()
	}
	return c
}

// Get returns the stored body for key, or (nil, false) on a miss, an
// expired entry, or a disabled cache. A hit increments the entry's hit
// count, feeding the eviction heuristic.
func (c *Cache) Get(key string) (json.RawMessage, bool) {
	if !c.enabled {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.insertedAt) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	e.hitCount++
	return e.body, true
}

// Set stores body under key, evicting one entry first if the cache is at
// capacity. It is a no-op when the cache is disabled.
func (c *Cache) Set(key string, body json.RawMessage) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		c.evictLocked()
	}
	c.entries[key] = &entry{body: body, insertedAt: c.now()}
}

// Size reports the current entry count.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// evictLocked removes the entry minimizing insertedAt/(hitCount+1), a
// cheap proxy for "old and unpopular". Callers must hold c.mu.
func (c *Cache) evictLocked() {
	var victim string
	var victimScore float64
	first := true
	for k, e := range c.entries {
		score := float64(e.insertedAt.UnixNano()) / float64(e.hitCount+1)
		if first || score < victimScore {
			victim, victimScore = k, score
			first = false
		}
	}
	if !first {
		delete(c.entries, victim)
	}
}

// Invalidate removes every entry whose key's upstream/tool segments match
// the given (possibly empty) filters, returning the count removed. An
// empty upstream matches every upstream; an empty tool matches every tool
// for the matched upstream(s).
func (c *Cache) Invalidate(upstream, tool string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if upstream == "" && tool == "" {
		n := len(c.entries)
		c.entries = make(map[string]*entry)
		return n
	}

	removed := 0
	for k := range c.entries {
		parts := strings.SplitN(k, ":", 3)
		if len(parts) < 2 {
			continue
		}
		if upstream != "" && parts[0] != upstream {
			continue
		}
		if tool != "" && parts[1] != tool {
			continue
		}
		delete(c.entries, k)
		removed++
	}
	return removed
}

// Close stops the background sweep goroutine. Safe to call more than once
// and safe to call on a disabled cache.
func (c *Cache) Close() {
	c.sweepOnce.Do(func() {
		close(c.stopSweep)
	})
}

func (c *Cache) sweepLoop() {
	interval := c.ttl / 2
	if interval < 60*time.Second {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stopSweep:
			return
		}
	}
}

func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if now.Sub(e.insertedAt) > c.ttl {
			delete(c.entries, k)
		}
	}
}
