// Package cache provides a read-through TTL cache whose concurrent loads of
// the same key collapse into a single call.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/okian/clanpulse/pkg/metrics"
	"golang.org/x/sync/singleflight"
)

// Loader produces the value for a key on a miss.
type Loader[V any] func(ctx context.Context) (V, error)

type entry[V any] struct {
	value   V
	expires time.Time
	stored  time.Time
}

// Cache is safe for concurrent use.
type Cache[V any] struct {
	name       string
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]entry[V]
	// gen advances on Invalidate and Purge so loads started before a drop
	// neither store their result nor serve callers arriving after it.
	gen   uint64
	group singleflight.Group
}

// New creates a cache. Without WithTTL entries live for DefaultTTL.
func New[V any](name string, opts ...Option) *Cache[V] {
	cfg := options{ttl: DefaultTTL, maxEntries: DefaultMaxEntries, now: time.Now}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Cache[V]{
		name:       name,
		ttl:        cfg.ttl,
		maxEntries: cfg.maxEntries,
		now:        cfg.now,
		entries:    make(map[string]entry[V]),
	}
}

// Name returns the cache label used in metrics.
func (c *Cache[V]) Name() string { return c.name }

// TTL returns the entry lifetime.
func (c *Cache[V]) TTL() time.Duration { return c.ttl }

// Get returns the cached value for key or loads it. Errors are not cached.
// One load runs per key at a time; other callers wait for its result or
// for their own context to end.
func (c *Cache[V]) Get(ctx context.Context, key string, load Loader[V]) (V, error) {
	if v, ok := c.lookup(key); ok {
		metrics.RecordCacheHit(c.name)
		return v, nil
	}
	metrics.RecordCacheMiss(c.name)

	gen := c.generation()
	ch := c.group.DoChan(flightKey(key, gen), func() (any, error) {
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		// The shared load must not die with whichever caller started it.
		v, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		c.storeAt(key, v, gen)
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			var zero V
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}

// Peek returns a live entry without loading.
func (c *Cache[V]) Peek(key string) (V, bool) {
	return c.lookup(key)
}

// Set stores a value directly.
func (c *Cache[V]) Set(key string, v V) {
	c.store(key, v)
}

// Invalidate drops one key.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.gen++
	n := len(c.entries)
	c.mu.Unlock()
	metrics.UpdateCacheEntries(c.name, n)
}

// Purge drops every entry and returns how many were removed.
func (c *Cache[V]) Purge() int {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]entry[V])
	c.gen++
	c.mu.Unlock()
	metrics.UpdateCacheEntries(c.name, 0)
	return n
}

// Len returns the number of stored entries, expired ones included until
// they are next touched.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache[V]) lookup(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *Cache[V]) generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

func flightKey(key string, gen uint64) string {
	return strconv.FormatUint(gen, 10) + "/" + key
}

// storeAt stores v only if no Invalidate or Purge happened since gen.
func (c *Cache[V]) storeAt(key string, v V, gen uint64) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.put(key, v)
	n := len(c.entries)
	c.mu.Unlock()
	metrics.UpdateCacheEntries(c.name, n)
}

func (c *Cache[V]) store(key string, v V) {
	c.mu.Lock()
	c.put(key, v)
	n := len(c.entries)
	c.mu.Unlock()
	metrics.UpdateCacheEntries(c.name, n)
}

// put must be called with c.mu held.
func (c *Cache[V]) put(key string, v V) {
	now := c.now()
	if _, exists := c.entries[key]; !exists && c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictOldest(now)
	}
	c.entries[key] = entry[V]{value: v, stored: now, expires: now.Add(c.ttl)}
}

// evictOldest drops expired entries, or the oldest one if none expired.
// Must be called with c.mu held.
func (c *Cache[V]) evictOldest(now time.Time) {
	var (
		oldestKey string
		oldest    time.Time
		found     bool
		expired   bool
	)
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			expired = true
			continue
		}
		if !found || e.stored.Before(oldest) {
			oldestKey, oldest, found = k, e.stored, true
		}
	}
	if !expired && found {
		delete(c.entries, oldestKey)
	}
}
