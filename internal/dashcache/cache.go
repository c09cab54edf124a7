// Package dashcache is a process-local TTL cache for dashboard aggregates.
//
// Entries expire lazily: a read past an entry's TTL evicts it and reports a
// miss. Start runs a periodic sweep so keys that are never read again do not
// accumulate. Only successful computations are stored, and concurrent misses
// on the same key are not coalesced.
package dashcache

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultTTL bounds how stale a dashboard figure can be.
	DefaultTTL = 30 * time.Second
	// DefaultSweepInterval is how often Start evicts expired entries.
	DefaultSweepInterval = time.Minute
)

type entry struct {
	value     any
	createdAt time.Time
	ttl       time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.createdAt) > e.ttl
}

// Stats is a snapshot of the cache contents.
type Stats struct {
	Size int      `json:"size"`
	Keys []string `json:"keys"`
}

// Cache is a TTL key/value cache safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry

	defaultTTL    time.Duration
	sweepInterval time.Duration
	now           func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithDefaultTTL sets the TTL used by Set when none is given.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithSweepInterval sets the period of the sweep loop run by Start. A zero
// interval disables sweeping.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Cache) {
		c.sweepInterval = d
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates an empty Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:       make(map[string]entry),
		defaultTTL:    DefaultTTL,
		sweepInterval: DefaultSweepInterval,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultTTL returns the TTL applied by Set when none is given.
func (c *Cache) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Get returns the value stored under key if it has not expired. An expired
// entry is evicted.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Has reports whether Get would return a value for key.
func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Set stores value under key, replacing any existing entry. The optional ttl
// overrides the default; non-positive values fall back to it.
func (c *Cache) Set(key string, value any, ttl ...time.Duration) {
	d := c.defaultTTL
	if len(ttl) > 0 && ttl[0] > 0 {
		d = ttl[0]
	}

	c.mu.Lock()
	c.entries[key] = entry{value: value, createdAt: c.now(), ttl: d}
	c.mu.Unlock()
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// DeletePrefix removes every key starting with prefix and returns how many
// were removed.
func (c *Cache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Clear removes every entry and returns how many were removed.
func (c *Cache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := len(c.entries)
	c.entries = make(map[string]entry)
	return removed
}

// ClearExpired evicts every expired entry and returns how many were removed.
func (c *Cache) ClearExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Stats returns the number of stored entries and their keys, sorted. Expired
// entries not yet evicted are included.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	c.mu.Unlock()

	sort.Strings(keys)
	return Stats{Size: len(keys), Keys: keys}
}

// Start runs the sweep loop until ctx is cancelled. It returns immediately if
// the sweep interval is zero.
func (c *Cache) Start(ctx context.Context) {
	if c.sweepInterval <= 0 {
		slog.Info("dashboard cache sweeper disabled")
		return
	}

	slog.Info("dashboard cache sweeper started", "interval", c.sweepInterval.String())
	ticker := time.NewTicker(c.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("dashboard cache sweeper stopped")
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache) sweep() {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("dashboard cache sweep failed", "error", r)
		}
	}()

	if removed := c.ClearExpired(); removed > 0 {
		slog.Debug("dashboard cache sweep", "evicted", removed)
	}
}

// Lookup is a typed Get. A stored value of a different type is a miss.
func Lookup[T any](c *Cache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Fetch returns the cached value for key, or calls compute and caches its
// result. Errors from compute are returned and nothing is stored. The hit
// result reports whether the value came from the cache.
func Fetch[T any](c *Cache, key string, ttl time.Duration, compute func() (T, error)) (value T, hit bool, err error) {
	if v, ok := Lookup[T](c, key); ok {
		return v, true, nil
	}

	v, err := compute()
	if err != nil {
		var zero T
		return zero, false, err
	}

	c.Set(key, v, ttl)
	return v, false, nil
}
