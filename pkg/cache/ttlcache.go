package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ttlEntry is the internal structure stored in the map.
type ttlEntry[V any] struct {
	value     V
	createdAt time.Time
	expiresAt time.Time
}

// valid reports whether the entry may still be served at now.
func (e ttlEntry[V]) valid(now time.Time) bool {
	return now.Before(e.expiresAt)
}

// TTLOption configures a TTLCache.
type TTLOption func(*ttlConfig)

type ttlConfig struct {
	defaultTTL time.Duration
	clock      func() time.Time
	logger     zerolog.Logger
}

// WithDefaultTTL overrides DefaultTTL for Set and for non-positive SetWithTTL calls.
func WithDefaultTTL(ttl time.Duration) TTLOption {
	return func(c *ttlConfig) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithClock replaces time.Now. Intended for tests.
func WithClock(clock func() time.Time) TTLOption {
	return func(c *ttlConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLogger attaches a logger used by the janitor.
func WithLogger(logger zerolog.Logger) TTLOption {
	return func(c *ttlConfig) {
		c.logger = logger
	}
}

// TTLCache is a generic, thread-safe, in-memory cache with per-entry expiry.
// A single mutex guards the map so that the lazy delete in Get can never race
// with a Set on the same key.
type TTLCache[K comparable, V any] struct {
	mu   sync.Mutex
	data map[K]ttlEntry[V]

	defaultTTL time.Duration
	now        func() time.Time
	logger     zerolog.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

// NewTTLCache creates an empty TTL cache.
func NewTTLCache[K comparable, V any](opts ...TTLOption) *TTLCache[K, V] {
	cfg := ttlConfig{
		defaultTTL: DefaultTTL,
		clock:      time.Now,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &TTLCache[K, V]{
		data:       make(map[K]ttlEntry[V]),
		defaultTTL: cfg.defaultTTL,
		now:        cfg.clock,
		logger:     cfg.logger.With().Str("component", "TTLCache").Logger(),
		stop:       make(chan struct{}),
	}
}

// Get returns the value for key if it has not expired. Expired entries are
// removed as a side effect.
func (c *TTLCache[K, V]) Get(_ context.Context, key K) (V, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		return zero, false
	}
	if !e.valid(c.now()) {
		delete(c.data, key)
		return zero, false
	}
	return e.value, true
}

// GetWithTTL is Get plus the time left until the entry expires.
func (c *TTLCache[K, V]) GetWithTTL(_ context.Context, key K) (V, time.Duration, bool) {
	var zero V
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	e, ok := c.data[key]
	if !ok {
		return zero, 0, false
	}
	if !e.valid(now) {
		delete(c.data, key)
		return zero, 0, false
	}
	return e.value, e.expiresAt.Sub(now), true
}

// Set stores value with the default TTL, replacing any existing entry.
func (c *TTLCache[K, V]) Set(ctx context.Context, key K, value V) {
	c.SetWithTTL(ctx, key, value, c.defaultTTL)
}

// SetWithTTL stores value so that it expires ttl from now.
func (c *TTLCache[K, V]) SetWithTTL(_ context.Context, key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.data[key] = ttlEntry[V]{
		value:     value,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}
}

// Invalidate removes key unconditionally.
func (c *TTLCache[K, V]) Invalidate(_ context.Context, key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Clear removes all entries.
func (c *TTLCache[K, V]) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[K]ttlEntry[V])
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (c *TTLCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// Stats returns a snapshot of every stored entry, sorted by key.
func (c *TTLCache[K, V]) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	items := make([]EntryStats, 0, len(c.data))
	for k, e := range c.data {
		remaining := e.expiresAt.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		items = append(items, EntryStats{
			Key:       fmt.Sprintf("%v", k),
			CreatedAt: e.createdAt,
			ExpiresAt: e.expiresAt,
			Age:       now.Sub(e.createdAt),
			Remaining: remaining,
			Expired:   !e.valid(now),
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return CacheStats{Entries: len(items), Items: items}
}

// Sweep removes every expired entry and returns how many were removed.
func (c *TTLCache[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.data {
		if !e.valid(now) {
			delete(c.data, k)
			removed++
		}
	}
	return removed
}

// StartJanitor runs Sweep every interval in a background goroutine until ctx
// is cancelled or Close is called. A non-positive interval uses DefaultSweepInterval.
func (c *TTLCache[K, V]) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		c.logger.Info().Dur("interval", interval).Msg("Cache janitor started.")
		for {
			select {
			case <-ticker.C:
				if removed := c.Sweep(); removed > 0 {
					c.logger.Debug().Int("removed", removed).Msg("Swept expired cache entries.")
				}
			case <-ctx.Done():
				c.logger.Info().Msg("Cache janitor stopped by context.")
				return
			case <-c.stop:
				c.logger.Info().Msg("Cache janitor stopped.")
				return
			}
		}
	}()
}

// Close stops the janitor, if running. The cache remains usable.
func (c *TTLCache[K, V]) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	return nil
}
