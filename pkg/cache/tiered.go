package cache

import (
	"context"
	"time"
)

// TieredCache puts a process-local TTLCache (L1) in front of an optional
// shared Store (L2) such as RedisCache. Writes go to both tiers. An L1 miss
// that hits L2 back-fills L1 for the time the L2 entry has left, so an entry
// never lives longer than its original TTL. L2 stores that cannot report a
// remaining TTL are read through without back-filling.
type TieredCache[K comparable, V any] struct {
	l1 *TTLCache[K, V]
	l2 Store[K, V]
}

// NewTieredCache creates a tiered cache. l2 may be nil.
func NewTieredCache[K comparable, V any](l1 *TTLCache[K, V], l2 Store[K, V]) *TieredCache[K, V] {
	return &TieredCache[K, V]{l1: l1, l2: l2}
}

// Get checks L1, then L2.
func (c *TieredCache[K, V]) Get(ctx context.Context, key K) (V, bool) {
	if v, ok := c.l1.Get(ctx, key); ok {
		return v, true
	}
	if c.l2 == nil {
		var zero V
		return zero, false
	}
	reporter, ok := c.l2.(TTLReporter[K, V])
	if !ok {
		return c.l2.Get(ctx, key)
	}
	v, remaining, ok := reporter.GetWithTTL(ctx, key)
	if ok && remaining > 0 {
		c.l1.SetWithTTL(ctx, key, v, remaining)
	}
	return v, ok
}

// Set writes to both tiers with their default TTLs.
func (c *TieredCache[K, V]) Set(ctx context.Context, key K, value V) {
	c.l1.Set(ctx, key, value)
	if c.l2 != nil {
		c.l2.Set(ctx, key, value)
	}
}

// SetWithTTL writes to both tiers with the same TTL.
func (c *TieredCache[K, V]) SetWithTTL(ctx context.Context, key K, value V, ttl time.Duration) {
	c.l1.SetWithTTL(ctx, key, value, ttl)
	if c.l2 != nil {
		c.l2.SetWithTTL(ctx, key, value, ttl)
	}
}

// Invalidate removes key from both tiers.
func (c *TieredCache[K, V]) Invalidate(ctx context.Context, key K) {
	c.l1.Invalidate(ctx, key)
	if c.l2 != nil {
		c.l2.Invalidate(ctx, key)
	}
}

// Clear empties both tiers.
func (c *TieredCache[K, V]) Clear(ctx context.Context) {
	c.l1.Clear(ctx)
	if c.l2 != nil {
		c.l2.Clear(ctx)
	}
}

// Stats reports the L1 contents only.
func (c *TieredCache[K, V]) Stats() CacheStats {
	return c.l1.Stats()
}
