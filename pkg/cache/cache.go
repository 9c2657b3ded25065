// Package cache provides the TTL key/value stores that sit in front of the
// KLARA catalog API.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is used whenever a caller does not supply an explicit TTL.
// Upstream catalog data is slow-changing and expensive to fetch.
const DefaultTTL = time.Hour

// DefaultSweepInterval is how often the janitor removes expired entries.
const DefaultSweepInterval = 10 * time.Minute

// Store is a generic key/value cache with per-entry expiration.
// A miss is reported through the boolean, never as an error.
type Store[K comparable, V any] interface {
	// Get returns the value for key if present and not expired.
	Get(ctx context.Context, key K) (V, bool)
	// Set stores value under key with the store's default TTL.
	Set(ctx context.Context, key K, value V)
	// SetWithTTL stores value under key. A non-positive ttl means the default.
	SetWithTTL(ctx context.Context, key K, value V, ttl time.Duration)
	// Invalidate removes key. It is a no-op if the key is absent.
	Invalidate(ctx context.Context, key K)
	// Clear removes every entry.
	Clear(ctx context.Context)
}

// TTLReporter is implemented by stores that can report how long a hit
// remains valid. A tier in front of such a store uses it so that a copy
// never outlives the original entry.
type TTLReporter[K comparable, V any] interface {
	GetWithTTL(ctx context.Context, key K) (V, time.Duration, bool)
}

// StatsReporter is implemented by stores that can describe their contents.
type StatsReporter interface {
	Stats() CacheStats
}

// CacheStats is a diagnostic snapshot of a store.
type CacheStats struct {
	Entries int          `json:"entries"`
	Items   []EntryStats `json:"items"`
}

// EntryStats describes a single cached entry.
type EntryStats struct {
	Key       string        `json:"key"`
	CreatedAt time.Time     `json:"createdAt"`
	ExpiresAt time.Time     `json:"expiresAt"`
	Age       time.Duration `json:"age"`
	Remaining time.Duration `json:"remaining"`
	Expired   bool          `json:"expired"`
}
