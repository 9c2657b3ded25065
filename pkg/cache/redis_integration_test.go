//go:build integration

package cache_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/illmade-knight/go-klaracatalog/pkg/cache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type redisTestValue struct {
	ID   string
	Data []byte
}

// Requires a reachable Redis at REDIS_ADDR (for example a local docker container).
func TestRedisCache_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)

	cfg := &cache.RedisConfig{
		Addr:      addr,
		KeyPrefix: "klara-test:",
		CacheTTL:  time.Minute,
	}
	c, err := cache.NewRedisCache[string, redisTestValue](ctx, cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	t.Cleanup(func() { c.Clear(context.Background()) })

	t.Run("Set and Get", func(t *testing.T) {
		value := redisTestValue{ID: "test-id", Data: []byte("hello world")}

		c.Set(ctx, "test-key-1", value)
		retrieved, ok := c.Get(ctx, "test-key-1")

		require.True(t, ok)
		assert.Equal(t, value, retrieved)
	})

	t.Run("Get Miss", func(t *testing.T) {
		_, ok := c.Get(ctx, "non-existent-key")
		assert.False(t, ok)
	})

	t.Run("TTL Expires", func(t *testing.T) {
		c.SetWithTTL(ctx, "ttl-key", redisTestValue{ID: "ttl-id"}, 100*time.Millisecond)

		// Verifying a time-based feature of Redis itself, so a sleep is acceptable.
		time.Sleep(150 * time.Millisecond)

		_, ok := c.Get(ctx, "ttl-key")
		assert.False(t, ok, "entry should be gone after its TTL")
	})

	t.Run("GetWithTTL reports the remaining lifetime", func(t *testing.T) {
		c.SetWithTTL(ctx, "ttl-report", redisTestValue{ID: "r"}, time.Minute)

		v, remaining, ok := c.GetWithTTL(ctx, "ttl-report")

		require.True(t, ok)
		assert.Equal(t, "r", v.ID)
		assert.Greater(t, remaining, 50*time.Second)
		assert.LessOrEqual(t, remaining, time.Minute)

		_, _, ok = c.GetWithTTL(ctx, "missing-ttl-report")
		assert.False(t, ok)
	})

	t.Run("Clear removes only the prefix", func(t *testing.T) {
		c.Set(ctx, "a", redisTestValue{ID: "a"})
		c.Set(ctx, "b", redisTestValue{ID: "b"})

		c.Clear(ctx)

		_, okA := c.Get(ctx, "a")
		_, okB := c.Get(ctx, "b")
		assert.False(t, okA)
		assert.False(t, okB)
	})
}
