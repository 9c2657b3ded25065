package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds the configuration for the Redis client.
type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db"`
	KeyPrefix string        `yaml:"key_prefix"`
	CacheTTL  time.Duration `yaml:"-"`
}

// DefaultRedisKeyPrefix namespaces catalog keys inside a shared Redis.
const DefaultRedisKeyPrefix = "klara:"

// scanBatch is the COUNT hint used when clearing the key prefix.
const scanBatch = 200

// RedisCache is a generic Store backed by Redis. Values are stored as JSON
// with native Redis expiry. Redis failures are logged and reported as a miss,
// so a Redis outage degrades to "no cache" instead of breaking reads.
type RedisCache[K comparable, V any] struct {
	redisClient *redis.Client
	logger      zerolog.Logger
	ttl         time.Duration
	prefix      string
}

// NewRedisCache creates and connects a new generic RedisCache.
// It pings the Redis server to ensure connectivity before returning.
func NewRedisCache[K comparable, V any](
	ctx context.Context,
	cfg *RedisConfig,
	logger zerolog.Logger,
) (*RedisCache[K, V], error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info().Str("redis_address", cfg.Addr).Msg("Successfully connected to Redis.")

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultRedisKeyPrefix
	}

	return &RedisCache[K, V]{
		redisClient: rdb,
		logger:      logger.With().Str("component", "RedisCache").Logger(),
		ttl:         ttl,
		prefix:      prefix,
	}, nil
}

func (c *RedisCache[K, V]) key(key K) string {
	return c.prefix + fmt.Sprintf("%v", key)
}

// Get retrieves and unmarshals a value from Redis.
func (c *RedisCache[K, V]) Get(ctx context.Context, key K) (V, bool) {
	var zero V
	stringKey := c.key(key)
	cachedData, err := c.redisClient.Get(ctx, stringKey).Bytes()
	if err != nil {
		// A redis.Nil error is a normal cache miss. Any other error is a genuine problem.
		if !errors.Is(err, redis.Nil) {
			c.logger.Error().Err(err).Str("cache_key", stringKey).Msg("Unexpected Redis error during get.")
		}
		return zero, false
	}

	var value V
	if err := json.Unmarshal(cachedData, &value); err != nil {
		c.logger.Error().Err(err).Str("cache_key", stringKey).Msg("Failed to unmarshal cached data.")
		return zero, false
	}

	c.logger.Debug().Str("cache_key", stringKey).Msg("Redis cache hit.")
	return value, true
}

// GetWithTTL reads the value and its remaining TTL in one round trip.
// A key without an expiry reports a zero TTL.
func (c *RedisCache[K, V]) GetWithTTL(ctx context.Context, key K) (V, time.Duration, bool) {
	var zero V
	stringKey := c.key(key)

	pipe := c.redisClient.Pipeline()
	getCmd := pipe.Get(ctx, stringKey)
	ttlCmd := pipe.PTTL(ctx, stringKey)
	if _, err := pipe.Exec(ctx); err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Error().Err(err).Str("cache_key", stringKey).Msg("Unexpected Redis error during get.")
		}
		return zero, 0, false
	}

	var value V
	if err := json.Unmarshal([]byte(getCmd.Val()), &value); err != nil {
		c.logger.Error().Err(err).Str("cache_key", stringKey).Msg("Failed to unmarshal cached data.")
		return zero, 0, false
	}
	remaining := ttlCmd.Val()
	if remaining < 0 {
		remaining = 0
	}
	return value, remaining, true
}

// Set stores value with the configured TTL.
func (c *RedisCache[K, V]) Set(ctx context.Context, key K, value V) {
	c.SetWithTTL(ctx, key, value, c.ttl)
}

// SetWithTTL marshals value to JSON and stores it with the given TTL.
func (c *RedisCache[K, V]) SetWithTTL(ctx context.Context, key K, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	stringKey := c.key(key)
	jsonData, err := json.Marshal(value)
	if err != nil {
		c.logger.Error().Err(err).Str("cache_key", stringKey).Msg("Failed to marshal data for caching.")
		return
	}

	if err := c.redisClient.Set(ctx, stringKey, jsonData, ttl).Err(); err != nil {
		c.logger.Error().Err(err).Str("cache_key", stringKey).Msg("Failed to set data in Redis cache.")
		return
	}
	c.logger.Debug().Str("cache_key", stringKey).Dur("ttl", ttl).Msg("Successfully stored data in Redis cache.")
}

// Invalidate deletes key from Redis.
func (c *RedisCache[K, V]) Invalidate(ctx context.Context, key K) {
	stringKey := c.key(key)
	if err := c.redisClient.Del(ctx, stringKey).Err(); err != nil {
		c.logger.Error().Err(err).Str("cache_key", stringKey).Msg("Redis del failed.")
	}
}

// Clear deletes every key under the configured prefix. Keys outside the
// prefix are left alone, so the Redis instance may be shared.
func (c *RedisCache[K, V]) Clear(ctx context.Context) {
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := c.redisClient.Scan(ctx, cursor, c.prefix+"*", scanBatch).Result()
		if err != nil {
			c.logger.Error().Err(err).Msg("Redis scan failed while clearing cache.")
			return
		}
		if len(keys) > 0 {
			if err := c.redisClient.Del(ctx, keys...).Err(); err != nil {
				c.logger.Error().Err(err).Msg("Redis del failed while clearing cache.")
				return
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.logger.Info().Int("deleted", deleted).Msg("Cleared Redis cache prefix.")
}

// Close closes the Redis client connection.
func (c *RedisCache[K, V]) Close() error {
	if c.redisClient != nil {
		c.logger.Info().Msg("Closing Redis client connection...")
		return c.redisClient.Close()
	}
	return nil
}
