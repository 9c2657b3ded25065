// Package config loads the service configuration from an optional YAML file
// and environment overrides. Precedence is env > file > defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/illmade-knight/go-klaracatalog/pkg/cache"
	"github.com/illmade-knight/go-klaracatalog/pkg/klara"
	"github.com/illmade-knight/go-klaracatalog/pkg/microservice"
	"github.com/illmade-knight/go-klaracatalog/pkg/override"
	"gopkg.in/yaml.v3"
)

const (
	configPathEnv       = "KLARA_CONFIG"
	apiURLEnv           = "KLARA_API_URL"
	apiKeyEnv           = "KLARA_API_KEY"
	apiSecretEnv        = "KLARA_API_SECRET"
	useMockEnv          = "KLARA_USE_MOCK"
	cacheTTLEnv         = "KLARA_CACHE_TTL"
	sweepIntervalEnv    = "KLARA_SWEEP_INTERVAL"
	httpPortEnv         = "HTTP_PORT"
	logLevelEnv         = "LOG_LEVEL"
	redisAddrEnv        = "REDIS_ADDR"
	redisPasswordEnv    = "REDIS_PASSWORD"
	firestoreProjectEnv = "FIRESTORE_PROJECT_ID"
	pubsubProjectEnv    = "PUBSUB_PROJECT_ID"
	pubsubTopicEnv      = "PUBSUB_TOPIC_ID"
	pubsubSubEnv        = "PUBSUB_SUBSCRIPTION_ID"
)

// Config is the complete configuration of the catalog service.
type Config struct {
	microservice.BaseConfig `yaml:",inline"`

	Klara     klara.Config    `yaml:"klara"`
	Cache     CacheConfig     `yaml:"cache"`
	Firestore FirestoreConfig `yaml:"firestore"`
	PubSub    PubSubConfig    `yaml:"pubsub"`
}

// CacheConfig configures the in-memory cache and the optional Redis tier.
type CacheConfig struct {
	SweepInterval time.Duration     `yaml:"sweep_interval"`
	Redis         cache.RedisConfig `yaml:"redis"`
}

// FirestoreConfig enables the Firestore override store when ProjectID is set.
type FirestoreConfig struct {
	ProjectID  string `yaml:"project_id"`
	Collection string `yaml:"collection"`
}

// PubSubConfig enables cross-instance cache clears when TopicID is set.
type PubSubConfig struct {
	ProjectID      string `yaml:"project_id"`
	TopicID        string `yaml:"topic_id"`
	SubscriptionID string `yaml:"subscription_id"`
}

// RedisEnabled reports whether a shared Redis tier is configured.
func (c *Config) RedisEnabled() bool { return c.Cache.Redis.Addr != "" }

// FirestoreEnabled reports whether overrides are persisted in Firestore.
func (c *Config) FirestoreEnabled() bool { return c.Firestore.ProjectID != "" }

// PubSubEnabled reports whether cache clears are broadcast over Pub/Sub.
func (c *Config) PubSubEnabled() bool { return c.PubSub.ProjectID != "" && c.PubSub.TopicID != "" }

func defaultConfig() Config {
	return Config{
		BaseConfig: microservice.BaseConfig{
			LogLevel:    "info",
			LogFormat:   "json",
			HTTPPort:    ":8080",
			ServiceName: "klara-catalog",
		},
		Klara: klara.DefaultConfig(),
		Cache: CacheConfig{
			SweepInterval: cache.DefaultSweepInterval,
			Redis:         cache.RedisConfig{KeyPrefix: cache.DefaultRedisKeyPrefix},
		},
		Firestore: FirestoreConfig{Collection: override.DefaultCollection},
	}
}

// Load reads the YAML file named by KLARA_CONFIG, if set, on top of the
// defaults and then applies environment overrides.
func Load() (*Config, error) {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: cannot read %s: %w", path, err)
		}
		// Unmarshalling onto the defaults keeps every field the file omits.
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("config: cannot parse %s: %w", path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if cfg.PubSub.ProjectID == "" {
		cfg.PubSub.ProjectID = cfg.ProjectID
	}
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = cfg.ProjectID
	}
	if !strings.Contains(cfg.HTTPPort, ":") {
		cfg.HTTPPort = ":" + cfg.HTTPPort
	}
	cfg.Cache.Redis.CacheTTL = cfg.Klara.CacheTTL
	return &cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	setString(&c.Klara.BaseURL, apiURLEnv)
	setString(&c.Klara.APIKey, apiKeyEnv)
	setString(&c.Klara.APISecret, apiSecretEnv)
	setString(&c.HTTPPort, httpPortEnv)
	setString(&c.LogLevel, logLevelEnv)
	setString(&c.Cache.Redis.Addr, redisAddrEnv)
	setString(&c.Cache.Redis.Password, redisPasswordEnv)
	setString(&c.Firestore.ProjectID, firestoreProjectEnv)
	setString(&c.PubSub.ProjectID, pubsubProjectEnv)
	setString(&c.PubSub.TopicID, pubsubTopicEnv)
	setString(&c.PubSub.SubscriptionID, pubsubSubEnv)

	if v := os.Getenv(useMockEnv); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("config: invalid %s %q: %w", useMockEnv, v, err)
		}
		c.Klara.UseMock = b
	}
	if err := setDuration(&c.Klara.CacheTTL, cacheTTLEnv); err != nil {
		return err
	}
	return setDuration(&c.Cache.SweepInterval, sweepIntervalEnv)
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, env string) error {
	v := os.Getenv(env)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("config: invalid %s %q: %w", env, v, err)
	}
	*dst = d
	return nil
}
