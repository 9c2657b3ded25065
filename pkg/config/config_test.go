package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/illmade-knight/go-klaracatalog/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateEnv blanks every variable Load reads so the host environment cannot leak in.
func isolateEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"KLARA_CONFIG", "KLARA_API_URL", "KLARA_API_KEY", "KLARA_API_SECRET", "KLARA_USE_MOCK",
		"KLARA_CACHE_TTL", "KLARA_SWEEP_INTERVAL", "HTTP_PORT", "LOG_LEVEL", "REDIS_ADDR",
		"REDIS_PASSWORD", "FIRESTORE_PROJECT_ID", "PUBSUB_PROJECT_ID", "PUBSUB_TOPIC_ID",
		"PUBSUB_SUBSCRIPTION_ID",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 30*time.Second, cfg.Klara.Timeout)
	assert.Equal(t, 1000, cfg.Klara.PageSize)
	assert.Equal(t, "de", cfg.Klara.Language)
	assert.Equal(t, time.Hour, cfg.Klara.CacheTTL)
	assert.Equal(t, 10*time.Minute, cfg.Cache.SweepInterval)
	assert.Equal(t, "klara:", cfg.Cache.Redis.KeyPrefix)
	assert.Equal(t, "klara_article_overrides", cfg.Firestore.Collection)
	assert.False(t, cfg.RedisEnabled())
	assert.False(t, cfg.FirestoreEnabled())
	assert.False(t, cfg.PubSubEnabled())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	isolateEnv(t)
	// Arrange
	path := writeConfig(t, `
log_level: debug
http_port: ":9090"
project_id: shop-prod
klara:
  base_url: https://klara.example.com/api
  api_key: file-key
  cache_ttl: 15m
cache:
  sweep_interval: 1m
  redis:
    addr: localhost:6379
pubsub:
  topic_id: klara-cache
  subscription_id: klara-cache-a
`)
	t.Setenv("KLARA_CONFIG", path)

	// Act
	cfg, err := config.Load()

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9090", cfg.HTTPPort)
	assert.Equal(t, "https://klara.example.com/api", cfg.Klara.BaseURL)
	assert.Equal(t, "file-key", cfg.Klara.APIKey)
	assert.Equal(t, 15*time.Minute, cfg.Klara.CacheTTL)
	assert.Equal(t, 30*time.Second, cfg.Klara.Timeout, "fields absent from the file keep their defaults")
	assert.Equal(t, time.Minute, cfg.Cache.SweepInterval)
	assert.Equal(t, 15*time.Minute, cfg.Cache.Redis.CacheTTL, "redis entries share the catalog TTL")
	assert.True(t, cfg.RedisEnabled())
	assert.Equal(t, "shop-prod", cfg.PubSub.ProjectID, "project id is inherited")
	assert.Equal(t, "shop-prod", cfg.Firestore.ProjectID)
	assert.True(t, cfg.PubSubEnabled())
	assert.True(t, cfg.FirestoreEnabled())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	isolateEnv(t)
	path := writeConfig(t, `
klara:
  api_key: file-key
  use_mock: false
`)
	t.Setenv("KLARA_CONFIG", path)
	t.Setenv("KLARA_API_KEY", "env-key")
	t.Setenv("KLARA_API_SECRET", "env-secret")
	t.Setenv("KLARA_API_URL", "https://env.example.com")
	t.Setenv("KLARA_USE_MOCK", "true")
	t.Setenv("KLARA_CACHE_TTL", "5m")
	t.Setenv("HTTP_PORT", "8181")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := config.Load()

	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Klara.APIKey)
	assert.Equal(t, "env-secret", cfg.Klara.APISecret)
	assert.Equal(t, "https://env.example.com", cfg.Klara.BaseURL)
	assert.True(t, cfg.Klara.UseMock)
	assert.Equal(t, 5*time.Minute, cfg.Klara.CacheTTL)
	assert.Equal(t, ":8181", cfg.HTTPPort)
	assert.Equal(t, "redis:6379", cfg.Cache.Redis.Addr)
}

func TestLoad_Errors(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{name: "Missing file", env: map[string]string{"KLARA_CONFIG": filepath.Join(t.TempDir(), "missing.yaml")}},
		{name: "Malformed file", env: map[string]string{"KLARA_CONFIG": writeConfig(t, "klara: [unclosed")}},
		{name: "Bad bool", env: map[string]string{"KLARA_USE_MOCK": "sometimes"}},
		{name: "Bad duration", env: map[string]string{"KLARA_CACHE_TTL": "an hour"}},
		{name: "Bad sweep interval", env: map[string]string{"KLARA_SWEEP_INTERVAL": "10"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			isolateEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := config.Load()

			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}
