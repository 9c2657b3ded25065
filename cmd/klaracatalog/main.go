// Command klaracatalog serves the KLARA catalog with local overrides applied.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"github.com/illmade-knight/go-klaracatalog/pkg/cache"
	"github.com/illmade-knight/go-klaracatalog/pkg/catalog"
	"github.com/illmade-knight/go-klaracatalog/pkg/config"
	"github.com/illmade-knight/go-klaracatalog/pkg/invalidation"
	"github.com/illmade-knight/go-klaracatalog/pkg/klara"
	"github.com/illmade-knight/go-klaracatalog/pkg/microservice"
	"github.com/illmade-knight/go-klaracatalog/pkg/override"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("Failed to load configuration.")
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("Service exited with error.")
	}
	logger.Info().Msg("Service stopped.")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var logger zerolog.Logger
	if cfg.LogFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Str("service", cfg.ServiceName).Logger()
}

func clientOptions(cfg *config.Config) []option.ClientOption {
	if cfg.CredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	// --- Catalog cache ---
	l1 := cache.NewTTLCache[string, klara.Listing](
		cache.WithDefaultTTL(cfg.Klara.CacheTTL),
		cache.WithLogger(logger),
	)
	l1.StartJanitor(ctx, cfg.Cache.SweepInterval)
	defer func() { _ = l1.Close() }()

	var store cache.Store[string, klara.Listing] = l1
	if cfg.RedisEnabled() {
		rc, err := cache.NewRedisCache[string, klara.Listing](ctx, &cfg.Cache.Redis, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("Redis unavailable, continuing with the in-memory cache only.")
		} else {
			defer func() { _ = rc.Close() }()
			store = cache.NewTieredCache(l1, rc)
		}
	}

	client, err := klara.NewClient(cfg.Klara, store, nil, logger)
	if err != nil {
		return err
	}

	// --- Overrides ---
	var overrides override.Store
	if cfg.FirestoreEnabled() {
		fsClient, err := firestore.NewClient(ctx, cfg.Firestore.ProjectID, clientOptions(cfg)...)
		if err != nil {
			return err
		}
		defer func() { _ = fsClient.Close() }()
		overrides, err = override.NewFirestoreStore(&override.FirestoreConfig{
			ProjectID:      cfg.Firestore.ProjectID,
			CollectionName: cfg.Firestore.Collection,
		}, fsClient, logger)
		if err != nil {
			return err
		}
	} else {
		logger.Warn().Msg("No Firestore project configured, overrides are kept in memory and lost on restart.")
		overrides = override.NewInMemoryStore()
	}

	// --- Cross-instance invalidation ---
	var svcOpts []catalog.Option
	var publisher *invalidation.Publisher
	var listener *invalidation.Listener
	if cfg.PubSubEnabled() {
		psClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID, clientOptions(cfg)...)
		if err != nil {
			return err
		}
		defer func() { _ = psClient.Close() }()

		origin := invalidation.NewInstanceID()
		publisher, err = invalidation.NewPublisher(ctx, psClient, cfg.PubSub.TopicID, origin, logger)
		if err != nil {
			return err
		}
		svcOpts = append(svcOpts, catalog.WithBroadcaster(publisher))

		if cfg.PubSub.SubscriptionID != "" {
			clearLocal := func(ctx context.Context) error {
				client.InvalidateAll(ctx)
				return nil
			}
			listener, err = invalidation.NewListener(ctx, invalidation.DefaultListenerConfig(cfg.PubSub.SubscriptionID), psClient, origin, clearLocal, logger)
			if err != nil {
				return err
			}
			if err := listener.Start(ctx); err != nil {
				return err
			}
		}
	}

	// --- HTTP ---
	svc, err := catalog.NewService(client, overrides, logger, svcOpts...)
	if err != nil {
		return err
	}
	server := microservice.NewCatalogServer(svc, cfg.HTTPPort, logger)
	serveErr := server.Serve(ctx, shutdownTimeout)

	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if listener != nil {
		_ = listener.Stop()
	}
	if publisher != nil {
		if err := publisher.Stop(flushCtx); err != nil {
			logger.Error().Err(err).Msg("Failed to flush pending cache clear events.")
		}
	}
	return serveErr
}
