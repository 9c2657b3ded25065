package invalidation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
)

// ClearFunc empties the local cache.
type ClearFunc func(ctx context.Context) error

// ListenerConfig holds the subscription settings for a Listener.
type ListenerConfig struct {
	SubscriptionID         string
	MaxOutstandingMessages int
	NumGoroutines          int
}

// DefaultListenerConfig returns receive settings sized for a low-volume control topic.
func DefaultListenerConfig(subID string) ListenerConfig {
	return ListenerConfig{
		SubscriptionID:         subID,
		MaxOutstandingMessages: 10,
		NumGoroutines:          1,
	}
}

// Listener applies cache clears published by other instances.
type Listener struct {
	subscription       *pubsub.Subscription
	origin             string
	clear              ClearFunc
	logger             zerolog.Logger
	stopOnce           sync.Once
	cancelSubscription context.CancelFunc
	doneChan           chan struct{}
}

// NewListener creates a Listener on an existing subscription. Events whose
// origin equals origin were published by this instance and are skipped.
func NewListener(ctx context.Context, cfg ListenerConfig, client *pubsub.Client, origin string, clear ClearFunc, logger zerolog.Logger) (*Listener, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client cannot be nil")
	}
	if clear == nil {
		return nil, fmt.Errorf("clear func cannot be nil")
	}
	sub := client.Subscription(cfg.SubscriptionID)

	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for subscription %s: %w", cfg.SubscriptionID, err)
	}
	if !exists {
		return nil, fmt.Errorf("subscription %s does not exist", cfg.SubscriptionID)
	}

	if cfg.MaxOutstandingMessages > 0 {
		sub.ReceiveSettings.MaxOutstandingMessages = cfg.MaxOutstandingMessages
	}
	if cfg.NumGoroutines > 0 {
		sub.ReceiveSettings.NumGoroutines = cfg.NumGoroutines
	}

	return &Listener{
		subscription: sub,
		origin:       origin,
		clear:        clear,
		logger:       logger.With().Str("component", "InvalidationListener").Str("subscription_id", cfg.SubscriptionID).Logger(),
		doneChan:     make(chan struct{}),
	}, nil
}

// Start begins receiving in a background goroutine.
func (l *Listener) Start(ctx context.Context) error {
	receiveCtx, cancel := context.WithCancel(ctx)
	l.cancelSubscription = cancel
	go func() {
		defer close(l.doneChan)
		defer l.logger.Info().Msg("Invalidation receive goroutine stopped.")

		l.logger.Info().Msg("Listening for cache clear events.")
		err := l.subscription.Receive(receiveCtx, l.handle)
		if err != nil && !errors.Is(err, context.Canceled) {
			l.logger.Error().Err(err).Msg("Pub/Sub Receive call exited with error.")
		}
	}()
	return nil
}

func (l *Listener) handle(ctx context.Context, msg *pubsub.Message) {
	if msg.Attributes[EventAttribute] != EventCacheClear {
		l.logger.Debug().Str("msg_id", msg.ID).Msg("Ignoring message with unknown event type.")
		msg.Ack()
		return
	}
	ev, err := decodeClearEvent(msg.Data)
	if err != nil {
		// Malformed events are acked so they are not redelivered forever.
		l.logger.Warn().Err(err).Str("msg_id", msg.ID).Msg("Dropping malformed cache clear event.")
		msg.Ack()
		return
	}
	if ev.Origin == l.origin {
		msg.Ack()
		return
	}
	if err := l.clear(ctx); err != nil {
		l.logger.Error().Err(err).Str("msg_id", msg.ID).Msg("Failed to apply cache clear, will retry.")
		msg.Nack()
		return
	}
	l.logger.Info().Str("origin", ev.Origin).Str("reason", ev.Reason).Msg("Applied remote cache clear.")
	msg.Ack()
}

// Stop cancels receiving and waits for the receive goroutine to exit.
func (l *Listener) Stop() error {
	l.stopOnce.Do(func() {
		if l.cancelSubscription == nil {
			close(l.doneChan)
			return
		}
		l.cancelSubscription()
		select {
		case <-l.doneChan:
		case <-time.After(30 * time.Second):
			l.logger.Error().Msg("Timeout waiting for invalidation receive goroutine to stop.")
		}
	})
	return nil
}

// Done is closed once the listener has stopped receiving.
func (l *Listener) Done() <-chan struct{} { return l.doneChan }
