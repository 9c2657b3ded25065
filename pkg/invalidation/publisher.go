package invalidation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
)

// Publisher announces cache clears on a Pub/Sub topic.
type Publisher struct {
	topic  *pubsub.Topic
	origin string
	now    func() time.Time
	logger zerolog.Logger
}

// NewPublisher creates a Publisher for topicID. It accepts a context to
// verify that the target topic exists before returning.
func NewPublisher(ctx context.Context, client *pubsub.Client, topicID, origin string, logger zerolog.Logger) (*Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client cannot be nil")
	}
	if origin == "" {
		return nil, fmt.Errorf("publisher origin cannot be empty")
	}
	topic := client.Topic(topicID)

	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to check for topic %s: %w", topicID, err)
	}
	if !exists {
		return nil, fmt.Errorf("pubsub topic %s does not exist", topicID)
	}

	return &Publisher{
		topic:  topic,
		origin: origin,
		now:    time.Now,
		logger: logger.With().Str("component", "InvalidationPublisher").Str("topic_id", topicID).Logger(),
	}, nil
}

// PublishClear queues a clear event. It returns once the message is queued
// and logs the final publish result asynchronously.
func (p *Publisher) PublishClear(ctx context.Context, reason string) error {
	payload, err := json.Marshal(ClearEvent{Origin: p.origin, Reason: reason, At: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal clear event: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       payload,
		Attributes: map[string]string{EventAttribute: EventCacheClear},
	})

	go func() {
		// A fresh context so a short-lived request context does not cancel Get.
		getCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		msgID, err := result.Get(getCtx)
		if err != nil {
			p.logger.Error().Err(err).Msg("Failed to publish cache clear.")
			return
		}
		p.logger.Info().Str("published_msg_id", msgID).Str("reason", reason).Msg("Cache clear published.")
	}()

	return nil
}

// Stop flushes any pending messages for the topic, respecting the context's timeout.
func (p *Publisher) Stop(ctx context.Context) error {
	stopDone := make(chan struct{})
	go func() {
		p.topic.Stop()
		close(stopDone)
	}()

	select {
	case <-stopDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
