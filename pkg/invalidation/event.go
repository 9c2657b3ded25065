// Package invalidation fans catalog cache clears out to every running
// instance over Google Cloud Pub/Sub. Each instance keeps its own in-memory
// cache; a clear issued on one instance is published and applied by the rest.
package invalidation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// EventAttribute is the message attribute carrying the event type.
	EventAttribute = "event"
	// EventCacheClear is the event type of a catalog cache clear.
	EventCacheClear = "klara.cache.clear"
)

// ClearEvent is the JSON payload of a cache clear message.
type ClearEvent struct {
	Origin string    `json:"origin"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// NewInstanceID returns a random id identifying this process as an event origin.
func NewInstanceID() string {
	return uuid.NewString()
}

func decodeClearEvent(data []byte) (ClearEvent, error) {
	var ev ClearEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return ClearEvent{}, fmt.Errorf("failed to unmarshal clear event: %w", err)
	}
	if ev.Origin == "" {
		return ClearEvent{}, fmt.Errorf("clear event has no origin")
	}
	return ev, nil
}
