// Package events fans audit-worthy domain changes out to a message broker.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Event is the broker payload for a single recorded mutation.
type Event struct {
	Type         string    `json:"type"`
	UserID       string    `json:"user_id"`
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType, userID, resourceType, resourceID string) Event {
	return Event{
		Type:         eventType,
		UserID:       userID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		OccurredAt:   time.Now().UTC(),
	}
}

// RoutingKey is the key the event is published under, e.g. "transaction.delete_transaction".
func (e Event) RoutingKey() string {
	return e.ResourceType + "." + strings.ToLower(e.Type)
}

// ToJSON converts the event to JSON bytes.
func (e Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NopPublisher discards every event. It is used when no broker is configured.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Event) error { return nil }

// Close implements Publisher.
func (NopPublisher) Close() error { return nil }
