// Package pubsub fans editor updates out to attached rendering surfaces.
package pubsub

import (
	"context"
	"encoding/json"
)

// Topics published by the editor
const (
	TopicGraph   = "graph"   // Full snapshot after every committed change
	TopicNotices = "notices" // User-facing notices such as rejected connections
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "graph", "notices")
	Type    string          `json:"type"`    // Event type (e.g., "snapshot", "connection_rejected")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Per-topic sequence number
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data interface{}) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// Notice is shown to the user as a blocking message by the rendering surface
type Notice struct {
	Reason  string `json:"reason"`  // Machine readable cause (e.g., "invalid_kind_pair")
	Message string `json:"message"` // Human readable text
	Source  string `json:"source,omitempty"`
	Target  string `json:"target,omitempty"`
}
