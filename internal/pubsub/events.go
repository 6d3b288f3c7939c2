// Package pubsub provides a generic publish/subscribe event system used to
// fan out chat and log events to interested UI components.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	// TranscriptEvent signals the message transcript changed.
	TranscriptEvent EventType = "transcript"
	// StatusEvent signals the derived status line changed.
	StatusEvent EventType = "status"
	// StreamStateEvent signals the SSE connection state changed.
	StreamStateEvent EventType = "stream_state"
	// LogEvent carries a formatted log line.
	LogEvent EventType = "log"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T)
}
