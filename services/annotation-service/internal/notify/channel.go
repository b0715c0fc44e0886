// Package notify delivers domain-event notifications to their audience. The
// publisher only needs the binary outcome of Send; how delivery happens
// (real-time push, audit fan-out) is up to the wired implementation.
package notify

import (
	"context"
	"encoding/json"
	"time"
)

// Notification is the payload handed to a channel for one user.
type Notification struct {
	Message    string          `json:"message"`
	EventType  string          `json:"event_type,omitempty"`
	EventData  json.RawMessage `json:"event_data,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

type Channel interface {
	Send(ctx context.Context, userID string, n Notification) error
}

// Nop discards every notification. Used when no channel is configured and in
// tests.
type Nop struct{}

func (Nop) Send(_ context.Context, _ string, _ Notification) error {
	return nil
}
