// Package events owns the domain_events outbox table: business handlers append
// rows inside their own transaction, the publisher delivers them afterwards.
package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event is one outbox row. It is addressed to a single user and carries a
// rendered message plus optional structured fields for richer clients.
type Event struct {
	ID          int64
	UserID      string
	Message     string
	EventType   string
	EventData   json.RawMessage
	Traceparent string
	Tracestate  string
	OccurredAt  time.Time
	IsPublished bool
	PublishedAt *time.Time
}

// Mode selects what drives event delivery.
type Mode int

const (
	// ModePipeline triggers the publisher right after each request commits.
	ModePipeline Mode = iota
	// ModeCron leaves delivery entirely to the scheduled sweep.
	ModeCron
)

func (m Mode) String() string {
	if m == ModeCron {
		return "cron"
	}
	return "pipeline"
}

// ParseMode parses the EVENT_PROCESSING_MODE setting. Empty input selects
// ModePipeline.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pipeline":
		return ModePipeline, nil
	case "cron":
		return ModeCron, nil
	default:
		return ModePipeline, fmt.Errorf("unknown event processing mode %q", s)
	}
}
