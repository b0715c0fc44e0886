package events

import (
	"context"
	"encoding/json"
	"errors"

	otelx "github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/libs/otel"
)

// Appender is the write side of the outbox consumed by the recorder.
type Appender interface {
	Append(ctx context.Context, evt Event) error
}

// Recorder appends domain events inside the caller's ambient transaction. It
// never opens its own: a recorded event shares the business mutation's
// atomicity, so a rolled-back handler leaves no event behind.
type Recorder struct {
	store Appender
}

func NewRecorder(store Appender) *Recorder {
	return &Recorder{store: store}
}

type RecordOption func(*Event) error

// WithType sets the structured event type (e.g. "assignment.created").
func WithType(eventType string) RecordOption {
	return func(evt *Event) error {
		evt.EventType = eventType
		return nil
	}
}

// WithData attaches a JSON-serialized structured payload.
func WithData(data any) RecordOption {
	return func(evt *Event) error {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		evt.EventData = raw
		return nil
	}
}

// Record appends one event addressed to userID. Callable any number of times
// within a single business operation.
func (r *Recorder) Record(ctx context.Context, userID, message string, opts ...RecordOption) error {
	if userID == "" {
		return errors.New("events: record requires a user id")
	}
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	evt := Event{
		UserID:      userID,
		Message:     message,
		Traceparent: traceparent,
		Tracestate:  tracestate,
	}
	for _, opt := range opts {
		if err := opt(&evt); err != nil {
			return err
		}
	}
	return r.store.Append(ctx, evt)
}
