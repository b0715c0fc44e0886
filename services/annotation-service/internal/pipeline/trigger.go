package pipeline

import (
	"context"
	"log/slog"

	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/events"
)

// Signaler is the push-trigger surface, satisfied by publisher.Worker. Signal
// must not block; it reports false when the signal was dropped.
type Signaler interface {
	Signal() bool
}

// DeliveryTrigger nudges the publisher after an operation succeeds. It sits
// outside TransactionScope in the chain, so by the time it runs the command's
// events are committed and visible. Best effort only: a dropped signal is
// logged and the operation's response is returned untouched, the scheduled
// sweep picks up whatever the trigger missed.
type DeliveryTrigger struct {
	mode   events.Mode
	signal Signaler
	logger *slog.Logger
}

func NewDeliveryTrigger(mode events.Mode, signal Signaler, logger *slog.Logger) *DeliveryTrigger {
	return &DeliveryTrigger{mode: mode, signal: signal, logger: logger}
}

func (t *DeliveryTrigger) Handle(ctx context.Context, req Request, next HandlerFunc) (any, error) {
	res, err := next(ctx, req)
	if err != nil {
		return nil, err
	}

	if t.mode == events.ModePipeline && t.signal != nil {
		if !t.signal.Signal() {
			t.logger.Warn("publish signal dropped, buffer full")
		}
	}
	return res, nil
}
