package publisher

import (
	"context"
	"log/slog"
)

// Pending is the single operation the worker and scheduler drive.
type Pending interface {
	PublishPending(ctx context.Context) error
}

// Worker drains push-trigger signals into PublishPending calls. Signals are
// coalesced through a small buffered channel: a signal arriving while a pass
// is running lands in the buffer, and once the buffer is full further signals
// are dropped (the next pass sweeps everything pending anyway).
type Worker struct {
	publisher Pending
	logger    *slog.Logger
	signals   chan struct{}
}

func NewWorker(publisher Pending, logger *slog.Logger, buffer int) *Worker {
	if buffer <= 0 {
		buffer = 1
	}
	return &Worker{
		publisher: publisher,
		logger:    logger,
		signals:   make(chan struct{}, buffer),
	}
}

// Signal requests a publish pass without blocking. It reports false when the
// buffer was full and the signal was dropped.
func (w *Worker) Signal() bool {
	select {
	case w.signals <- struct{}{}:
		return true
	default:
		return false
	}
}

func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.signals:
			if err := w.publisher.PublishPending(ctx); err != nil {
				w.logger.Error("triggered publish failed", "err", err)
			}
		}
	}
}
