// Package scheduler sweeps the outbox on a fixed cadence. It is the only
// delivery driver in cron mode and the safety net behind the push trigger in
// pipeline mode.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/publisher"
)

const JobName = "publish-domain-events"

type Scheduler struct {
	publisher publisher.Pending
	logger    *slog.Logger
	interval  time.Duration
}

func New(pub publisher.Pending, logger *slog.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Scheduler{publisher: pub, logger: logger, interval: interval}
}

// Run ticks until ctx is cancelled. Ticks run sequentially in this goroutine;
// a tick overlapping another publisher invocation elsewhere is safe by the
// store's claim semantics. Errors are logged and the next tick retries.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("scheduler started", "job", JobName, "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.publisher.PublishPending(ctx); err != nil {
				s.logger.Error("scheduled publish failed", "job", JobName, "err", err)
			}
		}
	}
}
