// Package publisher delivers committed domain events to the notification
// channel, at least once, oldest first.
package publisher

import (
	"context"
	"log/slog"

	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/libs/db"
	otelx "github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/libs/otel"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/events"
	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/services/annotation-service/internal/notify"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Store is the outbox surface the publisher needs. FetchUnpublished must keep
// returned rows claimed until the surrounding transaction ends, so concurrent
// publishers never hand the same row to the channel twice.
type Store interface {
	FetchUnpublished(ctx context.Context, limit int) ([]events.Event, error)
	MarkPublished(ctx context.Context, ids []int64) error
}

type Publisher struct {
	txm       db.TxManager
	store     Store
	channel   notify.Channel
	logger    *slog.Logger
	batchSize int
	tracer    trace.Tracer
}

type Config struct {
	BatchSize int
}

func New(txm db.TxManager, store Store, channel notify.Channel, logger *slog.Logger, cfg Config) *Publisher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Publisher{
		txm:       txm,
		store:     store,
		channel:   channel,
		logger:    logger,
		batchSize: cfg.BatchSize,
		tracer:    otel.Tracer("annotation-service/publisher"),
	}
}

// PublishPending claims up to one batch of unpublished events and delivers
// each to the channel, ascending by id. A failed delivery leaves its row
// untouched and the pass moves on; only confirmed sends are marked published.
// If marking or the commit fails after a send, the row stays unpublished and
// is redelivered on a later pass, which is where the at-least-once duplicate
// comes from.
func (p *Publisher) PublishPending(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "outbox.publish_pending")
	defer span.End()

	return p.txm.WithinTx(ctx, func(ctx context.Context) error {
		pending, err := p.store.FetchUnpublished(ctx, p.batchSize)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		var delivered []int64
		for _, evt := range pending {
			evtCtx := otelx.ContextWithTraceContext(ctx, evt.Traceparent, evt.Tracestate)
			n := notify.Notification{
				Message:    evt.Message,
				EventType:  evt.EventType,
				EventData:  evt.EventData,
				OccurredAt: evt.OccurredAt,
			}
			if err := p.channel.Send(evtCtx, evt.UserID, n); err != nil {
				p.logger.Error("notification delivery failed",
					"event_id", evt.ID,
					"user_id", evt.UserID,
					"err", err,
				)
				continue
			}
			delivered = append(delivered, evt.ID)
		}

		span.SetAttributes(
			attribute.Int("outbox.pending", len(pending)),
			attribute.Int("outbox.delivered", len(delivered)),
		)
		return p.store.MarkPublished(ctx, delivered)
	})
}
