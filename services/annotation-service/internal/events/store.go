package events

import (
	"context"

	"github.com/Projekt-Grupowy-51/ProjektGrupowy-sub004/libs/db"
)

// PostgresStore persists outbox rows. All methods resolve the ambient
// transaction from the context, so Append joins the caller's business
// transaction and FetchUnpublished/MarkPublished join the publisher's claim
// transaction.
type PostgresStore struct {
	pool *db.Pool
}

func NewPostgresStore(pool *db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Append(ctx context.Context, evt Event) error {
	q := db.QuerierFrom(ctx, s.pool)
	_, err := q.Exec(ctx, `
		INSERT INTO domain_events (user_id, message, event_type, event_data, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, evt.UserID, evt.Message, evt.EventType, evt.EventData, evt.Traceparent, evt.Tracestate)
	return err
}

// FetchUnpublished returns up to limit undelivered rows, oldest first. It must
// run inside a transaction: claimed rows stay row-locked until that
// transaction ends, and SKIP LOCKED keeps concurrent publishers off each
// other's claims.
func (s *PostgresStore) FetchUnpublished(ctx context.Context, limit int) ([]Event, error) {
	q := db.QuerierFrom(ctx, s.pool)
	rows, err := q.Query(ctx, `
		SELECT id, user_id, message, event_type, event_data, traceparent, tracestate, occurred_at
		FROM domain_events
		WHERE is_published = FALSE
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []Event
	for rows.Next() {
		var evt Event
		if err := rows.Scan(&evt.ID, &evt.UserID, &evt.Message, &evt.EventType, &evt.EventData, &evt.Traceparent, &evt.Tracestate, &evt.OccurredAt); err != nil {
			return nil, err
		}
		pending = append(pending, evt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return pending, nil
}

// MarkPublished flips the published flag for the given rows. The update is
// conditional on is_published = FALSE, so a racing publisher's second attempt
// is a no-op and the flag never flips more than once.
func (s *PostgresStore) MarkPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	q := db.QuerierFrom(ctx, s.pool)
	_, err := q.Exec(ctx, `
		UPDATE domain_events
		SET is_published = TRUE, published_at = now()
		WHERE id = ANY($1) AND is_published = FALSE
	`, ids)
	return err
}
