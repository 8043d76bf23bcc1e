package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/vitrine/internal/domain/analytics"
)

const insertEventSQL = `INSERT INTO store_events (store_id, type, order_id, amount, occurred_at)
	VALUES ($1, $2, NULLIF($3, '')::uuid, $4, $5)`

var _ analytics.Sink = (*EventSink)(nil)

// EventSink stores analytics events in the store_events table.
type EventSink struct {
	pool *pgxpool.Pool
}

// NewEventSink returns an EventSink that uses the given pool.
func NewEventSink(pool *pgxpool.Pool) *EventSink {
	return &EventSink{pool: pool}
}

// Record inserts the event.
func (s *EventSink) Record(ctx context.Context, e analytics.Event) error {
	var amount any
	if e.Type == analytics.EventOrderPlaced {
		amount = e.Amount
	}
	_, err := s.pool.Exec(ctx, insertEventSQL, e.StoreID, string(e.Type), e.OrderID, amount, e.OccurredAt)
	if err != nil {
		return fmt.Errorf("recording %s event: %w", e.Type, err)
	}
	return nil
}
