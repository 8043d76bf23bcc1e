// Package analytics records storefront events. Recording is best effort and
// never affects checkout.
package analytics

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// EventType names a recorded event.
type EventType string

const (
	EventCatalogVisit EventType = "catalog_visit"
	EventOrderPlaced  EventType = "order_placed"
)

// Event is a single storefront event.
type Event struct {
	Type    EventType
	StoreID string
	// OrderID is empty for events not tied to an order.
	OrderID    string
	Amount     decimal.Decimal
	OccurredAt time.Time
}

// Sink records events.
type Sink interface {
	Record(ctx context.Context, e Event) error
}

// Tee records every event into all sinks.
type Tee []Sink

var _ Sink = Tee(nil)

// Record forwards e to each sink and combines their errors.
func (t Tee) Record(ctx context.Context, e Event) error {
	var err error
	for _, s := range t {
		err = multierr.Append(err, s.Record(ctx, e))
	}
	return err
}

// Discard drops every event.
type Discard struct{}

// Record implements Sink.
func (Discard) Record(context.Context, Event) error { return nil }
