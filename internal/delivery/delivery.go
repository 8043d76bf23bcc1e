// Package delivery defines the outbound channel that carries rendered order
// messages to the store.
package delivery

import (
	"context"
)

// Message is a rendered order summary addressed to the store.
type Message struct {
	OrderID string
	// Destination is the store's phone number.
	Destination string
	Text        string
}

// Receipt describes a completed hand-off.
type Receipt struct {
	Channel string
	// URL is set by channels that hand off through a link the customer opens.
	URL string
}

// Channel hands a message off to an external system.
type Channel interface {
	Deliver(ctx context.Context, msg Message) (Receipt, error)
}
