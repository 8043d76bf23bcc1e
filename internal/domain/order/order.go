package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// ParseStatus validates a status read from storage.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusConfirmed, StatusDelivered, StatusCancelled:
		return st, nil
	default:
		return "", errors.Errorf("unknown order status: %q", s)
	}
}

// Customer identifies who placed the order.
type Customer struct {
	Name  string
	Phone string
}

// Order is a placed customer order. Items are a snapshot of the cart at the
// time of the order.
type Order struct {
	ID            string
	StoreID       string
	CustomerName  string
	CustomerPhone string
	Items         []Item
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	Total         decimal.Decimal
	// CouponCode is empty when no coupon was applied.
	CouponCode string
	Status     Status
	CreatedAt  time.Time
}

// Item is one ordered line.
type Item struct {
	ProductID     string
	ProductName   string
	VariationID   string
	VariationName string
	Quantity      int
	UnitPrice     decimal.Decimal
	LineTotal     decimal.Decimal
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create stores the order and sets its ID and CreatedAt.
	Create(ctx context.Context, order *Order) error
}
