package coupon

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage of the subtotal.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount, capped at the subtotal.
	DiscountFixed DiscountType = "fixed"
)

// ParseDiscountType validates a discount type read from storage or input.
func ParseDiscountType(s string) (DiscountType, error) {
	switch t := DiscountType(s); t {
	case DiscountPercentage, DiscountFixed:
		return t, nil
	default:
		return "", errors.Errorf("unsupported discount type: %q", s)
	}
}

var (
	// ErrNotFound is returned when no active coupon matches the code.
	ErrNotFound = errors.New("coupon not found")
	// ErrExpired is returned when the coupon expiration is in the past.
	ErrExpired = errors.New("coupon expired")
	// ErrUsageLimitReached is returned when the coupon has exhausted its uses.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
)

// BelowMinimumOrderError is returned when the subtotal is below the coupon's
// minimum order amount.
type BelowMinimumOrderError struct {
	Minimum decimal.Decimal
}

func (e *BelowMinimumOrderError) Error() string {
	return fmt.Sprintf("minimum order amount is %s", e.Minimum.StringFixed(2))
}

// IsRejection reports whether err is a business rejection of the coupon as
// opposed to a lookup failure.
func IsRejection(err error) bool {
	var below *BelowMinimumOrderError
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrExpired) ||
		errors.Is(err, ErrUsageLimitReached) ||
		errors.As(err, &below)
}

// Coupon is a discount rule owned by a store.
type Coupon struct {
	ID             string
	StoreID        string
	Code           string
	DiscountType   DiscountType
	Value          decimal.Decimal
	MinOrderAmount *decimal.Decimal
	UsageLimit     *int
	UsedCount      int
	ExpiresAt      *time.Time
	Active         bool
}

// Applied is the result of validating a coupon against a cart subtotal.
type Applied struct {
	CouponID string
	Code     string
	Discount decimal.Decimal
	// Subtotal is the cart subtotal the discount was computed against.
	Subtotal decimal.Decimal
}

// ValidFor reports whether the applied coupon still matches the subtotal.
func (a Applied) ValidFor(subtotal decimal.Decimal) bool {
	return a.Subtotal.Equal(subtotal)
}

// NormalizeCode upper-cases user input so it matches stored codes.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Repository provides lookup and mutation of coupons.
type Repository interface {
	// FindByCodeAndOwner returns ErrNotFound when no coupon matches.
	FindByCodeAndOwner(ctx context.Context, code, storeID string) (*Coupon, error)
	IncrementUsedCount(ctx context.Context, id string) error
}
