package coupon

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Evaluate checks c against the subtotal at the given time and computes the
// discount. Checks run in a fixed order and the first failure wins: missing or
// inactive, expired, usage limit, minimum order amount.
//
// The discount is not rounded.
func Evaluate(c *Coupon, subtotal decimal.Decimal, now time.Time) (Applied, error) {
	if c == nil || !c.Active {
		return Applied{}, ErrNotFound
	}
	if c.ExpiresAt != nil && c.ExpiresAt.Before(now) {
		return Applied{}, ErrExpired
	}
	if c.UsageLimit != nil && c.UsedCount >= *c.UsageLimit {
		return Applied{}, ErrUsageLimitReached
	}
	if c.MinOrderAmount != nil && subtotal.LessThan(*c.MinOrderAmount) {
		return Applied{}, &BelowMinimumOrderError{Minimum: *c.MinOrderAmount}
	}

	discount, err := computeDiscount(c.DiscountType, c.Value, subtotal)
	if err != nil {
		return Applied{}, err
	}

	return Applied{
		CouponID: c.ID,
		Code:     c.Code,
		Discount: discount,
		Subtotal: subtotal,
	}, nil
}

func computeDiscount(t DiscountType, value, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if _, err := ParseDiscountType(string(t)); err != nil {
		return decimal.Zero, err
	}

	amount := value
	if t == DiscountPercentage {
		amount = subtotal.Mul(value).Div(hundred)
	}
	return clamp(amount, subtotal), nil
}

// clamp bounds amount to [0, limit].
func clamp(amount, limit decimal.Decimal) decimal.Decimal {
	amount = decimal.Min(amount, limit)
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}
