// Package pricing derives cart totals. Amounts are never rounded here;
// rounding happens once at display or persist time.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/vitrine/internal/domain/cart"
	"github.com/xenking/vitrine/internal/domain/coupon"
)

// UnitPrice returns the selected variation's price, or the product's base
// price when no variation is selected. A variation price replaces the base
// price.
func UnitPrice(l cart.Line) decimal.Decimal {
	if l.Variation != nil {
		return l.Variation.Price
	}
	return l.Product.Price
}

// LineSubtotal returns the unit price times the quantity.
func LineSubtotal(l cart.Line) decimal.Decimal {
	return UnitPrice(l).Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Subtotal sums the line subtotals.
func Subtotal(lines []cart.Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(LineSubtotal(l))
	}
	return sum
}

// Discount returns the applied coupon's discount, or zero.
func Discount(applied *coupon.Applied) decimal.Decimal {
	if applied == nil {
		return decimal.Zero
	}
	return applied.Discount
}

// FinalTotal subtracts the applied discount from the subtotal, floored at zero.
func FinalTotal(subtotal decimal.Decimal, applied *coupon.Applied) decimal.Decimal {
	total := subtotal.Sub(Discount(applied))
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}
