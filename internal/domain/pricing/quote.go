package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/xenking/vitrine/internal/domain/cart"
	"github.com/xenking/vitrine/internal/domain/coupon"
)

// QuoteLine is the priced view of one cart line.
type QuoteLine struct {
	Line      cart.Line
	UnitPrice decimal.Decimal
	LineTotal decimal.Decimal
}

// Quote is a priced cart with an optional coupon.
type Quote struct {
	Lines      []QuoteLine
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
	CouponCode string
}

// NewQuote prices the lines. An applied coupon computed against a different
// subtotal is ignored.
func NewQuote(lines []cart.Line, applied *coupon.Applied) Quote {
	q := Quote{Lines: make([]QuoteLine, len(lines))}
	for i, l := range lines {
		q.Lines[i] = QuoteLine{
			Line:      l,
			UnitPrice: UnitPrice(l),
			LineTotal: LineSubtotal(l),
		}
	}
	q.Subtotal = Subtotal(lines)

	if applied != nil && !applied.ValidFor(q.Subtotal) {
		applied = nil
	}
	if applied != nil {
		q.CouponCode = applied.Code
	}
	q.Discount = Discount(applied)
	q.Total = FinalTotal(q.Subtotal, applied)
	return q
}
