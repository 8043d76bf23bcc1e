package order

import (
	"strings"
	"time"

	"github.com/xenking/vitrine/internal/domain/cart"
	"github.com/xenking/vitrine/internal/domain/coupon"
	"github.com/xenking/vitrine/internal/domain/money"
	"github.com/xenking/vitrine/internal/domain/pricing"
)

// Compose snapshots the cart lines into a pending order. Totals are computed
// at full precision and rounded to cents once. A stale applied coupon is
// dropped.
func Compose(storeID string, lines []cart.Line, customer Customer, applied *coupon.Applied, now time.Time) *Order {
	q := pricing.NewQuote(lines, applied)

	items := make([]Item, len(q.Lines))
	for i, ql := range q.Lines {
		items[i] = Item{
			ProductID:   ql.Line.Product.ID,
			ProductName: ql.Line.Product.Name,
			Quantity:    ql.Line.Quantity,
			UnitPrice:   money.Round(ql.UnitPrice),
			LineTotal:   money.Round(ql.LineTotal),
		}
		if v := ql.Line.Variation; v != nil {
			items[i].VariationID = v.ID
			items[i].VariationName = v.Name
		}
	}

	return &Order{
		StoreID:       storeID,
		CustomerName:  strings.TrimSpace(customer.Name),
		CustomerPhone: strings.TrimSpace(customer.Phone),
		Items:         items,
		Subtotal:      money.Round(q.Subtotal),
		Discount:      money.Round(q.Discount),
		Total:         money.Round(q.Total),
		CouponCode:    q.CouponCode,
		Status:        StatusPending,
		CreatedAt:     now,
	}
}
