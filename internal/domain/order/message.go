package order

import (
	"fmt"
	"strings"

	"github.com/xenking/vitrine/internal/domain/money"
)

// RenderMessage formats the order as the text sent to the store.
func RenderMessage(o *Order, storeName string, cur money.Currency) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📦 PEDIDO - %s\n\n", storeName)

	if o.CustomerName != "" || o.CustomerPhone != "" {
		if o.CustomerName != "" {
			fmt.Fprintf(&b, "👤 Cliente: %s\n", o.CustomerName)
		}
		if o.CustomerPhone != "" {
			fmt.Fprintf(&b, "📱 WhatsApp: %s\n", o.CustomerPhone)
		}
		b.WriteString("\n")
	}

	b.WriteString("📋 Itens do Pedido:\n")
	for i, it := range o.Items {
		fmt.Fprintf(&b, "%d. %dx %s", i+1, it.Quantity, it.ProductName)
		if it.VariationName != "" {
			fmt.Fprintf(&b, " (%s)", it.VariationName)
		}
		fmt.Fprintf(&b, "\n   💰 %s\n", cur.Format(it.LineTotal))
	}

	fmt.Fprintf(&b, "\n💰 Subtotal: %s\n", cur.Format(o.Subtotal))
	if o.CouponCode != "" {
		fmt.Fprintf(&b, "🎟️ Cupom aplicado: %s\n", o.CouponCode)
	}
	fmt.Fprintf(&b, "💳 Total: %s", cur.Format(o.Total))

	return b.String()
}
