package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item of a store.
type Product struct {
	ID         string
	StoreID    string
	Name       string
	Price      decimal.Decimal
	InStock    bool
	Variations []Variation
	Options    []Option
}

// Variation is a purchasable variant of a product, e.g. a size. Its price
// replaces the product's base price in the cart.
type Variation struct {
	ID    string
	Name  string
	Price decimal.Decimal
}

// Option is a catalog-level choice whose price is added to the product's base
// price, e.g. "gift wrap +5.00". Options never take part in cart pricing.
type Option struct {
	ID              string
	Name            string
	PriceAdjustment decimal.Decimal
}

// Variation returns the variation with the given ID.
func (p Product) Variation(id string) (Variation, bool) {
	for _, v := range p.Variations {
		if v.ID == id {
			return v, true
		}
	}
	return Variation{}, false
}

// HasVariation reports whether v is one of the product's variations.
func (p Product) HasVariation(v Variation) bool {
	got, ok := p.Variation(v.ID)
	return ok && got.Name == v.Name && got.Price.Equal(v.Price)
}

// OptionPrice returns the base price plus the adjustments of the selected
// options.
func (p Product) OptionPrice(options ...Option) decimal.Decimal {
	price := p.Price
	for _, o := range options {
		price = price.Add(o.PriceAdjustment)
	}
	return price
}

// Repository defines read operations for a store's catalog.
type Repository interface {
	ListByStore(ctx context.Context, storeID string) ([]Product, error)
	GetByID(ctx context.Context, storeID, id string) (*Product, error)
	GetByIDs(ctx context.Context, storeID string, ids []string) ([]Product, error)
}
