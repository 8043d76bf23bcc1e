// Package cart holds the in-memory line items of a checkout session.
package cart

import (
	"github.com/go-faster/errors"

	"github.com/xenking/vitrine/internal/domain/product"
)

// MaxQuantity is the largest quantity a single line may hold.
const MaxQuantity = 9999

var (
	// ErrInvalidQuantity is returned when a quantity is not positive or a line
	// would exceed MaxQuantity.
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 9999")
	// ErrIndexOutOfRange is returned when a line index does not exist.
	ErrIndexOutOfRange = errors.New("line index out of range")
	// ErrOutOfStock is returned when adding a product that is not in stock.
	ErrOutOfStock = errors.New("product out of stock")
	// ErrUnknownVariation is returned when a variation does not belong to the product.
	ErrUnknownVariation = errors.New("variation does not belong to product")
)

// Line is one product, optionally with a selected variation, and its quantity.
type Line struct {
	Product   product.Product
	Variation *product.Variation
	Quantity  int
}

// VariationID returns the selected variation ID or an empty string.
func (l Line) VariationID() string {
	if l.Variation == nil {
		return ""
	}
	return l.Variation.ID
}

func (l Line) sameItem(p product.Product, v *product.Variation) bool {
	if l.Product.ID != p.ID {
		return false
	}
	if l.Variation == nil || v == nil {
		return l.Variation == nil && v == nil
	}
	return l.Variation.ID == v.ID
}

// Cart is an ordered collection of lines. It has a single writer and is not
// safe for concurrent use.
type Cart struct {
	lines []Line
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add appends a line for the product and variation, or increments the
// quantity of an existing line with the same combination.
func (c *Cart) Add(p product.Product, v *product.Variation, quantity int) error {
	if quantity <= 0 || quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	if !p.InStock {
		return errors.Wrapf(ErrOutOfStock, "product %s", p.ID)
	}
	if v != nil && !p.HasVariation(*v) {
		return errors.Wrapf(ErrUnknownVariation, "variation %s of product %s", v.ID, p.ID)
	}

	for i := range c.lines {
		if c.lines[i].sameItem(p, v) {
			if quantity > MaxQuantity-c.lines[i].Quantity {
				return errors.Wrapf(ErrInvalidQuantity, "merged quantity of product %s", p.ID)
			}
			c.lines[i].Quantity += quantity
			return nil
		}
	}

	line := Line{Product: p, Quantity: quantity}
	if v != nil {
		sel := *v
		line.Variation = &sel
	}
	c.lines = append(c.lines, line)
	return nil
}

// SetQuantity replaces the quantity of the line at index. A quantity of zero
// or less removes the line.
func (c *Cart) SetQuantity(index, quantity int) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	if quantity <= 0 {
		return c.Remove(index)
	}
	if quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	c.lines[index].Quantity = quantity
	return nil
}

// Remove deletes the line at index.
func (c *Cart) Remove(index int) error {
	if err := c.checkIndex(index); err != nil {
		return err
	}
	c.lines = append(c.lines[:index], c.lines[index+1:]...)
	return nil
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.lines = nil
}

// Lines returns a snapshot of the cart lines. The snapshot is not updated by
// later mutations.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len returns the number of lines.
func (c *Cart) Len() int { return len(c.lines) }

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool { return len(c.lines) == 0 }

func (c *Cart) checkIndex(index int) error {
	if index < 0 || index >= len(c.lines) {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d, len %d", index, len(c.lines))
	}
	return nil
}
