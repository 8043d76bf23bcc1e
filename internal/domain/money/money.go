// Package money formats decimal amounts for customer-facing text.
package money

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Places is the number of fractional digits shown and persisted.
const Places = 2

// Currency renders amounts with the currency's symbol, e.g. "R$ 119.80".
type Currency struct {
	unit   currency.Unit
	symbol string
}

// BRL is the default storefront currency.
var BRL = MustParse("BRL")

// Parse returns the Currency for an ISO 4217 code.
func Parse(code string) (Currency, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return Currency{}, errors.Wrapf(err, "parse currency %q", code)
	}
	return Currency{
		unit:   unit,
		symbol: fmt.Sprint(currency.Symbol(unit)),
	}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(code string) Currency {
	c, err := Parse(code)
	if err != nil {
		panic(err)
	}
	return c
}

// Code returns the ISO 4217 code.
func (c Currency) Code() string {
	return c.unit.String()
}

// Symbol returns the display symbol.
func (c Currency) Symbol() string {
	return c.symbol
}

// Format renders the amount rounded to two places, prefixed by the symbol.
func (c Currency) Format(amount decimal.Decimal) string {
	return c.symbol + " " + Fixed(amount)
}

// Fixed renders the amount with exactly two fractional digits.
func Fixed(amount decimal.Decimal) string {
	return amount.StringFixed(Places)
}

// Round rounds the amount to two places. It is applied once, when a value
// leaves the engine (persisted or displayed).
func Round(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(Places)
}
