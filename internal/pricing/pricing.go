// Package pricing computes order totals. All amounts are rounded to cents and
// every derived quantity is computed from the already rounded inputs.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// TaxRate is the flat tax applied to the items subtotal.
var TaxRate = decimal.RequireFromString("0.15")

var ErrInvalidTotals = errors.New("computed totals are invalid")

type Totals struct {
	ItemsPrice Money `json:"items_price"`
	TaxPrice   Money `json:"tax_price"`
	TotalPrice Money `json:"total_price"`
}

// Calculate returns items, tax and total for the given unit prices.
func Calculate(prices []Money) Totals {
	items := Zero
	for _, p := range prices {
		items = items.Add(p)
	}
	items = items.Round()

	tax := items.Mul(TaxRate).Round()
	total := items.Add(tax).Round()

	return Totals{ItemsPrice: items, TaxPrice: tax, TotalPrice: total}
}

// Valid reports ErrInvalidTotals when any amount is negative.
func (t Totals) Valid() error {
	if t.ItemsPrice.IsNegative() || t.TaxPrice.IsNegative() || t.TotalPrice.IsNegative() {
		return ErrInvalidTotals
	}
	return nil
}
