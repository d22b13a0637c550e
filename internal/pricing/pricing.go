// Package pricing computes cart and order totals. It is the single source
// of truth for monetary math: both the cart projection and order creation
// call the same function, so an estimated total and a final total can never
// disagree on formula.
package pricing

import "github.com/shopspring/decimal"

// Line is the minimal input the calculator needs.
type Line struct {
	Quantity  int
	UnitPrice decimal.Decimal
}

// Totals is the computed breakdown, each amount at 2 decimal places.
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Calculate sums the lines, rounds half-up on the final sum only (not per
// line, to avoid compounding rounding error), taxes the rounded subtotal
// and rounds the tax independently. Pure: no I/O, no state.
func Calculate(lines []Line, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	subtotal = subtotal.Round(2)
	tax := subtotal.Mul(taxRate).Round(2)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}
