package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var taxRate = decimal.RequireFromString("0.18")

func TestCalculate_WorkedExample(t *testing.T) {
	// 2 x 100.00 + 1 x 50.00 @ 18% tax
	lines := []Line{
		{Quantity: 2, UnitPrice: decimal.RequireFromString("100.00")},
		{Quantity: 1, UnitPrice: decimal.RequireFromString("50.00")},
	}

	totals := Calculate(lines, taxRate)

	assert.Equal(t, "250.00", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "45.00", totals.Tax.StringFixed(2))
	assert.Equal(t, "295.00", totals.Total.StringFixed(2))
}

func TestCalculate_EmptyInput(t *testing.T) {
	totals := Calculate(nil, taxRate)

	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.Tax.IsZero())
	assert.True(t, totals.Total.IsZero())
}

func TestCalculate_OrderIndependent(t *testing.T) {
	a := []Line{
		{Quantity: 3, UnitPrice: decimal.RequireFromString("19.99")},
		{Quantity: 1, UnitPrice: decimal.RequireFromString("0.05")},
		{Quantity: 7, UnitPrice: decimal.RequireFromString("123.45")},
	}
	b := []Line{a[2], a[0], a[1]}

	ta := Calculate(a, taxRate)
	tb := Calculate(b, taxRate)

	assert.True(t, ta.Subtotal.Equal(tb.Subtotal))
	assert.True(t, ta.Tax.Equal(tb.Tax))
	assert.True(t, ta.Total.Equal(tb.Total))
}

func TestCalculate_RoundsHalfUpOnSumOnly(t *testing.T) {
	// Each line is 1.005; per-line rounding would give 1.01 * 3 = 3.03,
	// rounding the sum gives 3.015 -> 3.02.
	price := decimal.RequireFromString("1.005")
	lines := []Line{
		{Quantity: 1, UnitPrice: price},
		{Quantity: 1, UnitPrice: price},
		{Quantity: 1, UnitPrice: price},
	}

	totals := Calculate(lines, taxRate)

	require.Equal(t, "3.02", totals.Subtotal.StringFixed(2))
}

func TestCalculate_TaxRoundedIndependently(t *testing.T) {
	// subtotal 10.25, tax raw 1.845 -> rounds half up to 1.85
	lines := []Line{{Quantity: 1, UnitPrice: decimal.RequireFromString("10.25")}}

	totals := Calculate(lines, taxRate)

	assert.Equal(t, "10.25", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "1.85", totals.Tax.StringFixed(2))
	assert.Equal(t, "12.10", totals.Total.StringFixed(2))
}
