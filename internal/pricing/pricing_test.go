package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCalculateCartWithAbsoluteDiscount(t *testing.T) {
	lines := []Line{
		{ProductCode: "PRD001", Quantity: 2, UnitPrice: dec("49.99")},
		{ProductCode: "PRD004", Quantity: 1, UnitPrice: dec("29.99")},
	}

	totals, err := Calculate(lines, AmountOff(dec("10.00")), decimal.Zero)
	require.NoError(t, err)
	require.Len(t, totals.Lines, 2)
	assert.True(t, totals.Lines[0].LineTotal.Equal(dec("99.98")))
	assert.True(t, totals.Subtotal.Equal(dec("129.97")), totals.Subtotal.String())
	assert.True(t, totals.Discount.Equal(dec("10")))
	assert.True(t, totals.Tax.IsZero())
	assert.True(t, totals.Net.Equal(dec("119.97")), totals.Net.String())
}

func TestCalculateRateDiscountAndTax(t *testing.T) {
	lines := []Line{{ProductCode: "PRD002", Quantity: 3, UnitPrice: dec("19.99")}}

	totals, err := Calculate(lines, RateOff(dec("0.10")), dec("0.16"))
	require.NoError(t, err)
	// 59.97 - 6.00 = 53.97; tax 8.6352 -> 8.64
	assert.Equal(t, "59.97", totals.Subtotal.StringFixed(2))
	assert.Equal(t, "6.00", totals.Discount.StringFixed(2))
	assert.Equal(t, "8.64", totals.Tax.StringFixed(2))
	assert.Equal(t, "62.61", totals.Net.StringFixed(2))
}

func TestCalculateClampsDiscount(t *testing.T) {
	lines := []Line{{ProductCode: "PRD001", Quantity: 1, UnitPrice: dec("5.00")}}

	totals, err := Calculate(lines, AmountOff(dec("12.00")), dec("0.17"))
	require.NoError(t, err)
	assert.True(t, totals.Discount.Equal(dec("5")))
	assert.True(t, totals.Tax.IsZero())
	assert.True(t, totals.Net.IsZero())

	totals, err = Calculate(lines, AmountOff(dec("-3")), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, totals.Discount.IsZero())
	assert.True(t, totals.Net.Equal(dec("5")))
}

func TestCalculateNegativeTaxRateClampsToZero(t *testing.T) {
	lines := []Line{{ProductCode: "PRD001", Quantity: 1, UnitPrice: dec("5.00")}}

	totals, err := Calculate(lines, Discount{}, dec("-0.2"))
	require.NoError(t, err)
	assert.True(t, totals.Tax.IsZero())
	assert.True(t, totals.Net.Equal(dec("5")))
}

func TestCalculateEmpty(t *testing.T) {
	totals, err := Calculate(nil, AmountOff(dec("3")), dec("0.16"))
	require.NoError(t, err)
	assert.Empty(t, totals.Lines)
	assert.True(t, totals.Subtotal.IsZero())
	assert.True(t, totals.Discount.IsZero())
	assert.True(t, totals.Net.IsZero())
}

func TestCalculateRejectsNegativeInputs(t *testing.T) {
	_, err := Calculate([]Line{{ProductCode: "PRD001", Quantity: -1, UnitPrice: dec("1")}}, Discount{}, decimal.Zero)
	require.ErrorIs(t, err, ErrNegativeQuantity)

	_, err = Calculate([]Line{{ProductCode: "PRD001", Quantity: 1, UnitPrice: dec("-0.01")}}, Discount{}, decimal.Zero)
	require.ErrorIs(t, err, ErrNegativePrice)

	_, err = Calculate([]Line{{ProductCode: "PRD001", Quantity: 1, UnitPrice: dec("1")}}, Discount{Amount: dec("1"), Rate: dec("0.1")}, decimal.Zero)
	require.ErrorIs(t, err, ErrAmbiguousDiscount)
}

func TestCalculateRejectsUnstorablePrices(t *testing.T) {
	_, err := Calculate([]Line{{ProductCode: "PRD001", Quantity: 3, UnitPrice: dec("0.333")}}, Discount{}, decimal.Zero)
	require.ErrorIs(t, err, ErrPricePrecision)
	assert.Contains(t, err.Error(), "line 1 (PRD001)")

	totals, err := Calculate([]Line{{ProductCode: "PRD001", Quantity: 3, UnitPrice: dec("0.330")}}, Discount{}, decimal.Zero)
	require.NoError(t, err, "trailing zeros are still cents")
	assert.Equal(t, "0.99", totals.Net.StringFixed(2))

	_, err = Calculate([]Line{{ProductCode: "PRD001", Quantity: 1, UnitPrice: dec("10000000000.00")}}, Discount{}, decimal.Zero)
	require.ErrorIs(t, err, ErrAmountTooLarge)

	_, err = Calculate([]Line{{ProductCode: "PRD001", Quantity: 1000, UnitPrice: MaxUnitPrice}}, Discount{}, decimal.Zero)
	require.ErrorIs(t, err, ErrAmountTooLarge)

	_, err = Calculate([]Line{{ProductCode: "PRD001", Quantity: 100, UnitPrice: MaxUnitPrice}}, Discount{}, dec("0.5"))
	require.ErrorIs(t, err, ErrAmountTooLarge, "tax pushes net past the column")

	require.NoError(t, CheckUnitPrice(MaxUnitPrice))
}

func TestLineTotalRoundsHalfUp(t *testing.T) {
	assert.Equal(t, "0.03", LineTotal(1, dec("0.025")).StringFixed(2))
	assert.Equal(t, "3.38", LineTotal(3, dec("1.125")).StringFixed(2))
	assert.Equal(t, "0.00", LineTotal(0, dec("9.99")).StringFixed(2))
}

func TestPricingIdentityHolds(t *testing.T) {
	prices := []string{"0.01", "0.33", "1.05", "49.99", "129.45", "999.99"}
	rates := []string{"0", "0.05", "0.16", "0.17", "0.333"}
	for _, p := range prices {
		for qty := 1; qty <= 7; qty += 3 {
			for _, r := range rates {
				lines := []Line{{ProductCode: "A", Quantity: qty, UnitPrice: dec(p)}, {ProductCode: "B", Quantity: 1, UnitPrice: dec("2.50")}}
				totals, err := Calculate(lines, RateOff(dec(r)), dec(r))
				require.NoError(t, err)

				sum := decimal.Zero
				for _, l := range totals.Lines {
					sum = sum.Add(l.LineTotal)
				}
				require.True(t, sum.Equal(totals.Subtotal))
				require.True(t, totals.Subtotal.Sub(totals.Discount).Add(totals.Tax).Equal(totals.Net))
				require.LessOrEqual(t, totals.Net.Exponent()*-1, int32(Scale))
			}
		}
	}
}
