// Package pricing computes order totals. It performs no I/O so the preview shown
// at the till and the amounts persisted by a commit come from the same code.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places of the currency minor unit.
const Scale = 2

// Largest amounts a stored order can carry: unit prices are NUMERIC(12,2),
// line totals and order amounts NUMERIC(14,2).
var (
	MaxUnitPrice = decimal.RequireFromString("9999999999.99")
	MaxAmount    = decimal.RequireFromString("999999999999.99")
)

var (
	// ErrNegativeQuantity indicates a line with quantity below zero.
	ErrNegativeQuantity = errors.New("pricing: negative quantity")
	// ErrNegativePrice indicates a line with unit price below zero.
	ErrNegativePrice = errors.New("pricing: negative unit price")
	// ErrAmbiguousDiscount indicates both an absolute and a rate discount.
	ErrAmbiguousDiscount = errors.New("pricing: discount amount and rate are mutually exclusive")
	// ErrPricePrecision indicates a unit price finer than the minor unit.
	ErrPricePrecision = errors.New("pricing: unit price has more than 2 decimal places")
	// ErrAmountTooLarge indicates a price or total beyond what an order can store.
	ErrAmountTooLarge = errors.New("pricing: amount too large")
)

// Line is one cart entry.
type Line struct {
	ProductCode string          `json:"product_code"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// PricedLine is a Line with its rounded total.
type PricedLine struct {
	Line
	LineTotal decimal.Decimal `json:"line_total"`
}

// Discount is either an absolute amount or a fraction of the subtotal.
type Discount struct {
	Amount decimal.Decimal `json:"amount"`
	Rate   decimal.Decimal `json:"rate"`
}

// AmountOff builds an absolute discount.
func AmountOff(amount decimal.Decimal) Discount {
	return Discount{Amount: amount}
}

// RateOff builds a discount expressed as a fraction of the subtotal (0.10 = 10%).
func RateOff(rate decimal.Decimal) Discount {
	return Discount{Rate: rate}
}

// IsZero reports whether no discount was requested.
func (d Discount) IsZero() bool {
	return d.Amount.IsZero() && d.Rate.IsZero()
}

// Totals holds the computed amounts. Net always equals Subtotal - Discount + Tax.
type Totals struct {
	Lines    []PricedLine    `json:"lines"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Net      decimal.Decimal `json:"net"`
}

// LineTotal multiplies quantity by price and rounds half-up to the minor unit.
func LineTotal(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return round(decimal.NewFromInt(int64(quantity)).Mul(unitPrice))
}

// Calculate prices lines, applies the discount and taxes the discounted amount.
// An empty line list yields zero totals.
func Calculate(lines []Line, discount Discount, taxRate decimal.Decimal) (Totals, error) {
	totals := Totals{
		Lines:    make([]PricedLine, 0, len(lines)),
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
		Tax:      decimal.Zero,
		Net:      decimal.Zero,
	}
	for i, line := range lines {
		if line.Quantity < 0 {
			return Totals{}, fmt.Errorf("%w: line %d (%s)", ErrNegativeQuantity, i+1, line.ProductCode)
		}
		if err := CheckUnitPrice(line.UnitPrice); err != nil {
			return Totals{}, fmt.Errorf("%w: line %d (%s)", err, i+1, line.ProductCode)
		}
		total := LineTotal(line.Quantity, line.UnitPrice)
		if total.GreaterThan(MaxAmount) {
			return Totals{}, fmt.Errorf("%w: line %d (%s) totals %s", ErrAmountTooLarge, i+1, line.ProductCode, total.StringFixed(Scale))
		}
		totals.Lines = append(totals.Lines, PricedLine{Line: line, LineTotal: total})
		totals.Subtotal = totals.Subtotal.Add(total)
	}
	if totals.Subtotal.GreaterThan(MaxAmount) {
		return Totals{}, fmt.Errorf("%w: subtotal %s", ErrAmountTooLarge, totals.Subtotal.StringFixed(Scale))
	}

	off, err := discountAmount(totals.Subtotal, discount)
	if err != nil {
		return Totals{}, err
	}
	totals.Discount = off

	taxable := totals.Subtotal.Sub(off)
	tax := round(taxable.Mul(taxRate))
	if tax.IsNegative() {
		tax = decimal.Zero
	}
	totals.Tax = tax
	totals.Net = taxable.Add(tax)
	if totals.Net.GreaterThan(MaxAmount) {
		return Totals{}, fmt.Errorf("%w: net %s", ErrAmountTooLarge, totals.Net.StringFixed(Scale))
	}
	return totals, nil
}

// CheckUnitPrice rejects negative prices, prices finer than the minor unit
// and prices above MaxUnitPrice. A price that passes is stored unchanged, so
// quantity * unit_price of a persisted line equals its line total.
func CheckUnitPrice(price decimal.Decimal) error {
	switch {
	case price.IsNegative():
		return ErrNegativePrice
	case !price.Equal(price.Truncate(Scale)):
		return ErrPricePrecision
	case price.GreaterThan(MaxUnitPrice):
		return ErrAmountTooLarge
	}
	return nil
}

func discountAmount(subtotal decimal.Decimal, d Discount) (decimal.Decimal, error) {
	if !d.Amount.IsZero() && !d.Rate.IsZero() {
		return decimal.Zero, ErrAmbiguousDiscount
	}
	off := d.Amount
	if !d.Rate.IsZero() {
		off = subtotal.Mul(d.Rate)
	}
	return clamp(round(off), decimal.Zero, subtotal), nil
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}

// round applies half-up rounding. Decimal.Round rounds half away from zero,
// which matches half-up for the non-negative amounts handled here.
func round(v decimal.Decimal) decimal.Decimal {
	return v.Round(Scale)
}
