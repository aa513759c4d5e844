// Package billing holds the line-item, conversion and reconciliation rules shared by
// quotes, jobs and invoices. It has no storage or transport dependencies.
package billing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the currency precision documents are rounded to.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Line is one priced row of a quote, job or invoice.
type Line struct {
	ID          uint
	Description string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
}

// Total is quantity × unit price, unrounded.
func (l Line) Total() decimal.Decimal {
	return NonNegative(l.Quantity).Mul(NonNegative(l.UnitPrice))
}

// Totals is the computed money summary of a document.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Compute sums the line totals and applies a single tax rate given in percent (8.25 = 8.25%).
// An empty list yields zero totals.
func Compute(lines []Line, taxPercent decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}
	tax := subtotal.Mul(NonNegative(taxPercent)).Div(hundred)

	subtotal = subtotal.Round(Places)
	tax = tax.Round(Places)
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

// ParseAmount parses a user-supplied quantity or price. Malformed and negative input become zero.
func ParseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return NonNegative(d)
}

// NonNegative clamps d at zero.
func NonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Lenient is a decimal that decodes from a JSON number or string and never fails:
// anything that is not a non-negative number becomes zero.
type Lenient struct {
	decimal.Decimal
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Lenient) UnmarshalJSON(b []byte) error {
	l.Decimal = ParseAmount(strings.Trim(string(b), `"`))
	return nil
}
