// Package currencypkg converts between the boundary representation of money
// (decimal dollar strings) and the stored representation (integer cents).
package currencypkg

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrMalformedAmount indicates an amount that does not parse as a decimal number.
var ErrMalformedAmount = errors.New("malformed amount")

// ToCents parses a decimal dollar amount and rounds it to the nearest cent
// using banker's rounding (half-to-even), so that repeated conversions of the
// same inputs always reproduce the same totals.
func ToCents(amount string) (int64, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, ErrMalformedAmount
	}

	return d.Shift(2).RoundBank(0).IntPart(), nil
}

// Format renders integer cents as a dollar string with two decimals.
func Format(cents int64) string {
	return "$" + decimal.New(cents, -2).StringFixed(2)
}
