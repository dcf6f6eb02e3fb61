// Package money represents amounts as integer minor units. Journal balance
// checks must be exact, so arithmetic never touches floating point; decimal
// is used only at the parse/format boundary.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Cents is an amount in minor currency units.
type Cents int64

var (
	// ErrMalformedAmount indicates an amount that could not be parsed.
	ErrMalformedAmount = errors.New("money: malformed amount")
	// ErrTooPrecise indicates more than two decimal places.
	ErrTooPrecise = errors.New("money: more than two decimal places")
)

// Parse converts a decimal string such as "1234.50" into Cents.
func Parse(s string) (Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedAmount, s)
	}
	shifted := d.Shift(2)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("%w: %q", ErrTooPrecise, s)
	}
	return Cents(shifted.IntPart()), nil
}

// FromDecimal converts a decimal amount into Cents, rejecting sub-cent precision.
func FromDecimal(d decimal.Decimal) (Cents, error) {
	shifted := d.Shift(2)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("%w: %s", ErrTooPrecise, d.String())
	}
	return Cents(shifted.IntPart()), nil
}

// Decimal returns the amount as a decimal in major units.
func (c Cents) Decimal() decimal.Decimal {
	return decimal.New(int64(c), -2)
}

// String renders the amount with two decimal places, e.g. "1234.50".
func (c Cents) String() string {
	return c.Decimal().StringFixed(2)
}

// IsPositive reports whether the amount is strictly greater than zero.
func (c Cents) IsPositive() bool {
	return c > 0
}

// MarshalJSON encodes the amount as a fixed two-decimal string.
func (c Cents) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON string or bare number.
func (c *Cents) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
