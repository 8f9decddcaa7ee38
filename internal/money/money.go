// Package money provides fixed-precision currency amounts.
//
// Amounts are backed by a decimal type and quantized to two fractional
// digits (minor units), so repeated splitting and summation cannot drift
// the way native floats do.
package money

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount indicates a non-positive or non-finite value where a
// positive finite amount is required.
var ErrInvalidAmount = errors.New("invalid amount")

// Amount is a signed currency amount with cent precision.
// The zero value is a valid zero amount.
type Amount struct {
	dec decimal.Decimal
}

// Zero returns the zero amount.
func Zero() Amount {
	return Amount{}
}

// FromCents builds an Amount from a count of minor units.
func FromCents(cents int64) Amount {
	return Amount{dec: decimal.New(cents, -2)}
}

// Parse converts a decimal string (e.g. "12.50") into an Amount,
// rounding to cent precision.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return Amount{dec: d.Round(2)}, nil
}

// ParsePositive is Parse restricted to strictly positive amounts.
func ParsePositive(s string) (Amount, error) {
	a, err := Parse(s)
	if err != nil {
		return Amount{}, err
	}
	if !a.IsPositive() {
		return Amount{}, fmt.Errorf("%w: %q must be positive", ErrInvalidAmount, s)
	}
	return a, nil
}

// FromFloat converts a float into an Amount, rounding to cent precision.
// NaN and infinities are rejected.
func FromFloat(f float64) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Amount{}, fmt.Errorf("%w: %v", ErrInvalidAmount, f)
	}
	return Amount{dec: decimal.NewFromFloat(f).Round(2)}, nil
}

// Cents returns the amount as a count of minor units.
func (a Amount) Cents() int64 {
	return a.dec.Shift(2).IntPart()
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{dec: a.dec.Add(b.dec)}
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return Amount{dec: a.dec.Sub(b.dec)}
}

// Neg returns -a.
func (a Amount) Neg() Amount {
	return Amount{dec: a.dec.Neg()}
}

// Abs returns the magnitude of a.
func (a Amount) Abs() Amount {
	return Amount{dec: a.dec.Abs()}
}

// Cmp compares a and b: -1 if a < b, 0 if equal, +1 if a > b.
func (a Amount) Cmp(b Amount) int {
	return a.dec.Cmp(b.dec)
}

// Equal reports whether a and b represent the same amount.
func (a Amount) Equal(b Amount) bool {
	return a.dec.Equal(b.dec)
}

// LessThan reports whether a < b.
func (a Amount) LessThan(b Amount) bool {
	return a.dec.LessThan(b.dec)
}

// IsZero reports whether a is exactly zero.
func (a Amount) IsZero() bool {
	return a.dec.IsZero()
}

// IsPositive reports whether a > 0.
func (a Amount) IsPositive() bool {
	return a.dec.IsPositive()
}

// IsNegative reports whether a < 0.
func (a Amount) IsNegative() bool {
	return a.dec.IsNegative()
}

// Min returns the smaller of a and b.
func Min(a, b Amount) Amount {
	if a.LessThan(b) {
		return a
	}
	return b
}

// SplitEven divides the amount into n shares that sum exactly to the
// amount. Each share is the amount divided by n rounded down to a cent;
// leftover cents are assigned one each to the first shares.
func (a Amount) SplitEven(n int) ([]Amount, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: cannot split among %d shares", ErrInvalidAmount, n)
	}
	if !a.IsPositive() {
		return nil, fmt.Errorf("%w: cannot split %s", ErrInvalidAmount, a)
	}

	cents := a.Cents()
	base := cents / int64(n)
	rem := cents % int64(n)

	shares := make([]Amount, n)
	for i := range shares {
		c := base
		if int64(i) < rem {
			c++
		}
		shares[i] = FromCents(c)
	}
	return shares, nil
}

// String formats the amount with exactly two fractional digits.
func (a Amount) String() string {
	return a.dec.StringFixed(2)
}

// MarshalJSON encodes the amount as a fixed two-digit decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON decodes an amount from either a JSON string or number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
