package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a signed fixed-point amount in minor units (cents).
// Balances and shares are never represented as binary floating point;
// any derived division rounds half-to-even.
type Money int64

// Zero is the zero amount.
const Zero Money = 0

// NewMoneyFromMinorUnits creates Money from an integer number of cents.
func NewMoneyFromMinorUnits(cents int64) Money {
	return Money(cents)
}

// ParseMoney parses an exact decimal string ("45.00", "0.05") into Money.
// More than two fractional digits is an error, not a rounding.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a decimal amount", ErrInvalidAmount, s)
	}

	return MoneyFromDecimal(d)
}

// MoneyFromDecimal converts an exact decimal into Money.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Shift(2)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("%w: %s has sub-cent precision", ErrInvalidAmount, d.String())
	}

	return Money(cents.IntPart()), nil
}

// MinorUnits returns the amount in cents.
func (m Money) MinorUnits() int64 {
	return int64(m)
}

// Decimal returns the exact decimal representation.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

// String formats the amount with exactly two fractional digits.
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Add returns m + other.
func (m Money) Add(other Money) Money {
	return m + other
}

// Sub returns m - other.
func (m Money) Sub(other Money) Money {
	return m - other
}

// Neg returns -m.
func (m Money) Neg() Money {
	return -m
}

// Abs returns the absolute value of m.
func (m Money) Abs() Money {
	if m < 0 {
		return -m
	}

	return m
}

// IsZero reports whether m is zero.
func (m Money) IsZero() bool {
	return m == 0
}

// IsNegative reports whether m is below zero.
func (m Money) IsNegative() bool {
	return m < 0
}

// IsPositive reports whether m is above zero.
func (m Money) IsPositive() bool {
	return m > 0
}

// Div divides m by n, rounding half-to-even to whole cents.
func (m Money) Div(n int64) Money {
	q := m.Decimal().Div(decimal.NewFromInt(n)).RoundBank(2)

	// RoundBank(2) guarantees a whole number of cents.
	cents, _ := MoneyFromDecimal(q)

	return cents
}

// Split divides m into n shares that sum exactly to m. Each share
// starts at the banker's-rounded even portion; the rounding residue is
// pushed back onto the earliest shares one cent at a time, so no money
// is created or destroyed.
func (m Money) Split(n int) []Money {
	if n <= 0 {
		return nil
	}

	even := m.Div(int64(n))

	shares := make([]Money, n)
	rest := m
	for i := range shares {
		shares[i] = even
		rest = rest.Sub(even)
	}

	step := NewMoneyFromMinorUnits(1)
	if rest.IsNegative() {
		step = step.Neg()
	}
	for i := 0; !rest.IsZero(); i++ {
		shares[i] = shares[i].Add(step)
		rest = rest.Sub(step)
	}

	return shares
}

// MarshalJSON serializes the amount as an exact decimal string.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

// UnmarshalJSON accepts an exact decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}

	*m = parsed

	return nil
}
