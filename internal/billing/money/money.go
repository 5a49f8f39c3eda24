// Package money provides fixed-point decimal arithmetic for monetary
// amounts and quantities. All stored values carry exactly two fractional
// digits; multiplications and percentage operations round half-up.
package money

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits kept for currency and quantity values.
const Places = 2

var (
	// ErrInvalidAmount indicates a value that cannot be parsed as a decimal.
	ErrInvalidAmount = errors.New("money: invalid amount")
	// ErrNegativeAmount indicates a negative value where only non-negative is allowed.
	ErrNegativeAmount = errors.New("money: amount must not be negative")
)

// Amount is a fixed-point decimal value. The zero value is 0.00.
type Amount struct {
	d decimal.Decimal
}

// Zero returns an Amount of 0.00.
func Zero() Amount {
	return Amount{d: decimal.Zero}
}

// New builds an Amount from a decimal, quantized to two places half-up.
func New(d decimal.Decimal) Amount {
	return Amount{d: d.Round(Places)}
}

// FromString parses a decimal string such as "10.10".
func FromString(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return New(d), nil
}

// MustParse parses s and panics on failure. Intended for constants in tests.
func MustParse(s string) Amount {
	a, err := FromString(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromFloat converts a float64 input value, quantized to two places.
func FromFloat(f float64) Amount {
	return New(decimal.NewFromFloat(f))
}

// Decimal exposes the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal {
	return a.d
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{d: a.d.Add(b.d)}
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return Amount{d: a.d.Sub(b.d)}
}

// Mul returns a × b rounded to two places half-up.
func (a Amount) Mul(b Amount) Amount {
	return Amount{d: a.d.Mul(b.d).Round(Places)}
}

// Percent returns rate percent of a, rounded to two places half-up.
func (a Amount) Percent(rate Amount) Amount {
	return Amount{d: a.d.Mul(rate.d).Div(decimal.NewFromInt(100)).Round(Places)}
}

// Neg returns -a.
func (a Amount) Neg() Amount {
	return Amount{d: a.d.Neg()}
}

// IsZero reports whether a equals 0.00.
func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

// IsNegative reports whether a is below zero.
func (a Amount) IsNegative() bool {
	return a.d.IsNegative()
}

// IsPositive reports whether a is above zero.
func (a Amount) IsPositive() bool {
	return a.d.IsPositive()
}

// Cmp compares a and b: -1 if a < b, 0 if equal, 1 if a > b.
func (a Amount) Cmp(b Amount) int {
	return a.d.Cmp(b.d)
}

// GreaterThanOrEqual reports whether a >= b.
func (a Amount) GreaterThanOrEqual(b Amount) bool {
	return a.d.GreaterThanOrEqual(b.d)
}

// Equal reports whether a and b are numerically equal.
func (a Amount) Equal(b Amount) bool {
	return a.d.Equal(b.d)
}

// String renders the amount with exactly two fractional digits.
func (a Amount) String() string {
	return a.d.StringFixed(Places)
}

// MarshalJSON renders the amount as a fixed two-decimal JSON string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts either a JSON string or a bare number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// RequireNonNegative validates a for fields that must be >= 0.
func (a Amount) RequireNonNegative() error {
	if a.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}
