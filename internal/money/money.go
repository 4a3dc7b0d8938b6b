package money

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Currency is the single currency the wallet operates in.
const Currency = "RWF"

// Amount is an exact decimal amount of money. The zero value is zero money.
// Arithmetic never touches binary floating point.
type Amount struct {
	d decimal.Decimal
}

// Zero returns the zero amount.
func Zero() Amount { return Amount{} }

// New parses a canonical decimal string ("1500", "10.50", "-3.25").
func New(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Amount{d: d}, nil
}

// MustNew is New for literals in tests and seeds; panics on malformed input.
func MustNew(s string) Amount {
	a, err := New(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromInt builds an amount from whole currency units.
func FromInt(v int64) Amount { return Amount{d: decimal.NewFromInt(v)} }

// FromDecimal wraps an existing decimal.
func FromDecimal(d decimal.Decimal) Amount { return Amount{d: d} }

// Decimal exposes the underlying decimal for storage drivers.
func (a Amount) Decimal() decimal.Decimal { return a.d }

func (a Amount) Add(b Amount) Amount { return Amount{d: a.d.Add(b.d)} }
func (a Amount) Sub(b Amount) Amount { return Amount{d: a.d.Sub(b.d)} }
func (a Amount) Neg() Amount         { return Amount{d: a.d.Neg()} }

// Cmp returns -1, 0, or 1.
func (a Amount) Cmp(b Amount) int      { return a.d.Cmp(b.d) }
func (a Amount) LessThan(b Amount) bool { return a.d.Cmp(b.d) < 0 }
func (a Amount) Equal(b Amount) bool    { return a.d.Cmp(b.d) == 0 }
func (a Amount) IsPositive() bool       { return a.d.Sign() > 0 }
func (a Amount) IsNegative() bool       { return a.d.Sign() < 0 }
func (a Amount) IsZero() bool           { return a.d.Sign() == 0 }

// String renders the canonical decimal form, e.g. "1500" or "10.5".
func (a Amount) String() string { return a.d.String() }

// StringFixed renders with exactly two decimal places for display.
func (a Amount) StringFixed() string { return a.d.StringFixed(2) }

// MarshalJSON emits a bare JSON number so API clients receive numeric amounts.
// The supported scale (2 decimal places, magnitudes ≤ 10^15) is well inside
// what a JSON number round-trips losslessly.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.d.String()), nil
}

// UnmarshalJSON accepts either a JSON number or a quoted decimal string.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		a.d = decimal.Decimal{}
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("parse amount: %w", err)
	}
	a.d = d
	return nil
}

// Sum adds a slice of amounts.
func Sum(amounts ...Amount) Amount {
	var total Amount
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
