package pricing

import (
	"bytes"
	"database/sql/driver"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a non-float currency amount. It serialises as a JSON number with
// exactly two decimals and is stored as decimal(10,2).
type Money struct {
	d decimal.Decimal
}

var Zero = Money{d: decimal.Zero}

func NewMoney(d decimal.Decimal) Money {
	return Money{d: d}
}

// MustMoney parses s and panics on malformed input. Intended for constants and tests.
func MustMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseMoney parses a decimal string such as "19.99".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Money{d: d}, nil
}

func (m Money) Decimal() decimal.Decimal { return m.d }

func (m Money) Add(o Money) Money { return Money{d: m.d.Add(o.d)} }

func (m Money) Mul(factor decimal.Decimal) Money { return Money{d: m.d.Mul(factor)} }

// Round rounds to cents, half away from zero (half-up for non-negative amounts).
func (m Money) Round() Money { return Money{d: m.d.Round(2)} }

func (m Money) IsNegative() bool { return m.d.IsNegative() }

func (m Money) IsZero() bool { return m.d.IsZero() }

// Equal compares two amounts at cent precision.
func (m Money) Equal(o Money) bool { return m.String() == o.String() }

// String renders the amount with exactly two decimals.
func (m Money) String() string { return m.d.StringFixed(2) }

func (m Money) Float64() float64 {
	f, _ := m.d.Round(2).Float64()
	return f
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		m.d = decimal.Zero
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return fmt.Errorf("invalid amount %s: %w", data, err)
	}
	m.d = d
	return nil
}

func (m Money) Value() (driver.Value, error) {
	return m.String(), nil
}

func (m *Money) Scan(value interface{}) error {
	var d decimal.Decimal
	if err := d.Scan(value); err != nil {
		return fmt.Errorf("failed to scan amount: %w", err)
	}
	m.d = d
	return nil
}
