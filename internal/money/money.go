// Package money provides a fixed-point amount type backed by integer minor units.
//
// Amounts are never held as binary floating point. Decimal input (user-typed
// strings, JSON) is parsed with shopspring/decimal and must be exactly
// representable in minor units; proportional division rounds half-up.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fraction digits carried by every amount.
const Scale = 2

// MaxMinor bounds the magnitude of a single parsed amount so that sums over a
// bounded participant list cannot overflow int64.
const MaxMinor int64 = 1_000_000_000_000_000

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrPrecision     = errors.New("amount has more than 2 fraction digits")
	ErrOutOfRange    = errors.New("amount out of range")
	ErrZeroDivisor   = errors.New("division by zero")
)

// Money is an amount in minor currency units (cents).
type Money struct {
	minor int64
}

// Zero is the zero amount.
var Zero = Money{}

// New returns an amount of minor units.
func New(minor int64) Money {
	return Money{minor: minor}
}

// FromDecimal converts a decimal major-unit amount (e.g. 12.34) into Money.
// It never rounds: a value that is not a whole number of minor units is rejected.
func FromDecimal(d decimal.Decimal) (Money, error) {
	shifted := d.Shift(Scale)
	if !shifted.Equal(shifted.Truncate(0)) {
		return Zero, fmt.Errorf("%w: %s", ErrPrecision, d.String())
	}
	bi := shifted.BigInt()
	if !bi.IsInt64() {
		return Zero, fmt.Errorf("%w: %s", ErrOutOfRange, d.String())
	}
	minor := bi.Int64()
	if minor > MaxMinor || minor < -MaxMinor {
		return Zero, fmt.Errorf("%w: %s", ErrOutOfRange, d.String())
	}
	return Money{minor: minor}, nil
}

// Parse reads a decimal string such as "12.34" or "-0.5".
func Parse(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return FromDecimal(d)
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Minor returns the amount in minor units.
func (m Money) Minor() int64 { return m.minor }

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.minor, -Scale)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(Scale)
}

func (m Money) Add(o Money) Money { return Money{minor: m.minor + o.minor} }

func (m Money) Sub(o Money) Money { return Money{minor: m.minor - o.minor} }

// Cmp returns -1, 0 or +1.
func (m Money) Cmp(o Money) int {
	switch {
	case m.minor < o.minor:
		return -1
	case m.minor > o.minor:
		return 1
	default:
		return 0
	}
}

func (m Money) Equal(o Money) bool { return m.minor == o.minor }

func (m Money) IsZero() bool { return m.minor == 0 }

func (m Money) IsNegative() bool { return m.minor < 0 }

func (m Money) IsPositive() bool { return m.minor > 0 }

// Sum adds amounts.
func Sum(amounts ...Money) Money {
	var total int64
	for _, a := range amounts {
		total += a.minor
	}
	return Money{minor: total}
}

// MulDivRound returns m × num / den rounded half-up to a whole minor unit.
// The division is exact before rounding, so no drift is introduced.
func (m Money) MulDivRound(num, den decimal.Decimal) (Money, error) {
	if den.IsZero() {
		return Zero, ErrZeroDivisor
	}
	q := decimal.NewFromInt(m.minor).Mul(num).DivRound(den, 0)
	bi := q.BigInt()
	if !bi.IsInt64() {
		return Zero, ErrOutOfRange
	}
	return Money{minor: bi.Int64()}, nil
}

// MarshalText encodes the amount as a fixed two-digit decimal string.
func (m Money) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses a decimal string with Parse semantics.
func (m *Money) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
