package domain

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"

	dErrors "condo/pkg/domain-errors"
)

// Amount is a non-negative fixed-point monetary value in the smallest
// denomination of the host's native unit, 256 bits wide. The zero value is
// zero and values compare with ==.
type Amount struct {
	v uint256.Int
}

// UnitsPerCoin is the number of smallest-denomination units in one whole coin.
// One hundredth of a coin (the default monthly quota) is 10^16 units.
const UnitsPerCoin uint64 = 1_000_000_000_000_000_000

// NewAmount returns n units.
func NewAmount(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// Coins returns n whole coins.
func Coins(n uint64) Amount {
	var a Amount
	a.v.Mul(uint256.NewInt(n), uint256.NewInt(UnitsPerCoin))
	return a
}

// ParseAmount parses a non-negative decimal integer amount of at most 256 bits.
//
// Errors: returns CodeInvalidArgument for malformed, negative or oversized input.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		return Amount{}, dErrors.New(dErrors.CodeInvalidArgument, "amount must not be negative")
	}
	if s == "" || strings.HasPrefix(s, "+") {
		return Amount{}, dErrors.New(dErrors.CodeInvalidArgument, "invalid amount: "+s)
	}
	var a Amount
	if err := a.v.SetFromDecimal(s); err != nil {
		return Amount{}, dErrors.New(dErrors.CodeInvalidArgument, "invalid amount: "+s)
	}
	return a, nil
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a.v.IsZero() }

// Cmp returns -1, 0 or +1 as a is less than, equal to or greater than b.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

// LessThan reports a < b.
func (a Amount) LessThan(b Amount) bool { return a.v.Lt(&b.v) }

// GreaterThan reports a > b.
func (a Amount) GreaterThan(b Amount) bool { return a.v.Gt(&b.v) }

// Add returns a+b. ok is false when the sum does not fit in 256 bits.
func (a Amount) Add(b Amount) (sum Amount, ok bool) {
	_, overflow := sum.v.AddOverflow(&a.v, &b.v)
	return sum, !overflow
}

// Sub returns a-b. ok is false when b is greater than a.
func (a Amount) Sub(b Amount) (diff Amount, ok bool) {
	_, underflow := diff.v.SubOverflow(&a.v, &b.v)
	return diff, !underflow
}

func (a Amount) String() string { return a.v.Dec() }

// MarshalText renders the decimal form, so JSON carries amounts as strings.
func (a Amount) MarshalText() ([]byte, error) { return []byte(a.v.Dec()), nil }

func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// UnmarshalJSON accepts a decimal string or a bare JSON integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = data[1 : len(data)-1]
	}
	return a.UnmarshalText(data)
}

// Value stores the decimal form, which NUMERIC(78,0) columns accept.
func (a Amount) Value() (driver.Value, error) { return a.v.Dec(), nil }

func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = Amount{}
		return nil
	case int64:
		if v < 0 {
			return fmt.Errorf("scan amount: negative value %d", v)
		}
		*a = NewAmount(uint64(v))
		return nil
	case string:
		return a.scanDecimal(v)
	case []byte:
		return a.scanDecimal(string(v))
	default:
		return fmt.Errorf("scan amount: unsupported type %T", src)
	}
}

func (a *Amount) scanDecimal(s string) error {
	parsed, err := ParseAmount(s)
	if err != nil {
		return fmt.Errorf("scan amount %q: %w", s, err)
	}
	*a = parsed
	return nil
}

// Float64 approximates the amount, for metrics only.
func (a Amount) Float64() float64 {
	f, _ := new(big.Float).SetInt(a.v.ToBig()).Float64()
	return f
}
