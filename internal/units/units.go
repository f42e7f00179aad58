// Package units converts between smallest-unit token amounts and their
// human-readable whole-token form.
package units

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Format renders v (smallest units) as a whole-token decimal string with
// exactly decimals fractional digits.
func Format(v *uint256.Int, decimals uint8) string {
	if v == nil {
		v = new(uint256.Int)
	}
	return decimal.NewFromBigInt(v.ToBig(), -int32(decimals)).StringFixed(int32(decimals))
}

// Decimal returns v as an integer decimal, for payloads that carry
// smallest units.
func Decimal(v *uint256.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v.ToBig(), 0)
}

// Parse converts a whole-token amount such as "12.5" into smallest units.
// It rejects negative values and values with more fractional digits than
// decimals allows.
func Parse(s string, decimals uint8) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid amount %q", s)
	}
	if d.IsNegative() {
		return nil, errors.Errorf("amount %q must not be negative", s)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, errors.Errorf("amount %q has more than %d decimal places", s, decimals)
	}
	v, overflow := uint256.FromBig(scaled.BigInt())
	if overflow {
		return nil, errors.Errorf("amount %q is too large", s)
	}
	return v, nil
}

// ParseWhole parses a non-negative whole-token integer, as taken by the
// constructor and the cap setters.
func ParseWhole(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid amount %q", s)
	}
	if d.IsNegative() || !d.Equal(d.Truncate(0)) {
		return nil, errors.Errorf("amount %q must be a non-negative whole number", s)
	}
	v, overflow := uint256.FromBig(d.BigInt())
	if overflow {
		return nil, errors.Errorf("amount %q is too large", s)
	}
	return v, nil
}
