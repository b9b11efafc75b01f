package domain

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// ToBaseUnits converts a display amount (e.g. "101.25") into the smallest
// denomination of an asset with the given number of decimals. It rejects
// negative values, values with more precision than the asset supports and
// values that do not fit in 256 bits.
func ToBaseUnits(amount decimal.Decimal, decimals int32) (*uint256.Int, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("amount must not be negative")
	}
	shifted := amount.Shift(decimals)
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("amount must have at most %d decimal places", decimals)
	}
	v, overflow := uint256.FromBig(shifted.BigInt())
	if overflow {
		return nil, fmt.Errorf("amount out of range")
	}
	return v, nil
}

// FromBaseUnits converts a base-unit amount back to its display value.
func FromBaseUnits(v *uint256.Int, decimals int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v.ToBig(), -decimals)
}

// ParseAmount parses a base-unit amount given as a decimal string.
func ParseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("amount must be an unsigned integer: %w", err)
	}
	return v, nil
}

// cloneAmount returns a copy of v, treating nil as zero.
func cloneAmount(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v.Clone()
}
