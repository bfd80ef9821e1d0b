package types

import (
	"math/bits"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
)

// SafeAdd returns a + b, failing on uint64 overflow.
func SafeAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, errors.Wrapf(ErrMathOverflow, "%d + %d", a, b)
	}
	return sum, nil
}

// SafeSub returns a - b, failing when b > a.
func SafeSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, errors.Wrapf(ErrMathOverflow, "%d - %d", a, b)
	}
	return diff, nil
}

// SafeMul returns a * b, failing on uint64 overflow.
func SafeMul(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, errors.Wrapf(ErrMathOverflow, "%d * %d", a, b)
	}
	return lo, nil
}

// ScaleAmount converts a whole-unit amount to ledger base units (amount × 10^decimals).
func ScaleAmount(amount uint64, decimals uint32) math.Int {
	return math.NewIntFromUint64(amount).Mul(math.NewIntWithDecimal(1, int(decimals)))
}
