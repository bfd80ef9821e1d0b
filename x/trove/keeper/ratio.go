package keeper

import (
	"cosmossdk.io/math"

	"github.com/openalpha/cdp-chain/x/trove/types"
)

// CollateralRatio = (collateral − gas compensation) × price / debt, with collateral
// converted from base units to whole units. A zero debt has no ratio and reports ok=false.
func CollateralRatio(params types.Params, price types.PriceReading, collateral, debt uint64) (ratio math.LegacyDec, ok bool) {
	if debt == 0 {
		return math.LegacyZeroDec(), false
	}
	if collateral <= params.GasCompensation {
		return math.LegacyZeroDec(), true
	}
	effective := math.LegacyNewDecFromInt(math.NewIntFromUint64(collateral - params.GasCompensation))
	value := effective.Mul(price.Value()).Quo(math.LegacyNewDecFromInt(types.ScaleAmount(1, params.CollateralDecimals)))
	return value.Quo(math.LegacyNewDecFromInt(math.NewIntFromUint64(debt))), true
}

// MeetsMinCollateral reports whether collateral backs debt at or above the minimum ratio
func MeetsMinCollateral(params types.Params, price types.PriceReading, collateral, debt uint64) bool {
	ratio, ok := CollateralRatio(params, price, collateral, debt)
	if !ok {
		return true
	}
	return ratio.GTE(params.MinCollateralRatio)
}

// FeeInCollateral converts a debt-denominated fee to native base units at price, rounding up
func FeeInCollateral(params types.Params, price types.PriceReading, fee uint64) math.Int {
	if fee == 0 {
		return math.ZeroInt()
	}
	scaled := math.LegacyNewDecFromInt(types.ScaleAmount(fee, params.CollateralDecimals))
	return scaled.Quo(price.Value()).Ceil().TruncateInt()
}
