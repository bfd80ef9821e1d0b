package types

import (
	"fmt"

	"cosmossdk.io/math"

	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
)

// FeeRateDenominator is the denominator of both fee rates (per-mille)
const FeeRateDenominator uint64 = 1000

// DefaultPriceFeedID is the feed handle read when none is configured
const DefaultPriceFeedID = "NATIVE/USD"

// Params holds the protocol-wide fee schedule and collateral policy
type Params struct {
	DepositorFeeRate   uint64         `json:"depositor_fee_rate"`
	TeamFeeRate        uint64         `json:"team_fee_rate"`
	MinDepositorFee    uint64         `json:"min_depositor_fee"`
	MinTeamFee         uint64         `json:"min_team_fee"`
	MinDebt            uint64         `json:"min_debt"`
	MinCollateralRatio math.LegacyDec `json:"min_collateral_ratio"`
	GasCompensation    uint64         `json:"gas_compensation"`
	DebtDecimals       uint32         `json:"debt_decimals"`
	CollateralDecimals uint32         `json:"collateral_decimals"`
	PriceFeedID        string         `json:"price_feed_id"`
	MaxPriceAge        int64          `json:"max_price_age"` // seconds, 0 disables

	DepositorFeeCollector string `json:"depositor_fee_collector"`
	TeamFeeCollector      string `json:"team_fee_collector"`
	LiquidationTreasury   string `json:"liquidation_treasury"` // empty: pay the liquidator
}

// DefaultParams returns the canonical schedule
func DefaultParams() Params {
	return Params{
		DepositorFeeRate:      100, // 10.0%
		TeamFeeRate:           47,  // 4.7%
		MinDepositorFee:       20,
		MinTeamFee:            5,
		MinDebt:               100,
		MinCollateralRatio:    math.LegacyNewDecWithPrec(110, 2), // 110%
		GasCompensation:       0,
		DebtDecimals:          6,
		CollateralDecimals:    9,
		PriceFeedID:           DefaultPriceFeedID,
		MaxPriceAge:           0,
		DepositorFeeCollector: authtypes.NewModuleAddress(StabilityPoolModuleName).String(),
		TeamFeeCollector:      authtypes.NewModuleAddress(TeamFeeCollectorName).String(),
	}
}

// Validate checks the params for internal consistency
func (p Params) Validate() error {
	if p.DepositorFeeRate > FeeRateDenominator {
		return fmt.Errorf("%w: depositor fee rate %d exceeds %d", ErrInvalidParams, p.DepositorFeeRate, FeeRateDenominator)
	}
	if p.TeamFeeRate > FeeRateDenominator {
		return fmt.Errorf("%w: team fee rate %d exceeds %d", ErrInvalidParams, p.TeamFeeRate, FeeRateDenominator)
	}
	if p.MinDebt == 0 {
		return fmt.Errorf("%w: min debt must be positive", ErrInvalidParams)
	}
	if p.MinCollateralRatio.IsNil() || !p.MinCollateralRatio.IsPositive() {
		return fmt.Errorf("%w: min collateral ratio must be positive", ErrInvalidParams)
	}
	if p.DebtDecimals > 18 || p.CollateralDecimals > 18 {
		return fmt.Errorf("%w: decimals above 18", ErrInvalidParams)
	}
	if p.PriceFeedID == "" {
		return fmt.Errorf("%w: empty price feed id", ErrInvalidParams)
	}
	if p.MaxPriceAge < 0 {
		return fmt.Errorf("%w: negative max price age", ErrInvalidParams)
	}
	for name, addr := range map[string]string{
		"depositor fee collector": p.DepositorFeeCollector,
		"team fee collector":      p.TeamFeeCollector,
	} {
		if _, err := sdk.AccAddressFromBech32(addr); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidParams, name, err)
		}
	}
	if p.LiquidationTreasury != "" {
		if _, err := sdk.AccAddressFromBech32(p.LiquidationTreasury); err != nil {
			return fmt.Errorf("%w: liquidation treasury: %v", ErrInvalidParams, err)
		}
	}
	return nil
}
