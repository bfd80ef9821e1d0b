package keeper

import (
	"strconv"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/cdp-chain/x/trove/types"
)

// LiquidationEngine enforces the received → liquidated gate and seizes collateral
type LiquidationEngine struct {
	keeper *Keeper
}

// NewLiquidationEngine creates a new liquidation engine
func NewLiquidationEngine(keeper *Keeper) *LiquidationEngine {
	return &LiquidationEngine{keeper: keeper}
}

// Liquidate seizes all collateral of a received trove and replaces the live
// trove with its liquidated terminal record. There is no partial liquidation.
func (le *LiquidationEngine) Liquidate(ctx sdk.Context, caller, troveID string) (*types.Liquidation, error) {
	k := le.keeper
	var liquidation *types.Liquidation
	err := atomically(ctx, func(ctx sdk.Context) error {
		if caller != k.registry.AdminAuthority(ctx) {
			return errors.Wrapf(types.ErrUnauthorized, "%s is not the liquidation authority", caller)
		}
		trove, err := k.loadTrove(ctx, troveID)
		if err != nil {
			return err
		}
		if !trove.IsReceived {
			return errors.Wrapf(types.ErrNotReceived, "trove %s", troveID)
		}

		recipient := k.GetParams(ctx).LiquidationTreasury
		if recipient == "" {
			recipient = caller
		}
		to, err := sdk.AccAddressFromBech32(recipient)
		if err != nil {
			return errors.Wrap(types.ErrInvalidAddress, err.Error())
		}
		if err := k.transferNative(ctx, k.CustodyAddress(), to, math.NewIntFromUint64(trove.CollateralAmount)); err != nil {
			return err
		}

		liquidation = &types.Liquidation{
			LiquidationID:    k.generateLiquidationID(ctx),
			Owner:            trove.Owner,
			Liquidator:       caller,
			Recipient:        recipient,
			CollateralSeized: trove.CollateralAmount,
			DebtOutstanding:  trove.AmountToClose,
			BlockHeight:      ctx.BlockHeight(),
			Timestamp:        ctx.BlockTime(),
		}
		trove.IsLiquidated = true
		k.DeleteTrove(ctx, trove.Owner)
		k.SetLiquidatedTrove(ctx, trove)
		k.SetLiquidation(ctx, liquidation)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeLiquidation,
				sdk.NewAttribute(types.AttributeKeyLiquidation, liquidation.LiquidationID),
				sdk.NewAttribute(types.AttributeKeyOwner, trove.Owner),
				sdk.NewAttribute(types.AttributeKeyLiquidator, caller),
				sdk.NewAttribute(types.AttributeKeyRecipient, recipient),
				sdk.NewAttribute(types.AttributeKeyCollateral, strconv.FormatUint(trove.CollateralAmount, 10)),
				sdk.NewAttribute(types.AttributeKeyToClose, strconv.FormatUint(trove.AmountToClose, 10)),
			),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	k.Logger().Info("trove liquidated",
		"owner", liquidation.Owner,
		"liquidation_id", liquidation.LiquidationID,
		"collateral", liquidation.CollateralSeized,
		"debt", liquidation.DebtOutstanding,
		"recipient", liquidation.Recipient,
	)
	return liquidation, nil
}

// IsLiquidatable reports whether a trove's outstanding debt is under-collateralized at the current price
func (le *LiquidationEngine) IsLiquidatable(ctx sdk.Context, troveID string) (bool, error) {
	health, err := le.keeper.GetTroveHealth(ctx, troveID)
	if err != nil {
		return false, err
	}
	return !health.IsHealthy, nil
}

// LiquidationStats summarizes executed liquidations
type LiquidationStats struct {
	LiquidationsCount int
	CollateralSeized  math.Int
	DebtWrittenOff    math.Int
}

// GetStats aggregates all stored liquidation records
func (le *LiquidationEngine) GetStats(ctx sdk.Context) LiquidationStats {
	stats := LiquidationStats{
		CollateralSeized: math.ZeroInt(),
		DebtWrittenOff:   math.ZeroInt(),
	}
	for _, l := range le.keeper.GetAllLiquidations(ctx, 0) {
		stats.LiquidationsCount++
		stats.CollateralSeized = stats.CollateralSeized.Add(math.NewIntFromUint64(l.CollateralSeized))
		stats.DebtWrittenOff = stats.DebtWrittenOff.Add(math.NewIntFromUint64(l.DebtOutstanding))
	}
	return stats
}

// RiskReport summarizes the open trove book at the current price
type RiskReport struct {
	OpenTroves      int
	AtRisk          []string
	Received        int
	TotalCollateral math.Int
	TotalToClose    math.Int
	Ratios          []math.LegacyDec
}

// ScanTroves evaluates every open trove against the minimum collateral ratio.
// It only reports; troves are liquidated after an explicit receive.
func (le *LiquidationEngine) ScanTroves(ctx sdk.Context) (RiskReport, error) {
	k := le.keeper
	report := RiskReport{
		TotalCollateral: math.ZeroInt(),
		TotalToClose:    math.ZeroInt(),
	}
	troves := k.GetAllTroves(ctx)
	if len(troves) == 0 {
		return report, nil
	}

	params := k.GetParams(ctx)
	price, err := k.readCollateralPrice(ctx, params)
	if err != nil {
		return report, err
	}
	for _, trove := range troves {
		report.OpenTroves++
		report.TotalCollateral = report.TotalCollateral.Add(math.NewIntFromUint64(trove.CollateralAmount))
		report.TotalToClose = report.TotalToClose.Add(math.NewIntFromUint64(trove.AmountToClose))
		if trove.IsReceived {
			report.Received++
		}
		ratio, ok := CollateralRatio(params, price, trove.CollateralAmount, trove.AmountToClose)
		if !ok {
			continue
		}
		report.Ratios = append(report.Ratios, ratio)
		if ratio.LT(params.MinCollateralRatio) {
			report.AtRisk = append(report.AtRisk, trove.Owner)
		}
	}
	return report, nil
}
