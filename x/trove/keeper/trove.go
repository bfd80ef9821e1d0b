package keeper

import (
	"fmt"
	"strconv"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/cdp-chain/x/trove/types"
)

// atomically runs fn against a cached branch of ctx and commits it only when fn succeeds.
// Ledger movements made through ctx roll back with it.
func atomically(ctx sdk.Context, fn func(ctx sdk.Context) error) error {
	cacheCtx, write := ctx.CacheContext()
	if err := fn(cacheCtx); err != nil {
		return err
	}
	write()
	return nil
}

// OpenTrove creates a trove for caller, locking collateral and minting debt
func (k *Keeper) OpenTrove(ctx sdk.Context, caller string, debt, collateral uint64) (*types.Trove, error) {
	var trove *types.Trove
	err := atomically(ctx, func(ctx sdk.Context) error {
		owner, err := sdk.AccAddressFromBech32(caller)
		if err != nil {
			return errors.Wrap(types.ErrInvalidAddress, err.Error())
		}
		if k.GetTrove(ctx, caller) != nil {
			return errors.Wrapf(types.ErrAlreadyInitialized, "owner %s", caller)
		}

		params := k.GetParams(ctx)
		if debt < params.MinDebt {
			return errors.Wrapf(types.ErrInvalidAmount, "debt %d below minimum %d", debt, params.MinDebt)
		}
		if collateral <= params.GasCompensation {
			return errors.Wrapf(types.ErrInvalidAmount, "collateral %d does not exceed gas compensation %d",
				collateral, params.GasCompensation)
		}

		price, err := k.readCollateralPrice(ctx, params)
		if err != nil {
			return err
		}
		if !MeetsMinCollateral(params, price, collateral, debt) {
			ratio, _ := CollateralRatio(params, price, collateral, debt)
			return errors.Wrapf(types.ErrInvalidCollateral, "ratio %s below %s", ratio, params.MinCollateralRatio)
		}

		calc := types.NewFeeCalculator(params)
		fees, err := calc.Fees(debt)
		if err != nil {
			return err
		}
		net, err := calc.NetSentAmount(debt)
		if err != nil {
			return err
		}

		if err := k.transferNative(ctx, owner, k.CustodyAddress(), math.NewIntFromUint64(collateral)); err != nil {
			return err
		}
		if err := k.chargeFees(ctx, params, price, owner, fees); err != nil {
			return err
		}
		if err := k.mintDebt(ctx, params, owner, debt); err != nil {
			return err
		}

		k.clearLiquidatedOwner(ctx, caller)
		trove = types.NewTrove(caller, debt, collateral, fees)
		trove.AmountToClose = calc.AmountToClose(debt)
		k.SetTrove(ctx, trove)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeTroveOpened,
				sdk.NewAttribute(types.AttributeKeyOwner, caller),
				sdk.NewAttribute(types.AttributeKeyDebt, strconv.FormatUint(debt, 10)),
				sdk.NewAttribute(types.AttributeKeyCollateral, strconv.FormatUint(collateral, 10)),
				sdk.NewAttribute(types.AttributeKeyDepositorFee, strconv.FormatUint(fees.DepositorFee, 10)),
				sdk.NewAttribute(types.AttributeKeyTeamFee, strconv.FormatUint(fees.TeamFee, 10)),
				sdk.NewAttribute(types.AttributeKeyNetAmount, strconv.FormatUint(net, 10)),
			),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	k.Logger().Info("trove opened",
		"owner", caller,
		"debt", debt,
		"collateral", collateral,
		"depositor_fee", trove.DepositorFee,
		"team_fee", trove.TeamFee,
	)
	return trove, nil
}

// IncreaseTrove borrows more debt and/or adds collateral. The whole resulting
// position is checked against the minimum ratio, not just the increment.
func (k *Keeper) IncreaseTrove(ctx sdk.Context, caller, troveID string, debt, collateral uint64) (*types.Trove, error) {
	var trove *types.Trove
	err := atomically(ctx, func(ctx sdk.Context) error {
		var err error
		trove, err = k.loadOwnedTrove(ctx, caller, troveID)
		if err != nil {
			return err
		}
		if debt == 0 && collateral == 0 {
			return errors.Wrap(types.ErrInvalidAmount, "nothing to increase")
		}
		owner := sdk.MustAccAddressFromBech32(trove.Owner)
		params := k.GetParams(ctx)

		newCollateral, err := types.SafeAdd(trove.CollateralAmount, collateral)
		if err != nil {
			return err
		}
		newBorrow, err := types.SafeAdd(trove.BorrowAmount, debt)
		if err != nil {
			return err
		}
		newToClose, err := types.SafeAdd(trove.AmountToClose, debt)
		if err != nil {
			return err
		}

		var fees types.FeeBreakdown
		if debt > 0 {
			if fees, err = types.NewFeeCalculator(params).Fees(debt); err != nil {
				return err
			}
		}
		newDepositorFee, err := types.SafeAdd(trove.DepositorFee, fees.DepositorFee)
		if err != nil {
			return err
		}
		newTeamFee, err := types.SafeAdd(trove.TeamFee, fees.TeamFee)
		if err != nil {
			return err
		}

		price, err := k.readCollateralPrice(ctx, params)
		if err != nil {
			return err
		}
		if !MeetsMinCollateral(params, price, newCollateral, newBorrow) {
			ratio, _ := CollateralRatio(params, price, newCollateral, newBorrow)
			return errors.Wrapf(types.ErrBorrowTooLarge, "ratio %s below %s", ratio, params.MinCollateralRatio)
		}

		if err := k.transferNative(ctx, owner, k.CustodyAddress(), math.NewIntFromUint64(collateral)); err != nil {
			return err
		}
		if debt > 0 {
			if err := k.chargeFees(ctx, params, price, owner, fees); err != nil {
				return err
			}
			if err := k.mintDebt(ctx, params, owner, debt); err != nil {
				return err
			}
		}

		trove.CollateralAmount = newCollateral
		trove.BorrowAmount = newBorrow
		trove.AmountToClose = newToClose
		trove.DepositorFee = newDepositorFee
		trove.TeamFee = newTeamFee
		k.SetTrove(ctx, trove)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeTroveIncreased,
				sdk.NewAttribute(types.AttributeKeyOwner, trove.Owner),
				sdk.NewAttribute(types.AttributeKeyDebt, strconv.FormatUint(debt, 10)),
				sdk.NewAttribute(types.AttributeKeyCollateral, strconv.FormatUint(collateral, 10)),
				sdk.NewAttribute(types.AttributeKeyToClose, strconv.FormatUint(newToClose, 10)),
			),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trove, nil
}

// AddCollateral tops up a trove's collateral
func (k *Keeper) AddCollateral(ctx sdk.Context, caller, troveID string, amount uint64) (*types.Trove, error) {
	var trove *types.Trove
	err := atomically(ctx, func(ctx sdk.Context) error {
		var err error
		trove, err = k.loadOwnedTrove(ctx, caller, troveID)
		if err != nil {
			return err
		}
		if amount == 0 {
			return errors.Wrap(types.ErrInvalidAmount, "amount must be positive")
		}
		newCollateral, err := types.SafeAdd(trove.CollateralAmount, amount)
		if err != nil {
			return err
		}
		owner := sdk.MustAccAddressFromBech32(trove.Owner)
		if err := k.transferNative(ctx, owner, k.CustodyAddress(), math.NewIntFromUint64(amount)); err != nil {
			return err
		}
		trove.CollateralAmount = newCollateral
		k.SetTrove(ctx, trove)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeCollateralAdded,
				sdk.NewAttribute(types.AttributeKeyOwner, trove.Owner),
				sdk.NewAttribute(types.AttributeKeyAmount, strconv.FormatUint(amount, 10)),
			),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trove, nil
}

// Repay burns debt tokens from the owner against the outstanding debt.
// Collateral is not released.
func (k *Keeper) Repay(ctx sdk.Context, caller, troveID string, amount uint64) (*types.Trove, error) {
	var trove *types.Trove
	err := atomically(ctx, func(ctx sdk.Context) error {
		var err error
		trove, err = k.loadOwnedTrove(ctx, caller, troveID)
		if err != nil {
			return err
		}
		if amount == 0 {
			return errors.Wrap(types.ErrInvalidAmount, "amount must be positive")
		}
		remaining, err := types.SafeSub(trove.AmountToClose, amount)
		if err != nil {
			return err
		}
		params := k.GetParams(ctx)
		if err := k.burnDebt(ctx, params, sdk.MustAccAddressFromBech32(trove.Owner), amount); err != nil {
			return err
		}
		trove.AmountToClose = remaining
		k.SetTrove(ctx, trove)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeTroveRepaid,
				sdk.NewAttribute(types.AttributeKeyOwner, trove.Owner),
				sdk.NewAttribute(types.AttributeKeyAmount, strconv.FormatUint(amount, 10)),
				sdk.NewAttribute(types.AttributeKeyToClose, strconv.FormatUint(remaining, 10)),
			),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trove, nil
}

// WithdrawCollateral releases collateral to the owner if the remaining
// collateral still backs the borrowed amount at the minimum ratio
func (k *Keeper) WithdrawCollateral(ctx sdk.Context, caller, troveID string, amount uint64) (*types.Trove, error) {
	var trove *types.Trove
	err := atomically(ctx, func(ctx sdk.Context) error {
		var err error
		trove, err = k.loadOwnedTrove(ctx, caller, troveID)
		if err != nil {
			return err
		}
		if amount == 0 {
			return errors.Wrap(types.ErrInvalidAmount, "amount must be positive")
		}
		remaining, err := types.SafeSub(trove.CollateralAmount, amount)
		if err != nil {
			return err
		}

		params := k.GetParams(ctx)
		price, err := k.readCollateralPrice(ctx, params)
		if err != nil {
			return err
		}
		if !MeetsMinCollateral(params, price, remaining, trove.BorrowAmount) {
			ratio, _ := CollateralRatio(params, price, remaining, trove.BorrowAmount)
			return errors.Wrapf(types.ErrInvalidCollateral, "ratio after withdrawal %s below %s",
				ratio, params.MinCollateralRatio)
		}

		owner := sdk.MustAccAddressFromBech32(trove.Owner)
		if err := k.transferNative(ctx, k.CustodyAddress(), owner, math.NewIntFromUint64(amount)); err != nil {
			return err
		}
		trove.CollateralAmount = remaining
		k.SetTrove(ctx, trove)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeCollateralWithdraw,
				sdk.NewAttribute(types.AttributeKeyOwner, trove.Owner),
				sdk.NewAttribute(types.AttributeKeyAmount, strconv.FormatUint(amount, 10)),
			),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trove, nil
}

// Redeem releases collateral from a trove on the admin's authority.
// Unlike WithdrawCollateral, the ratio is not re-checked.
func (k *Keeper) Redeem(ctx sdk.Context, caller, troveID string, amount uint64, recipient string) (*types.Trove, error) {
	var trove *types.Trove
	err := atomically(ctx, func(ctx sdk.Context) error {
		if caller != k.registry.AdminAuthority(ctx) {
			return errors.Wrapf(types.ErrUnauthorized, "%s cannot redeem", caller)
		}
		var err error
		trove, err = k.loadTrove(ctx, troveID)
		if err != nil {
			return err
		}
		if amount == 0 {
			return errors.Wrap(types.ErrInvalidAmount, "amount must be positive")
		}
		remaining, err := types.SafeSub(trove.CollateralAmount, amount)
		if err != nil {
			return err
		}
		if recipient == "" {
			recipient = caller
		}
		to, err := sdk.AccAddressFromBech32(recipient)
		if err != nil {
			return errors.Wrap(types.ErrInvalidAddress, err.Error())
		}
		if err := k.transferNative(ctx, k.CustodyAddress(), to, math.NewIntFromUint64(amount)); err != nil {
			return err
		}
		trove.CollateralAmount = remaining
		k.SetTrove(ctx, trove)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeTroveRedeemed,
				sdk.NewAttribute(types.AttributeKeyOwner, trove.Owner),
				sdk.NewAttribute(types.AttributeKeyAmount, strconv.FormatUint(amount, 10)),
				sdk.NewAttribute(types.AttributeKeyRecipient, recipient),
			),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trove, nil
}

// CloseTrove burns whatever debt is outstanding, refunds all collateral and deletes
// the trove. A non-zero expected amount must equal the outstanding debt.
func (k *Keeper) CloseTrove(ctx sdk.Context, caller, troveID string, expected uint64) (burned, refunded uint64, err error) {
	err = atomically(ctx, func(ctx sdk.Context) error {
		trove, err := k.loadOwnedTrove(ctx, caller, troveID)
		if err != nil {
			return err
		}
		if expected != 0 && expected != trove.AmountToClose {
			return errors.Wrapf(types.ErrExpectedAmountMismatch, "expected %d, outstanding %d",
				expected, trove.AmountToClose)
		}
		owner := sdk.MustAccAddressFromBech32(trove.Owner)
		params := k.GetParams(ctx)
		if trove.AmountToClose > 0 {
			if err := k.burnDebt(ctx, params, owner, trove.AmountToClose); err != nil {
				return err
			}
		}
		if err := k.transferNative(ctx, k.CustodyAddress(), owner, math.NewIntFromUint64(trove.CollateralAmount)); err != nil {
			return err
		}
		k.DeleteTrove(ctx, trove.Owner)
		burned, refunded = trove.AmountToClose, trove.CollateralAmount

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeTroveClosed,
				sdk.NewAttribute(types.AttributeKeyOwner, trove.Owner),
				sdk.NewAttribute(types.AttributeKeyDebt, strconv.FormatUint(burned, 10)),
				sdk.NewAttribute(types.AttributeKeyCollateral, strconv.FormatUint(refunded, 10)),
			),
		)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	k.Logger().Info("trove closed", "owner", troveID, "burned", burned, "refunded", refunded)
	return burned, refunded, nil
}

// ReceiveTrove marks a trove as received by the liquidation authority.
// Repeating it before liquidation is harmless.
func (k *Keeper) ReceiveTrove(ctx sdk.Context, caller, troveID string) (*types.Trove, error) {
	var trove *types.Trove
	err := atomically(ctx, func(ctx sdk.Context) error {
		if caller != k.registry.AdminAuthority(ctx) {
			return errors.Wrapf(types.ErrUnauthorized, "%s cannot receive troves", caller)
		}
		var err error
		trove, err = k.loadTrove(ctx, troveID)
		if err != nil {
			return err
		}
		trove.IsReceived = true
		k.SetTrove(ctx, trove)

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeTroveReceived,
				sdk.NewAttribute(types.AttributeKeyOwner, trove.Owner),
				sdk.NewAttribute(types.AttributeKeyLiquidator, caller),
			),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return trove, nil
}

// GetTroveHealth reports the trove's ratio against its outstanding debt at the current price
func (k *Keeper) GetTroveHealth(ctx sdk.Context, troveID string) (*types.TroveHealth, error) {
	trove := k.GetTrove(ctx, troveID)
	if trove == nil {
		return nil, errors.Wrapf(types.ErrNotInitialized, "trove %s", troveID)
	}
	params := k.GetParams(ctx)
	price, err := k.readCollateralPrice(ctx, params)
	if err != nil {
		return nil, err
	}
	ratio, ok := CollateralRatio(params, price, trove.CollateralAmount, trove.AmountToClose)
	return &types.TroveHealth{
		Owner:           trove.Owner,
		CollateralRatio: ratio.String(),
		MinRatio:        params.MinCollateralRatio.String(),
		IsHealthy:       !ok || ratio.GTE(params.MinCollateralRatio),
		Price:           price.Value().String(),
		AmountToClose:   trove.AmountToClose,
		Collateral:      trove.CollateralAmount,
	}, nil
}

// ============ helpers ============

// loadTrove returns the live trove for troveID, rejecting liquidated ones
func (k *Keeper) loadTrove(ctx sdk.Context, troveID string) (*types.Trove, error) {
	trove := k.GetTrove(ctx, troveID)
	if trove == nil {
		if k.IsLiquidatedOwner(ctx, troveID) {
			return nil, errors.Wrapf(types.ErrAlreadyLiquidated, "trove %s", troveID)
		}
		return nil, errors.Wrapf(types.ErrNotInitialized, "trove %s", troveID)
	}
	return trove, nil
}

// loadOwnedTrove is loadTrove plus an ownership check against caller
func (k *Keeper) loadOwnedTrove(ctx sdk.Context, caller, troveID string) (*types.Trove, error) {
	trove, err := k.loadTrove(ctx, troveID)
	if err != nil {
		return nil, err
	}
	if trove.Owner != caller {
		return nil, errors.Wrapf(types.ErrOnlyOwner, "%s does not own trove %s", caller, troveID)
	}
	return trove, nil
}

func (k *Keeper) transferNative(ctx sdk.Context, from, to sdk.AccAddress, amount math.Int) error {
	if amount.IsZero() {
		return nil
	}
	if err := k.nativeLedger.Transfer(ctx, from, to, amount); err != nil {
		return errors.Wrapf(types.ErrInsufficientLiquidity, "transfer %s from %s: %v", amount, from, err)
	}
	return nil
}

// chargeFees moves the native equivalent of both fees from payer to the fee collectors
func (k *Keeper) chargeFees(ctx sdk.Context, params types.Params, price types.PriceReading, payer sdk.AccAddress, fees types.FeeBreakdown) error {
	depositorCollector, err := sdk.AccAddressFromBech32(params.DepositorFeeCollector)
	if err != nil {
		return errors.Wrap(types.ErrInvalidParams, err.Error())
	}
	teamCollector, err := sdk.AccAddressFromBech32(params.TeamFeeCollector)
	if err != nil {
		return errors.Wrap(types.ErrInvalidParams, err.Error())
	}
	if err := k.transferNative(ctx, payer, depositorCollector, FeeInCollateral(params, price, fees.DepositorFee)); err != nil {
		return fmt.Errorf("depositor fee: %w", err)
	}
	if err := k.transferNative(ctx, payer, teamCollector, FeeInCollateral(params, price, fees.TeamFee)); err != nil {
		return fmt.Errorf("team fee: %w", err)
	}
	return nil
}

func (k *Keeper) mintDebt(ctx sdk.Context, params types.Params, to sdk.AccAddress, amount uint64) error {
	if err := k.tokenLedger.Mint(ctx, k.registry.MintAuthority(ctx), to, types.ScaleAmount(amount, params.DebtDecimals)); err != nil {
		return fmt.Errorf("mint debt: %w", err)
	}
	return nil
}

func (k *Keeper) burnDebt(ctx sdk.Context, params types.Params, from sdk.AccAddress, amount uint64) error {
	if err := k.tokenLedger.Burn(ctx, from, types.ScaleAmount(amount, params.DebtDecimals)); err != nil {
		return errors.Wrapf(types.ErrInsufficientLiquidity, "burn %d debt from %s: %v", amount, from, err)
	}
	return nil
}
