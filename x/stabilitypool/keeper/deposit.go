package keeper

import (
	"context"
	"strconv"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/cdp-chain/x/stabilitypool/types"
	trovetypes "github.com/openalpha/cdp-chain/x/trove/types"
)

// atomically runs fn on a cache branch and commits only on success
func atomically(ctx sdk.Context, fn func(ctx sdk.Context) error) error {
	cacheCtx, write := ctx.CacheContext()
	if err := fn(cacheCtx); err != nil {
		return err
	}
	write()
	return nil
}

// Deposit burns debt tokens from the depositor and credits them to the depositor's entry.
// The first deposit creates the entry and records its linked accounts.
func (k *Keeper) Deposit(ctx context.Context, depositor string, amount uint64, tokenAccount, governanceAccount string) (*types.Entry, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	var entry *types.Entry
	err := atomically(sdkCtx, func(ctx sdk.Context) error {
		owner, err := sdk.AccAddressFromBech32(depositor)
		if err != nil {
			return errors.Wrap(types.ErrInvalidAddress, err.Error())
		}
		if amount == 0 {
			return errors.Wrap(types.ErrInvalidAmount, "amount must be positive")
		}

		entry = k.GetEntry(ctx, depositor)
		isNew := entry == nil
		if isNew {
			for _, acc := range []string{tokenAccount, governanceAccount} {
				if acc == "" {
					continue
				}
				if _, err := sdk.AccAddressFromBech32(acc); err != nil {
					return errors.Wrapf(types.ErrInvalidAddress, "linked account %q: %v", acc, err)
				}
			}
			entry = types.NewEntry(depositor, tokenAccount, governanceAccount)
		}

		balance, err := trovetypes.SafeAdd(entry.TokenAmount, amount)
		if err != nil {
			return err
		}

		if err := k.debtLedger.Burn(ctx, owner, k.debtUnits(ctx, amount)); err != nil {
			return errors.Wrapf(types.ErrInsufficientLiquidity, "burn %d from %s: %v", amount, depositor, err)
		}

		entry.TokenAmount = balance
		k.SetEntry(ctx, entry)
		k.updatePoolState(ctx, func(state *types.PoolState) {
			state.TotalDeposits = state.TotalDeposits.Add(math.NewIntFromUint64(amount))
			if isNew {
				state.Depositors++
			}
		})

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeDeposit,
				sdk.NewAttribute(types.AttributeKeyOwner, depositor),
				sdk.NewAttribute(types.AttributeKeyAmount, strconv.FormatUint(amount, 10)),
				sdk.NewAttribute(types.AttributeKeyBalance, strconv.FormatUint(balance, 10)),
			),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	k.Logger().Info("stability pool deposit",
		"depositor", depositor,
		"amount", amount,
		"balance", entry.TokenAmount,
	)
	return entry, nil
}

// WithdrawDeposit debits the entry and mints the same amount of debt tokens
// back to the entry's token account
func (k *Keeper) WithdrawDeposit(ctx context.Context, depositor string, amount uint64) (*types.Entry, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	var entry *types.Entry
	err := atomically(sdkCtx, func(ctx sdk.Context) error {
		entry = k.GetEntry(ctx, depositor)
		if entry == nil {
			return errors.Wrapf(types.ErrEntryNotFound, "depositor %s", depositor)
		}
		if amount == 0 {
			return errors.Wrap(types.ErrInvalidAmount, "amount must be positive")
		}
		if amount > entry.TokenAmount {
			return errors.Wrapf(types.ErrAttemptToWithdrawTooMuch, "requested %d, deposited %d", amount, entry.TokenAmount)
		}
		balance, err := trovetypes.SafeSub(entry.TokenAmount, amount)
		if err != nil {
			return err
		}

		to, err := sdk.AccAddressFromBech32(entry.TokenAccount)
		if err != nil {
			return errors.Wrap(types.ErrInvalidAddress, err.Error())
		}
		if err := k.debtLedger.Mint(ctx, k.registry.MintAuthority(ctx), to, k.debtUnits(ctx, amount)); err != nil {
			return err
		}

		entry.TokenAmount = balance
		k.SetEntry(ctx, entry)
		k.updatePoolState(ctx, func(state *types.PoolState) {
			state.TotalDeposits = state.TotalDeposits.Sub(math.NewIntFromUint64(amount))
		})

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeWithdraw,
				sdk.NewAttribute(types.AttributeKeyOwner, depositor),
				sdk.NewAttribute(types.AttributeKeyAmount, strconv.FormatUint(amount, 10)),
				sdk.NewAttribute(types.AttributeKeyBalance, strconv.FormatUint(balance, 10)),
			),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// CloseEntry deletes an entry that holds no deposit and no unclaimed rewards
func (k *Keeper) CloseEntry(ctx context.Context, depositor string) error {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	return atomically(sdkCtx, func(ctx sdk.Context) error {
		entry := k.GetEntry(ctx, depositor)
		if entry == nil {
			return errors.Wrapf(types.ErrEntryNotFound, "depositor %s", depositor)
		}
		if !entry.IsEmpty() {
			return errors.Wrapf(types.ErrEntryNotEmpty, "depositor %s", depositor)
		}
		k.DeleteEntry(ctx, depositor)
		k.updatePoolState(ctx, func(state *types.PoolState) {
			if state.Depositors > 0 {
				state.Depositors--
			}
		})

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeEntryClosed,
				sdk.NewAttribute(types.AttributeKeyOwner, depositor),
			),
		)
		return nil
	})
}
