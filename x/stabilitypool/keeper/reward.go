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

// GrantReward credits rewards to a depositor's entry. Only the admin authority may grant.
func (k *Keeper) GrantReward(ctx context.Context, caller, depositor string, coin, governance, token uint64) (*types.Entry, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	var entry *types.Entry
	err := atomically(sdkCtx, func(ctx sdk.Context) error {
		if caller != k.registry.AdminAuthority(ctx) {
			return errors.Wrapf(types.ErrUnauthorized, "%s cannot grant rewards", caller)
		}
		entry = k.GetEntry(ctx, depositor)
		if entry == nil {
			return errors.Wrapf(types.ErrEntryNotFound, "depositor %s", depositor)
		}

		coinTotal, err := trovetypes.SafeAdd(entry.RewardCoinAmount, coin)
		if err != nil {
			return err
		}
		govTotal, err := trovetypes.SafeAdd(entry.RewardGovernanceTokenAmount, governance)
		if err != nil {
			return err
		}
		tokenTotal, err := trovetypes.SafeAdd(entry.RewardTokenAmount, token)
		if err != nil {
			return err
		}

		entry.RewardCoinAmount = coinTotal
		entry.RewardGovernanceTokenAmount = govTotal
		entry.RewardTokenAmount = tokenTotal
		k.SetEntry(ctx, entry)
		k.updatePoolState(ctx, func(state *types.PoolState) {
			state.TotalCoinRewards = state.TotalCoinRewards.Add(math.NewIntFromUint64(coin))
			state.TotalGovRewards = state.TotalGovRewards.Add(math.NewIntFromUint64(governance))
			state.TotalTokenRewards = state.TotalTokenRewards.Add(math.NewIntFromUint64(token))
		})

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeGrantReward,
				sdk.NewAttribute(types.AttributeKeyOwner, depositor),
				sdk.NewAttribute(types.AttributeKeyCoinReward, strconv.FormatUint(coin, 10)),
				sdk.NewAttribute(types.AttributeKeyGovernanceReward, strconv.FormatUint(governance, 10)),
				sdk.NewAttribute(types.AttributeKeyTokenReward, strconv.FormatUint(token, 10)),
			),
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// ClaimReward pays out every accrued reward and zeroes the accumulators.
// Debt-token and governance rewards are minted to the linked accounts; the coin
// reward is paid in native currency from the pool account. Claiming with nothing
// accrued succeeds and pays nothing.
func (k *Keeper) ClaimReward(ctx context.Context, depositor string) (types.ClaimResult, error) {
	sdkCtx := sdk.UnwrapSDKContext(ctx)

	var result types.ClaimResult
	err := atomically(sdkCtx, func(ctx sdk.Context) error {
		entry := k.GetEntry(ctx, depositor)
		if entry == nil {
			return errors.Wrapf(types.ErrEntryNotFound, "depositor %s", depositor)
		}
		result = types.ClaimResult{
			TokenReward:      entry.RewardTokenAmount,
			GovernanceReward: entry.RewardGovernanceTokenAmount,
			CoinReward:       entry.RewardCoinAmount,
		}

		params := k.GetParams(ctx)
		minter := k.registry.MintAuthority(ctx)
		if result.TokenReward > 0 {
			to, err := sdk.AccAddressFromBech32(entry.TokenAccount)
			if err != nil {
				return errors.Wrap(types.ErrInvalidAddress, err.Error())
			}
			if err := k.debtLedger.Mint(ctx, minter, to, k.debtUnits(ctx, result.TokenReward)); err != nil {
				return err
			}
		}
		if result.GovernanceReward > 0 {
			to, err := sdk.AccAddressFromBech32(entry.GovernanceAccount)
			if err != nil {
				return errors.Wrap(types.ErrInvalidAddress, err.Error())
			}
			if err := k.governanceLedger.Mint(ctx, minter, to, trovetypes.ScaleAmount(result.GovernanceReward, params.GovernanceDecimals)); err != nil {
				return err
			}
		}
		if result.CoinReward > 0 {
			to, err := sdk.AccAddressFromBech32(entry.Owner)
			if err != nil {
				return errors.Wrap(types.ErrInvalidAddress, err.Error())
			}
			if err := k.nativeLedger.Transfer(ctx, k.PoolAddress(), to, math.NewIntFromUint64(result.CoinReward)); err != nil {
				return errors.Wrapf(types.ErrInsufficientLiquidity, "pool cannot pay %d native: %v", result.CoinReward, err)
			}
		}

		entry.RewardTokenAmount = 0
		entry.RewardGovernanceTokenAmount = 0
		entry.RewardCoinAmount = 0
		k.SetEntry(ctx, entry)

		claimed := math.NewIntFromUint64(result.TokenReward).
			Add(math.NewIntFromUint64(result.GovernanceReward)).
			Add(math.NewIntFromUint64(result.CoinReward))
		k.updatePoolState(ctx, func(state *types.PoolState) {
			state.TotalRewardsClaimed = state.TotalRewardsClaimed.Add(claimed)
		})

		ctx.EventManager().EmitEvent(
			sdk.NewEvent(
				types.EventTypeClaimReward,
				sdk.NewAttribute(types.AttributeKeyOwner, depositor),
				sdk.NewAttribute(types.AttributeKeyTokenReward, strconv.FormatUint(result.TokenReward, 10)),
				sdk.NewAttribute(types.AttributeKeyGovernanceReward, strconv.FormatUint(result.GovernanceReward, 10)),
				sdk.NewAttribute(types.AttributeKeyCoinReward, strconv.FormatUint(result.CoinReward, 10)),
			),
		)
		return nil
	})
	if err != nil {
		return types.ClaimResult{}, err
	}
	return result, nil
}
