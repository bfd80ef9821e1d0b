package keeper

import (
	"testing"

	"cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/cdp-chain/x/trove/types"
)

func TestOpenTrove_AtThreshold(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)

	trove := f.open(t, 100, 100)

	calc := types.NewFeeCalculator(f.keeper.GetParams(f.ctx))
	depositorFee, err := calc.DepositorFee(100)
	require.NoError(t, err)
	teamFee, err := calc.TeamFee(100)
	require.NoError(t, err)

	require.Equal(t, testBorrower, trove.Owner)
	require.True(t, trove.IsInitialized)
	require.Equal(t, uint64(100), trove.AmountToClose)
	require.Equal(t, uint64(100), trove.BorrowAmount)
	require.Equal(t, uint64(100), trove.CollateralAmount)
	require.Equal(t, depositorFee, trove.DepositorFee)
	require.Equal(t, teamFee, trove.TeamFee)

	stored := f.keeper.GetTrove(f.ctx, testBorrower)
	require.Equal(t, trove, stored)

	// 100 debt units minted at 6 decimals
	require.Equal(t, math.NewInt(100_000_000), f.debtBalance(testBorrower))
	require.Equal(t, int64(100), f.custodyBalance())

	// fees 20 and 5 debt units at price 1.1 cost 19 and 5 native (rounded up)
	params := f.keeper.GetParams(f.ctx)
	require.Equal(t, int64(19), f.nativeBalance(params.DepositorFeeCollector))
	require.Equal(t, int64(5), f.nativeBalance(params.TeamFeeCollector))
	require.Equal(t, int64(1_000-100-19-5), f.nativeBalance(testBorrower))
}

func TestOpenTrove_RatioGate(t *testing.T) {
	tests := []struct {
		name       string
		price      int64
		expo       int32
		debt       uint64
		collateral uint64
		wantErr    error
	}{
		{"just below threshold", 109, -2, 100, 100, types.ErrInvalidCollateral},
		{"well below threshold", 5, -1, 100, 100, types.ErrInvalidCollateral},
		{"exactly at threshold", 11, -1, 100, 100, nil},
		{"over collateralized", 2, 0, 150, 100, nil},
		{"large debt under collateralized", 11, -1, 1_000, 1_000 - 1, types.ErrInvalidCollateral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupKeeper(t)
			f.fund(testBorrower, 10_000)
			f.setPrice(t, tt.price, tt.expo)

			_, err := f.keeper.OpenTrove(f.ctx, testBorrower, tt.debt, tt.collateral)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, f.keeper.GetTrove(f.ctx, testBorrower))
				require.Equal(t, int64(10_000), f.nativeBalance(testBorrower))
				require.True(t, f.debtBalance(testBorrower).IsZero())
				return
			}
			require.NoError(t, err)
			require.NotNil(t, f.keeper.GetTrove(f.ctx, testBorrower))
		})
	}
}

func TestOpenTrove_Rejections(t *testing.T) {
	t.Run("already initialized", func(t *testing.T) {
		f := setupKeeper(t)
		f.fund(testBorrower, 1_000)
		f.open(t, 100, 200)
		_, err := f.keeper.OpenTrove(f.ctx, testBorrower, 100, 200)
		require.ErrorIs(t, err, types.ErrAlreadyInitialized)
	})

	t.Run("debt below minimum", func(t *testing.T) {
		f := setupKeeper(t)
		f.fund(testBorrower, 1_000)
		_, err := f.keeper.OpenTrove(f.ctx, testBorrower, 99, 500)
		require.ErrorIs(t, err, types.ErrInvalidAmount)
	})

	t.Run("collateral not above gas compensation", func(t *testing.T) {
		f := setupKeeper(t)
		f.fund(testBorrower, 1_000)
		params := f.keeper.GetParams(f.ctx)
		params.GasCompensation = 50
		require.NoError(t, f.keeper.SetParams(f.ctx, params))

		_, err := f.keeper.OpenTrove(f.ctx, testBorrower, 100, 50)
		require.ErrorIs(t, err, types.ErrInvalidAmount)

		// gas compensation is excluded from the ratio: (149 - 50) × 1.1 / 100 < 110%
		_, err = f.keeper.OpenTrove(f.ctx, testBorrower, 100, 149)
		require.ErrorIs(t, err, types.ErrInvalidCollateral)
		_, err = f.keeper.OpenTrove(f.ctx, testBorrower, 100, 150)
		require.NoError(t, err)
	})

	t.Run("no price feed", func(t *testing.T) {
		f := setupKeeper(t)
		f.fund(testBorrower, 1_000)
		params := f.keeper.GetParams(f.ctx)
		params.PriceFeedID = "MISSING/USD"
		require.NoError(t, f.keeper.SetParams(f.ctx, params))

		_, err := f.keeper.OpenTrove(f.ctx, testBorrower, 100, 200)
		require.ErrorIs(t, err, types.ErrOracleUnavailable)
	})

	t.Run("invalid owner address", func(t *testing.T) {
		f := setupKeeper(t)
		_, err := f.keeper.OpenTrove(f.ctx, "not-an-address", 100, 200)
		require.ErrorIs(t, err, types.ErrInvalidAddress)
	})
}

func TestOpenTrove_RollsBackOnLedgerFailure(t *testing.T) {
	f := setupKeeper(t)
	// enough for collateral and the depositor fee, short of the team fee
	f.fund(testBorrower, 100+19+4)

	_, err := f.keeper.OpenTrove(f.ctx, testBorrower, 100, 100)
	require.ErrorIs(t, err, types.ErrInsufficientLiquidity)

	params := f.keeper.GetParams(f.ctx)
	require.Nil(t, f.keeper.GetTrove(f.ctx, testBorrower))
	require.Equal(t, int64(123), f.nativeBalance(testBorrower))
	require.Equal(t, int64(0), f.custodyBalance())
	require.Equal(t, int64(0), f.nativeBalance(params.DepositorFeeCollector))
	require.True(t, f.debtBalance(testBorrower).IsZero())
}

func TestOpenTrove_WrongMintAuthority(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	f.keeper.registry = types.NewStaticRegistry(testAdmin, "someone-else")

	_, err := f.keeper.OpenTrove(f.ctx, testBorrower, 100, 200)
	require.Error(t, err)
	require.Nil(t, f.keeper.GetTrove(f.ctx, testBorrower))
	require.Equal(t, int64(1_000), f.nativeBalance(testBorrower))
}

func TestIncreaseTrove(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	f.open(t, 100, 100)

	trove, err := f.keeper.IncreaseTrove(f.ctx, testBorrower, testBorrower, 50, 60)
	require.NoError(t, err)
	require.Equal(t, uint64(160), trove.CollateralAmount)
	require.Equal(t, uint64(150), trove.BorrowAmount)
	require.Equal(t, uint64(150), trove.AmountToClose)
	// fees on 50 hit both floors: 20 and 5
	require.Equal(t, uint64(40), trove.DepositorFee)
	require.Equal(t, uint64(10), trove.TeamFee)
	require.Equal(t, math.NewInt(150_000_000), f.debtBalance(testBorrower))
	require.Equal(t, int64(160), f.custodyBalance())

	// 160 × 1.1 / 250 is below 110%
	_, err = f.keeper.IncreaseTrove(f.ctx, testBorrower, testBorrower, 100, 0)
	require.ErrorIs(t, err, types.ErrBorrowTooLarge)
	require.Equal(t, uint64(150), f.keeper.GetTrove(f.ctx, testBorrower).AmountToClose)

	// collateral-only increase needs no fees
	trove, err = f.keeper.IncreaseTrove(f.ctx, testBorrower, testBorrower, 0, 40)
	require.NoError(t, err)
	require.Equal(t, uint64(200), trove.CollateralAmount)
	require.Equal(t, uint64(40), trove.DepositorFee)

	_, err = f.keeper.IncreaseTrove(f.ctx, testOther, testBorrower, 10, 10)
	require.ErrorIs(t, err, types.ErrOnlyOwner)

	_, err = f.keeper.IncreaseTrove(f.ctx, testOther, testOther, 10, 10)
	require.ErrorIs(t, err, types.ErrNotInitialized)
}

func TestIncreaseTrove_Overflow(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	trove := f.open(t, 100, 200)

	trove.BorrowAmount = ^uint64(0) - 10
	f.keeper.SetTrove(f.ctx, trove)

	_, err := f.keeper.IncreaseTrove(f.ctx, testBorrower, testBorrower, 100, 0)
	require.ErrorIs(t, err, types.ErrMathOverflow)
}

func TestAddCollateral(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	f.open(t, 100, 100)

	trove, err := f.keeper.AddCollateral(f.ctx, testBorrower, testBorrower, 25)
	require.NoError(t, err)
	require.Equal(t, uint64(125), trove.CollateralAmount)
	require.Equal(t, int64(125), f.custodyBalance())

	_, err = f.keeper.AddCollateral(f.ctx, testBorrower, testBorrower, 0)
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = f.keeper.AddCollateral(f.ctx, testBorrower, testBorrower, 10_000)
	require.ErrorIs(t, err, types.ErrInsufficientLiquidity)
	require.Equal(t, uint64(125), f.keeper.GetTrove(f.ctx, testBorrower).CollateralAmount)
}

func TestRepay(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	f.open(t, 100, 100)

	trove, err := f.keeper.Repay(f.ctx, testBorrower, testBorrower, 40)
	require.NoError(t, err)
	require.Equal(t, uint64(60), trove.AmountToClose)
	require.Equal(t, uint64(100), trove.BorrowAmount)
	require.Equal(t, uint64(100), trove.CollateralAmount)
	require.Equal(t, math.NewInt(60_000_000), f.debtBalance(testBorrower))

	_, err = f.keeper.Repay(f.ctx, testBorrower, testBorrower, 61)
	require.ErrorIs(t, err, types.ErrMathOverflow)
	require.Equal(t, uint64(60), f.keeper.GetTrove(f.ctx, testBorrower).AmountToClose)
	require.Equal(t, math.NewInt(60_000_000), f.debtBalance(testBorrower))

	_, err = f.keeper.Repay(f.ctx, testOther, testBorrower, 1)
	require.ErrorIs(t, err, types.ErrOnlyOwner)
}

func TestRepay_BurnFailureKeepsDebt(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	f.open(t, 100, 100)

	// move most debt tokens away so the burn cannot be covered
	err := f.debt.Transfer(f.ctx, sdk.MustAccAddressFromBech32(testBorrower),
		sdk.MustAccAddressFromBech32(testOther), math.NewInt(90_000_000))
	require.NoError(t, err)

	_, err = f.keeper.Repay(f.ctx, testBorrower, testBorrower, 50)
	require.ErrorIs(t, err, types.ErrInsufficientLiquidity)
	require.Equal(t, uint64(100), f.keeper.GetTrove(f.ctx, testBorrower).AmountToClose)
}

func TestWithdrawCollateral(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	f.open(t, 100, 200)
	before := f.nativeBalance(testBorrower)

	trove, err := f.keeper.WithdrawCollateral(f.ctx, testBorrower, testBorrower, 90)
	require.NoError(t, err)
	require.Equal(t, uint64(110), trove.CollateralAmount)
	require.Equal(t, before+90, f.nativeBalance(testBorrower))

	// down to exactly 110%
	_, err = f.keeper.WithdrawCollateral(f.ctx, testBorrower, testBorrower, 10)
	require.NoError(t, err)

	_, err = f.keeper.WithdrawCollateral(f.ctx, testBorrower, testBorrower, 1)
	require.ErrorIs(t, err, types.ErrInvalidCollateral)
	require.Equal(t, uint64(100), f.keeper.GetTrove(f.ctx, testBorrower).CollateralAmount)

	_, err = f.keeper.WithdrawCollateral(f.ctx, testBorrower, testBorrower, 101)
	require.ErrorIs(t, err, types.ErrMathOverflow)

	_, err = f.keeper.WithdrawCollateral(f.ctx, testOther, testBorrower, 1)
	require.ErrorIs(t, err, types.ErrOnlyOwner)
}

func TestWithdrawCollateral_ChecksAgainstBorrowAmount(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	f.open(t, 100, 110)

	// repaying lowers the amount to close but not the borrow amount
	_, err := f.keeper.Repay(f.ctx, testBorrower, testBorrower, 50)
	require.NoError(t, err)

	_, err = f.keeper.WithdrawCollateral(f.ctx, testBorrower, testBorrower, 20)
	require.ErrorIs(t, err, types.ErrInvalidCollateral)
}

func TestRedeem(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	f.open(t, 100, 100)

	_, err := f.keeper.Redeem(f.ctx, testBorrower, testBorrower, 10, "")
	require.ErrorIs(t, err, types.ErrUnauthorized)

	// no ratio check on the admin path
	trove, err := f.keeper.Redeem(f.ctx, testAdmin, testBorrower, 30, testTreasury)
	require.NoError(t, err)
	require.Equal(t, uint64(70), trove.CollateralAmount)
	require.Equal(t, int64(30), f.nativeBalance(testTreasury))
	require.Equal(t, int64(70), f.custodyBalance())

	_, err = f.keeper.Redeem(f.ctx, testAdmin, testBorrower, 5, "")
	require.NoError(t, err)
	require.Equal(t, int64(5), f.nativeBalance(testAdmin))

	_, err = f.keeper.Redeem(f.ctx, testAdmin, testBorrower, 66, "")
	require.ErrorIs(t, err, types.ErrMathOverflow)
	require.Equal(t, uint64(65), f.keeper.GetTrove(f.ctx, testBorrower).CollateralAmount)
}

func TestCloseTrove(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	f.open(t, 100, 100)
	before := f.nativeBalance(testBorrower)

	burned, refunded, err := f.keeper.CloseTrove(f.ctx, testBorrower, testBorrower, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(100), burned)
	require.Equal(t, uint64(100), refunded)

	require.Nil(t, f.keeper.GetTrove(f.ctx, testBorrower))
	require.True(t, f.debtBalance(testBorrower).IsZero())
	require.Equal(t, before+100, f.nativeBalance(testBorrower))
	require.Equal(t, int64(0), f.custodyBalance())

	_, _, err = f.keeper.CloseTrove(f.ctx, testBorrower, testBorrower, 0)
	require.ErrorIs(t, err, types.ErrNotInitialized)
}

func TestCloseTrove_AfterPartialRepay(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	f.open(t, 100, 150)

	_, err := f.keeper.Repay(f.ctx, testBorrower, testBorrower, 30)
	require.NoError(t, err)

	_, _, err = f.keeper.CloseTrove(f.ctx, testBorrower, testBorrower, 100)
	require.ErrorIs(t, err, types.ErrExpectedAmountMismatch)
	require.NotNil(t, f.keeper.GetTrove(f.ctx, testBorrower))

	burned, refunded, err := f.keeper.CloseTrove(f.ctx, testBorrower, testBorrower, 70)
	require.NoError(t, err)
	require.Equal(t, uint64(70), burned)
	require.Equal(t, uint64(150), refunded)
	require.True(t, f.debtBalance(testBorrower).IsZero())
}

func TestCloseTrove_NotEnoughDebtTokens(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	f.open(t, 100, 100)

	err := f.debt.Transfer(f.ctx, sdk.MustAccAddressFromBech32(testBorrower),
		sdk.MustAccAddressFromBech32(testOther), math.NewInt(1))
	require.NoError(t, err)

	_, _, err = f.keeper.CloseTrove(f.ctx, testBorrower, testBorrower, 0)
	require.ErrorIs(t, err, types.ErrInsufficientLiquidity)
	require.NotNil(t, f.keeper.GetTrove(f.ctx, testBorrower))
	require.Equal(t, int64(100), f.custodyBalance())
}

func TestCloseTrove_OnlyOwner(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	f.open(t, 100, 100)

	_, _, err := f.keeper.CloseTrove(f.ctx, testOther, testBorrower, 0)
	require.ErrorIs(t, err, types.ErrOnlyOwner)
}

func TestGetTroveHealth(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	f.open(t, 100, 220)

	health, err := f.keeper.GetTroveHealth(f.ctx, testBorrower)
	require.NoError(t, err)
	require.True(t, health.IsHealthy)
	require.Equal(t, math.LegacyNewDecWithPrec(242, 2).String(), health.CollateralRatio)

	f.setPrice(t, 4, -1)
	health, err = f.keeper.GetTroveHealth(f.ctx, testBorrower)
	require.NoError(t, err)
	require.False(t, health.IsHealthy)

	_, err = f.keeper.GetTroveHealth(f.ctx, testOther)
	require.ErrorIs(t, err, types.ErrNotInitialized)
}

func TestMsgServer_OpenAndClose(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	srv := NewMsgServerImpl(f.keeper)

	_, err := srv.OpenTrove(f.ctx, &types.MsgOpenTrove{Owner: testBorrower, Debt: 0, Collateral: 100})
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	resp, err := srv.OpenTrove(f.ctx, &types.MsgOpenTrove{Owner: testBorrower, Debt: 100, Collateral: 100})
	require.NoError(t, err)
	require.Equal(t, testBorrower, resp.TroveID)
	require.Equal(t, uint64(100), resp.AmountToClose)

	closeResp, err := srv.CloseTrove(f.ctx, &types.MsgCloseTrove{Owner: testBorrower, TroveID: testBorrower})
	require.NoError(t, err)
	require.Equal(t, uint64(100), closeResp.Refunded)
}

func TestOpenTrove_EmitsEvent(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	f.ctx = f.ctx.WithEventManager(sdk.NewEventManager())

	f.open(t, 100, 100)

	var found bool
	for _, ev := range f.ctx.EventManager().Events() {
		if ev.Type == types.EventTypeTroveOpened {
			found = true
			attr, ok := ev.GetAttribute(types.AttributeKeyNetAmount)
			require.True(t, ok)
			require.Equal(t, "75", attr.Value)
		}
	}
	require.True(t, found)
}
