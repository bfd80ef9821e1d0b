package keeper

import (
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/cdp-chain/x/trove/types"
)

func TestReadPrice(t *testing.T) {
	f := setupKeeper(t)
	adapter := NewPriceOracleAdapter(f.keeper)

	reading, err := adapter.ReadPrice(f.ctx, types.DefaultPriceFeedID, 0)
	require.NoError(t, err)
	require.Equal(t, int64(11), reading.Price)
	require.Equal(t, int32(-1), reading.Expo)
	require.True(t, reading.Value().Equal(math.LegacyNewDecWithPrec(11, 1)))

	_, err = adapter.ReadPrice(f.ctx, "UNKNOWN", 0)
	require.ErrorIs(t, err, types.ErrOracleUnavailable)
}

func TestReadPrice_Staleness(t *testing.T) {
	f := setupKeeper(t)
	adapter := NewPriceOracleAdapter(f.keeper)

	later := f.ctx.WithBlockTime(f.ctx.BlockTime().Add(10 * time.Minute))

	// the trusting baseline ignores age
	_, err := adapter.ReadPrice(later, types.DefaultPriceFeedID, 0)
	require.NoError(t, err)

	_, err = adapter.ReadPrice(later, types.DefaultPriceFeedID, 60)
	require.ErrorIs(t, err, types.ErrStalePrice)

	_, err = adapter.ReadPrice(later, types.DefaultPriceFeedID, 3600)
	require.NoError(t, err)
}

func TestOpenTrove_StalePriceRejectedWhenBounded(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	params := f.keeper.GetParams(f.ctx)
	params.MaxPriceAge = 30
	require.NoError(t, f.keeper.SetParams(f.ctx, params))

	f.ctx = f.ctx.WithBlockTime(f.ctx.BlockTime().Add(time.Minute))
	_, err := f.keeper.OpenTrove(f.ctx, testBorrower, 100, 200)
	require.ErrorIs(t, err, types.ErrStalePrice)

	f.setPrice(t, 11, -1)
	_, err = f.keeper.OpenTrove(f.ctx, testBorrower, 100, 200)
	require.NoError(t, err)
}

func TestPublishPrice(t *testing.T) {
	f := setupKeeper(t)

	err := f.keeper.PublishPrice(f.ctx, testBorrower, types.DefaultPriceFeedID, 12, -1)
	require.ErrorIs(t, err, types.ErrUnauthorized)

	err = f.keeper.PublishPrice(f.ctx, testAdmin, types.DefaultPriceFeedID, 0, -1)
	require.ErrorIs(t, err, types.ErrInvalidPrice)

	err = f.keeper.PublishPrice(f.ctx, testAdmin, types.DefaultPriceFeedID, -5, 0)
	require.ErrorIs(t, err, types.ErrInvalidPrice)

	err = f.keeper.PublishPrice(f.ctx, testAdmin, types.DefaultPriceFeedID, 1, 40)
	require.ErrorIs(t, err, types.ErrInvalidPrice)

	require.NoError(t, f.keeper.PublishPrice(f.ctx, testAdmin, types.DefaultPriceFeedID, 250, 0))
	feed := f.keeper.GetPriceFeed(f.ctx, types.DefaultPriceFeedID)
	require.Equal(t, int64(250), feed.Price)
	require.Equal(t, testAdmin, feed.Publisher)
	require.Equal(t, f.ctx.BlockTime().Unix(), feed.PublishTime.Unix())
}

func TestCollateralRatioAndFeeConversion(t *testing.T) {
	params := types.DefaultParams() // 9 collateral decimals
	// 150.00000000 per whole unit, Pyth-style 8 decimals
	price := types.PriceReading{Price: 15_000_000_000, Expo: -8}

	// 2 whole units backing 200 debt: 300 / 200 = 1.5
	ratio, ok := CollateralRatio(params, price, 2_000_000_000, 200)
	require.True(t, ok)
	require.True(t, ratio.Equal(math.LegacyNewDecWithPrec(15, 1)), ratio.String())
	require.True(t, MeetsMinCollateral(params, price, 2_000_000_000, 200))
	require.False(t, MeetsMinCollateral(params, price, 1_000_000_000, 200))

	_, ok = CollateralRatio(params, price, 1, 0)
	require.False(t, ok)
	require.True(t, MeetsMinCollateral(params, price, 0, 0))

	// a fee of 3 debt units costs 0.02 whole units
	require.Equal(t, math.NewInt(20_000_000), FeeInCollateral(params, price, 3))
	// 1 / 150 rounds up in base units
	require.Equal(t, math.NewInt(6_666_667), FeeInCollateral(params, price, 1))
	require.True(t, FeeInCollateral(params, price, 0).IsZero())
}
