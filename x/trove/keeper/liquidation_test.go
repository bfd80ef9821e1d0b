package keeper

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/cdp-chain/x/trove/types"
)

func TestLiquidate_RequiresReceive(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	f.open(t, 100, 100)
	engine := NewLiquidationEngine(f.keeper)

	_, err := engine.Liquidate(f.ctx, testAdmin, testBorrower)
	require.ErrorIs(t, err, types.ErrNotReceived)
	require.NotNil(t, f.keeper.GetTrove(f.ctx, testBorrower))

	trove, err := f.keeper.ReceiveTrove(f.ctx, testAdmin, testBorrower)
	require.NoError(t, err)
	require.True(t, trove.IsReceived)
	require.Equal(t, types.TroveStatusReceived, trove.Status())

	// receiving twice before liquidation is harmless
	_, err = f.keeper.ReceiveTrove(f.ctx, testAdmin, testBorrower)
	require.NoError(t, err)

	liquidation, err := engine.Liquidate(f.ctx, testAdmin, testBorrower)
	require.NoError(t, err)
	require.Equal(t, "liq-0000000001", liquidation.LiquidationID)
	require.Equal(t, uint64(100), liquidation.CollateralSeized)
	require.Equal(t, uint64(100), liquidation.DebtOutstanding)
	require.Equal(t, testAdmin, liquidation.Recipient)

	require.Nil(t, f.keeper.GetTrove(f.ctx, testBorrower))
	terminal := f.keeper.GetLiquidatedTrove(f.ctx, testBorrower)
	require.NotNil(t, terminal)
	require.True(t, terminal.IsLiquidated)
	require.Equal(t, types.TroveStatusLiquidated, terminal.Status())
	require.Equal(t, int64(100), f.nativeBalance(testAdmin))
	require.Equal(t, int64(0), f.custodyBalance())
	// the borrower keeps the minted debt tokens
	require.Equal(t, math.NewInt(100_000_000), f.debtBalance(testBorrower))

	_, err = engine.Liquidate(f.ctx, testAdmin, testBorrower)
	require.ErrorIs(t, err, types.ErrAlreadyLiquidated)
}

func TestLiquidate_TerminalState(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	f.open(t, 100, 100)
	engine := NewLiquidationEngine(f.keeper)

	_, err := f.keeper.ReceiveTrove(f.ctx, testAdmin, testBorrower)
	require.NoError(t, err)
	_, err = engine.Liquidate(f.ctx, testAdmin, testBorrower)
	require.NoError(t, err)

	_, err = f.keeper.ReceiveTrove(f.ctx, testAdmin, testBorrower)
	require.ErrorIs(t, err, types.ErrAlreadyLiquidated)
	_, _, err = f.keeper.CloseTrove(f.ctx, testBorrower, testBorrower, 0)
	require.ErrorIs(t, err, types.ErrAlreadyLiquidated)
	_, err = f.keeper.Repay(f.ctx, testBorrower, testBorrower, 10)
	require.ErrorIs(t, err, types.ErrAlreadyLiquidated)
	_, err = f.keeper.WithdrawCollateral(f.ctx, testBorrower, testBorrower, 1)
	require.ErrorIs(t, err, types.ErrAlreadyLiquidated)
	require.True(t, f.keeper.IsLiquidatedOwner(f.ctx, testBorrower))

	// a fresh trove clears the terminal record
	f.open(t, 100, 200)
	require.False(t, f.keeper.IsLiquidatedOwner(f.ctx, testBorrower))
	require.Nil(t, f.keeper.GetLiquidatedTrove(f.ctx, testBorrower))
}

func TestLiquidate_GenesisKeepsReopenedOwnerLive(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	f.fund(testOther, 1_000)
	f.open(t, 100, 100)
	_, err := f.keeper.OpenTrove(f.ctx, testOther, 100, 200)
	require.NoError(t, err)
	engine := NewLiquidationEngine(f.keeper)

	for _, owner := range []string{testBorrower, testOther} {
		_, err = f.keeper.ReceiveTrove(f.ctx, testAdmin, owner)
		require.NoError(t, err)
		_, err = engine.Liquidate(f.ctx, testAdmin, owner)
		require.NoError(t, err)
	}
	// the borrower reopens, the other owner stays liquidated
	f.open(t, 100, 300)

	gs := f.keeper.ExportGenesis(f.ctx)
	require.NoError(t, gs.Validate())
	require.Len(t, gs.Liquidations, 2)
	require.Len(t, gs.LiquidatedTroves, 1)
	require.Equal(t, testOther, gs.LiquidatedTroves[0].Owner)

	g := setupKeeper(t)
	g.keeper.InitGenesis(g.ctx, *gs)
	require.False(t, g.keeper.IsLiquidatedOwner(g.ctx, testBorrower))
	require.NotNil(t, g.keeper.GetTrove(g.ctx, testBorrower))
	_, err = g.keeper.Repay(g.ctx, testBorrower, testBorrower, 0)
	require.ErrorIs(t, err, types.ErrInvalidAmount)

	_, err = g.keeper.ReceiveTrove(g.ctx, testAdmin, testOther)
	require.ErrorIs(t, err, types.ErrAlreadyLiquidated)
	require.Equal(t, "liq-0000000003", g.keeper.generateLiquidationID(g.ctx))
}

func TestLiquidate_Authorization(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	f.open(t, 100, 100)
	engine := NewLiquidationEngine(f.keeper)

	_, err := f.keeper.ReceiveTrove(f.ctx, testBorrower, testBorrower)
	require.ErrorIs(t, err, types.ErrUnauthorized)

	_, err = f.keeper.ReceiveTrove(f.ctx, testAdmin, testBorrower)
	require.NoError(t, err)

	_, err = engine.Liquidate(f.ctx, testOther, testBorrower)
	require.ErrorIs(t, err, types.ErrUnauthorized)

	_, err = engine.Liquidate(f.ctx, testAdmin, testOther)
	require.ErrorIs(t, err, types.ErrNotInitialized)
}

func TestLiquidate_PaysTreasury(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	f.open(t, 100, 150)

	params := f.keeper.GetParams(f.ctx)
	params.LiquidationTreasury = testTreasury
	require.NoError(t, f.keeper.SetParams(f.ctx, params))

	_, err := f.keeper.ReceiveTrove(f.ctx, testAdmin, testBorrower)
	require.NoError(t, err)
	liquidation, err := NewLiquidationEngine(f.keeper).Liquidate(f.ctx, testAdmin, testBorrower)
	require.NoError(t, err)
	require.Equal(t, testTreasury, liquidation.Recipient)
	require.Equal(t, int64(150), f.nativeBalance(testTreasury))
	require.Equal(t, int64(0), f.nativeBalance(testAdmin))

	stored := f.keeper.GetLiquidation(f.ctx, liquidation.LiquidationID)
	require.NotNil(t, stored)
	require.Equal(t, testBorrower, stored.Owner)
}

func TestIsLiquidatableAndStats(t *testing.T) {
	f := setupKeeper(t)
	f.fund(testBorrower, 1_000)
	f.fund(testOther, 1_000)
	f.open(t, 100, 120)
	_, err := f.keeper.OpenTrove(f.ctx, testOther, 200, 300)
	require.NoError(t, err)
	engine := NewLiquidationEngine(f.keeper)

	ok, err := engine.IsLiquidatable(f.ctx, testBorrower)
	require.NoError(t, err)
	require.False(t, ok)

	// 120 × 0.9 / 100 < 110%, 300 × 0.9 / 200 is still healthy
	f.setPrice(t, 9, -1)
	ok, err = engine.IsLiquidatable(f.ctx, testBorrower)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = engine.IsLiquidatable(f.ctx, testOther)
	require.NoError(t, err)
	require.False(t, ok)

	for _, owner := range []string{testBorrower, testOther} {
		_, err = f.keeper.ReceiveTrove(f.ctx, testAdmin, owner)
		require.NoError(t, err)
		_, err = engine.Liquidate(f.ctx, testAdmin, owner)
		require.NoError(t, err)
	}

	stats := engine.GetStats(f.ctx)
	require.Equal(t, 2, stats.LiquidationsCount)
	require.Equal(t, math.NewInt(420), stats.CollateralSeized)
	require.Equal(t, math.NewInt(300), stats.DebtWrittenOff)

	records := f.keeper.GetAllLiquidations(f.ctx, 1)
	require.Len(t, records, 1)
	require.Equal(t, "liq-0000000002", records[0].LiquidationID)
}

func TestScanTroves(t *testing.T) {
	f := setupKeeper(t)
	engine := NewLiquidationEngine(f.keeper)

	report, err := engine.ScanTroves(f.ctx)
	require.NoError(t, err)
	require.Zero(t, report.OpenTroves)

	f.fund(testBorrower, 1_000)
	f.fund(testOther, 1_000)
	f.open(t, 100, 100)
	_, err = f.keeper.OpenTrove(f.ctx, testOther, 100, 200)
	require.NoError(t, err)

	report, err = engine.ScanTroves(f.ctx)
	require.NoError(t, err)
	require.Equal(t, 2, report.OpenTroves)
	require.Empty(t, report.AtRisk)
	require.Equal(t, int64(300), report.TotalCollateral.Int64())
	require.Equal(t, int64(200), report.TotalToClose.Int64())
	require.Len(t, report.Ratios, 2)

	f.setPrice(t, 10, -1)
	report, err = engine.ScanTroves(f.ctx)
	require.NoError(t, err)
	require.Equal(t, []string{testBorrower}, report.AtRisk)
	// scanning never changes trove state
	require.False(t, f.keeper.GetTrove(f.ctx, testBorrower).IsReceived)
}
