package api

import (
	"context"
	"sync"
	"testing"
	"time"

	"cosmossdk.io/log"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/openalpha/cdp-chain/api/types"
	"github.com/openalpha/cdp-chain/api/websocket"
	"github.com/openalpha/cdp-chain/metrics"
	pooltypes "github.com/openalpha/cdp-chain/x/stabilitypool/types"
	trovetypes "github.com/openalpha/cdp-chain/x/trove/types"
)

var (
	testAdmin    = sdk.AccAddress([]byte("admin_______________")).String()
	testBorrower = sdk.AccAddress([]byte("borrower____________")).String()
	testOther    = sdk.AccAddress([]byte("other_______________")).String()
)

type published struct {
	channel string
	msgType string
}

// recordingPublisher remembers every event the service emits
type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(channel, msgType string, _ interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{channel: channel, msgType: msgType})
}

func (p *recordingPublisher) has(channel, msgType string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.events {
		if e.channel == channel && e.msgType == msgType {
			return true
		}
	}
	return false
}

// testGenesis prices one whole-unit collateral at 1.1
func testGenesis() *Genesis {
	troveGen := trovetypes.DefaultGenesis()
	troveGen.Params.CollateralDecimals = 0
	troveGen.PriceFeeds = []trovetypes.PriceFeed{{
		FeedID:      troveGen.Params.PriceFeedID,
		Price:       11,
		Expo:        -1,
		PublishTime: time.Unix(1_700_000_000, 0),
		Publisher:   testAdmin,
	}}
	return &Genesis{Trove: troveGen, StabilityPool: pooltypes.DefaultGenesis()}
}

func setupService(t *testing.T) (*Service, *recordingPublisher) {
	t.Helper()
	pub := &recordingPublisher{}
	collector := metrics.NewCollector(prometheus.NewRegistry())
	svc, err := NewService(testAdmin, testGenesis(), pub, collector, log.NewNopLogger())
	require.NoError(t, err)

	_, err = svc.Fund(context.Background(), &types.FundRequest{Authority: testAdmin, Address: testBorrower, Amount: 10_000})
	require.NoError(t, err)
	return svc, pub
}

func openTestTrove(t *testing.T, svc *Service) *types.Trove {
	t.Helper()
	trove, err := svc.OpenTrove(context.Background(), &types.OpenTroveRequest{Owner: testBorrower, Debt: 100, Collateral: 1_000})
	require.NoError(t, err)
	return trove
}

func TestNewServiceRejectsBadAdmin(t *testing.T) {
	_, err := NewService("not-an-address", nil, nil, metrics.NewCollector(prometheus.NewRegistry()), nil)
	require.Error(t, err)
}

func TestServiceOpenIndexesTrove(t *testing.T) {
	svc, pub := setupService(t)
	ctx := context.Background()

	trove := openTestTrove(t, svc)
	require.Equal(t, uint64(100), trove.AmountToClose)
	require.Equal(t, 1, svc.risk.Len())
	require.True(t, pub.has(websocket.ChannelTroves, "trove_opened"))
	require.True(t, pub.has(websocket.OwnerChannel(websocket.ChannelTroves, testBorrower), "trove_opened"))

	atRisk, err := svc.ListAtRisk(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, atRisk)

	// 1000 × 0.1 / 100 = 100%, below the 110% minimum
	_, err = svc.PublishPrice(ctx, &types.PublishPriceRequest{Authority: testAdmin, Price: 1, Expo: -1})
	require.NoError(t, err)
	require.True(t, pub.has(websocket.ChannelPrices, "price"))

	atRisk, err = svc.ListAtRisk(ctx, 0)
	require.NoError(t, err)
	require.Len(t, atRisk, 1)
	require.Equal(t, testBorrower, atRisk[0].Owner)
	require.Equal(t, "1.000000000000000000", atRisk[0].CollateralRatio)

	health, err := svc.GetTroveHealth(ctx, testBorrower)
	require.NoError(t, err)
	require.False(t, health.IsHealthy)
}

func TestServiceRepayReindexes(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	openTestTrove(t, svc)

	_, err := svc.PublishPrice(ctx, &types.PublishPriceRequest{Authority: testAdmin, Price: 1, Expo: -1})
	require.NoError(t, err)

	trove, err := svc.Repay(ctx, testBorrower, &types.AmountRequest{Caller: testBorrower, Amount: 20})
	require.NoError(t, err)
	require.Equal(t, uint64(80), trove.AmountToClose)

	// 1000 × 0.1 / 80 = 125%
	atRisk, err := svc.ListAtRisk(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, atRisk)
}

func TestServiceLiquidateRequiresReceive(t *testing.T) {
	svc, pub := setupService(t)
	ctx := context.Background()
	openTestTrove(t, svc)

	_, err := svc.Liquidate(ctx, testBorrower, &types.AuthorityRequest{Authority: testAdmin})
	require.ErrorIs(t, err, trovetypes.ErrNotReceived)

	_, err = svc.ReceiveTrove(ctx, testBorrower, &types.AuthorityRequest{Authority: testOther})
	require.ErrorIs(t, err, trovetypes.ErrUnauthorized)

	received, err := svc.ReceiveTrove(ctx, testBorrower, &types.AuthorityRequest{Authority: testAdmin})
	require.NoError(t, err)
	require.True(t, received.IsReceived)

	liquidation, err := svc.Liquidate(ctx, testBorrower, &types.AuthorityRequest{Authority: testAdmin})
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), liquidation.CollateralSeized)
	require.Equal(t, 0, svc.risk.Len())
	require.True(t, pub.has(websocket.ChannelLiquidations, "liquidation"))

	trove, err := svc.GetTrove(ctx, testBorrower)
	require.NoError(t, err)
	require.Equal(t, "liquidated", trove.Status)
	require.True(t, trove.IsLiquidated)

	_, err = svc.GetTrove(ctx, testOther)
	require.ErrorIs(t, err, trovetypes.ErrNotInitialized)

	liquidations, err := svc.ListLiquidations(ctx, 10)
	require.NoError(t, err)
	require.Len(t, liquidations, 1)

	stats, err := svc.GetLiquidationStats(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Count)
	require.Equal(t, "1000", stats.CollateralSeized)
	require.Equal(t, "100", stats.DebtWrittenOff)
}

func TestServicePoolUsesTroveDebtDecimals(t *testing.T) {
	gen := testGenesis()
	gen.Trove.Params.DebtDecimals = 9
	svc, err := NewService(testAdmin, gen, nil, metrics.NewCollector(prometheus.NewRegistry()), nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Fund(ctx, &types.FundRequest{Authority: testAdmin, Address: testBorrower, Amount: 10_000})
	require.NoError(t, err)
	openTestTrove(t, svc)

	balances, err := svc.GetBalances(ctx, testBorrower)
	require.NoError(t, err)
	require.Equal(t, "100000000000", balances.Balances[DebtDenom])

	_, err = svc.Deposit(ctx, &types.DepositRequest{Depositor: testBorrower, Amount: 100})
	require.NoError(t, err)

	balances, err = svc.GetBalances(ctx, testBorrower)
	require.NoError(t, err)
	require.Equal(t, "0", balances.Balances[DebtDenom])
}

func TestServiceCloseTrove(t *testing.T) {
	svc, pub := setupService(t)
	ctx := context.Background()
	openTestTrove(t, svc)

	_, err := svc.CloseTrove(ctx, testBorrower, &types.CloseTroveRequest{Owner: testBorrower, Expected: 99})
	require.ErrorIs(t, err, trovetypes.ErrExpectedAmountMismatch)

	resp, err := svc.CloseTrove(ctx, testBorrower, &types.CloseTroveRequest{Owner: testBorrower, Expected: 100})
	require.NoError(t, err)
	require.Equal(t, uint64(100), resp.Burned)
	require.Equal(t, uint64(1_000), resp.Refunded)
	require.Equal(t, 0, svc.risk.Len())
	require.True(t, pub.has(websocket.ChannelTroves, "trove_closed"))
}

func TestServicePoolFlow(t *testing.T) {
	svc, pub := setupService(t)
	ctx := context.Background()
	openTestTrove(t, svc)

	entry, err := svc.Deposit(ctx, &types.DepositRequest{Depositor: testBorrower, Amount: 50})
	require.NoError(t, err)
	require.Equal(t, uint64(50), entry.TokenAmount)
	require.True(t, pub.has(websocket.ChannelPool, "entry_updated"))

	_, err = svc.GrantReward(ctx, &types.GrantRewardRequest{Authority: testOther, Depositor: testBorrower, Token: 3})
	require.ErrorIs(t, err, pooltypes.ErrUnauthorized)

	entry, err = svc.GrantReward(ctx, &types.GrantRewardRequest{Authority: testAdmin, Depositor: testBorrower, Governance: 5, Token: 3})
	require.NoError(t, err)
	require.Equal(t, uint64(5), entry.RewardGovernanceTokenAmount)

	result, err := svc.ClaimReward(ctx, testBorrower)
	require.NoError(t, err)
	require.Equal(t, uint64(3), result.TokenReward)
	require.Equal(t, uint64(5), result.GovernanceReward)

	balances, err := svc.GetBalances(ctx, testBorrower)
	require.NoError(t, err)
	require.Equal(t, "5000000", balances.Balances[GovernanceDenom])
	require.Equal(t, "53000000", balances.Balances[DebtDenom])

	require.ErrorIs(t, svc.CloseEntry(ctx, testBorrower), pooltypes.ErrEntryNotEmpty)

	_, err = svc.WithdrawDeposit(ctx, &types.WithdrawRequest{Depositor: testBorrower, Amount: 50})
	require.NoError(t, err)
	require.NoError(t, svc.CloseEntry(ctx, testBorrower))

	_, err = svc.GetEntry(ctx, testBorrower)
	require.ErrorIs(t, err, pooltypes.ErrEntryNotFound)

	state, err := svc.GetPoolState(ctx)
	require.NoError(t, err)
	require.True(t, state.TotalDeposits.IsZero())
}

func TestServiceFundRequiresAdmin(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Fund(ctx, &types.FundRequest{Authority: testOther, Address: testOther, Amount: 1})
	require.ErrorIs(t, err, trovetypes.ErrUnauthorized)

	_, err = svc.Fund(ctx, &types.FundRequest{Authority: testAdmin, Address: testOther, Amount: 0})
	require.ErrorIs(t, err, trovetypes.ErrInvalidAmount)

	balances, err := svc.Fund(ctx, &types.FundRequest{Authority: testAdmin, Address: testOther, Amount: 42})
	require.NoError(t, err)
	require.Equal(t, "42", balances.Balances[NativeDenom])
}

func TestServiceSnapshot(t *testing.T) {
	svc, _ := setupService(t)
	openTestTrove(t, svc)
	require.NotPanics(t, svc.Snapshot)
}

func TestServiceIndexesGenesisTroves(t *testing.T) {
	gen := testGenesis()
	gen.Trove.Troves = []trovetypes.Trove{{
		Owner:            testBorrower,
		IsInitialized:    true,
		BorrowAmount:     100,
		CollateralAmount: 500,
		AmountToClose:    100,
	}}
	svc, err := NewService(testAdmin, gen, nil, metrics.NewCollector(prometheus.NewRegistry()), nil)
	require.NoError(t, err)
	require.Equal(t, 1, svc.risk.Len())
}
