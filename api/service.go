package api

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"cosmossdk.io/errors"
	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"cosmossdk.io/store"
	storemetrics "cosmossdk.io/store/metrics"
	storetypes "cosmossdk.io/store/types"
	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	dbm "github.com/cosmos/cosmos-db"
	"github.com/cosmos/cosmos-sdk/codec"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/cdp-chain/api/types"
	"github.com/openalpha/cdp-chain/api/websocket"
	"github.com/openalpha/cdp-chain/metrics"
	"github.com/openalpha/cdp-chain/pkg/ledger"
	poolkeeper "github.com/openalpha/cdp-chain/x/stabilitypool/keeper"
	pooltypes "github.com/openalpha/cdp-chain/x/stabilitypool/types"
	trovekeeper "github.com/openalpha/cdp-chain/x/trove/keeper"
	trovetypes "github.com/openalpha/cdp-chain/x/trove/types"
)

// Ledger denoms of the in-memory service
const (
	DebtDenom       = "udebt"
	GovernanceDenom = "ugov"
	NativeDenom     = "stake"
)

// unitPrice prices one collateral unit at exactly one quote unit
var unitPrice = trovetypes.PriceReading{Price: 1}

// Publisher receives state change events
type Publisher interface {
	Publish(channel, msgType string, data interface{})
}

type nopPublisher struct{}

func (nopPublisher) Publish(string, string, interface{}) {}

// Genesis seeds the service state. Either module may be omitted.
type Genesis struct {
	Trove         *trovetypes.GenesisState `json:"trove,omitempty"`
	StabilityPool *pooltypes.GenesisState  `json:"stabilitypool,omitempty"`
}

// LoadGenesis reads a Genesis JSON file
func LoadGenesis(path string) (*Genesis, error) {
	bz, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis %s: %w", path, err)
	}
	var gen Genesis
	if err := json.Unmarshal(bz, &gen); err != nil {
		return nil, fmt.Errorf("decode genesis %s: %w", path, err)
	}
	return &gen, nil
}

// Service implements TroveService, PoolService, OracleService and AccountService
// over the trove and stability pool keepers on an in-memory store. One lock
// serializes every call, so each operation sees and leaves consistent state.
type Service struct {
	mu     sync.Mutex
	ctx    sdk.Context
	height int64
	clock  func() time.Time

	troves       *trovekeeper.Keeper
	liquidations *trovekeeper.LiquidationEngine
	oracle       *trovekeeper.PriceOracleAdapter
	pool         *poolkeeper.Keeper

	// writes execute as module messages
	troveMsgs trovetypes.MsgServer
	poolMsgs  pooltypes.MsgServer

	debt       *ledger.Ledger
	governance *ledger.Ledger
	native     *ledger.Ledger

	admin     string
	risk      *RiskIndex
	publisher Publisher
	metrics   *metrics.Collector
	logger    log.Logger
}

// NewService creates a Service whose admin authority is admin. Nil dependencies
// fall back to defaults; a nil genesis starts from module defaults.
func NewService(admin string, gen *Genesis, publisher Publisher, collector *metrics.Collector, logger log.Logger) (*Service, error) {
	if _, err := sdk.AccAddressFromBech32(admin); err != nil {
		return nil, fmt.Errorf("admin authority: %w", err)
	}
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if collector == nil {
		collector = metrics.GetCollector()
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}

	troveKey := storetypes.NewKVStoreKey(trovetypes.StoreKey)
	poolKey := storetypes.NewKVStoreKey(pooltypes.StoreKey)
	ledgerKey := storetypes.NewKVStoreKey("ledger")

	db := dbm.NewMemDB()
	cms := store.NewCommitMultiStore(db, log.NewNopLogger(), storemetrics.NewNoOpMetrics())
	for _, key := range []storetypes.StoreKey{troveKey, poolKey, ledgerKey} {
		cms.MountStoreWithDB(key, storetypes.StoreTypeIAVL, db)
	}
	if err := cms.LoadLatestVersion(); err != nil {
		return nil, fmt.Errorf("load store: %w", err)
	}

	cdc := codec.NewProtoCodec(codectypes.NewInterfaceRegistry())
	registry := trovetypes.NewStaticRegistry(admin, trovetypes.ModuleName)
	debt := ledger.New(ledgerKey, DebtDenom, registry.Minter)
	governance := ledger.New(ledgerKey, GovernanceDenom, registry.Minter)
	native := ledger.New(ledgerKey, NativeDenom, "")

	troves := trovekeeper.NewKeeper(cdc, troveKey, debt, native, registry, logger)
	pool := poolkeeper.NewKeeper(cdc, poolKey, debt, governance, native, troves, registry, logger)

	s := &Service{
		ctx:          sdk.NewContext(cms, cmtproto.Header{ChainID: "cdp-offchain"}, false, logger),
		clock:        time.Now,
		troves:       troves,
		liquidations: trovekeeper.NewLiquidationEngine(troves),
		oracle:       trovekeeper.NewPriceOracleAdapter(troves),
		pool:         pool,
		troveMsgs:    trovekeeper.NewMsgServerImpl(troves),
		poolMsgs:     poolkeeper.NewMsgServerImpl(pool),
		debt:         debt,
		governance:   governance,
		native:       native,
		admin:        admin,
		risk:         NewRiskIndex(),
		publisher:    publisher,
		metrics:      collector,
		logger:       logger.With("module", "api/service"),
	}
	if err := s.initGenesis(gen); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Service) initGenesis(gen *Genesis) error {
	troveGen := trovetypes.DefaultGenesis()
	poolGen := pooltypes.DefaultGenesis()
	if gen != nil && gen.Trove != nil {
		troveGen = gen.Trove
	}
	if gen != nil && gen.StabilityPool != nil {
		poolGen = gen.StabilityPool
	}
	if err := troveGen.Validate(); err != nil {
		return fmt.Errorf("trove genesis: %w", err)
	}
	if err := poolGen.Validate(); err != nil {
		return fmt.Errorf("stability pool genesis: %w", err)
	}

	ctx := s.begin()
	s.troves.InitGenesis(ctx, *troveGen)
	s.pool.InitGenesis(ctx, *poolGen)
	for _, trove := range s.troves.GetAllTroves(ctx) {
		s.indexTrove(ctx, trove)
	}
	s.logger.Info("service state initialized",
		"troves", len(troveGen.Troves),
		"entries", len(poolGen.Entries),
		"indexed", s.risk.Len(),
	)
	return nil
}

// begin advances to a fresh block for one state-changing call. Callers hold s.mu.
func (s *Service) begin() sdk.Context {
	s.height++
	s.ctx = s.ctx.
		WithBlockHeight(s.height).
		WithBlockTime(s.clock()).
		WithEventManager(sdk.NewEventManager())
	return s.ctx
}

// view returns a read context at the current time. Callers hold s.mu.
func (s *Service) view() sdk.Context {
	return s.ctx.WithBlockTime(s.clock())
}

// indexTrove keeps the risk index in step with a trove after a mutation
func (s *Service) indexTrove(ctx sdk.Context, trove *trovetypes.Trove) {
	if trove == nil {
		return
	}
	coverage, ok := trovekeeper.CollateralRatio(s.troves.GetParams(ctx), unitPrice, trove.CollateralAmount, trove.AmountToClose)
	if !ok {
		s.risk.Remove(trove.Owner)
		return
	}
	s.risk.Upsert(trove.Owner, coverage)
}

func (s *Service) recordTroveOp(op string, err error, timer *metrics.Timer) {
	s.metrics.RecordTroveOp(op, err, timer.ElapsedMs())
	if err == nil {
		return
	}
	switch {
	case errors.IsOf(err, trovetypes.ErrStalePrice):
		s.metrics.RecordOracleRejection(s.feedID(), "stale")
	case errors.IsOf(err, trovetypes.ErrOracleUnavailable):
		s.metrics.RecordOracleRejection(s.feedID(), "unavailable")
	case errors.IsOf(err, trovetypes.ErrInvalidPrice):
		s.metrics.RecordOracleRejection(s.feedID(), "invalid")
	}
}

func (s *Service) feedID() string {
	return s.troves.GetParams(s.ctx).PriceFeedID
}

func (s *Service) publishTrove(msgType string, trove *trovetypes.Trove) {
	data := types.NewTrove(trove)
	s.publisher.Publish(websocket.ChannelTroves, msgType, data)
	s.publisher.Publish(websocket.OwnerChannel(websocket.ChannelTroves, trove.Owner), msgType, data)
}

func (s *Service) publishEntry(msgType string, entry *pooltypes.Entry) {
	s.publisher.Publish(websocket.ChannelPool, msgType, entry)
	s.publisher.Publish(websocket.OwnerChannel(websocket.ChannelPool, entry.Owner), msgType, entry)
}

// ============ TroveService ============

// OpenTrove opens a trove for req.Owner
func (s *Service) OpenTrove(ctx context.Context, req *types.OpenTroveRequest) (*types.Trove, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sdkCtx, timer := s.begin(), metrics.NewTimer()
	resp, err := s.troveMsgs.OpenTrove(sdkCtx, &trovetypes.MsgOpenTrove{
		Owner:      req.Owner,
		Debt:       req.Debt,
		Collateral: req.Collateral,
	})
	s.recordTroveOp("open", err, timer)
	if err != nil {
		return nil, err
	}
	trove := s.troves.GetTrove(sdkCtx, resp.TroveID)
	s.metrics.RecordFees(trove.DepositorFee, trove.TeamFee)
	s.indexTrove(sdkCtx, trove)
	s.publishTrove("trove_opened", trove)
	return types.NewTrove(trove), nil
}

// IncreaseTrove borrows more against a trove
func (s *Service) IncreaseTrove(ctx context.Context, troveID string, req *types.IncreaseTroveRequest) (*types.Trove, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sdkCtx, timer := s.begin(), metrics.NewTimer()
	var depositorBefore, teamBefore uint64
	if before := s.troves.GetTrove(sdkCtx, troveID); before != nil {
		depositorBefore, teamBefore = before.DepositorFee, before.TeamFee
	}
	resp, err := s.troveMsgs.IncreaseTrove(sdkCtx, &trovetypes.MsgIncreaseTrove{
		Owner:      req.Owner,
		TroveID:    troveID,
		Debt:       req.Debt,
		Collateral: req.Collateral,
	})
	s.recordTroveOp("increase", err, timer)
	if err != nil {
		return nil, err
	}
	trove := &resp.Trove
	s.metrics.RecordFees(trove.DepositorFee-depositorBefore, trove.TeamFee-teamBefore)
	s.indexTrove(sdkCtx, trove)
	s.publishTrove("trove_updated", trove)
	return types.NewTrove(trove), nil
}

// AddCollateral locks more collateral in a trove
func (s *Service) AddCollateral(ctx context.Context, troveID string, req *types.AmountRequest) (*types.Trove, error) {
	return s.mutateTrove("add_collateral", func(sdkCtx sdk.Context) (*trovetypes.Trove, error) {
		return troveOf(s.troveMsgs.AddCollateral(sdkCtx, &trovetypes.MsgAddCollateral{Owner: req.Caller, TroveID: troveID, Amount: req.Amount}))
	})
}

// Repay burns debt tokens against a trove's outstanding debt
func (s *Service) Repay(ctx context.Context, troveID string, req *types.AmountRequest) (*types.Trove, error) {
	return s.mutateTrove("repay", func(sdkCtx sdk.Context) (*trovetypes.Trove, error) {
		return troveOf(s.troveMsgs.Repay(sdkCtx, &trovetypes.MsgRepay{Owner: req.Caller, TroveID: troveID, Amount: req.Amount}))
	})
}

// WithdrawCollateral returns collateral to the trove owner
func (s *Service) WithdrawCollateral(ctx context.Context, troveID string, req *types.AmountRequest) (*types.Trove, error) {
	return s.mutateTrove("withdraw_collateral", func(sdkCtx sdk.Context) (*trovetypes.Trove, error) {
		return troveOf(s.troveMsgs.WithdrawCollateral(sdkCtx, &trovetypes.MsgWithdrawCollateral{Owner: req.Caller, TroveID: troveID, Amount: req.Amount}))
	})
}

// Redeem moves trove collateral to a recipient on the admin's behalf
func (s *Service) Redeem(ctx context.Context, troveID string, req *types.RedeemRequest) (*types.Trove, error) {
	return s.mutateTrove("redeem", func(sdkCtx sdk.Context) (*trovetypes.Trove, error) {
		return troveOf(s.troveMsgs.Redeem(sdkCtx, &trovetypes.MsgRedeem{
			Authority: req.Authority,
			TroveID:   troveID,
			Amount:    req.Amount,
			Recipient: req.Recipient,
		}))
	})
}

// ReceiveTrove marks a trove as received for liquidation
func (s *Service) ReceiveTrove(ctx context.Context, troveID string, req *types.AuthorityRequest) (*types.Trove, error) {
	return s.mutateTrove("receive", func(sdkCtx sdk.Context) (*trovetypes.Trove, error) {
		return troveOf(s.troveMsgs.ReceiveTrove(sdkCtx, &trovetypes.MsgReceiveTrove{Authority: req.Authority, TroveID: troveID}))
	})
}

func troveOf(resp *trovetypes.MsgTroveResponse, err error) (*trovetypes.Trove, error) {
	if err != nil {
		return nil, err
	}
	return &resp.Trove, nil
}

func (s *Service) mutateTrove(op string, fn func(sdk.Context) (*trovetypes.Trove, error)) (*types.Trove, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sdkCtx, timer := s.begin(), metrics.NewTimer()
	trove, err := fn(sdkCtx)
	s.recordTroveOp(op, err, timer)
	if err != nil {
		return nil, err
	}
	s.indexTrove(sdkCtx, trove)
	s.publishTrove("trove_updated", trove)
	return types.NewTrove(trove), nil
}

// CloseTrove repays the outstanding debt, refunds collateral and deletes the trove
func (s *Service) CloseTrove(ctx context.Context, troveID string, req *types.CloseTroveRequest) (*types.CloseTroveResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sdkCtx, timer := s.begin(), metrics.NewTimer()
	closed, err := s.troveMsgs.CloseTrove(sdkCtx, &trovetypes.MsgCloseTrove{
		Owner:          req.Owner,
		TroveID:        troveID,
		ExpectedAmount: req.Expected,
	})
	s.recordTroveOp("close", err, timer)
	if err != nil {
		return nil, err
	}
	s.risk.Remove(troveID)

	resp := &types.CloseTroveResponse{TroveID: troveID, Burned: closed.Burned, Refunded: closed.Refunded}
	s.publisher.Publish(websocket.ChannelTroves, "trove_closed", resp)
	s.publisher.Publish(websocket.OwnerChannel(websocket.ChannelTroves, troveID), "trove_closed", resp)
	return resp, nil
}

// Liquidate seizes the collateral of a received trove
func (s *Service) Liquidate(ctx context.Context, troveID string, req *types.AuthorityRequest) (*trovetypes.Liquidation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sdkCtx, timer := s.begin(), metrics.NewTimer()
	resp, err := s.troveMsgs.Liquidate(sdkCtx, &trovetypes.MsgLiquidate{Authority: req.Authority, TroveID: troveID})
	s.recordTroveOp("liquidate", err, timer)
	if err != nil {
		return nil, err
	}
	liquidation := &resp.Liquidation
	s.metrics.RecordLiquidation(liquidation.CollateralSeized, liquidation.DebtOutstanding)
	s.risk.Remove(troveID)

	s.publisher.Publish(websocket.ChannelLiquidations, "liquidation", liquidation)
	s.publisher.Publish(websocket.OwnerChannel(websocket.ChannelTroves, troveID), "trove_liquidated", liquidation)
	return liquidation, nil
}

// GetTrove returns one trove. A liquidated owner's terminal record is returned
// until the owner opens a new trove.
func (s *Service) GetTrove(ctx context.Context, troveID string) (*types.Trove, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sdkCtx := s.view()
	trove := s.troves.GetTrove(sdkCtx, troveID)
	if trove == nil {
		trove = s.troves.GetLiquidatedTrove(sdkCtx, troveID)
	}
	if trove == nil {
		return nil, errors.Wrapf(trovetypes.ErrNotInitialized, "trove %s", troveID)
	}
	return types.NewTrove(trove), nil
}

// ListTroves returns every stored trove
func (s *Service) ListTroves(ctx context.Context) ([]*types.Trove, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := s.troves.GetAllTroves(s.view())
	troves := make([]*types.Trove, 0, len(stored))
	for _, t := range stored {
		troves = append(troves, types.NewTrove(t))
	}
	return troves, nil
}

// GetTroveHealth returns a trove's ratio at the current price
func (s *Service) GetTroveHealth(ctx context.Context, troveID string) (*trovetypes.TroveHealth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.troves.GetTroveHealth(s.view(), troveID)
}

// ListAtRisk returns troves below the minimum collateral ratio, lowest first
func (s *Service) ListAtRisk(ctx context.Context, limit int) ([]*types.RiskEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sdkCtx := s.view()
	params := s.troves.GetParams(sdkCtx)
	price, err := s.oracle.ReadPrice(sdkCtx, params.PriceFeedID, params.MaxPriceAge)
	if err != nil {
		return nil, err
	}

	owners := s.risk.Below(price.Value(), params.MinCollateralRatio, limit)
	entries := make([]*types.RiskEntry, 0, len(owners))
	for _, owner := range owners {
		trove := s.troves.GetTrove(sdkCtx, owner)
		if trove == nil {
			continue
		}
		if ok, err := s.liquidations.IsLiquidatable(sdkCtx, owner); err != nil || !ok {
			continue
		}
		ratio, _ := trovekeeper.CollateralRatio(params, price, trove.CollateralAmount, trove.AmountToClose)
		entries = append(entries, &types.RiskEntry{
			Owner:           owner,
			CollateralRatio: ratio.String(),
			AmountToClose:   trove.AmountToClose,
			Collateral:      trove.CollateralAmount,
			IsReceived:      trove.IsReceived,
		})
	}
	return entries, nil
}

// ListLiquidations returns liquidation records, newest first
func (s *Service) ListLiquidations(ctx context.Context, limit int) ([]*trovetypes.Liquidation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.troves.GetAllLiquidations(s.view(), limit), nil
}

// GetLiquidationStats totals every executed liquidation
func (s *Service) GetLiquidationStats(ctx context.Context) (*types.LiquidationStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.liquidations.GetStats(s.view())
	return &types.LiquidationStats{
		Count:            stats.LiquidationsCount,
		CollateralSeized: stats.CollateralSeized.String(),
		DebtWrittenOff:   stats.DebtWrittenOff.String(),
	}, nil
}

// ============ OracleService ============

// PublishPrice stores a new reading for a feed
func (s *Service) PublishPrice(ctx context.Context, req *types.PublishPriceRequest) (*types.Price, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sdkCtx := s.begin()
	feedID := req.FeedID
	if feedID == "" {
		feedID = s.troves.GetParams(sdkCtx).PriceFeedID
	}
	msg := &trovetypes.MsgUpdatePriceFeed{Authority: req.Authority, FeedID: feedID, Price: req.Price, Expo: req.Expo}
	if _, err := s.troveMsgs.UpdatePriceFeed(sdkCtx, msg); err != nil {
		s.metrics.RecordOracleRejection(feedID, "publish")
		return nil, err
	}

	feed := s.troves.GetPriceFeed(sdkCtx, feedID)
	price := priceFromFeed(feed)
	value, _ := trovetypes.PriceReading{Price: feed.Price, Expo: feed.Expo}.Value().Float64()
	s.metrics.RecordPrice(feedID, value)
	s.publisher.Publish(websocket.ChannelPrices, "price", price)
	return price, nil
}

// GetPrice returns the current reading of the collateral feed
func (s *Service) GetPrice(ctx context.Context) (*types.Price, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sdkCtx := s.view()
	params := s.troves.GetParams(sdkCtx)
	if _, err := s.oracle.ReadPrice(sdkCtx, params.PriceFeedID, params.MaxPriceAge); err != nil {
		return nil, err
	}
	return priceFromFeed(s.troves.GetPriceFeed(sdkCtx, params.PriceFeedID)), nil
}

func priceFromFeed(feed *trovetypes.PriceFeed) *types.Price {
	reading := trovetypes.PriceReading{Price: feed.Price, Expo: feed.Expo, PublishTime: feed.PublishTime}
	return &types.Price{
		FeedID:      feed.FeedID,
		Price:       feed.Price,
		Expo:        feed.Expo,
		Value:       reading.Value().String(),
		PublishTime: feed.PublishTime.Unix(),
	}
}

// ============ PoolService ============

// Deposit burns debt tokens into the depositor's pool entry
func (s *Service) Deposit(ctx context.Context, req *types.DepositRequest) (*pooltypes.Entry, error) {
	return s.mutateEntry("deposit", func(sdkCtx sdk.Context) (*pooltypes.Entry, error) {
		return entryOf(s.poolMsgs.Deposit(sdkCtx, &pooltypes.MsgDeposit{
			Depositor:         req.Depositor,
			Amount:            req.Amount,
			TokenAccount:      req.TokenAccount,
			GovernanceAccount: req.GovernanceAccount,
		}))
	})
}

// WithdrawDeposit mints deposited tokens back to the entry's token account
func (s *Service) WithdrawDeposit(ctx context.Context, req *types.WithdrawRequest) (*pooltypes.Entry, error) {
	return s.mutateEntry("withdraw", func(sdkCtx sdk.Context) (*pooltypes.Entry, error) {
		return entryOf(s.poolMsgs.WithdrawDeposit(sdkCtx, &pooltypes.MsgWithdrawDeposit{Depositor: req.Depositor, Amount: req.Amount}))
	})
}

// GrantReward credits rewards to a depositor
func (s *Service) GrantReward(ctx context.Context, req *types.GrantRewardRequest) (*pooltypes.Entry, error) {
	return s.mutateEntry("grant_reward", func(sdkCtx sdk.Context) (*pooltypes.Entry, error) {
		return entryOf(s.poolMsgs.GrantReward(sdkCtx, &pooltypes.MsgGrantReward{
			Authority:  req.Authority,
			Depositor:  req.Depositor,
			Coin:       req.Coin,
			Governance: req.Governance,
			Token:      req.Token,
		}))
	})
}

func entryOf(resp *pooltypes.MsgEntryResponse, err error) (*pooltypes.Entry, error) {
	if err != nil {
		return nil, err
	}
	return &resp.Entry, nil
}

func (s *Service) mutateEntry(op string, fn func(sdk.Context) (*pooltypes.Entry, error)) (*pooltypes.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := fn(s.begin())
	s.metrics.RecordPoolOp(op, err)
	if err != nil {
		return nil, err
	}
	s.publishEntry("entry_updated", entry)
	return entry, nil
}

// ClaimReward pays out a depositor's accrued rewards
func (s *Service) ClaimReward(ctx context.Context, depositor string) (*pooltypes.ClaimResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sdkCtx := s.begin()
	resp, err := s.poolMsgs.ClaimReward(sdkCtx, &pooltypes.MsgClaimReward{Depositor: depositor})
	s.metrics.RecordPoolOp("claim", err)
	if err != nil {
		return nil, err
	}
	result := resp.Claimed
	s.metrics.RecordClaim(result.TokenReward, result.GovernanceReward, result.CoinReward)
	if entry := s.pool.GetEntry(sdkCtx, depositor); entry != nil {
		s.publishEntry("reward_claimed", entry)
	}
	return &result, nil
}

// CloseEntry deletes an empty pool entry
func (s *Service) CloseEntry(ctx context.Context, depositor string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.poolMsgs.CloseEntry(s.begin(), &pooltypes.MsgCloseEntry{Depositor: depositor})
	s.metrics.RecordPoolOp("close", err)
	if err != nil {
		return err
	}
	closed := map[string]string{"owner": depositor}
	s.publisher.Publish(websocket.ChannelPool, "entry_closed", closed)
	s.publisher.Publish(websocket.OwnerChannel(websocket.ChannelPool, depositor), "entry_closed", closed)
	return nil
}

// GetEntry returns a depositor's pool entry
func (s *Service) GetEntry(ctx context.Context, depositor string) (*pooltypes.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.pool.GetEntry(s.view(), depositor)
	if entry == nil {
		return nil, errors.Wrapf(pooltypes.ErrEntryNotFound, "depositor %s", depositor)
	}
	return entry, nil
}

// GetPoolState returns pool-wide accounting
func (s *Service) GetPoolState(ctx context.Context) (*pooltypes.PoolState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.pool.GetPoolState(s.view())
	return &state, nil
}

// ============ AccountService ============

// GetBalances returns an address's balance in every service denom
func (s *Service) GetBalances(ctx context.Context, address string) (*types.Balances, error) {
	addr, err := sdk.AccAddressFromBech32(address)
	if err != nil {
		return nil, errors.Wrap(trovetypes.ErrInvalidAddress, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances(s.view(), address, addr), nil
}

// Fund credits native currency to an address. Only the admin may fund.
func (s *Service) Fund(ctx context.Context, req *types.FundRequest) (*types.Balances, error) {
	if req.Authority != s.admin {
		return nil, errors.Wrapf(trovetypes.ErrUnauthorized, "%s cannot fund accounts", req.Authority)
	}
	addr, err := sdk.AccAddressFromBech32(req.Address)
	if err != nil {
		return nil, errors.Wrap(trovetypes.ErrInvalidAddress, err.Error())
	}
	if req.Amount == 0 {
		return nil, errors.Wrap(trovetypes.ErrInvalidAmount, "amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sdkCtx := s.begin()
	s.native.Fund(sdkCtx, addr, math.NewIntFromUint64(req.Amount))
	s.logger.Info("account funded", "address", req.Address, "amount", req.Amount)
	return s.balances(sdkCtx, req.Address, addr), nil
}

func (s *Service) balances(ctx sdk.Context, address string, addr sdk.AccAddress) *types.Balances {
	out := &types.Balances{Address: address, Balances: make(map[string]string, 3)}
	for _, l := range []*ledger.Ledger{s.debt, s.governance, s.native} {
		out.Balances[l.Denom()] = l.GetBalance(ctx, addr).String()
	}
	return out
}

// ============ Background ============

// Run refreshes the book and pool gauges every interval until ctx is done
func (s *Service) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Snapshot()
		}
	}
}

// Snapshot scans the trove book and pool state into the metrics gauges
func (s *Service) Snapshot() {
	s.mu.Lock()
	defer s.mu.Unlock()

	timer := metrics.NewTimer()
	sdkCtx := s.view()
	report, err := s.liquidations.ScanTroves(sdkCtx)
	if err != nil {
		s.logger.Debug("trove scan skipped", "err", err)
	} else {
		s.metrics.RecordTroveBook(
			report.OpenTroves,
			len(report.AtRisk),
			decFloat(math.LegacyNewDecFromInt(report.TotalCollateral)),
			decFloat(math.LegacyNewDecFromInt(report.TotalToClose)),
		)
		for _, ratio := range report.Ratios {
			s.metrics.RecordCollateralRatio(decFloat(ratio))
		}
		if len(report.AtRisk) > 0 {
			s.logger.Info("troves below minimum collateral ratio",
				"at_risk", len(report.AtRisk),
				"received", report.Received,
			)
		}
	}

	state := s.pool.GetPoolState(sdkCtx)
	s.metrics.RecordPoolState(decFloat(math.LegacyNewDecFromInt(state.TotalDeposits)), state.Depositors)
	s.metrics.RecordEndBlock(s.height, timer.ElapsedMs())
}

func decFloat(d math.LegacyDec) float64 {
	f, err := d.Float64()
	if err != nil {
		return 0
	}
	return f
}
