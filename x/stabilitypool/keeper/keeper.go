package keeper

import (
	"encoding/json"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"

	"github.com/openalpha/cdp-chain/x/stabilitypool/types"
	trovetypes "github.com/openalpha/cdp-chain/x/trove/types"
)

// Keeper manages the stability pool state
type Keeper struct {
	cdc              codec.BinaryCodec
	storeKey         storetypes.StoreKey
	debtLedger       types.TokenLedger
	governanceLedger types.TokenLedger
	nativeLedger     types.NativeLedger
	troveKeeper      types.TroveKeeper
	registry         types.ConfigRegistry
	logger           log.Logger
}

// NewKeeper creates a new stability pool keeper
func NewKeeper(
	cdc codec.BinaryCodec,
	storeKey storetypes.StoreKey,
	debtLedger types.TokenLedger,
	governanceLedger types.TokenLedger,
	nativeLedger types.NativeLedger,
	troveKeeper types.TroveKeeper,
	registry types.ConfigRegistry,
	logger log.Logger,
) *Keeper {
	return &Keeper{
		cdc:              cdc,
		storeKey:         storeKey,
		debtLedger:       debtLedger,
		governanceLedger: governanceLedger,
		nativeLedger:     nativeLedger,
		troveKeeper:      troveKeeper,
		registry:         registry,
		logger:           logger.With("module", "x/stabilitypool"),
	}
}

// Logger returns the module logger
func (k *Keeper) Logger() log.Logger {
	return k.logger
}

// GetStore returns the KVStore
func (k *Keeper) GetStore(ctx sdk.Context) storetypes.KVStore {
	return ctx.KVStore(k.storeKey)
}

// PoolAddress is the pool's module account. It receives depositor fees and
// pays native-currency rewards.
func (k *Keeper) PoolAddress() sdk.AccAddress {
	return authtypes.NewModuleAddress(types.ModuleName)
}

// ============ Params ============

// GetParams returns the module params, falling back to defaults
func (k *Keeper) GetParams(ctx sdk.Context) types.Params {
	bz := k.GetStore(ctx).Get(types.ParamsKey)
	if bz == nil {
		return types.DefaultParams()
	}
	var params types.Params
	if err := json.Unmarshal(bz, &params); err != nil {
		return types.DefaultParams()
	}
	return params
}

// SetParams validates and stores the module params
func (k *Keeper) SetParams(ctx sdk.Context, params types.Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	bz, err := json.Marshal(params)
	if err != nil {
		return err
	}
	k.GetStore(ctx).Set(types.ParamsKey, bz)
	return nil
}

// debtUnits converts an entry amount to debt-ledger base units
func (k *Keeper) debtUnits(ctx sdk.Context, amount uint64) math.Int {
	return trovetypes.ScaleAmount(amount, k.troveKeeper.DebtDecimals(ctx))
}

// ============ Entry Store Operations ============

// SetEntry saves an entry to the store
func (k *Keeper) SetEntry(ctx sdk.Context, entry *types.Entry) {
	bz, _ := json.Marshal(entry)
	k.GetStore(ctx).Set(types.GetEntryKey(entry.Owner), bz)
}

// GetEntry retrieves an entry from the store
func (k *Keeper) GetEntry(ctx sdk.Context, owner string) *types.Entry {
	bz := k.GetStore(ctx).Get(types.GetEntryKey(owner))
	if bz == nil {
		return nil
	}
	var entry types.Entry
	if err := json.Unmarshal(bz, &entry); err != nil {
		return nil
	}
	return &entry
}

// DeleteEntry removes an entry from the store
func (k *Keeper) DeleteEntry(ctx sdk.Context, owner string) {
	k.GetStore(ctx).Delete(types.GetEntryKey(owner))
}

// GetAllEntries returns every depositor entry
func (k *Keeper) GetAllEntries(ctx sdk.Context) []*types.Entry {
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), types.EntryKeyPrefix)
	defer iterator.Close()

	var entries []*types.Entry
	for ; iterator.Valid(); iterator.Next() {
		var entry types.Entry
		if err := json.Unmarshal(iterator.Value(), &entry); err != nil {
			continue
		}
		entries = append(entries, &entry)
	}
	return entries
}

// ============ Pool State ============

// GetPoolState returns the pool-wide accounting
func (k *Keeper) GetPoolState(ctx sdk.Context) types.PoolState {
	bz := k.GetStore(ctx).Get(types.PoolStateKey)
	if bz == nil {
		return types.NewPoolState()
	}
	var state types.PoolState
	if err := json.Unmarshal(bz, &state); err != nil {
		return types.NewPoolState()
	}
	return state
}

// SetPoolState stores the pool-wide accounting
func (k *Keeper) SetPoolState(ctx sdk.Context, state types.PoolState) {
	bz, _ := json.Marshal(state)
	k.GetStore(ctx).Set(types.PoolStateKey, bz)
}

func (k *Keeper) updatePoolState(ctx sdk.Context, fn func(state *types.PoolState)) {
	state := k.GetPoolState(ctx)
	fn(&state)
	k.SetPoolState(ctx, state)
}

// ============ Genesis ============

// InitGenesis loads the module state from genesis
func (k *Keeper) InitGenesis(ctx sdk.Context, gs types.GenesisState) {
	if err := k.SetParams(ctx, gs.Params); err != nil {
		panic(err)
	}
	state := types.NewPoolState()
	if gs.PoolState != nil {
		state.TotalTokenRewards = orZero(gs.PoolState.TotalTokenRewards)
		state.TotalGovRewards = orZero(gs.PoolState.TotalGovRewards)
		state.TotalCoinRewards = orZero(gs.PoolState.TotalCoinRewards)
		state.TotalRewardsClaimed = orZero(gs.PoolState.TotalRewardsClaimed)
	}
	for i := range gs.Entries {
		entry := &gs.Entries[i]
		k.SetEntry(ctx, entry)
		state.TotalDeposits = state.TotalDeposits.Add(math.NewIntFromUint64(entry.TokenAmount))
		state.Depositors++
	}
	k.SetPoolState(ctx, state)
}

// ExportGenesis exports the module state
func (k *Keeper) ExportGenesis(ctx sdk.Context) *types.GenesisState {
	state := k.GetPoolState(ctx)
	gs := &types.GenesisState{Params: k.GetParams(ctx), PoolState: &state}
	for _, e := range k.GetAllEntries(ctx) {
		gs.Entries = append(gs.Entries, *e)
	}
	return gs
}

func orZero(v math.Int) math.Int {
	if v.IsNil() {
		return math.ZeroInt()
	}
	return v
}
