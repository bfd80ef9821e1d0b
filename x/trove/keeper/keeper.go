package keeper

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"cosmossdk.io/log"
	storetypes "cosmossdk.io/store/types"
	"github.com/cosmos/cosmos-sdk/codec"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"

	"github.com/openalpha/cdp-chain/x/trove/types"
)

// Keeper manages the trove module state
type Keeper struct {
	cdc          codec.BinaryCodec
	storeKey     storetypes.StoreKey
	tokenLedger  types.TokenLedger
	nativeLedger types.NativeLedger
	registry     types.ConfigRegistry
	logger       log.Logger
}

// NewKeeper creates a new trove keeper
func NewKeeper(
	cdc codec.BinaryCodec,
	storeKey storetypes.StoreKey,
	tokenLedger types.TokenLedger,
	nativeLedger types.NativeLedger,
	registry types.ConfigRegistry,
	logger log.Logger,
) *Keeper {
	return &Keeper{
		cdc:          cdc,
		storeKey:     storeKey,
		tokenLedger:  tokenLedger,
		nativeLedger: nativeLedger,
		registry:     registry,
		logger:       logger.With("module", "x/trove"),
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

// AdminAuthority returns the admin identity from the config registry
func (k *Keeper) AdminAuthority(ctx context.Context) string {
	return k.registry.AdminAuthority(ctx)
}

// CustodyAddress is the account holding locked collateral
func (k *Keeper) CustodyAddress() sdk.AccAddress {
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
		k.logger.Error("failed to decode params, using defaults", "error", err)
		return types.DefaultParams()
	}
	return params
}

// DebtDecimals is the base-unit exponent of the debt-token ledger. The
// stability pool scales its mints and burns with the same value.
func (k *Keeper) DebtDecimals(ctx context.Context) uint32 {
	return k.GetParams(sdk.UnwrapSDKContext(ctx)).DebtDecimals
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

// ============ Trove Store Operations ============

// SetTrove saves a trove to the store
func (k *Keeper) SetTrove(ctx sdk.Context, trove *types.Trove) {
	bz, _ := json.Marshal(trove)
	k.GetStore(ctx).Set(types.GetTroveKey(trove.Owner), bz)
}

// GetTrove retrieves a trove from the store
func (k *Keeper) GetTrove(ctx sdk.Context, owner string) *types.Trove {
	bz := k.GetStore(ctx).Get(types.GetTroveKey(owner))
	if bz == nil {
		return nil
	}
	var trove types.Trove
	if err := json.Unmarshal(bz, &trove); err != nil {
		return nil
	}
	return &trove
}

// DeleteTrove removes a trove from the store
func (k *Keeper) DeleteTrove(ctx sdk.Context, owner string) {
	k.GetStore(ctx).Delete(types.GetTroveKey(owner))
}

// GetAllTroves returns all live troves
func (k *Keeper) GetAllTroves(ctx sdk.Context) []*types.Trove {
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), types.TroveKeyPrefix)
	defer iterator.Close()

	var troves []*types.Trove
	for ; iterator.Valid(); iterator.Next() {
		var trove types.Trove
		if err := json.Unmarshal(iterator.Value(), &trove); err != nil {
			continue
		}
		troves = append(troves, &trove)
	}
	return troves
}

// ============ Liquidation Store Operations ============

// SetLiquidation saves a liquidation record
func (k *Keeper) SetLiquidation(ctx sdk.Context, liquidation *types.Liquidation) {
	bz, _ := json.Marshal(liquidation)
	k.GetStore(ctx).Set(types.GetLiquidationKey(liquidation.LiquidationID), bz)
}

// GetLiquidation retrieves a liquidation record
func (k *Keeper) GetLiquidation(ctx sdk.Context, liquidationID string) *types.Liquidation {
	bz := k.GetStore(ctx).Get(types.GetLiquidationKey(liquidationID))
	if bz == nil {
		return nil
	}
	var liquidation types.Liquidation
	if err := json.Unmarshal(bz, &liquidation); err != nil {
		return nil
	}
	return &liquidation
}

// GetAllLiquidations returns liquidation records, newest first
func (k *Keeper) GetAllLiquidations(ctx sdk.Context, limit int) []*types.Liquidation {
	iterator := storetypes.KVStoreReversePrefixIterator(k.GetStore(ctx), types.LiquidationKeyPrefix)
	defer iterator.Close()

	var liquidations []*types.Liquidation
	for ; iterator.Valid() && (limit <= 0 || len(liquidations) < limit); iterator.Next() {
		var liquidation types.Liquidation
		if err := json.Unmarshal(iterator.Value(), &liquidation); err != nil {
			continue
		}
		liquidations = append(liquidations, &liquidation)
	}
	return liquidations
}

// SetLiquidatedTrove stores the terminal record of a liquidated trove. It
// outlives the live trove until the owner opens a new one.
func (k *Keeper) SetLiquidatedTrove(ctx sdk.Context, trove *types.Trove) {
	bz, _ := json.Marshal(trove)
	k.GetStore(ctx).Set(types.GetLiquidatedOwnerKey(trove.Owner), bz)
}

// GetLiquidatedTrove returns owner's terminal liquidated trove, if any
func (k *Keeper) GetLiquidatedTrove(ctx sdk.Context, owner string) *types.Trove {
	bz := k.GetStore(ctx).Get(types.GetLiquidatedOwnerKey(owner))
	if bz == nil {
		return nil
	}
	var trove types.Trove
	if err := json.Unmarshal(bz, &trove); err != nil {
		return nil
	}
	return &trove
}

// GetAllLiquidatedTroves returns every terminal liquidated trove
func (k *Keeper) GetAllLiquidatedTroves(ctx sdk.Context) []*types.Trove {
	iterator := storetypes.KVStorePrefixIterator(k.GetStore(ctx), types.LiquidatedOwnerPrefix)
	defer iterator.Close()

	var troves []*types.Trove
	for ; iterator.Valid(); iterator.Next() {
		var trove types.Trove
		if err := json.Unmarshal(iterator.Value(), &trove); err != nil {
			continue
		}
		troves = append(troves, &trove)
	}
	return troves
}

// IsLiquidatedOwner reports whether owner's last trove ended in liquidation
func (k *Keeper) IsLiquidatedOwner(ctx sdk.Context, owner string) bool {
	return k.GetStore(ctx).Has(types.GetLiquidatedOwnerKey(owner))
}

func (k *Keeper) clearLiquidatedOwner(ctx sdk.Context, owner string) {
	k.GetStore(ctx).Delete(types.GetLiquidatedOwnerKey(owner))
}

func (k *Keeper) setLiquidationCounter(ctx sdk.Context, counter uint64) {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, counter)
	k.GetStore(ctx).Set(types.LiquidationCounterKey, bz)
}

// generateLiquidationID generates a unique, lexically ordered liquidation ID
func (k *Keeper) generateLiquidationID(ctx sdk.Context) string {
	store := k.GetStore(ctx)
	bz := store.Get(types.LiquidationCounterKey)
	var counter uint64
	if bz != nil {
		counter = binary.BigEndian.Uint64(bz)
	}
	counter++

	newBz := make([]byte, 8)
	binary.BigEndian.PutUint64(newBz, counter)
	store.Set(types.LiquidationCounterKey, newBz)

	return fmt.Sprintf("liq-%010d", counter)
}
