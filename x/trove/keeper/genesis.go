package keeper

import (
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/openalpha/cdp-chain/x/trove/types"
)

// InitGenesis loads the module state from genesis
func (k *Keeper) InitGenesis(ctx sdk.Context, gs types.GenesisState) {
	if err := k.SetParams(ctx, gs.Params); err != nil {
		panic(err)
	}
	for i := range gs.Troves {
		k.SetTrove(ctx, &gs.Troves[i])
	}
	for i := range gs.PriceFeeds {
		k.SetPriceFeed(ctx, &gs.PriceFeeds[i])
	}
	for i := range gs.LiquidatedTroves {
		k.SetLiquidatedTrove(ctx, &gs.LiquidatedTroves[i])
	}
	for i := range gs.Liquidations {
		k.SetLiquidation(ctx, &gs.Liquidations[i])
	}
	k.setLiquidationCounter(ctx, uint64(len(gs.Liquidations)))
}

// ExportGenesis exports the module state
func (k *Keeper) ExportGenesis(ctx sdk.Context) *types.GenesisState {
	gs := &types.GenesisState{Params: k.GetParams(ctx)}
	for _, t := range k.GetAllTroves(ctx) {
		gs.Troves = append(gs.Troves, *t)
	}
	for _, t := range k.GetAllLiquidatedTroves(ctx) {
		gs.LiquidatedTroves = append(gs.LiquidatedTroves, *t)
	}
	if feed := k.GetPriceFeed(ctx, gs.Params.PriceFeedID); feed != nil {
		gs.PriceFeeds = append(gs.PriceFeeds, *feed)
	}
	for _, l := range k.GetAllLiquidations(ctx, 0) {
		gs.Liquidations = append(gs.Liquidations, *l)
	}
	return gs
}
