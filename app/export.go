package app

import (
	"encoding/json"
	"fmt"

	cmtproto "github.com/cometbft/cometbft/proto/tendermint/types"
	servertypes "github.com/cosmos/cosmos-sdk/server/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	banktypes "github.com/cosmos/cosmos-sdk/x/bank/types"

	stabilitypooltypes "github.com/openalpha/cdp-chain/x/stabilitypool/types"
	trovetypes "github.com/openalpha/cdp-chain/x/trove/types"
)

// ExportAppStateAndValidators exports the state of the auth, bank, trove and
// stability pool modules. An empty modulesToExport exports all of them.
func (app *App) ExportAppStateAndValidators(modulesToExport []string) (servertypes.ExportedApp, error) {
	ctx := app.NewContextLegacy(true, cmtproto.Header{Height: app.LastBlockHeight()})

	include := func(name string) bool {
		if len(modulesToExport) == 0 {
			return true
		}
		for _, m := range modulesToExport {
			if m == name {
				return true
			}
		}
		return false
	}

	genesis := make(map[string]json.RawMessage)
	if include(authtypes.ModuleName) {
		genesis[authtypes.ModuleName] = app.appCodec.MustMarshalJSON(app.AccountKeeper.ExportGenesis(ctx))
	}
	if include(banktypes.ModuleName) {
		genesis[banktypes.ModuleName] = app.appCodec.MustMarshalJSON(app.BankKeeper.ExportGenesis(ctx))
	}
	if include(trovetypes.ModuleName) {
		bz, err := json.Marshal(app.TroveKeeper.ExportGenesis(ctx))
		if err != nil {
			return servertypes.ExportedApp{}, fmt.Errorf("export %s: %w", trovetypes.ModuleName, err)
		}
		genesis[trovetypes.ModuleName] = bz
	}
	if include(stabilitypooltypes.ModuleName) {
		bz, err := json.Marshal(app.StabilityPoolKeeper.ExportGenesis(ctx))
		if err != nil {
			return servertypes.ExportedApp{}, fmt.Errorf("export %s: %w", stabilitypooltypes.ModuleName, err)
		}
		genesis[stabilitypooltypes.ModuleName] = bz
	}

	appState, err := json.MarshalIndent(genesis, "", "  ")
	if err != nil {
		return servertypes.ExportedApp{}, err
	}

	return servertypes.ExportedApp{
		AppState:        appState,
		Height:          app.LastBlockHeight(),
		ConsensusParams: app.GetConsensusParams(ctx),
	}, nil
}
