package app

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	servertypes "github.com/cosmos/cosmos-sdk/server/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	authtypes "github.com/cosmos/cosmos-sdk/x/auth/types"
	"github.com/spf13/cast"

	trovetypes "github.com/openalpha/cdp-chain/x/trove/types"
)

// bankKeeper is the subset of the bank keeper the ledgers use
type bankKeeper interface {
	MintCoins(ctx context.Context, moduleName string, amounts sdk.Coins) error
	BurnCoins(ctx context.Context, moduleName string, amounts sdk.Coins) error
	SendCoins(ctx context.Context, fromAddr, toAddr sdk.AccAddress, amt sdk.Coins) error
	SendCoinsFromModuleToAccount(ctx context.Context, senderModule string, recipientAddr sdk.AccAddress, amt sdk.Coins) error
	SendCoinsFromAccountToModule(ctx context.Context, senderAddr sdk.AccAddress, recipientModule string, amt sdk.Coins) error
}

// bankTokenLedger backs a mintable token with the bank module. Mints and
// burns pass through the module account that holds minter/burner permissions,
// and only that module's name is accepted as mint authority.
type bankTokenLedger struct {
	bank       bankKeeper
	denom      string
	moduleName string
}

func newBankTokenLedger(bank bankKeeper, denom, moduleName string) bankTokenLedger {
	return bankTokenLedger{bank: bank, denom: denom, moduleName: moduleName}
}

func (l bankTokenLedger) Mint(ctx context.Context, authority string, to sdk.AccAddress, amount math.Int) error {
	if authority != l.moduleName {
		return fmt.Errorf("%s is not the %s mint authority", authority, l.denom)
	}
	if amount.IsZero() {
		return nil
	}
	coins := sdk.NewCoins(sdk.NewCoin(l.denom, amount))
	if err := l.bank.MintCoins(ctx, l.moduleName, coins); err != nil {
		return err
	}
	return l.bank.SendCoinsFromModuleToAccount(ctx, l.moduleName, to, coins)
}

func (l bankTokenLedger) Burn(ctx context.Context, from sdk.AccAddress, amount math.Int) error {
	if amount.IsZero() {
		return nil
	}
	coins := sdk.NewCoins(sdk.NewCoin(l.denom, amount))
	if err := l.bank.SendCoinsFromAccountToModule(ctx, from, l.moduleName, coins); err != nil {
		return err
	}
	return l.bank.BurnCoins(ctx, l.moduleName, coins)
}

// bankNativeLedger moves the native denom between plain addresses, including
// module addresses used for custody and fee collection
type bankNativeLedger struct {
	bank  bankKeeper
	denom string
}

func newBankNativeLedger(bank bankKeeper, denom string) bankNativeLedger {
	return bankNativeLedger{bank: bank, denom: denom}
}

func (l bankNativeLedger) Transfer(ctx context.Context, from, to sdk.AccAddress, amount math.Int) error {
	if amount.IsZero() {
		return nil
	}
	return l.bank.SendCoins(ctx, from, to, sdk.NewCoins(sdk.NewCoin(l.denom, amount)))
}

// Config keys read from app.toml
const (
	flagAdminAuthority = "cdp.admin-authority"
)

// newRegistry builds the chain's ConfigRegistry. The admin authority comes from
// app.toml and defaults to the gov module account; the trove module mints.
func newRegistry(appOpts servertypes.AppOptions) trovetypes.StaticRegistry {
	admin := cast.ToString(appOpts.Get(flagAdminAuthority))
	if admin == "" {
		admin = authtypes.NewModuleAddress("gov").String()
	}
	return trovetypes.NewStaticRegistry(admin, trovetypes.ModuleName)
}
