package types

import (
	"context"

	"cosmossdk.io/math"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

// TokenLedger mints and burns a pool token (debt or governance). Amounts are in base units.
type TokenLedger interface {
	Mint(ctx context.Context, authority string, to sdk.AccAddress, amount math.Int) error
	Burn(ctx context.Context, from sdk.AccAddress, amount math.Int) error
}

// NativeLedger moves native currency between accounts
type NativeLedger interface {
	Transfer(ctx context.Context, from, to sdk.AccAddress, amount math.Int) error
}

// ConfigRegistry supplies the authority identities used for authorization
type ConfigRegistry interface {
	AdminAuthority(ctx context.Context) string
	MintAuthority(ctx context.Context) string
}

// TroveKeeper supplies the debt-token decimals the trove module mints and burns with
type TroveKeeper interface {
	DebtDecimals(ctx context.Context) uint32
}
