package types

import (
	"context"

	"cosmossdk.io/math"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

// TokenLedger mints and burns the debt token. Amounts are in ledger base units.
// Mint must be signed by the ledger's mint authority.
type TokenLedger interface {
	Mint(ctx context.Context, authority string, to sdk.AccAddress, amount math.Int) error
	Burn(ctx context.Context, from sdk.AccAddress, amount math.Int) error
}

// NativeLedger moves native currency between accounts. Amounts are in base units.
type NativeLedger interface {
	Transfer(ctx context.Context, from, to sdk.AccAddress, amount math.Int) error
}

// ConfigRegistry supplies the authority identities used for authorization
type ConfigRegistry interface {
	AdminAuthority(ctx context.Context) string
	MintAuthority(ctx context.Context) string
}
