// Package ledger provides a store-backed token ledger used by the off-chain
// service and by keeper tests. Balances live in the caller's KV store, so
// they commit and roll back together with the operation that moved them.
package ledger

import (
	"context"
	"fmt"

	"cosmossdk.io/errors"
	"cosmossdk.io/math"
	storetypes "cosmossdk.io/store/types"

	sdk "github.com/cosmos/cosmos-sdk/types"
)

const codespace = "ledger"

var (
	ErrInsufficientFunds = errors.Register(codespace, 1, "insufficient funds")
	ErrUnauthorized      = errors.Register(codespace, 2, "unauthorized mint")
	ErrInvalidAmount     = errors.Register(codespace, 3, "invalid amount")
)

var (
	balanceKeyPrefix = []byte{0x01}
	supplyKeyPrefix  = []byte{0x02}
)

// Ledger tracks balances of a single denom
type Ledger struct {
	storeKey storetypes.StoreKey
	denom    string
	minter   string
}

// New creates a ledger for denom. Mints are accepted only from minter;
// an empty minter accepts none.
func New(storeKey storetypes.StoreKey, denom, minter string) *Ledger {
	return &Ledger{storeKey: storeKey, denom: denom, minter: minter}
}

// Denom returns the ledger's denom
func (l *Ledger) Denom() string {
	return l.denom
}

// Mint credits amount to `to`
func (l *Ledger) Mint(ctx context.Context, authority string, to sdk.AccAddress, amount math.Int) error {
	if authority == "" || authority != l.minter {
		return errors.Wrapf(ErrUnauthorized, "%s cannot mint %s", authority, l.denom)
	}
	if err := validAmount(amount); err != nil {
		return err
	}
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	l.setBalance(sdkCtx, to, l.GetBalance(sdkCtx, to).Add(amount))
	l.setSupply(sdkCtx, l.GetSupply(sdkCtx).Add(amount))
	return nil
}

// Burn debits amount from `from`
func (l *Ledger) Burn(ctx context.Context, from sdk.AccAddress, amount math.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	bal := l.GetBalance(sdkCtx, from)
	if bal.LT(amount) {
		return errors.Wrapf(ErrInsufficientFunds, "%s has %s%s, burning %s", from, bal, l.denom, amount)
	}
	l.setBalance(sdkCtx, from, bal.Sub(amount))
	l.setSupply(sdkCtx, l.GetSupply(sdkCtx).Sub(amount))
	return nil
}

// Transfer moves amount between accounts
func (l *Ledger) Transfer(ctx context.Context, from, to sdk.AccAddress, amount math.Int) error {
	if err := validAmount(amount); err != nil {
		return err
	}
	sdkCtx := sdk.UnwrapSDKContext(ctx)
	bal := l.GetBalance(sdkCtx, from)
	if bal.LT(amount) {
		return errors.Wrapf(ErrInsufficientFunds, "%s has %s%s, sending %s", from, bal, l.denom, amount)
	}
	l.setBalance(sdkCtx, from, bal.Sub(amount))
	l.setBalance(sdkCtx, to, l.GetBalance(sdkCtx, to).Add(amount))
	return nil
}

// Fund credits an account and grows the supply by the same amount. Unlike
// Mint it needs no authority; it seeds balances.
func (l *Ledger) Fund(ctx sdk.Context, addr sdk.AccAddress, amount math.Int) {
	l.setBalance(ctx, addr, l.GetBalance(ctx, addr).Add(amount))
	l.setSupply(ctx, l.GetSupply(ctx).Add(amount))
}

// GetBalance returns the balance of addr
func (l *Ledger) GetBalance(ctx sdk.Context, addr sdk.AccAddress) math.Int {
	bz := ctx.KVStore(l.storeKey).Get(l.balanceKey(addr))
	if bz == nil {
		return math.ZeroInt()
	}
	var v math.Int
	if err := v.Unmarshal(bz); err != nil {
		panic(fmt.Sprintf("ledger: corrupt balance for %s: %v", addr, err))
	}
	return v
}

// GetSupply returns the total amount in circulation
func (l *Ledger) GetSupply(ctx sdk.Context) math.Int {
	bz := ctx.KVStore(l.storeKey).Get(append(supplyKeyPrefix, []byte(l.denom)...))
	if bz == nil {
		return math.ZeroInt()
	}
	var v math.Int
	if err := v.Unmarshal(bz); err != nil {
		panic(fmt.Sprintf("ledger: corrupt supply: %v", err))
	}
	return v
}

func (l *Ledger) setBalance(ctx sdk.Context, addr sdk.AccAddress, amount math.Int) {
	store := ctx.KVStore(l.storeKey)
	if amount.IsZero() {
		store.Delete(l.balanceKey(addr))
		return
	}
	bz, err := amount.Marshal()
	if err != nil {
		panic(err)
	}
	store.Set(l.balanceKey(addr), bz)
}

func (l *Ledger) setSupply(ctx sdk.Context, amount math.Int) {
	bz, err := amount.Marshal()
	if err != nil {
		panic(err)
	}
	ctx.KVStore(l.storeKey).Set(append(supplyKeyPrefix, []byte(l.denom)...), bz)
}

func (l *Ledger) balanceKey(addr sdk.AccAddress) []byte {
	key := append([]byte{}, balanceKeyPrefix...)
	key = append(key, []byte(l.denom)...)
	key = append(key, '/')
	return append(key, addr.Bytes()...)
}

func validAmount(amount math.Int) error {
	if amount.IsNil() || amount.IsNegative() {
		return errors.Wrapf(ErrInvalidAmount, "%v", amount)
	}
	return nil
}
