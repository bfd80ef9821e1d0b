package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrEntryNotFound            = errors.Register(ModuleName, 1, "deposit entry not found")
	ErrAttemptToWithdrawTooMuch = errors.Register(ModuleName, 2, "attempt to withdraw too much")
	ErrInvalidAmount            = errors.Register(ModuleName, 3, "invalid amount")
	ErrUnauthorized             = errors.Register(ModuleName, 4, "unauthorized")
	ErrInvalidAddress           = errors.Register(ModuleName, 5, "invalid address")
	ErrEntryNotEmpty            = errors.Register(ModuleName, 6, "deposit entry still holds funds or rewards")
	ErrInsufficientLiquidity    = errors.Register(ModuleName, 7, "insufficient liquidity")
	ErrInvalidParams            = errors.Register(ModuleName, 8, "invalid params")
)
