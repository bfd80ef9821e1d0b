package types

import (
	"cosmossdk.io/errors"
)

// Module error codes
var (
	ErrAlreadyInitialized     = errors.Register(ModuleName, 1, "trove already initialized")
	ErrNotInitialized         = errors.Register(ModuleName, 2, "trove not initialized")
	ErrAlreadyLiquidated      = errors.Register(ModuleName, 3, "trove already liquidated")
	ErrNotReceived            = errors.Register(ModuleName, 4, "trove is not received")
	ErrOnlyOwner              = errors.Register(ModuleName, 5, "only the trove owner may perform this operation")
	ErrMathOverflow           = errors.Register(ModuleName, 6, "math overflow")
	ErrInvalidCollateral      = errors.Register(ModuleName, 7, "collateral ratio below minimum")
	ErrBorrowTooLarge         = errors.Register(ModuleName, 8, "borrow amount too large for collateral")
	ErrInsufficientLiquidity  = errors.Register(ModuleName, 9, "insufficient liquidity")
	ErrExpectedAmountMismatch = errors.Register(ModuleName, 10, "expected amount mismatch")
	ErrInvalidAmount          = errors.Register(ModuleName, 11, "invalid amount")
	ErrUnauthorized           = errors.Register(ModuleName, 12, "unauthorized")
	ErrInvalidAddress         = errors.Register(ModuleName, 13, "invalid address")

	// Oracle errors
	ErrOracleUnavailable = errors.Register(ModuleName, 20, "price feed unavailable")
	ErrInvalidPrice      = errors.Register(ModuleName, 21, "invalid price")
	ErrStalePrice        = errors.Register(ModuleName, 22, "price feed is stale")

	// Params errors
	ErrInvalidParams = errors.Register(ModuleName, 30, "invalid params")

	// Liquidation errors
	ErrLiquidationNotFound = errors.Register(ModuleName, 40, "liquidation record not found")
)
