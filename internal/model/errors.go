package model

import (
	errorsmod "cosmossdk.io/errors"
)

// Codespace scopes the registered AMM error codes.
const Codespace = "amm"

// AMM error kinds. Every kind aborts the enclosing transition.
var (
	ErrPoolLocked            = errorsmod.Register(Codespace, 2, "pool is locked")
	ErrInvalidAmount         = errorsmod.Register(Codespace, 3, "invalid amount")
	ErrSlippageExceeded      = errorsmod.Register(Codespace, 4, "slippage exceeded")
	ErrInsufficientFunds     = errorsmod.Register(Codespace, 5, "insufficient funds")
	ErrInsufficientLiquidity = errorsmod.Register(Codespace, 6, "insufficient liquidity")
	ErrNoLiquidityInPool     = errorsmod.Register(Codespace, 7, "no liquidity in pool")
	ErrArithmeticOverflow    = errorsmod.Register(Codespace, 8, "arithmetic overflow")
	ErrDivisionByZero        = errorsmod.Register(Codespace, 9, "division by zero")
	ErrInvalidFee            = errorsmod.Register(Codespace, 10, "invalid fee")
	ErrPoolExists            = errorsmod.Register(Codespace, 11, "pool already exists")
	ErrPoolNotFound          = errorsmod.Register(Codespace, 12, "pool not found")
	ErrUnauthorized          = errorsmod.Register(Codespace, 13, "unauthorized")
	ErrAccountExists         = errorsmod.Register(Codespace, 14, "account already exists")
	ErrAssetNotFound         = errorsmod.Register(Codespace, 15, "asset not found")
	ErrInvariantViolated     = errorsmod.Register(Codespace, 16, "invariant violated")
	ErrInvalidAsset          = errorsmod.Register(Codespace, 17, "invalid asset")
)

// ErrorCode returns the registered code of err, or 0 for unregistered errors.
func ErrorCode(err error) uint32 {
	if err == nil {
		return 0
	}
	codespace, code, _ := errorsmod.ABCIInfo(err, false)
	if codespace != Codespace {
		return 0
	}
	return code
}
