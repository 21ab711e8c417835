package amm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"ammLedger/internal/curve"
	"ammLedger/internal/events"
	"ammLedger/internal/ledger"
	"ammLedger/internal/model"
)

// Deposit mints lpAmount LP units to caller in exchange for the proportional
// share of both reserves, bounded by maxX and maxY. On an empty pool the
// maxima are deposited verbatim and set the price.
func (e *Engine) Deposit(ctx context.Context, caller common.Address, seed, lpAmount, maxX, maxY uint64) (model.DepositEventData, error) {
	var out model.DepositEventData
	err := e.execute(ctx, model.InstructionDeposit, seed, func(tx *ledger.Tx, emit func(events.Emitted)) (model.PoolState, error) {
		state, err := e.loadPool(tx, seed)
		if err != nil {
			return model.PoolState{}, err
		}
		if state.Locked {
			return model.PoolState{}, model.ErrPoolLocked.Wrapf("seed %d", seed)
		}
		if lpAmount == 0 {
			return model.PoolState{}, model.ErrInvalidAmount.Wrap("lp amount must be positive")
		}

		x, y, err := curve.DepositAmounts(state.ReserveX, state.ReserveY, state.Supply, lpAmount, maxX, maxY)
		if err != nil {
			return model.PoolState{}, err
		}
		if x > maxX || y > maxY {
			return model.PoolState{}, model.ErrSlippageExceeded.Wrapf("deposit needs %d/%d, max %d/%d", x, y, maxX, maxY)
		}

		user := ledger.Signer(caller)
		if err := tx.Transfer(user, state.AssetX, state.Address, x); err != nil {
			return model.PoolState{}, err
		}
		if err := tx.Transfer(user, state.AssetY, state.Address, y); err != nil {
			return model.PoolState{}, err
		}
		auth, err := e.poolAuthority(state.Pool)
		if err != nil {
			return model.PoolState{}, err
		}
		if err := tx.Mint(auth, state.LPAsset, caller, lpAmount); err != nil {
			return model.PoolState{}, err
		}

		after, err := e.refresh(tx, state)
		if err != nil {
			return model.PoolState{}, err
		}
		if err := checkBacked(after); err != nil {
			return model.PoolState{}, err
		}

		out = model.DepositEventData{
			Caller:   caller.Hex(),
			LPAmount: lpAmount,
			AmountX:  x,
			AmountY:  y,
			ReserveX: after.ReserveX,
			ReserveY: after.ReserveY,
			Supply:   after.Supply,
		}
		emit(events.Emitted{Pool: state.Address, Caller: caller, Data: out})
		return after, nil
	})
	if !IsCommitted(err) {
		return model.DepositEventData{}, err
	}
	return out, err
}
