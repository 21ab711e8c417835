package amm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"ammLedger/internal/curve"
	"ammLedger/internal/events"
	"ammLedger/internal/ledger"
	"ammLedger/internal/model"
)

// Withdraw burns lpAmount of caller's LP units and pays out the proportional
// share of both reserves, bounded below by minX and minY.
func (e *Engine) Withdraw(ctx context.Context, caller common.Address, seed, lpAmount, minX, minY uint64) (model.WithdrawEventData, error) {
	var out model.WithdrawEventData
	err := e.execute(ctx, model.InstructionWithdraw, seed, func(tx *ledger.Tx, emit func(events.Emitted)) (model.PoolState, error) {
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

		held, err := tx.Balance(caller, state.LPAsset)
		if err != nil {
			return model.PoolState{}, err
		}
		if held < lpAmount {
			return model.PoolState{}, model.ErrInsufficientFunds.Wrapf("lp balance %d, withdraw %d", held, lpAmount)
		}
		if state.Supply == 0 {
			return model.PoolState{}, model.ErrNoLiquidityInPool.Wrapf("seed %d", seed)
		}

		x, y, err := curve.WithdrawAmounts(state.ReserveX, state.ReserveY, state.Supply, lpAmount)
		if err != nil {
			return model.PoolState{}, err
		}
		if x < minX || y < minY {
			return model.PoolState{}, model.ErrSlippageExceeded.Wrapf("withdraw yields %d/%d, min %d/%d", x, y, minX, minY)
		}
		if x == 0 || y == 0 {
			return model.PoolState{}, model.ErrInvalidAmount.Wrapf("lp amount %d yields %d/%d", lpAmount, x, y)
		}
		if state.ReserveX < x || state.ReserveY < y {
			return model.PoolState{}, model.ErrInsufficientLiquidity.Wrapf("reserves %d/%d, withdraw %d/%d", state.ReserveX, state.ReserveY, x, y)
		}

		if err := tx.Burn(ledger.Signer(caller), state.LPAsset, lpAmount); err != nil {
			return model.PoolState{}, err
		}
		auth, err := e.poolAuthority(state.Pool)
		if err != nil {
			return model.PoolState{}, err
		}
		if err := tx.Transfer(auth, state.AssetX, caller, x); err != nil {
			return model.PoolState{}, err
		}
		if err := tx.Transfer(auth, state.AssetY, caller, y); err != nil {
			return model.PoolState{}, err
		}

		after, err := e.refresh(tx, state)
		if err != nil {
			return model.PoolState{}, err
		}
		if err := checkBacked(after); err != nil {
			return model.PoolState{}, err
		}

		out = model.WithdrawEventData{
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
		return model.WithdrawEventData{}, err
	}
	return out, err
}
