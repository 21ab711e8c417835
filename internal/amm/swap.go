package amm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"ammLedger/internal/curve"
	"ammLedger/internal/events"
	"ammLedger/internal/ledger"
	"ammLedger/internal/model"
)

// Swap trades amountIn of one pool asset for the other along the constant
// product curve. The fee stays in the source vault.
func (e *Engine) Swap(ctx context.Context, caller common.Address, seed, amountIn, minAmountOut uint64, xToY bool) (model.SwapEventData, error) {
	var (
		out     model.SwapEventData
		traded  model.PoolState
		inAsset common.Address
	)
	err := e.execute(ctx, model.InstructionSwap, seed, func(tx *ledger.Tx, emit func(events.Emitted)) (model.PoolState, error) {
		state, err := e.loadPool(tx, seed)
		if err != nil {
			return model.PoolState{}, err
		}
		if state.Locked {
			return model.PoolState{}, model.ErrPoolLocked.Wrapf("seed %d", seed)
		}
		if amountIn == 0 {
			return model.PoolState{}, model.ErrInvalidAmount.Wrap("amount in must be positive")
		}

		srcAsset, dstAsset := state.AssetX, state.AssetY
		if !xToY {
			srcAsset, dstAsset = dstAsset, srcAsset
		}
		reserveIn, reserveOut := state.Reserves(xToY)

		balance, err := tx.Balance(caller, srcAsset)
		if err != nil {
			return model.PoolState{}, err
		}
		if balance < amountIn {
			return model.PoolState{}, model.ErrInsufficientFunds.Wrapf("balance %d, amount in %d", balance, amountIn)
		}
		if reserveIn == 0 || reserveOut == 0 {
			return model.PoolState{}, model.ErrInsufficientLiquidity.Wrapf("reserves %d/%d", reserveIn, reserveOut)
		}

		amountOut, err := curve.Quote(reserveIn, reserveOut, amountIn, state.FeeBps)
		if err != nil {
			return model.PoolState{}, err
		}
		if amountOut < minAmountOut {
			return model.PoolState{}, model.ErrSlippageExceeded.Wrapf("amount out %d below minimum %d", amountOut, minAmountOut)
		}
		if amountOut == 0 {
			return model.PoolState{}, model.ErrInvalidAmount.Wrapf("amount in %d yields no output", amountIn)
		}
		if reserveOut < amountOut {
			return model.PoolState{}, model.ErrInsufficientLiquidity.Wrapf("reserve %d, amount out %d", reserveOut, amountOut)
		}

		if err := tx.Transfer(ledger.Signer(caller), srcAsset, state.Address, amountIn); err != nil {
			return model.PoolState{}, err
		}
		auth, err := e.poolAuthority(state.Pool)
		if err != nil {
			return model.PoolState{}, err
		}
		if err := tx.Transfer(auth, dstAsset, caller, amountOut); err != nil {
			return model.PoolState{}, err
		}

		after, err := e.refresh(tx, state)
		if err != nil {
			return model.PoolState{}, err
		}
		before := curve.Product(state.ReserveX, state.ReserveY)
		if curve.Product(after.ReserveX, after.ReserveY).Lt(before) {
			return model.PoolState{}, model.ErrInvariantViolated.Wrapf("product decreased on swap of %d", amountIn)
		}

		out = model.SwapEventData{
			Caller:    caller.Hex(),
			AmountIn:  amountIn,
			AmountOut: amountOut,
			XToY:      xToY,
			ReserveX:  after.ReserveX,
			ReserveY:  after.ReserveY,
		}
		emit(events.Emitted{Pool: state.Address, Caller: caller, Data: out})
		traded, inAsset = state, srcAsset
		return after, nil
	})
	if !IsCommitted(err) {
		return model.SwapEventData{}, err
	}
	e.observeSwap(traded, inAsset, amountIn)
	return out, err
}

func (e *Engine) observeSwap(state model.PoolState, asset common.Address, amountIn uint64) {
	if e.metrics == nil {
		return
	}
	pool := state.Address.Hex()
	e.metrics.SwapVolume.WithLabelValues(pool, asset.Hex()).Add(float64(amountIn))
	if fee, err := curve.SwapFee(amountIn, state.FeeBps); err == nil {
		e.metrics.SwapFees.WithLabelValues(pool, asset.Hex()).Add(float64(fee))
	}
}
