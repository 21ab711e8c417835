package amm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"ammLedger/internal/curve"
	"ammLedger/internal/ledger"
	"ammLedger/internal/model"
)

// Pool returns the committed state of the pool for seed. Locked pools can
// still be read.
func (e *Engine) Pool(ctx context.Context, seed uint64) (model.PoolState, error) {
	var state model.PoolState
	err := e.store.View(ctx, func(r ledger.Reader) error {
		var err error
		state, err = e.loadPool(r, seed)
		return err
	})
	return state, err
}

// Sequence returns the last committed ledger sequence.
func (e *Engine) Sequence(ctx context.Context) (uint64, error) {
	var seq uint64
	err := e.store.View(ctx, func(r ledger.Reader) error {
		seq = r.Sequence()
		return nil
	})
	return seq, err
}

// PoolMeta resolves the immutable metadata of the pool at addr.
func (e *Engine) PoolMeta(ctx context.Context, addr common.Address) (model.PoolMeta, error) {
	var state model.PoolState
	err := e.store.View(ctx, func(r ledger.Reader) error {
		var err error
		state, err = e.loadPoolAt(r, addr)
		return err
	})
	if err != nil {
		return model.PoolMeta{}, err
	}
	return model.PoolMeta{
		Seed:    state.Seed,
		AssetX:  state.AssetX.Hex(),
		AssetY:  state.AssetY.Hex(),
		LPAsset: state.LPAsset.Hex(),
		FeeBps:  state.FeeBps,
	}, nil
}

// QuoteSwap returns what Swap would pay out against committed reserves.
func (e *Engine) QuoteSwap(ctx context.Context, seed, amountIn uint64, xToY bool) (uint64, error) {
	state, err := e.Pool(ctx, seed)
	if err != nil {
		return 0, err
	}
	reserveIn, reserveOut := state.Reserves(xToY)
	return curve.SwapOut(reserveIn, reserveOut, amountIn, state.FeeBps)
}

// QuoteDeposit returns the (x, y) Deposit would take, applying the same
// slippage bounds.
func (e *Engine) QuoteDeposit(ctx context.Context, seed, lpAmount, maxX, maxY uint64) (uint64, uint64, error) {
	state, err := e.Pool(ctx, seed)
	if err != nil {
		return 0, 0, err
	}
	x, y, err := curve.DepositAmounts(state.ReserveX, state.ReserveY, state.Supply, lpAmount, maxX, maxY)
	if err != nil {
		return 0, 0, err
	}
	if x > maxX || y > maxY {
		return x, y, model.ErrSlippageExceeded.Wrapf("deposit needs %d/%d, max %d/%d", x, y, maxX, maxY)
	}
	return x, y, nil
}

// QuoteWithdraw returns the (x, y) redeeming lpAmount would pay out.
func (e *Engine) QuoteWithdraw(ctx context.Context, seed, lpAmount uint64) (uint64, uint64, error) {
	state, err := e.Pool(ctx, seed)
	if err != nil {
		return 0, 0, err
	}
	if lpAmount == 0 {
		return 0, 0, model.ErrInvalidAmount.Wrap("lp amount must be positive")
	}
	return curve.WithdrawAmounts(state.ReserveX, state.ReserveY, state.Supply, lpAmount)
}

// CheckInvariants verifies the pool for seed against its ledger accounts: the
// fee range, supply == 0 exactly when both reserves are empty, the LP mint
// authority and the vault ownership.
func (e *Engine) CheckInvariants(ctx context.Context, seed uint64) error {
	return e.store.View(ctx, func(r ledger.Reader) error {
		state, err := e.loadPool(r, seed)
		if err != nil {
			return err
		}
		if state.FeeBps >= model.MaxFeeBps {
			return model.ErrInvariantViolated.Wrapf("fee %d bps out of range", state.FeeBps)
		}
		if err := checkBacked(state); err != nil {
			return err
		}
		if state.Supply == 0 && (state.ReserveX != 0 || state.ReserveY != 0) {
			return model.ErrInvariantViolated.Wrapf("no supply but reserves %d/%d", state.ReserveX, state.ReserveY)
		}

		info, err := r.Asset(state.LPAsset)
		if err != nil {
			return err
		}
		if info.MintAuthority != state.Address {
			return model.ErrInvariantViolated.Wrapf("lp mint authority %s", info.MintAuthority.Hex())
		}
		for _, asset := range []common.Address{state.AssetX, state.AssetY} {
			ok, err := r.AccountExists(state.Address, asset)
			if err != nil {
				return err
			}
			if !ok {
				return model.ErrInvariantViolated.Wrapf("missing vault for %s", asset.Hex())
			}
		}
		return nil
	})
}

// checkBacked rejects outstanding LP units without a claim on both reserves.
func checkBacked(state model.PoolState) error {
	if state.Supply > 0 && (state.ReserveX == 0 || state.ReserveY == 0) {
		return model.ErrInvariantViolated.Wrapf("supply %d backed by reserves %d/%d", state.Supply, state.ReserveX, state.ReserveY)
	}
	return nil
}

// AssetDecimals returns the decimals of a ledger asset.
func (e *Engine) AssetDecimals(ctx context.Context, asset common.Address) (uint8, error) {
	var decimals uint8
	err := e.store.View(ctx, func(r ledger.Reader) error {
		info, err := r.Asset(asset)
		if err != nil {
			return err
		}
		decimals = info.Decimals
		return nil
	})
	return decimals, err
}
