// Package curve implements the constant-product liquidity math: deposit and
// withdrawal splits and fee-adjusted swap output. All functions are pure and
// integer-only. Intermediate products are computed in 256-bit arithmetic and
// narrowed back to uint64 only after division; a result that does not fit is
// reported as ErrArithmeticOverflow instead of wrapping.
package curve

import (
	"github.com/holiman/uint256"

	"ammLedger/internal/model"
)

// DepositAmounts returns the (x, y) a depositor must contribute to mint
// lpAmount LP units.
//
// With supply == 0 and both reserves empty the pool is bootstrapping and the
// caller maxima are taken verbatim: the first depositor sets the price.
// Reserves without supply have no proportional split and are rejected.
// Otherwise each leg is floor(R * lpAmount / supply).
func DepositAmounts(reserveX, reserveY, supply, lpAmount, maxX, maxY uint64) (uint64, uint64, error) {
	if lpAmount == 0 {
		return 0, 0, model.ErrInvalidAmount.Wrap("lp amount must be positive")
	}

	if supply == 0 {
		if reserveX != 0 || reserveY != 0 {
			return 0, 0, model.ErrInvalidAmount.Wrapf("reserves %d/%d without lp supply", reserveX, reserveY)
		}
		if maxX == 0 || maxY == 0 {
			return 0, 0, model.ErrInvalidAmount.Wrap("bootstrap deposit requires both assets")
		}
		return maxX, maxY, nil
	}

	x, err := MulDivFloor(reserveX, lpAmount, supply)
	if err != nil {
		return 0, 0, err
	}
	y, err := MulDivFloor(reserveY, lpAmount, supply)
	if err != nil {
		return 0, 0, err
	}
	if x == 0 || y == 0 {
		return 0, 0, model.ErrInvalidAmount.Wrapf("lp amount %d too small for reserves %d/%d", lpAmount, reserveX, reserveY)
	}
	return x, y, nil
}

// WithdrawAmounts returns floor(R * lpAmount / supply) for both reserves.
func WithdrawAmounts(reserveX, reserveY, supply, lpAmount uint64) (uint64, uint64, error) {
	if supply == 0 {
		return 0, 0, model.ErrNoLiquidityInPool
	}
	if lpAmount > supply {
		return 0, 0, model.ErrInsufficientLiquidity.Wrapf("lp amount %d exceeds supply %d", lpAmount, supply)
	}

	x, err := MulDivFloor(reserveX, lpAmount, supply)
	if err != nil {
		return 0, 0, err
	}
	y, err := MulDivFloor(reserveY, lpAmount, supply)
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

// EffectiveInput is floor(amountIn * (10_000 - feeBps) / 10_000): the part of
// the input that moves along the curve. The remainder stays in the input
// vault.
func EffectiveInput(amountIn uint64, feeBps uint16) (uint64, error) {
	if feeBps >= model.MaxFeeBps {
		return 0, model.ErrInvalidFee.Wrapf("fee %d bps", feeBps)
	}
	return MulDivFloor(amountIn, uint64(model.MaxFeeBps-feeBps), model.MaxFeeBps)
}

// SwapFee is the part of amountIn retained by the pool.
func SwapFee(amountIn uint64, feeBps uint16) (uint64, error) {
	eff, err := EffectiveInput(amountIn, feeBps)
	if err != nil {
		return 0, err
	}
	return amountIn - eff, nil
}

// Quote computes floor(eff * R_out / (R_in + eff)) without rejecting a zero
// result, so callers can order their own bound checks.
func Quote(reserveIn, reserveOut, amountIn uint64, feeBps uint16) (uint64, error) {
	if amountIn == 0 {
		return 0, model.ErrInvalidAmount.Wrap("amount in must be positive")
	}
	if reserveIn == 0 || reserveOut == 0 {
		return 0, model.ErrInsufficientLiquidity.Wrapf("reserves %d/%d", reserveIn, reserveOut)
	}

	eff, err := EffectiveInput(amountIn, feeBps)
	if err != nil {
		return 0, err
	}

	num := new(uint256.Int).Mul(uint256.NewInt(eff), uint256.NewInt(reserveOut))
	den := new(uint256.Int).Add(uint256.NewInt(reserveIn), uint256.NewInt(eff))
	return narrow(new(uint256.Int).Div(num, den))
}

// SwapOut is Quote that also rejects a zero output.
func SwapOut(reserveIn, reserveOut, amountIn uint64, feeBps uint16) (uint64, error) {
	out, err := Quote(reserveIn, reserveOut, amountIn, feeBps)
	if err != nil {
		return 0, err
	}
	if out == 0 {
		return 0, model.ErrInvalidAmount.Wrapf("amount in %d yields no output", amountIn)
	}
	return out, nil
}

// Product returns R_x * R_y. The product of two uint64 always fits.
func Product(reserveX, reserveY uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(reserveX), uint256.NewInt(reserveY))
}

// MulDivFloor returns floor(a * b / d).
func MulDivFloor(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, model.ErrDivisionByZero
	}
	prod := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	return narrow(prod.Div(prod, uint256.NewInt(d)))
}

// CheckedAdd returns a + b or ErrArithmeticOverflow.
func CheckedAdd(a, b uint64) (uint64, error) {
	return narrow(new(uint256.Int).Add(uint256.NewInt(a), uint256.NewInt(b)))
}

func narrow(v *uint256.Int) (uint64, error) {
	if !v.IsUint64() {
		return 0, model.ErrArithmeticOverflow.Wrapf("%s does not fit in 64 bits", v.ToBig().String())
	}
	return v.Uint64(), nil
}
