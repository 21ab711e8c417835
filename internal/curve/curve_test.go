package curve

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"ammLedger/internal/model"
)

func TestSwapOutReferenceScenario(t *testing.T) {
	eff, err := EffectiveInput(1_000, 30)
	require.NoError(t, err)
	require.Equal(t, uint64(997), eff)

	out, err := SwapOut(1_000_000, 1_000_000, 1_000, 30)
	require.NoError(t, err)
	require.Equal(t, uint64(996), out)

	fee, err := SwapFee(1_000, 30)
	require.NoError(t, err)
	require.Equal(t, uint64(3), fee)
}

func TestSwapOutZeroFee(t *testing.T) {
	out, err := SwapOut(1_000_000, 1_000_000, 1_000, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(999), out)
}

func TestSwapOutErrors(t *testing.T) {
	_, err := SwapOut(1_000, 1_000, 0, 30)
	require.ErrorIs(t, err, model.ErrInvalidAmount)

	_, err = SwapOut(0, 1_000, 10, 30)
	require.ErrorIs(t, err, model.ErrInsufficientLiquidity)

	_, err = SwapOut(1_000, 0, 10, 30)
	require.ErrorIs(t, err, model.ErrInsufficientLiquidity)

	// 1 unit with a fee floors to zero effective input.
	out, err := Quote(1_000, 1_000, 1, 30)
	require.NoError(t, err)
	require.Zero(t, out)
	_, err = SwapOut(1_000, 1_000, 1, 30)
	require.ErrorIs(t, err, model.ErrInvalidAmount)

	_, err = SwapOut(1_000, 1_000, 10, model.MaxFeeBps)
	require.ErrorIs(t, err, model.ErrInvalidFee)
}

func TestSwapOutLargeReservesDoNotOverflow(t *testing.T) {
	out, err := SwapOut(math.MaxUint64-1, math.MaxUint64, math.MaxUint64, 0)
	require.NoError(t, err)
	require.Less(t, out, uint64(math.MaxUint64))
}

func TestDepositAmountsBootstrap(t *testing.T) {
	x, y, err := DepositAmounts(0, 0, 0, 1_000, 5_000, 20_000)
	require.NoError(t, err)
	require.Equal(t, uint64(5_000), x)
	require.Equal(t, uint64(20_000), y)

	_, _, err = DepositAmounts(0, 0, 0, 1_000, 0, 20_000)
	require.ErrorIs(t, err, model.ErrInvalidAmount)

	// Balances that reached the vaults without minting LP units have no owner
	// to be proportional to.
	_, _, err = DepositAmounts(500, 0, 0, 1_000, 5_000, 20_000)
	require.ErrorIs(t, err, model.ErrInvalidAmount)
	_, _, err = DepositAmounts(500, 500, 0, 1_000, 5_000, 20_000)
	require.ErrorIs(t, err, model.ErrInvalidAmount)
}

func TestDepositAmountsSteadyState(t *testing.T) {
	x, y, err := DepositAmounts(1_000, 2_000, 1_000, 100, math.MaxUint64, math.MaxUint64)
	require.NoError(t, err)
	require.Equal(t, uint64(100), x)
	require.Equal(t, uint64(200), y)

	// floor(1000*7/3) = 2333, floor(2000*7/3) = 4666
	x, y, err = DepositAmounts(1_000, 2_000, 3, 7, 0, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(2_333), x)
	require.Equal(t, uint64(4_666), y)
}

func TestDepositAmountsRejects(t *testing.T) {
	_, _, err := DepositAmounts(1_000, 1_000, 1_000, 0, 10, 10)
	require.ErrorIs(t, err, model.ErrInvalidAmount)

	// One leg floors to zero.
	_, _, err = DepositAmounts(1, 1_000, 1_000, 1, 10, 10)
	require.ErrorIs(t, err, model.ErrInvalidAmount)
}

func TestWithdrawAmounts(t *testing.T) {
	x, y, err := WithdrawAmounts(1_000, 3_000, 600, 200)
	require.NoError(t, err)
	require.Equal(t, uint64(333), x)
	require.Equal(t, uint64(1_000), y)

	x, y, err = WithdrawAmounts(1_000, 3_000, 600, 600)
	require.NoError(t, err)
	require.Equal(t, uint64(1_000), x)
	require.Equal(t, uint64(3_000), y)

	_, _, err = WithdrawAmounts(0, 0, 0, 1)
	require.ErrorIs(t, err, model.ErrNoLiquidityInPool)
}

func TestMulDivFloor(t *testing.T) {
	got, err := MulDivFloor(math.MaxUint64, math.MaxUint64, math.MaxUint64)
	require.NoError(t, err)
	require.Equal(t, uint64(math.MaxUint64), got)

	_, err = MulDivFloor(math.MaxUint64, 2, 1)
	require.ErrorIs(t, err, model.ErrArithmeticOverflow)

	_, err = MulDivFloor(1, 1, 0)
	require.ErrorIs(t, err, model.ErrDivisionByZero)

	_, err = CheckedAdd(math.MaxUint64, 1)
	if !errors.Is(err, model.ErrArithmeticOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestSwapProductNeverDecreases(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reserveIn := rapid.Uint64Range(1, 1e15).Draw(t, "reserveIn")
		reserveOut := rapid.Uint64Range(1, 1e15).Draw(t, "reserveOut")
		amountIn := rapid.Uint64Range(1, 1e15).Draw(t, "amountIn")
		fee := rapid.Uint16Range(0, model.MaxFeeBps-1).Draw(t, "feeBps")

		out, err := Quote(reserveIn, reserveOut, amountIn, fee)
		if err != nil {
			t.Fatalf("quote: %v", err)
		}
		if out >= reserveOut {
			t.Fatalf("output %d drains reserve %d", out, reserveOut)
		}

		before := Product(reserveIn, reserveOut)
		after := Product(reserveIn+amountIn, reserveOut-out)
		if after.Lt(before) {
			t.Fatalf("product decreased: %s -> %s", before.ToBig(), after.ToBig())
		}
		if fee > 0 && !after.Gt(before) {
			t.Fatalf("product not strictly increased with fee %d", fee)
		}
	})
}

func TestDepositProportional(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reserveX := rapid.Uint64Range(1, 1e15).Draw(t, "reserveX")
		reserveY := rapid.Uint64Range(1, 1e15).Draw(t, "reserveY")
		supply := rapid.Uint64Range(1, 1e15).Draw(t, "supply")
		lp := rapid.Uint64Range(1, supply).Draw(t, "lp")

		x, y, err := DepositAmounts(reserveX, reserveY, supply, lp, math.MaxUint64, math.MaxUint64)
		if err != nil {
			if !errors.Is(err, model.ErrInvalidAmount) {
				t.Fatalf("unexpected error: %v", err)
			}
			return
		}

		// x*supply <= R_x*lp < (x+1)*supply
		lo := Product(x, supply)
		mid := Product(reserveX, lp)
		hi := Product(x+1, supply)
		if lo.Gt(mid) || !mid.Lt(hi) {
			t.Fatalf("x=%d not floor(%d*%d/%d)", x, reserveX, lp, supply)
		}
		lo = Product(y, supply)
		mid = Product(reserveY, lp)
		hi = Product(y+1, supply)
		if lo.Gt(mid) || !mid.Lt(hi) {
			t.Fatalf("y=%d not floor(%d*%d/%d)", y, reserveY, lp, supply)
		}
	})
}

func TestWithdrawThenDepositConserves(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reserveX := rapid.Uint64Range(1, 1e15).Draw(t, "reserveX")
		reserveY := rapid.Uint64Range(1, 1e15).Draw(t, "reserveY")
		supply := rapid.Uint64Range(1, 1e15).Draw(t, "supply")
		lp := rapid.Uint64Range(1, supply).Draw(t, "lp")

		wx, wy, err := WithdrawAmounts(reserveX, reserveY, supply, lp)
		if err != nil {
			t.Fatalf("withdraw: %v", err)
		}
		dx, dy, err := DepositAmounts(reserveX, reserveY, supply, lp, math.MaxUint64, math.MaxUint64)
		if err != nil {
			return
		}
		if dx > wx || dy > wy {
			t.Fatalf("deposit (%d,%d) exceeds withdraw (%d,%d)", dx, dy, wx, wy)
		}
	})
}
