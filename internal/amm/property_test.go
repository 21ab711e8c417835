package amm

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"pgregory.net/rapid"

	"ammLedger/internal/curve"
	"ammLedger/internal/model"
)

// isRejection reports whether err is one of the pool program's own error kinds.
func isRejection(err error) bool {
	return model.ErrorCode(err) != 0
}

func TestPoolInvariantsHoldAcrossSequences(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(rt)
		ctx := context.Background()
		fee := uint16(rapid.IntRange(0, 300).Draw(rt, "fee"))
		f.initPool(rt, 1, fee)

		_, err := f.engine.Deposit(ctx, alice, 1,
			rapid.Uint64Range(1, 1_000_000).Draw(rt, "bootLP"),
			rapid.Uint64Range(1, 1_000_000_000).Draw(rt, "bootX"),
			rapid.Uint64Range(1, 1_000_000_000).Draw(rt, "bootY"),
		)
		if err != nil {
			rt.Fatalf("bootstrap deposit: %v", err)
		}

		callers := []common.Address{alice, bob}
		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			caller := callers[rapid.IntRange(0, 1).Draw(rt, "caller")]
			before, err := f.engine.Pool(ctx, 1)
			if err != nil {
				rt.Fatalf("load pool: %v", err)
			}

			switch rapid.IntRange(0, 2).Draw(rt, "op") {
			case 0:
				amountIn := rapid.Uint64Range(1, 10_000_000).Draw(rt, "amountIn")
				xToY := rapid.Bool().Draw(rt, "xToY")
				swap, err := f.engine.Swap(ctx, caller, 1, amountIn, 0, xToY)
				if err != nil {
					if !isRejection(err) {
						rt.Fatalf("swap: %v", err)
					}
					break
				}
				prev := curve.Product(before.ReserveX, before.ReserveY)
				next := curve.Product(swap.ReserveX, swap.ReserveY)
				if next.Lt(prev) {
					rt.Fatalf("product decreased: %s -> %s", prev.ToBig(), next.ToBig())
				}
				if fee > 0 && !next.Gt(prev) {
					rt.Fatalf("product did not grow with fee %d: %s -> %s", fee, prev.ToBig(), next.ToBig())
				}
			case 1:
				lp := rapid.Uint64Range(1, 1_000_000).Draw(rt, "depositLP")
				dep, err := f.engine.Deposit(ctx, caller, 1, lp, funded, funded)
				if err != nil {
					if !isRejection(err) {
						rt.Fatalf("deposit: %v", err)
					}
					break
				}
				if before.Supply == 0 {
					break
				}
				// Each leg is the proportional floor, so existing holders are
				// never diluted.
				x, _ := curve.MulDivFloor(before.ReserveX, lp, before.Supply)
				y, _ := curve.MulDivFloor(before.ReserveY, lp, before.Supply)
				if dep.AmountX != x || dep.AmountY != y {
					rt.Fatalf("deposit took %d/%d, want %d/%d", dep.AmountX, dep.AmountY, x, y)
				}
			case 2:
				held := f.balance(rt, caller, before.LPAsset)
				if held == 0 {
					break
				}
				lp := rapid.Uint64Range(1, held).Draw(rt, "withdrawLP")
				out, err := f.engine.Withdraw(ctx, caller, 1, lp, 0, 0)
				if err != nil {
					if !isRejection(err) {
						rt.Fatalf("withdraw: %v", err)
					}
					break
				}
				// Redeeming never pays more than the proportional floor.
				x, _ := curve.MulDivFloor(before.ReserveX, lp, before.Supply)
				y, _ := curve.MulDivFloor(before.ReserveY, lp, before.Supply)
				if out.AmountX != x || out.AmountY != y {
					rt.Fatalf("withdraw paid %d/%d, want %d/%d", out.AmountX, out.AmountY, x, y)
				}
			}

			if err := f.engine.CheckInvariants(ctx, 1); err != nil {
				rt.Fatalf("invariants after step %d: %v", i, err)
			}
		}
	})
}
