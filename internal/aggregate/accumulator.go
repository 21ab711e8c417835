package aggregate

import (
	"encoding/json"
	"fmt"
	"math/big"

	"ammLedger/internal/curve"
	"ammLedger/internal/model"
)

// Accumulator holds aggregate values for a pool window.
type Accumulator struct {
	PoolAddress   string
	PoolMeta      model.PoolMeta
	WindowStart   uint64
	WindowEnd     uint64
	SwapCount     uint64
	DepositCount  uint64
	WithdrawCount uint64
	VolumeX       *big.Int
	VolumeY       *big.Int
	FeeX          *big.Int
	FeeY          *big.Int
	Reserves      reserveSnapshot
	LastSeq       uint64
	LastTS        uint64
	FirstSeq      uint64
}

func NewAccumulator(record model.TypedEventRecord, windowStart, windowEnd uint64, carried reserveSnapshot) *Accumulator {
	carried.fromWindow = false
	return &Accumulator{
		PoolAddress: record.Address,
		PoolMeta:    record.PoolMeta,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		VolumeX:     big.NewInt(0),
		VolumeY:     big.NewInt(0),
		FeeX:        big.NewInt(0),
		FeeY:        big.NewInt(0),
		Reserves:    carried,
		LastSeq:     record.Sequence,
		LastTS:      record.Timestamp,
		FirstSeq:    record.Sequence,
	}
}

func (a *Accumulator) AddEvent(record model.TypedEventRecord) error {
	// Reserves are only taken from the newest event of the window.
	latest := record.Sequence >= a.LastSeq
	if latest {
		a.LastTS = record.Timestamp
		a.LastSeq = record.Sequence
	}
	if a.FirstSeq == 0 || record.Sequence < a.FirstSeq {
		a.FirstSeq = record.Sequence
	}
	if a.PoolMeta.AssetX == "" && record.PoolMeta.AssetX != "" {
		a.PoolMeta = record.PoolMeta
	}

	switch record.EventName {
	case model.EventSwap:
		var swap model.SwapEventData
		if err := json.Unmarshal(record.Decoded, &swap); err != nil {
			return fmt.Errorf("decode swap: %w", err)
		}
		return a.applySwap(swap, latest)
	case model.EventDeposit:
		var dep model.DepositEventData
		if err := json.Unmarshal(record.Decoded, &dep); err != nil {
			return fmt.Errorf("decode deposit: %w", err)
		}
		a.DepositCount++
		if latest {
			a.Reserves.set(dep.ReserveX, dep.ReserveY, dep.Supply, true)
		}
		return nil
	case model.EventWithdraw:
		var wd model.WithdrawEventData
		if err := json.Unmarshal(record.Decoded, &wd); err != nil {
			return fmt.Errorf("decode withdraw: %w", err)
		}
		a.WithdrawCount++
		if latest {
			a.Reserves.set(wd.ReserveX, wd.ReserveY, wd.Supply, true)
		}
		return nil
	default:
		return nil
	}
}

func (a *Accumulator) applySwap(swap model.SwapEventData, latest bool) error {
	fee, err := curve.SwapFee(swap.AmountIn, a.PoolMeta.FeeBps)
	if err != nil {
		return fmt.Errorf("swap fee: %w", err)
	}

	volumeIn, volumeOut, feeIn := a.VolumeX, a.VolumeY, a.FeeX
	if !swap.XToY {
		volumeIn, volumeOut, feeIn = a.VolumeY, a.VolumeX, a.FeeY
	}
	volumeIn.Add(volumeIn, new(big.Int).SetUint64(swap.AmountIn))
	volumeOut.Add(volumeOut, new(big.Int).SetUint64(swap.AmountOut))
	feeIn.Add(feeIn, new(big.Int).SetUint64(fee))

	if latest {
		// Swaps leave the LP supply unchanged.
		a.Reserves.set(swap.ReserveX, swap.ReserveY, a.Reserves.supply, a.Reserves.supplyKnown)
	}
	a.SwapCount++
	return nil
}
