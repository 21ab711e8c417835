package events

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"ammLedger/internal/model"
)

// Emitted is one event produced by a committed transition, before encoding.
type Emitted struct {
	Pool   common.Address
	Caller common.Address
	Data   interface{}
}

// Encoder turns emitted pool events into log records.
type Encoder struct {
	program common.Address
	poolABI abi.ABI
}

func NewEncoder(program common.Address) (*Encoder, error) {
	poolABI, err := PoolABI()
	if err != nil {
		return nil, err
	}
	return &Encoder{program: program, poolABI: poolABI}, nil
}

// EncodeBatch encodes the events of one committed sequence, numbering them by
// position.
func (e *Encoder) EncodeBatch(sequence, timestamp uint64, emitted []Emitted) ([]model.LogRecord, error) {
	out := make([]model.LogRecord, 0, len(emitted))
	for i, ev := range emitted {
		record, err := e.Encode(sequence, uint64(i), timestamp, ev)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

// Encode packs one event: the log address is the pool, topic0 the event ID and
// topic1 the caller.
func (e *Encoder) Encode(sequence, logIndex, timestamp uint64, ev Emitted) (model.LogRecord, error) {
	var (
		name   string
		values []interface{}
	)
	switch data := ev.Data.(type) {
	case model.PoolInitializedEventData:
		name = model.EventPoolInitialized
		values = []interface{}{
			data.Seed,
			common.HexToAddress(data.AssetX),
			common.HexToAddress(data.AssetY),
			common.HexToAddress(data.LPAsset),
			data.FeeBps,
		}
	case model.DepositEventData:
		name = model.EventDeposit
		values = []interface{}{data.LPAmount, data.AmountX, data.AmountY, data.ReserveX, data.ReserveY, data.Supply}
	case model.SwapEventData:
		name = model.EventSwap
		values = []interface{}{data.AmountIn, data.AmountOut, data.XToY, data.ReserveX, data.ReserveY}
	case model.WithdrawEventData:
		name = model.EventWithdraw
		values = []interface{}{data.LPAmount, data.AmountX, data.AmountY, data.ReserveX, data.ReserveY, data.Supply}
	default:
		return model.LogRecord{}, fmt.Errorf("unsupported event payload %T", ev.Data)
	}

	event := e.poolABI.Events[name]
	packed, err := event.Inputs.NonIndexed().Pack(values...)
	if err != nil {
		return model.LogRecord{}, fmt.Errorf("pack %s: %w", name, err)
	}

	return model.LogRecord{
		Sequence: sequence,
		LogIndex: logIndex,
		Program:  e.program.Hex(),
		Address:  ev.Pool.Hex(),
		Topics: []string{
			event.ID.Hex(),
			common.BytesToHash(ev.Caller.Bytes()).Hex(),
		},
		Data:      hexutil.Encode(packed),
		Timestamp: timestamp,
	}, nil
}
