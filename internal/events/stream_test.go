package events

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"ammLedger/internal/model"
)

type sliceWriter struct {
	values []interface{}
}

func (w *sliceWriter) Write(value interface{}) error {
	w.values = append(w.values, value)
	return nil
}

func TestDecodeStream(t *testing.T) {
	encoder, err := NewEncoder(testProgram)
	require.NoError(t, err)
	decoder, err := NewPoolDecoder(DecoderConfig{})
	require.NoError(t, err)

	deposit := model.DepositEventData{
		Caller:   testCaller.Hex(),
		LPAmount: 1000,
		AmountX:  1000,
		AmountY:  1000,
		ReserveX: 1000,
		ReserveY: 1000,
		Supply:   1000,
	}
	record, err := encoder.Encode(3, 0, 1700000000, Emitted{Pool: testPool, Caller: testCaller, Data: deposit})
	require.NoError(t, err)
	encoded, err := json.Marshal(record)
	require.NoError(t, err)

	foreign := model.LogRecord{Sequence: 4, Address: testPool.Hex(), Topics: []string{"0x" + strings.Repeat("ab", 32)}}
	foreignLine, err := json.Marshal(foreign)
	require.NoError(t, err)
	untopiced, err := json.Marshal(model.LogRecord{Sequence: 5, Address: testPool.Hex()})
	require.NoError(t, err)

	input := strings.Join([]string{
		string(encoded),
		"",
		"{not json",
		string(foreignLine),
		string(untopiced),
	}, "\n")

	cache := NewPoolMetaCache(4)
	cache.Set(testPool, model.PoolMeta{Seed: 2, FeeBps: 30})

	var out, errs sliceWriter
	stats, err := DecodeStream(strings.NewReader(input), decoder, DecodeContext{PoolMetaCache: cache}, &out, &errs)
	require.NoError(t, err)
	require.Equal(t, StreamStats{Total: 4, Decoded: 1, Skipped: 1, Failed: 2}, stats)

	require.Len(t, out.values, 1)
	event := out.values[0].(*model.TypedEvent)
	require.Equal(t, model.EventDeposit, event.EventName)
	require.Equal(t, deposit, event.Decoded)

	require.Len(t, errs.values, 2)
	missing := errs.values[1].(model.DecodeError)
	require.Equal(t, uint64(5), missing.Sequence)
	require.Equal(t, "missing topic0", missing.Error)
}

func TestDecodeStreamUnknownPoolIsReported(t *testing.T) {
	encoder, err := NewEncoder(testProgram)
	require.NoError(t, err)
	decoder, err := NewPoolDecoder(DecoderConfig{})
	require.NoError(t, err)

	record, err := encoder.Encode(1, 0, 1700000000, Emitted{
		Pool:   testPool,
		Caller: testCaller,
		Data:   model.SwapEventData{Caller: testCaller.Hex(), AmountIn: 10, AmountOut: 9, XToY: true},
	})
	require.NoError(t, err)
	line, err := json.Marshal(record)
	require.NoError(t, err)

	var out, errs sliceWriter
	stats, err := DecodeStream(strings.NewReader(string(line)), decoder, DecodeContext{PoolMetaCache: NewPoolMetaCache(0)}, &out, &errs)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Failed)
	require.Empty(t, out.values)
	rec := errs.values[0].(model.DecodeError)
	require.Equal(t, testPool.Hex(), rec.Address)
	require.Contains(t, rec.Error, "no metadata")
}
