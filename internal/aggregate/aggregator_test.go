package aggregate

import (
	"context"
	"encoding/json"
	"math/big"
	"path/filepath"
	"strings"
	"testing"

	"ammLedger/internal/model"
)

const (
	testPool   = "0x00000000000000000000000000000000000000f1"
	testAssetX = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	testAssetY = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

type memStore struct {
	pools   []model.PoolRow
	metrics []model.PoolWindowMetrics
}

func (s *memStore) UpsertPools(_ context.Context, pools []model.PoolRow) error {
	s.pools = append(s.pools, pools...)
	return nil
}

// UpsertWindowMetrics replaces rows by (pool, window size, window start) and
// keeps a known LP supply when the new row has none, like the Postgres store.
func (s *memStore) UpsertWindowMetrics(_ context.Context, metrics []model.PoolWindowMetrics) error {
	for _, m := range metrics {
		replaced := false
		for i, existing := range s.metrics {
			if existing.PoolAddress == m.PoolAddress && existing.WindowSizeSecs == m.WindowSizeSecs && existing.WindowStart.Equal(m.WindowStart) {
				if m.LPSupply == nil {
					m.LPSupply = existing.LPSupply
				}
				s.metrics[i] = m
				replaced = true
				break
			}
		}
		if !replaced {
			s.metrics = append(s.metrics, m)
		}
	}
	return nil
}

var testMeta = model.PoolMeta{
	Seed:    7,
	AssetX:  testAssetX,
	AssetY:  testAssetY,
	LPAsset: "0xcccccccccccccccccccccccccccccccccccccccc",
	FeeBps:  30,
}

func typedLine(t *testing.T, seq, ts uint64, name string, decoded interface{}) string {
	t.Helper()
	line, err := json.Marshal(model.TypedEvent{
		Sequence:  seq,
		Address:   testPool,
		EventName: name,
		Timestamp: ts,
		Decoded:   decoded,
		PoolMeta:  testMeta,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(line)
}

func sampleStream(t *testing.T) string {
	lines := []string{
		typedLine(t, 1, 100, model.EventDeposit, model.DepositEventData{
			LPAmount: 1_000_000, AmountX: 1_000_000, AmountY: 1_000_000,
			ReserveX: 1_000_000, ReserveY: 1_000_000, Supply: 1_000_000,
		}),
		typedLine(t, 2, 200, model.EventSwap, model.SwapEventData{
			AmountIn: 1_000, AmountOut: 996, XToY: true,
			ReserveX: 1_001_000, ReserveY: 999_004,
		}),
		"",
		typedLine(t, 3, 3_700, model.EventSwap, model.SwapEventData{
			AmountIn: 2_000, AmountOut: 1_990, XToY: false,
			ReserveX: 999_010, ReserveY: 1_001_004,
		}),
	}
	return strings.Join(lines, "\n") + "\n"
}

func staticDecimals() StaticDecimals {
	return StaticDecimals{testAssetX: 0, testAssetY: 0}
}

func TestAggregatorWindows(t *testing.T) {
	store := &memStore{}
	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "state.json")}
	agg := NewAggregator(Config{WindowSeconds: 3_600, StateStore: state, Decimals: staticDecimals()}, store, nil)

	if err := agg.Process(context.Background(), strings.NewReader(sampleStream(t))); err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(store.pools) != 1 || store.pools[0].FirstSeenSequence != 1 || store.pools[0].FeeBps != 30 {
		t.Fatalf("pools mismatch: %+v", store.pools)
	}
	if len(store.metrics) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(store.metrics))
	}

	first := store.metrics[0]
	if first.SwapCount != 1 || first.DepositCount != 1 || first.WithdrawCount != 0 {
		t.Fatalf("first window counts: %+v", first)
	}
	if first.VolumeX != "1000" || first.VolumeY != "996" {
		t.Fatalf("first window volume: %s/%s", first.VolumeX, first.VolumeY)
	}
	if first.FeeX != "3" || first.FeeY != "0" {
		t.Fatalf("first window fees: %s/%s", first.FeeX, first.FeeY)
	}
	if first.TVLX == nil || *first.TVLX != "1001000" || first.TVLY == nil || *first.TVLY != "999004" {
		t.Fatalf("first window tvl: %v/%v", first.TVLX, first.TVLY)
	}
	if first.LPSupply == nil || *first.LPSupply != "1.000000" {
		t.Fatalf("first window supply: %v", first.LPSupply)
	}
	if first.TVLMethod != tvlMethodEvent || first.FeeMethod != feeMethodExact {
		t.Fatalf("first window methods: %s/%s", first.TVLMethod, first.FeeMethod)
	}
	if first.APR == nil {
		t.Fatalf("first window apr missing")
	}

	second := store.metrics[1]
	if second.SwapCount != 1 || second.DepositCount != 0 {
		t.Fatalf("second window counts: %+v", second)
	}
	if second.FeeX != "0" || second.FeeY != "6" {
		t.Fatalf("second window fees: %s/%s", second.FeeX, second.FeeY)
	}
	// Supply carries over from the deposit in the previous window.
	if second.LPSupply == nil || *second.LPSupply != "1.000000" {
		t.Fatalf("second window supply: %v", second.LPSupply)
	}
	if second.WindowStart.Unix() != 3_600 || second.WindowEnd.Unix() != 7_200 {
		t.Fatalf("second window bounds: %v-%v", second.WindowStart, second.WindowEnd)
	}

	// The newest window may still grow, so progress stops before it.
	last, ok, err := state.Load(context.Background())
	if err != nil || !ok || last != 3_599 {
		t.Fatalf("state mismatch: last=%d ok=%v err=%v", last, ok, err)
	}

	// Re-running over the same stream only rebuilds the newest window.
	rerun := &memStore{}
	agg = NewAggregator(Config{WindowSeconds: 3_600, StateStore: state, Decimals: staticDecimals()}, rerun, nil)
	if err := agg.Process(context.Background(), strings.NewReader(sampleStream(t))); err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if len(rerun.metrics) != 1 || rerun.metrics[0].WindowStart.Unix() != 3_600 || rerun.metrics[0].SwapCount != 1 {
		t.Fatalf("rerun rows: %+v", rerun.metrics)
	}
}

func TestAggregatorIncrementalRunCompletesOpenWindow(t *testing.T) {
	ctx := context.Background()
	deposit := typedLine(t, 1, 3_650, model.EventDeposit, model.DepositEventData{
		LPAmount: 1_000_000, AmountX: 1_000_000, AmountY: 1_000_000,
		ReserveX: 1_000_000, ReserveY: 1_000_000, Supply: 1_000_000,
	})
	firstSwap := typedLine(t, 2, 3_700, model.EventSwap, model.SwapEventData{
		AmountIn: 1_000, AmountOut: 996, XToY: true,
		ReserveX: 1_001_000, ReserveY: 999_004,
	})
	// Same second as the last event of the first run.
	sameSecond := typedLine(t, 3, 3_700, model.EventSwap, model.SwapEventData{
		AmountIn: 2_000, AmountOut: 1_990, XToY: false,
		ReserveX: 999_010, ReserveY: 1_001_004,
	})
	nextWindow := typedLine(t, 4, 7_300, model.EventSwap, model.SwapEventData{
		AmountIn: 1_000, AmountOut: 997, XToY: true,
		ReserveX: 1_000_010, ReserveY: 1_000_007,
	})

	store := &memStore{}
	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "state.json"), WindowSeconds: 3_600}
	cfg := Config{WindowSeconds: 3_600, StateStore: state, Decimals: staticDecimals()}

	if err := NewAggregator(cfg, store, nil).Process(ctx, strings.NewReader(deposit+"\n"+firstSwap+"\n")); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if len(store.metrics) != 1 || store.metrics[0].SwapCount != 1 {
		t.Fatalf("first run rows: %+v", store.metrics)
	}

	// The journal has grown; the second run sees the whole file again.
	grown := strings.Join([]string{deposit, firstSwap, sameSecond, nextWindow}, "\n")
	if err := NewAggregator(cfg, store, nil).Process(ctx, strings.NewReader(grown)); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(store.metrics) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(store.metrics))
	}
	window := store.metrics[0]
	if window.SwapCount != 2 || window.DepositCount != 1 {
		t.Fatalf("window counts: %+v", window)
	}
	if window.VolumeX != "2990" || window.VolumeY != "2996" {
		t.Fatalf("window volume: %s/%s", window.VolumeX, window.VolumeY)
	}
	if window.FeeX != "3" || window.FeeY != "6" {
		t.Fatalf("window fees: %s/%s", window.FeeX, window.FeeY)
	}
	if window.TVLX == nil || *window.TVLX != "999010" || window.LPSupply == nil || *window.LPSupply != "1.000000" {
		t.Fatalf("window tvl: %v supply %v", window.TVLX, window.LPSupply)
	}
	if next := store.metrics[1]; next.WindowStart.Unix() != 7_200 || next.SwapCount != 1 {
		t.Fatalf("next window: %+v", next)
	}

	last, ok, err := state.Load(ctx)
	if err != nil || !ok || last != 7_199 {
		t.Fatalf("state mismatch: last=%d ok=%v err=%v", last, ok, err)
	}
}

func TestAggregatorTracksLiquidityEvents(t *testing.T) {
	stream := strings.Join([]string{
		typedLine(t, 1, 10, model.EventDeposit, model.DepositEventData{
			LPAmount: 500, AmountX: 500, AmountY: 2_000, ReserveX: 500, ReserveY: 2_000, Supply: 500,
		}),
		typedLine(t, 2, 120, model.EventWithdraw, model.WithdrawEventData{
			LPAmount: 100, AmountX: 100, AmountY: 400, ReserveX: 400, ReserveY: 1_600, Supply: 400,
		}),
	}, "\n")

	store := &memStore{}
	agg := NewAggregator(Config{WindowSeconds: 60, Decimals: staticDecimals()}, store, nil)
	if err := agg.Process(context.Background(), strings.NewReader(stream)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(store.metrics) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(store.metrics))
	}
	second := store.metrics[1]
	if second.WithdrawCount != 1 || *second.TVLX != "400" || *second.TVLY != "1600" {
		t.Fatalf("second window mismatch: %+v", second)
	}
	if second.APR != nil || second.FeeRateX != nil {
		t.Fatalf("fee-free window should have no rates: %+v", second)
	}
}

func TestAggregatorSkipsMalformedLines(t *testing.T) {
	stream := "{not json}\n" + typedLine(t, 1, 5, model.EventSwap, "not an object") + "\n"
	store := &memStore{}
	agg := NewAggregator(Config{WindowSeconds: 60, Decimals: staticDecimals()}, store, nil)
	if err := agg.Process(context.Background(), strings.NewReader(stream)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(store.metrics) != 1 || store.metrics[0].SwapCount != 0 {
		t.Fatalf("malformed events should not count: %+v", store.metrics)
	}
	if store.metrics[0].TVLMethod != tvlMethodNone {
		t.Fatalf("tvl method: %s", store.metrics[0].TVLMethod)
	}
}

func TestAggregatorRequiresWindow(t *testing.T) {
	agg := NewAggregator(Config{}, &memStore{}, nil)
	if err := agg.Process(context.Background(), strings.NewReader("")); err == nil {
		t.Fatalf("expected error for zero window")
	}
}

func TestPoolFeeRateAndAPR(t *testing.T) {
	rate := computePoolFeeRate(big.NewInt(3), big.NewInt(0), big.NewInt(1_000), big.NewInt(1_000))
	if rate == nil || *rate != "0.001500000000000000" {
		t.Fatalf("fee rate mismatch: %v", rate)
	}
	apr := computeAPR(rate, 3_600)
	if apr == nil || *apr != "13.140000000000000000" {
		t.Fatalf("apr mismatch: %v", apr)
	}
	if computePoolFeeRate(big.NewInt(1), big.NewInt(1), nil, big.NewInt(1)) != nil {
		t.Fatalf("expected nil rate without tvl")
	}
}

func TestFormatTokenAmount(t *testing.T) {
	if got := formatTokenAmount(big.NewInt(1_234_567), 6); got != "1.234567" {
		t.Fatalf("format mismatch: %s", got)
	}
	if got := formatTokenAmount(nil, 6); got != "0" {
		t.Fatalf("nil format mismatch: %s", got)
	}
}
