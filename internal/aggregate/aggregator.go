package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"ammLedger/internal/model"
)

const feeMethodExact = "fee_bps_exact"

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	StateStore    StateStore
	Decimals      DecimalsSource
}

// MetricsStore persists aggregated rows.
type MetricsStore interface {
	UpsertPools(ctx context.Context, pools []model.PoolRow) error
	UpsertWindowMetrics(ctx context.Context, metrics []model.PoolWindowMetrics) error
}

// Aggregator aggregates typed events into pool window metrics.
type Aggregator struct {
	cfg          Config
	store        MetricsStore
	logger       *zap.Logger
	decimals     *memoDecimals
	accumulators map[string]*Accumulator
	reserves     map[string]reserveSnapshot
	poolSeen     map[string]model.PoolRow
}

func NewAggregator(cfg Config, store MetricsStore, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Aggregator{
		cfg:          cfg,
		store:        store,
		logger:       logger,
		decimals:     newMemoDecimals(cfg.Decimals),
		accumulators: make(map[string]*Accumulator),
		reserves:     make(map[string]reserveSnapshot),
		poolSeen:     make(map[string]model.PoolRow),
	}
}

// Run executes aggregation over a typed events JSONL file.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()
	return a.Process(ctx, file)
}

// runStats counts input lines by outcome.
type runStats struct {
	total, windows, skipped, failed int
}

// pending buffers closed windows and newly seen pools until the next write.
type pending struct {
	metrics []model.PoolWindowMetrics
	pools   []model.PoolRow
}

func (p *pending) add(metrics *model.PoolWindowMetrics, pool *model.PoolRow) {
	if metrics != nil {
		p.metrics = append(p.metrics, *metrics)
	}
	if pool != nil {
		p.pools = append(p.pools, *pool)
	}
}

func (p *pending) empty() bool {
	return len(p.metrics) == 0 && len(p.pools) == 0
}

// Process aggregates typed events read from r. Windows are written once a
// later event for the same pool opens a new window, or when r is exhausted.
func (a *Aggregator) Process(ctx context.Context, r io.Reader) error {
	if a.store == nil {
		return fmt.Errorf("store is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var (
		out   pending
		stats runStats
	)
	maxTs := startTs
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.total++

		var record model.TypedEventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			stats.failed++
			a.logger.Warn("decode typed event", zap.Error(err))
			continue
		}
		if record.Timestamp <= startTs {
			stats.skipped++
			continue
		}

		if err := a.consume(ctx, record, &out); err != nil {
			stats.failed++
			a.logger.Warn("aggregate event", zap.Error(err), zap.String("pool", record.Address), zap.String("event", record.EventName))
			continue
		}
		maxTs = max(maxTs, record.Timestamp)

		if len(out.metrics) >= a.cfg.BatchSize {
			stats.windows += len(out.metrics)
			if err := a.write(ctx, &out); err != nil {
				return err
			}
			if err := a.saveState(ctx, startTs); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	for _, acc := range a.accumulators {
		out.add(a.closeWindow(ctx, acc))
	}
	a.accumulators = make(map[string]*Accumulator)
	stats.windows += len(out.metrics)
	if err := a.write(ctx, &out); err != nil {
		return err
	}

	// The newest window may still receive events, so the next run starts
	// over at its beginning and rewrites the row in full.
	watermark := startTs
	if maxTs > startTs {
		watermark = lastFinalTimestamp(windowStart(maxTs, a.cfg.WindowSeconds))
	}
	if err := a.saveState(ctx, watermark); err != nil {
		return err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", stats.total),
		zap.Int("windows", stats.windows),
		zap.Int("skipped", stats.skipped),
		zap.Int("failed", stats.failed),
	)
	return nil
}

// consume adds record to its pool's open window, closing the previous window
// into out when record starts a new one.
func (a *Aggregator) consume(ctx context.Context, record model.TypedEventRecord, out *pending) error {
	start := windowStart(record.Timestamp, a.cfg.WindowSeconds)
	key := poolKey(record.Address)

	acc := a.accumulators[key]
	if acc != nil && acc.WindowStart != start {
		out.add(a.closeWindow(ctx, acc))
		acc = nil
	}
	if acc == nil {
		acc = NewAccumulator(record, start, start+a.cfg.WindowSeconds, a.reserves[key])
		a.accumulators[key] = acc
	}
	return acc.AddEvent(record)
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

// saveState records how far windows are final: everything before the oldest
// open window, or done when no window is open.
func (a *Aggregator) saveState(ctx context.Context, done uint64) error {
	if a.cfg.StateStore == nil {
		return nil
	}
	if oldest, ok := oldestOpenWindow(a.accumulators); ok {
		done = lastFinalTimestamp(oldest)
	}
	return a.cfg.StateStore.Save(ctx, done)
}

// lastFinalTimestamp is the last second before the window starting at start.
func lastFinalTimestamp(start uint64) uint64 {
	if start == 0 {
		return 0
	}
	return start - 1
}

func (a *Aggregator) write(ctx context.Context, out *pending) error {
	if out.empty() {
		return nil
	}
	// Pools first so metric rows never reference an unknown pool.
	if len(out.pools) > 0 {
		if err := a.store.UpsertPools(ctx, out.pools); err != nil {
			return fmt.Errorf("upsert pools: %w", err)
		}
	}
	if len(out.metrics) > 0 {
		if err := a.store.UpsertWindowMetrics(ctx, out.metrics); err != nil {
			return fmt.Errorf("upsert window metrics: %w", err)
		}
	}
	out.metrics = out.metrics[:0]
	out.pools = out.pools[:0]
	return nil
}

// closeWindow turns a finished accumulator into a metrics row, plus a pool
// row the first time the pool is seen. Reserves carry into the next window.
func (a *Aggregator) closeWindow(ctx context.Context, acc *Accumulator) (*model.PoolWindowMetrics, *model.PoolRow) {
	if acc == nil {
		return nil, nil
	}

	key := poolKey(acc.PoolAddress)
	a.reserves[key] = acc.Reserves

	poolMeta := acc.PoolMeta
	if poolMeta.AssetX == "" || poolMeta.AssetY == "" {
		a.logger.Warn("missing pool meta", zap.String("pool", acc.PoolAddress))
		return nil, nil
	}

	poolRecord := a.registerPool(acc)

	decimalsX := a.assetDecimals(ctx, poolMeta.AssetX)
	decimalsY := a.assetDecimals(ctx, poolMeta.AssetY)

	tvlXInt, tvlYInt, supplyInt, tvlMethod := acc.Reserves.tvl()
	var tvlX, tvlY, lpSupply *string
	if tvlXInt != nil {
		val := formatTokenAmount(tvlXInt, decimalsX)
		tvlX = &val
	}
	if tvlYInt != nil {
		val := formatTokenAmount(tvlYInt, decimalsY)
		tvlY = &val
	}
	if supplyInt != nil {
		val := formatTokenAmount(supplyInt, model.LPDecimals)
		lpSupply = &val
	}

	feeRateX, feeRateY := computeFeeRates(acc.FeeX, acc.FeeY, tvlXInt, tvlYInt)
	apr := computeAPR(computePoolFeeRate(acc.FeeX, acc.FeeY, tvlXInt, tvlYInt), a.cfg.WindowSeconds)

	metrics := &model.PoolWindowMetrics{
		PoolAddress:    acc.PoolAddress,
		Seed:           poolMeta.Seed,
		WindowSizeSecs: int64(a.cfg.WindowSeconds),
		WindowStart:    time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(acc.WindowEnd), 0).UTC(),
		SwapCount:      acc.SwapCount,
		DepositCount:   acc.DepositCount,
		WithdrawCount:  acc.WithdrawCount,
		VolumeX:        formatTokenAmount(acc.VolumeX, decimalsX),
		VolumeY:        formatTokenAmount(acc.VolumeY, decimalsY),
		FeeX:           formatTokenAmount(acc.FeeX, decimalsX),
		FeeY:           formatTokenAmount(acc.FeeY, decimalsY),
		FeeRateX:       feeRateX,
		FeeRateY:       feeRateY,
		TVLX:           tvlX,
		TVLY:           tvlY,
		LPSupply:       lpSupply,
		APR:            apr,
		FeeMethod:      feeMethodExact,
		TVLMethod:      tvlMethod,
	}

	return metrics, poolRecord
}

func (a *Aggregator) registerPool(acc *Accumulator) *model.PoolRow {
	key := poolKey(acc.PoolAddress)
	pool := model.PoolRow{
		Address:           acc.PoolAddress,
		Seed:              acc.PoolMeta.Seed,
		AssetX:            acc.PoolMeta.AssetX,
		AssetY:            acc.PoolMeta.AssetY,
		LPAsset:           acc.PoolMeta.LPAsset,
		FeeBps:            acc.PoolMeta.FeeBps,
		FirstSeenSequence: acc.FirstSeq,
	}

	existing, ok := a.poolSeen[key]
	if ok {
		if existing.FirstSeenSequence <= pool.FirstSeenSequence {
			return nil
		}
	}

	a.poolSeen[key] = pool
	return &pool
}

// assetDecimals falls back to 0 decimals, which formats raw units, when the
// asset cannot be resolved.
func (a *Aggregator) assetDecimals(ctx context.Context, asset string) uint8 {
	decimals, first, err := a.decimals.lookup(ctx, asset)
	if err != nil && first {
		a.logger.Warn("asset decimals unavailable, using raw units", zap.String("asset", asset), zap.Error(err))
	}
	return decimals
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func poolKey(address string) string {
	return strings.ToLower(address)
}

// oldestOpenWindow returns the earliest start among open windows.
func oldestOpenWindow(open map[string]*Accumulator) (uint64, bool) {
	var (
		oldest uint64
		found  bool
	)
	for _, acc := range open {
		if acc != nil && (!found || acc.WindowStart < oldest) {
			oldest, found = acc.WindowStart, true
		}
	}
	return oldest, found
}

