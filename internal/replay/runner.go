// Package replay executes a journal of pool instructions against the ledger
// in resumable batches and forwards the emitted events to a sink.
package replay

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"ammLedger/internal/amm"
	"ammLedger/internal/model"
	"ammLedger/internal/storage"
)

// RunConfig holds runtime settings for a replay.
type RunConfig struct {
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	StopOnError       bool
}

// Summary counts the outcome of a replay.
type Summary struct {
	Applied   int
	Rejected  int
	Published int
}

// Runner replays journal entries through the engine. The engine publishes
// into buffer; the runner moves each batch's events from buffer to sink.
type Runner struct {
	cfg        RunConfig
	engine     *amm.Engine
	buffer     *storage.MemoryStorage
	sink       storage.Storage
	logger     *zap.Logger
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, engine *amm.Engine, buffer *storage.MemoryStorage, sink storage.Storage, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		engine:     engine,
		buffer:     buffer,
		sink:       sink,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run replays entries, resuming after the last checkpointed line. Resuming
// is refused when the ledger has moved since the checkpoint was written,
// since the journal position would no longer match the ledger state.
func (r *Runner) Run(ctx context.Context, entries []Entry) (Summary, error) {
	var summary Summary
	if r.engine == nil {
		return summary, fmt.Errorf("engine is nil")
	}
	if r.buffer == nil || r.sink == nil {
		return summary, fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize == 0 {
		return summary, fmt.Errorf("batch size must be greater than zero")
	}
	if len(entries) == 0 {
		r.logger.Info("empty journal")
		return summary, nil
	}

	from := entries[0].Line
	to := entries[len(entries)-1].Line

	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return summary, err
	}
	if ok {
		seq, err := r.engine.Sequence(ctx)
		if err != nil {
			return summary, err
		}
		if seq != cp.LedgerSequence {
			return summary, fmt.Errorf("ledger at sequence %d but checkpoint recorded %d", seq, cp.LedgerSequence)
		}
		if cp.LastProcessedLine >= from {
			from = cp.LastProcessedLine + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedLine), zap.Uint64("from", from))
		}
	}

	if from > to {
		r.logger.Info("nothing to replay", zap.Uint64("from", from), zap.Uint64("to", to))
		return summary, nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return summary, err
	}

	next := 0
	for _, lineRange := range ranges {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		for next < len(entries) && entries[next].Line < lineRange.From {
			next++
		}
		for ; next < len(entries) && entries[next].Line <= lineRange.To; next++ {
			entry := entries[next]
			err := r.apply(ctx, entry.Instruction)
			if err == nil {
				summary.Applied++
				continue
			}
			rejected := model.ErrorCode(err) != 0 || isInstructionError(err)
			if rejected {
				summary.Rejected++
				r.logger.Warn("instruction rejected",
					zap.Uint64("line", entry.Line),
					zap.String("kind", entry.Instruction.Kind),
					zap.Uint32("code", model.ErrorCode(err)),
					zap.Error(err),
				)
				if !r.cfg.StopOnError {
					continue
				}
			}
			// Keep everything before the failing line resumable.
			if entry.Line > lineRange.From {
				published, cpErr := r.commitBatch(ctx, LineRange{From: lineRange.From, To: entry.Line - 1})
				summary.Published += published
				if cpErr != nil {
					r.logger.Error("checkpoint before failure", zap.Error(cpErr))
				}
			}
			return summary, fmt.Errorf("line %d: %w", entry.Line, err)
		}

		published, err := r.commitBatch(ctx, lineRange)
		summary.Published += published
		if err != nil {
			return summary, err
		}
	}

	return summary, nil
}

// commitBatch publishes the buffered events of lines and checkpoints the last
// of them.
func (r *Runner) commitBatch(ctx context.Context, lines LineRange) (int, error) {
	published, err := r.flush(ctx)
	if err != nil {
		return 0, fmt.Errorf("store events: %w", err)
	}

	seq, err := r.engine.Sequence(ctx)
	if err != nil {
		return published, err
	}
	if err := r.checkpoint.Save(lines.To, seq); err != nil {
		return published, err
	}

	r.logger.Info("batch complete",
		zap.Uint64("from", lines.From),
		zap.Uint64("to", lines.To),
		zap.Int("events", published),
		zap.Uint64("sequence", seq),
	)
	return published, nil
}

func (r *Runner) flush(ctx context.Context) (int, error) {
	records := r.buffer.Drain()
	if len(records) == 0 {
		return 0, nil
	}
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		err := r.sink.PutLogBatch(records)
		if err != nil {
			r.logger.Warn("store events failed", zap.Error(err), zap.Int("events", len(records)))
		}
		return err
	})
	return len(records), err
}

// instructionError marks a journal entry that cannot be turned into a call.
type instructionError struct {
	err error
}

func (e instructionError) Error() string { return e.err.Error() }

func (e instructionError) Unwrap() error { return e.err }

func isInstructionError(err error) bool {
	_, ok := err.(instructionError)
	return ok
}

func (r *Runner) apply(ctx context.Context, ins model.Instruction) error {
	caller, err := ParseAddress(ins.Caller)
	if err != nil {
		return instructionError{fmt.Errorf("caller: %w", err)}
	}

	switch ins.Kind {
	case model.InstructionInitialize:
		params, err := initializeParams(ins)
		if err != nil {
			return instructionError{err}
		}
		_, err = r.engine.Initialize(ctx, caller, params)
		return err
	case model.InstructionDeposit:
		_, err := r.engine.Deposit(ctx, caller, ins.Seed, ins.LPAmount, ins.MaxX, ins.MaxY)
		return err
	case model.InstructionSwap:
		_, err := r.engine.Swap(ctx, caller, ins.Seed, ins.AmountIn, ins.MinOut, ins.XToY)
		return err
	case model.InstructionWithdraw:
		_, err := r.engine.Withdraw(ctx, caller, ins.Seed, ins.LPAmount, ins.MinX, ins.MinY)
		return err
	default:
		return instructionError{fmt.Errorf("unknown instruction kind %q", ins.Kind)}
	}
}

func initializeParams(ins model.Instruction) (amm.InitializeParams, error) {
	assetX, err := ParseAddress(ins.AssetX)
	if err != nil {
		return amm.InitializeParams{}, fmt.Errorf("asset x: %w", err)
	}
	assetY, err := ParseAddress(ins.AssetY)
	if err != nil {
		return amm.InitializeParams{}, fmt.Errorf("asset y: %w", err)
	}
	authority, err := ParseOptionalAddress(ins.Authority)
	if err != nil {
		return amm.InitializeParams{}, fmt.Errorf("authority: %w", err)
	}
	return amm.InitializeParams{
		Seed:      ins.Seed,
		FeeBps:    ins.FeeBps,
		Authority: authority,
		AssetX:    assetX,
		AssetY:    assetY,
	}, nil
}
