// Package amm implements the constant-product pool program: Initialize,
// Deposit, Swap and Withdraw as atomic ledger transitions, plus read-only
// queries over committed pool state.
package amm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"ammLedger/internal/events"
	"ammLedger/internal/ledger"
	"ammLedger/internal/model"
	"ammLedger/internal/storage"
)

// Engine executes pool instructions against a ledger. It alone holds the
// program handle, so only its handlers can sign for pool authorities.
type Engine struct {
	store   *ledger.Store
	program *ledger.Program
	encoder *events.Encoder
	sink    storage.Storage
	metrics *Metrics
	logger  *zap.Logger
}

// NewEngine builds an engine for programID. Committed events are published to
// sink when it is non-nil.
func NewEngine(store *ledger.Store, programID common.Address, sink storage.Storage, metrics *Metrics, logger *zap.Logger) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store is nil")
	}
	if programID == (common.Address{}) {
		return nil, fmt.Errorf("program id is empty")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	encoder, err := events.NewEncoder(programID)
	if err != nil {
		return nil, fmt.Errorf("event encoder: %w", err)
	}
	return &Engine{
		store:   store,
		program: ledger.NewProgram(programID),
		encoder: encoder,
		sink:    sink,
		metrics: metrics,
		logger:  logger,
	}, nil
}

// ProgramID returns the program identity pool addresses derive from.
func (e *Engine) ProgramID() common.Address {
	return e.program.ID()
}

// transition is the body of one instruction. It emits events through emit and
// returns the pool state after its writes.
type transition func(tx *ledger.Tx, emit func(events.Emitted)) (model.PoolState, error)

// execute runs fn as one ledger transaction and publishes its events once the
// transaction has committed.
func (e *Engine) execute(ctx context.Context, kind string, seed uint64, fn transition) error {
	start := time.Now()

	var (
		emitted   []events.Emitted
		state     model.PoolState
		sequence  uint64
		timestamp uint64
	)
	err := e.store.Update(ctx, func(tx *ledger.Tx) error {
		emitted = emitted[:0]
		var err error
		state, err = fn(tx, func(ev events.Emitted) { emitted = append(emitted, ev) })
		sequence, timestamp = tx.Sequence(), tx.Timestamp()
		return err
	})
	e.observe(kind, start, err)
	if err != nil {
		e.logger.Warn("instruction rejected",
			zap.String("instruction", kind),
			zap.Uint64("seed", seed),
			zap.Uint32("code", model.ErrorCode(err)),
			zap.Error(err),
		)
		return err
	}

	e.metrics.observeState(state)
	e.logger.Debug("instruction committed",
		zap.String("instruction", kind),
		zap.Uint64("seed", seed),
		zap.Uint64("sequence", sequence),
		zap.Uint64("reserve_x", state.ReserveX),
		zap.Uint64("reserve_y", state.ReserveY),
		zap.Uint64("supply", state.Supply),
	)

	if e.sink == nil || len(emitted) == 0 {
		return nil
	}
	records, err := e.encoder.EncodeBatch(sequence, timestamp, emitted)
	if err == nil {
		err = e.sink.PutLogBatch(records)
	}
	if err != nil {
		e.logger.Error("publish events", zap.Uint64("sequence", sequence), zap.Error(err))
		return &PublishError{Sequence: sequence, Err: err}
	}
	return nil
}

// PublishError reports a transition that committed but whose events did not
// reach the sink. The ledger state is not rolled back.
type PublishError struct {
	Sequence uint64
	Err      error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("sequence %d committed, publish events: %v", e.Sequence, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// IsCommitted reports whether the transition behind err was kept.
func IsCommitted(err error) bool {
	var pubErr *PublishError
	return err == nil || errors.As(err, &pubErr)
}

func (e *Engine) observe(kind string, start time.Time, err error) {
	if e.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		if code := model.ErrorCode(err); code != 0 {
			status = fmt.Sprintf("code_%d", code)
		}
	}
	e.metrics.InstructionsTotal.WithLabelValues(kind, status).Inc()
	e.metrics.InstructionLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
