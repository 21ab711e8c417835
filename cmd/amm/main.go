package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ammLedger/internal/amm"
	"ammLedger/internal/config"
	"ammLedger/internal/ledger"
	"ammLedger/internal/replay"
	"ammLedger/internal/storage"
)

func main() {
	root := &cobra.Command{
		Use:          "amm",
		Short:        "Constant-product liquidity pools on a local reserve ledger",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file path")
	pf.String("data-dir", "./data/ledger", "ledger data directory")
	pf.String("backend", config.BackendPebble, "ledger backend (pebble, memory)")
	pf.String("program-id", config.DefaultProgramID, "pool program address")
	pf.String("events-out", "./data/events.jsonl", "event log JSONL path (empty disables)")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.Int("cache-size", 4096, "ledger read cache entries")

	root.AddCommand(
		newAssetCmd(),
		newBalanceCmd(),
		newPoolCmd(),
		newDepositCmd(),
		newSwapCmd(),
		newWithdrawCmd(),
		newQuoteCmd(),
		newReplayCmd(),
		newDecodeCmd(),
		newAggregateCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func openLedger(cfg config.Config, logger *zap.Logger) (*ledger.Store, error) {
	var kv ledger.KV
	switch cfg.Backend {
	case config.BackendMemory:
		kv = ledger.NewMemKV()
	default:
		pebbleKV, err := ledger.OpenPebble(cfg.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		kv = pebbleKV
	}
	store, err := ledger.NewStore(kv, cfg.CacheSize, logger)
	if err != nil {
		kv.Close()
		return nil, err
	}
	return store, nil
}

// session bundles what a command needs to talk to the ledger.
type session struct {
	cfg    config.Config
	logger *zap.Logger
	store  *ledger.Store
	engine *amm.Engine
}

func (s *session) Close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("close ledger", zap.Error(err))
		}
	}
	_ = s.logger.Sync()
}

// openSession loads the shared config and opens the ledger and engine.
// Events go to sink, or to events-out when sink is nil.
func openSession(cmd *cobra.Command, sink storage.Storage, reg prometheus.Registerer) (*session, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	return openSessionWith(cfg, sink, reg)
}

func openSessionWith(cfg config.Config, sink storage.Storage, reg prometheus.Registerer) (*session, error) {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	programID, err := replay.ParseAddress(cfg.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("program id: %w", err)
	}

	store, err := openLedger(cfg, logger)
	if err != nil {
		return nil, err
	}
	if sink == nil && cfg.EventsOut != "" {
		sink = storage.NewJsonlStorage(cfg.EventsOut)
	}
	engine, err := amm.NewEngine(store, programID, sink, amm.NewMetrics(reg), logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, store: store, engine: engine}, nil
}

func addressFlag(cmd *cobra.Command, name string) (common.Address, error) {
	raw, _ := cmd.Flags().GetString(name)
	addr, err := replay.ParseAddress(raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("--%s: %w", name, err)
	}
	return addr, nil
}

func printJSON(w io.Writer, value interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
