package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammLedger/internal/config"
	"ammLedger/internal/replay"
	"ammLedger/internal/storage"
)

func newReplayCmd() *cobra.Command {
	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Execute an instruction journal against the ledger",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("in", "", "input instruction journal JSONL")
	replayCmd.Flags().Uint64("batch-size", 500, "journal lines per batch")
	replayCmd.Flags().String("checkpoint", "./data/replay_checkpoint.json", "checkpoint file path")
	replayCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	replayCmd.Flags().Int("max-retries", 5, "maximum retry attempts for event writes")
	replayCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	replayCmd.Flags().Bool("stop-on-error", false, "stop at the first rejected instruction")
	replayCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9100)")
	return replayCmd
}

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	entries, err := replay.ReadJournal(cfg.In)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	buffer := storage.NewMemoryStorage()
	s, err := openSessionWith(cfg.Config, buffer, reg)
	if err != nil {
		return err
	}
	defer s.Close()
	logger := s.logger

	var sink storage.Storage = storage.NewMemoryStorage()
	if cfg.EventsOut != "" {
		sink = storage.NewJsonlStorage(cfg.EventsOut)
	}

	metricsServer := replay.NewMetricsServer(cfg.MetricsAddr, reg, logger)
	metricsServer.Start()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("metrics server stop", zap.Error(err))
		}
	}()

	ctx, stop := signalContext()
	defer stop()

	runner := replay.NewRunner(replay.RunConfig{
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		StopOnError:       cfg.StopOnError,
	}, s.engine, buffer, sink, logger)

	logger.Info("replay start",
		zap.String("in", cfg.In),
		zap.Int("entries", len(entries)),
		zap.String("backend", cfg.Backend),
		zap.String("program_id", cfg.ProgramID),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("events_out", cfg.EventsOut),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	summary, err := runner.Run(ctx, entries)
	logger.Info("replay complete",
		zap.Int("applied", summary.Applied),
		zap.Int("rejected", summary.Rejected),
		zap.Int("published", summary.Published),
	)
	return err
}
