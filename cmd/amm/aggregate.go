package main

import (
	"context"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ammLedger/internal/aggregate"
	"ammLedger/internal/config"
	"ammLedger/internal/storage/postgres"
)

func newAggregateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Roll typed pool events up into per-window metrics in Postgres",
		RunE:  runAggregate,
	}

	f := cmd.Flags()
	f.String("in", "", "typed events JSONL produced by decode")
	f.String("window", "5m", "window size (1m, 5m, 1h, ...)")
	f.String("pg-dsn", "", "Postgres connection string")
	f.Int("batch-size", 1000, "window rows per upsert")
	f.String("state-file", "", "keep progress in this file instead of aggregator_state")
	f.String("recompute-from", "", "reprocess events from this time (unix seconds or RFC3339)")
	f.String("decimals", "", "asset decimals, comma-separated address=decimals")
	f.Bool("ledger-decimals", true, "look up missing asset decimals in the local ledger")
	return cmd
}

func runAggregate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAggregate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()

	decimals := aggregate.ChainedDecimals{aggregate.StaticDecimals(cfg.Decimals)}
	if cfg.LedgerDecimals {
		s, err := openSessionWith(cfg.Config, nil, nil)
		if err != nil {
			return err
		}
		defer s.Close()
		decimals = append(decimals, s.engine)
	}

	store, err := openMetricsStore(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	windowSeconds := uint64(cfg.Window.Seconds())
	var state aggregate.StateStore = aggregate.NewDBStateStore(store, windowSeconds)
	if cfg.StateFile != "" {
		state = &aggregate.FileStateStore{Path: cfg.StateFile, WindowSeconds: windowSeconds}
	}

	logger.Info("aggregate start",
		zap.String("input", cfg.Input),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Duration("window", cfg.Window),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Uint64("recompute_from", cfg.RecomputeFrom),
		zap.Int("decimals_overrides", len(cfg.Decimals)),
		zap.Bool("ledger_decimals", cfg.LedgerDecimals),
	)

	agg := aggregate.NewAggregator(aggregate.Config{
		WindowSeconds: windowSeconds,
		BatchSize:     cfg.BatchSize,
		RecomputeFrom: cfg.RecomputeFrom,
		StateStore:    state,
		Decimals:      decimals,
	}, store, logger)
	return agg.Run(ctx, cfg.Input)
}

func openMetricsStore(ctx context.Context, dsn string) (*postgres.Store, error) {
	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres %s: %w", redactDSN(dsn), err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// redactDSN hides the password of a URL-style DSN. Keyword/value DSNs are
// hidden entirely since they cannot be parsed safely here.
func redactDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
