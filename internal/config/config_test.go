package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaultsAndEnv(t *testing.T) {
	t.Setenv("AMM_BACKEND", "memory")
	t.Setenv("AMM_CACHE_SIZE", "128")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != BackendMemory || cfg.CacheSize != 128 {
		t.Fatalf("env not applied: %+v", cfg)
	}
	if cfg.ProgramID != DefaultProgramID || cfg.LogLevel != "info" {
		t.Fatalf("defaults mismatch: %+v", cfg)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("AMM_BACKEND", "bolt")
	if _, err := Load("", nil); err == nil {
		t.Fatalf("expected backend error")
	}
}

func TestLoadReplayFlagsOverrideEnv(t *testing.T) {
	t.Setenv("AMM_BATCH_SIZE", "7")

	flags := pflag.NewFlagSet("replay", pflag.ContinueOnError)
	flags.String("in", "", "")
	flags.Uint64("batch-size", 500, "")
	flags.Duration("retry-backoff", time.Second, "")
	if err := flags.Parse([]string{"--in", "journal.jsonl", "--batch-size", "9", "--retry-backoff", "2s"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadReplay("", flags)
	if err != nil {
		t.Fatalf("load replay: %v", err)
	}
	if cfg.In != "journal.jsonl" || cfg.BatchSize != 9 || cfg.RetryBackoff != 2*time.Second {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if !cfg.CheckpointEnabled || cfg.MaxRetries != 5 {
		t.Fatalf("replay defaults mismatch: %+v", cfg)
	}
}

func TestLoadReplayRequiresInput(t *testing.T) {
	if _, err := LoadReplay("", nil); err == nil {
		t.Fatalf("expected error without input")
	}
}

func TestLoadAggregate(t *testing.T) {
	t.Setenv("AMM_IN", "typed.jsonl")
	t.Setenv("AMM_PG_DSN", "postgres://localhost/amm")
	t.Setenv("AMM_WINDOW", "1h")
	t.Setenv("AMM_DECIMALS", "0xAAAA=6, 0xbbbb=18")
	t.Setenv("AMM_RECOMPUTE_FROM", "2024-01-01T00:00:00Z")

	cfg, err := LoadAggregate("", nil)
	if err != nil {
		t.Fatalf("load aggregate: %v", err)
	}
	if cfg.Window != time.Hour || cfg.BatchSize != 1000 {
		t.Fatalf("aggregate mismatch: %+v", cfg)
	}
	if cfg.Decimals["0xaaaa"] != 6 || cfg.Decimals["0xbbbb"] != 18 {
		t.Fatalf("decimals mismatch: %+v", cfg.Decimals)
	}
	if cfg.RecomputeFrom != 1704067200 {
		t.Fatalf("recompute mismatch: %d", cfg.RecomputeFrom)
	}

	t.Setenv("AMM_DECIMALS", "0xaaaa=300")
	if _, err := LoadAggregate("", nil); err == nil {
		t.Fatalf("expected decimals overflow error")
	}
}

func TestParseStringMap(t *testing.T) {
	got := parseStringMap("0xabc=Swap, bad, =x,0xdef = Deposit")
	if len(got) != 2 || got["0xabc"] != "Swap" || got["0xdef"] != "Deposit" {
		t.Fatalf("map mismatch: %+v", got)
	}
}
