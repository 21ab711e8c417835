package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// DecodeConfig holds configuration for the decode command.
type DecodeConfig struct {
	Config
	In        string
	Out       string
	Errors    string
	Topic0Map map[string]string
	// LedgerMeta resolves pool metadata from the local ledger when the
	// stream does not carry the pool's PoolInitialized event.
	LedgerMeta bool
}

// LoadDecode merges config file, environment variables, and flags into DecodeConfig.
func LoadDecode(cfgFile string, flags *pflag.FlagSet) (DecodeConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":         "./data/typed_events.jsonl",
		"errors":      "./data/decode_errors.jsonl",
		"ledger-meta": true,
	})
	if err != nil {
		return DecodeConfig{}, err
	}
	base, err := ledgerConfig(v)
	if err != nil {
		return DecodeConfig{}, err
	}

	cfg := DecodeConfig{
		Config:     base,
		In:         v.GetString("in"),
		Out:        v.GetString("out"),
		Errors:     v.GetString("errors"),
		Topic0Map:  getStringMap(v, "topic0-map"),
		LedgerMeta: v.GetBool("ledger-meta"),
	}
	if cfg.In == "" {
		return DecodeConfig{}, fmt.Errorf("in is required")
	}
	return cfg, nil
}
