package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	BackendPebble = "pebble"
	BackendMemory = "memory"

	// DefaultProgramID is the program address pools derive from unless
	// program-id is set.
	DefaultProgramID = "0x00000000000000000000000000000000000a3300"
)

// Config holds the ledger settings shared by every command.
type Config struct {
	DataDir   string
	Backend   string
	ProgramID string
	EventsOut string
	LogLevel  string
	CacheSize int
}

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	Config
	In                string
	BatchSize         uint64
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	StopOnError       bool
	MetricsAddr       string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return Config{}, err
	}
	return ledgerConfig(v)
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"batch-size":         uint64(500),
		"checkpoint":         "./data/replay_checkpoint.json",
		"checkpoint-enabled": true,
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
		"stop-on-error":      false,
	})
	if err != nil {
		return ReplayConfig{}, err
	}
	base, err := ledgerConfig(v)
	if err != nil {
		return ReplayConfig{}, err
	}

	cfg := ReplayConfig{
		Config:            base,
		In:                v.GetString("in"),
		BatchSize:         v.GetUint64("batch-size"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		StopOnError:       v.GetBool("stop-on-error"),
		MetricsAddr:       v.GetString("metrics-addr"),
	}
	if cfg.In == "" {
		return ReplayConfig{}, fmt.Errorf("in is required")
	}
	return cfg, nil
}

func ledgerConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		DataDir:   v.GetString("data-dir"),
		Backend:   strings.ToLower(v.GetString("backend")),
		ProgramID: v.GetString("program-id"),
		EventsOut: v.GetString("events-out"),
		LogLevel:  v.GetString("log-level"),
		CacheSize: v.GetInt("cache-size"),
	}
	switch cfg.Backend {
	case BackendPebble:
		if cfg.DataDir == "" {
			return Config{}, fmt.Errorf("data-dir is required for the pebble backend")
		}
	case BackendMemory:
	default:
		return Config{}, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
	return cfg, nil
}

// newViper layers flags over env (AMM_ prefix) over an optional config file
// over defaults.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("AMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("data-dir", "./data/ledger")
	v.SetDefault("backend", BackendPebble)
	v.SetDefault("program-id", DefaultProgramID)
	v.SetDefault("events-out", "./data/events.jsonl")
	v.SetDefault("log-level", "info")
	v.SetDefault("cache-size", 4096)
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}
