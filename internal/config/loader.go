package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if PULSE_CONFIG is set
//  3. env (prefix PULSE_)
func Load(_ context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("PULSE_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: PULSE_ADDR, PULSE_DB_DSN, ...
	// Map env keys like PULSE_DB_DSN -> db_dsn (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("PULSE_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "pulse_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Basic validation
	if cfg.Addr == "" {
		return nil, fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("%w: db_dsn must not be empty", ErrInvalidConfig)
	}
	if cfg.TempEventRetention <= 0 {
		return nil, fmt.Errorf("%w: temp_event_retention must be positive", ErrInvalidConfig)
	}
	if cfg.SweepIntervalMS < 0 {
		return nil, fmt.Errorf("%w: sweep_interval_ms must not be negative", ErrInvalidConfig)
	}
	return &cfg, nil
}
