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
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if MOLEHIT_CONFIG is set
//  3. env (prefix MOLEHIT_)
func Load(ctx context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("MOLEHIT_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: MOLEHIT_ADDR, MOLEHIT_TICK_INTERVAL_MS, ...
	// Keys map to the koanf struct tags with underscores preserved.
	envProvider := env.Provider("MOLEHIT_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "molehit_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.TickIntervalMS <= 0:
		return fmt.Errorf("%w: tick_interval_ms must be positive", ErrInvalidConfig)
	case c.HitHoldMS < 0:
		return fmt.Errorf("%w: hit_hold_ms must not be negative", ErrInvalidConfig)
	case c.MaxSessions < 1:
		return fmt.Errorf("%w: max_sessions must be at least 1", ErrInvalidConfig)
	case c.EventBufferSize < 1:
		return fmt.Errorf("%w: event_buffer_size must be at least 1", ErrInvalidConfig)
	case c.MaxHistoryLimit < 1:
		return fmt.Errorf("%w: max_history_limit must be at least 1", ErrInvalidConfig)
	}
	return nil
}
