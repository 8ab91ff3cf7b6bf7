// Package config loads server settings from an optional TOML file and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Duration is a time.Duration written as a string such as "30m" in TOML.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Config holds every server setting.
type Config struct {
	Port        int      `toml:"port"`
	DatabaseURL string   `toml:"database_url"`
	Seed        string   `toml:"seed"`
	Sessions    Sessions `toml:"sessions"`
	Events      Events   `toml:"events"`
}

// Sessions configures edit session lifetimes.
type Sessions struct {
	MaxAge          Duration `toml:"max_age"`
	IdleTimeout     Duration `toml:"idle_timeout"`
	CleanupInterval Duration `toml:"cleanup_interval"`
}

// Events configures the event bus.
type Events struct {
	Buffer int `toml:"buffer"`
}

// Default returns the settings used when nothing overrides them.
func Default() Config {
	return Config{
		Port:        8080,
		DatabaseURL: "file:modeleditor.db?_pragma=foreign_keys(1)",
		Sessions: Sessions{
			MaxAge:          Duration(24 * time.Hour),
			IdleTimeout:     Duration(30 * time.Minute),
			CleanupInterval: Duration(time.Minute),
		},
		Events: Events{Buffer: 256},
	}
}

// Load reads path (skipped when empty) over the defaults, then applies the
// PORT, DATABASE_URL and MODELEDITOR_SEED environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if p, ok := lookup("PORT"); ok && p != "" {
		v, err := strconv.Atoi(p)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", p, err)
		}
		c.Port = v
	}
	if dsn, ok := lookup("DATABASE_URL"); ok && dsn != "" {
		c.DatabaseURL = dsn
	}
	if seed, ok := lookup("MODELEDITOR_SEED"); ok && seed != "" {
		c.Seed = seed
	}
	return nil
}
