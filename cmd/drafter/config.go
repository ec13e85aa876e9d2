package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the runtime configuration for the drafter binary. Values are
// layered: defaults, then the YAML config file, then DRAFTER_* environment
// variables, then command-line flags.
type Config struct {
	Provider      string `yaml:"provider" env:"DRAFTER_PROVIDER"`
	Model         string `yaml:"model" env:"DRAFTER_MODEL"`
	SaveDir       string `yaml:"save_dir" env:"DRAFTER_SAVE_DIR"`
	MaxRounds     int    `yaml:"max_rounds" env:"DRAFTER_MAX_ROUNDS"` // 0 = unlimited
	DecideTimeout string `yaml:"decide_timeout" env:"DRAFTER_DECIDE_TIMEOUT"`
	LogLevel      string `yaml:"log_level" env:"DRAFTER_LOG_LEVEL"`
	LogPath       string `yaml:"log_path" env:"DRAFTER_LOG_PATH"`
	Script        string `yaml:"script" env:"DRAFTER_SCRIPT"`
	Transcript    string `yaml:"transcript" env:"DRAFTER_TRANSCRIPT"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		SaveDir:       ".",
		MaxRounds:     50,
		DecideTimeout: "2m",
		LogLevel:      "info",
		LogPath:       defaultLogPath(),
	}
}

// DefaultConfigPath returns the standard location of the config file,
// e.g. ~/.config/drafter/config.yaml on Linux.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "drafter", "config.yaml")
}

func defaultLogPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "drafter", "drafter.log")
}

// LoadConfig reads the config file at path, if it exists, and applies
// environment overrides. A missing file is not an error; an empty path skips
// the file layer entirely.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// fall through to environment overrides
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	cfg.applyFallbacks()
	if _, err := time.ParseDuration(cfg.DecideTimeout); err != nil {
		return nil, fmt.Errorf("invalid decide_timeout %q: %w", cfg.DecideTimeout, err)
	}
	return cfg, nil
}

// applyFallbacks restores defaults for string fields the file or environment
// set to an unusable empty value. MaxRounds 0 means unlimited and passes
// through from any layer; negative values collapse to 0.
func (c *Config) applyFallbacks() {
	if c.SaveDir == "" {
		c.SaveDir = "."
	}
	if c.MaxRounds < 0 {
		c.MaxRounds = 0
	}
	if c.DecideTimeout == "" {
		c.DecideTimeout = "2m"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// DecideDuration returns the parsed decide timeout. LoadConfig validates the
// value, so an unparsable string only happens on a hand-built Config and
// falls back to the default.
func (c *Config) DecideDuration() time.Duration {
	d, err := time.ParseDuration(c.DecideTimeout)
	if err != nil {
		return 2 * time.Minute
	}
	return d
}

// SlogLevel maps the configured level name onto a slog level. Unknown names
// fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
