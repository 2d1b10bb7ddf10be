// Package config loads crux settings from a TOML file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

type Config struct {
	Tracking TrackingConfig `toml:"tracking"`
	Display  DisplayConfig  `toml:"display"`
	Filters  FiltersConfig  `toml:"filters"`
	Cache    CacheConfig    `toml:"cache"`
	Tee      TeeConfig      `toml:"tee"`
	Output   OutputConfig   `toml:"output"`
	Script   ScriptConfig   `toml:"script"`
}

type TrackingConfig struct {
	Enabled bool   `toml:"enabled"`
	DBPath  string `toml:"db_path"`
	// History keeps raw and filtered text alongside each event.
	History bool `toml:"history"`
}

type DisplayConfig struct {
	Color bool `toml:"color"`
	Emoji bool `toml:"emoji"`
}

type FiltersConfig struct {
	GlobalDir string `toml:"global_dir"`
	LocalDir  string `toml:"local_dir"`
}

type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
	// Fingerprint is "content" or "mtime".
	Fingerprint string `toml:"fingerprint"`
}

type TeeConfig struct {
	Enabled     bool   `toml:"enabled"`
	Mode        string `toml:"mode"` // "failures", "always", "never"
	MaxFiles    int    `toml:"max_files"`
	MaxFileSize int64  `toml:"max_file_size"`
	MinSize     int    `toml:"min_size"`
	Dir         string `toml:"dir"`
}

type OutputConfig struct {
	// Stream is "combined" or "stdout".
	Stream string `toml:"stream"`
}

type ScriptConfig struct {
	Timeout Duration `toml:"timeout"`
}

// Duration is a time.Duration written as a string such as "250ms".
type Duration struct{ time.Duration }

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("duration: %w", err)
	}
	d.Duration = v
	return nil
}

func home() string {
	h, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return h
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	h := home()
	return &Config{
		Tracking: TrackingConfig{
			Enabled: true,
			DBPath:  filepath.Join(h, ".local", "share", "crux", "tracking.db"),
		},
		Display: DisplayConfig{
			Color: true,
			Emoji: true,
		},
		Filters: FiltersConfig{
			GlobalDir: filepath.Join(h, ".config", "crux", "filters"),
			LocalDir:  filepath.Join(".crux", "filters"),
		},
		Cache: CacheConfig{
			Enabled:     true,
			Fingerprint: "content",
		},
		Tee: TeeConfig{
			Enabled:     true,
			Mode:        "failures",
			MaxFiles:    20,
			MaxFileSize: 1 << 20, // 1MB
			MinSize:     500,
			Dir:         filepath.Join(h, ".local", "share", "crux", "tee"),
		},
		Output: OutputConfig{Stream: "combined"},
		Script: ScriptConfig{Timeout: Duration{250 * time.Millisecond}},
	}
}

// Load reads config from file, merging with defaults, then applies
// environment overrides. Returns defaults if the file is missing.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	path := Path()
	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, err
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if p := os.Getenv("CRUX_DB_PATH"); p != "" {
		c.Tracking.DBPath = p
	}
	switch os.Getenv("CRUX_NO_CACHE") {
	case "", "0", "false":
	default:
		c.Cache.Enabled = false
	}
	if os.Getenv("CRUX_NO_TRACKING") == "1" {
		c.Tracking.Enabled = false
	}
}

// Path is the config file location: CRUX_CONFIG, or
// ~/.config/crux/config.toml.
func Path() string {
	if p := os.Getenv("CRUX_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(home(), ".config", "crux", "config.toml")
}

// Encode renders cfg as TOML.
func Encode(cfg *Config) ([]byte, error) {
	return toml.Marshal(cfg)
}
