// Package tee keeps the unfiltered output of a run on disk so it can be
// recovered when the compressed form dropped something that mattered.
package tee

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Mode selects which runs are saved.
type Mode string

const (
	ModeFailures Mode = "failures"
	ModeAlways   Mode = "always"
	ModeNever    Mode = "never"
)

// Config for tee behavior.
type Config struct {
	Enabled     bool
	Mode        Mode
	MaxFiles    int
	MaxFileSize int64
	// MinSize skips outputs too short to be worth recovering.
	MinSize int
	Dir     string
}

// DefaultConfig returns tee defaults.
func DefaultConfig() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		Enabled:     true,
		Mode:        ModeFailures,
		MaxFiles:    20,
		MaxFileSize: 1 << 20, // 1MB
		MinSize:     500,
		Dir:         filepath.Join(home, ".local", "share", "crux", "tee"),
	}
}

// WithEnv applies CRUX_TEE and CRUX_TEE_DIR. CRUX_TEE=0 disables saving,
// CRUX_TEE=1 saves every run.
func (c Config) WithEnv() Config {
	switch os.Getenv("CRUX_TEE") {
	case "0", "false", "never":
		c.Enabled = false
	case "1", "true", "always":
		c.Enabled = true
		c.Mode = ModeAlways
	}
	if dir := os.Getenv("CRUX_TEE_DIR"); dir != "" {
		c.Dir = dir
	}
	return c
}

// ShouldSave reports whether a run with this output and exit code is kept.
func (c Config) ShouldSave(raw string, exitCode int) bool {
	if !c.Enabled || len(raw) < c.MinSize {
		return false
	}
	switch c.Mode {
	case ModeAlways:
		return true
	case ModeFailures:
		return exitCode != 0
	}
	return false
}

// Save writes raw to a new file when ShouldSave allows it and returns the
// file path, or "" when nothing was written.
func Save(raw string, exitCode int, cmd string, cfg Config) (string, error) {
	if !cfg.ShouldSave(raw, exitCode) {
		return "", nil
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return "", fmt.Errorf("tee dir: %w", err)
	}

	data := truncate(raw, cfg.MaxFileSize)
	filename := fmt.Sprintf("%d-%s.log", time.Now().UnixNano(), sanitize(cmd))
	path := filepath.Join(cfg.Dir, filename)
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		return "", fmt.Errorf("tee write: %w", err)
	}

	rotateFiles(cfg.Dir, cfg.MaxFiles)
	return path, nil
}

// Hint is the line printed to point at a saved file.
func Hint(path string) string {
	return fmt.Sprintf("[full output: %s]", path)
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int64) string {
	if max <= 0 || int64(len(s)) <= max {
		return s
	}
	cut := int(max)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func sanitize(cmd string) string {
	safe := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '-'
	}, cmd)
	if len(safe) > 60 {
		safe = safe[:60]
	}
	return safe
}

func rotateFiles(dir string, maxFiles int) {
	if maxFiles <= 0 {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	var logFiles []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".log") {
			logFiles = append(logFiles, e.Name())
		}
	}
	if len(logFiles) <= maxFiles {
		return
	}

	// Timestamp prefix sorts chronologically.
	sort.Strings(logFiles)
	for _, name := range logFiles[:len(logFiles)-maxFiles] {
		os.Remove(filepath.Join(dir, name))
	}
}
