package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Tee.Mode != "failures" {
		t.Errorf("expected tee mode 'failures', got %q", cfg.Tee.Mode)
	}
	if cfg.Tee.MaxFiles != 20 {
		t.Errorf("expected max_files 20, got %d", cfg.Tee.MaxFiles)
	}
	if !cfg.Display.Color {
		t.Error("expected color enabled by default")
	}
	if !cfg.Tracking.Enabled || cfg.Tracking.DBPath == "" {
		t.Error("expected tracking enabled with a db path")
	}
	if !cfg.Cache.Enabled || cfg.Cache.Fingerprint != "content" {
		t.Errorf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if cfg.Script.Timeout.Duration != 250*time.Millisecond {
		t.Errorf("script timeout = %s", cfg.Script.Timeout)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Setenv("CRUX_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tee.Mode != "failures" {
		t.Errorf("expected defaults when file missing, got tee.mode=%q", cfg.Tee.Mode)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[tracking]
db_path = "/custom/path.db"
history = true

[tee]
mode = "always"
max_files = 5

[output]
stream = "stdout"

[script]
timeout = "1s"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CRUX_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Tracking.DBPath != "/custom/path.db" || !cfg.Tracking.History {
		t.Errorf("tracking = %+v", cfg.Tracking)
	}
	if cfg.Tee.Mode != "always" || cfg.Tee.MaxFiles != 5 {
		t.Errorf("tee = %+v", cfg.Tee)
	}
	// Keys absent from the file keep their defaults.
	if cfg.Tee.MaxFileSize != 1<<20 || !cfg.Display.Color {
		t.Error("defaults lost on merge")
	}
	if cfg.Output.Stream != "stdout" {
		t.Errorf("stream = %q", cfg.Output.Stream)
	}
	if cfg.Script.Timeout.Duration != time.Second {
		t.Errorf("script timeout = %s", cfg.Script.Timeout)
	}
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[tee\nmode ="), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CRUX_CONFIG", path)

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), path) {
		t.Errorf("expected error naming the file, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CRUX_CONFIG", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("CRUX_DB_PATH", "/env/db.sqlite")
	t.Setenv("CRUX_NO_CACHE", "1")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Tracking.DBPath != "/env/db.sqlite" {
		t.Errorf("db path = %q", cfg.Tracking.DBPath)
	}
	if cfg.Cache.Enabled {
		t.Error("CRUX_NO_CACHE should disable the cache")
	}
}

func TestEncode(t *testing.T) {
	data, err := Encode(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"[tracking]", "[tee]", "250ms"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("encoded config missing %q:\n%s", want, data)
		}
	}
}
