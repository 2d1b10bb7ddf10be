package tee

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testConfig(dir string) Config {
	return Config{
		Enabled:     true,
		Mode:        ModeFailures,
		MaxFiles:    3,
		MaxFileSize: 1 << 20,
		MinSize:     500,
		Dir:         dir,
	}
}

func TestSaveOnFailure(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	raw := strings.Repeat("error output\n", 100) // >500 chars

	path, err := Save(raw, 1, "git push", cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path == "" {
		t.Fatal("expected a saved file")
	}
	if !strings.HasSuffix(path, "-git-push.log") {
		t.Errorf("unexpected file name: %q", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != raw {
		t.Errorf("saved content mismatch: %v", err)
	}
	if hint := Hint(path); !strings.Contains(hint, "[full output:") {
		t.Errorf("unexpected hint: %q", hint)
	}
}

func TestSaveSkips(t *testing.T) {
	big := strings.Repeat("output\n", 100)
	tests := []struct {
		name     string
		mutate   func(*Config)
		raw      string
		exitCode int
	}{
		{"success in failures mode", nil, big, 0},
		{"small output", nil, "small", 1},
		{"disabled", func(c *Config) { c.Enabled = false }, big, 1},
		{"never mode", func(c *Config) { c.Mode = ModeNever }, big, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t.TempDir())
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			path, err := Save(tt.raw, tt.exitCode, "cmd", cfg)
			if err != nil || path != "" {
				t.Errorf("expected no save, got %q, %v", path, err)
			}
		})
	}
}

func TestSaveModeAlways(t *testing.T) {
	cfg := testConfig(t.TempDir())
	cfg.Mode = ModeAlways

	path, _ := Save(strings.Repeat("output\n", 100), 0, "cmd", cfg)
	if path == "" {
		t.Error("expected save in always mode on success")
	}
}

func TestWithEnv(t *testing.T) {
	cfg := testConfig(t.TempDir())

	t.Setenv("CRUX_TEE", "0")
	if cfg.WithEnv().Enabled {
		t.Error("CRUX_TEE=0 should disable")
	}

	t.Setenv("CRUX_TEE", "1")
	t.Setenv("CRUX_TEE_DIR", "/tmp/crux-tee")
	got := cfg.WithEnv()
	if got.Mode != ModeAlways || got.Dir != "/tmp/crux-tee" {
		t.Errorf("env overrides = %+v", got)
	}
}

func TestTruncateKeepsRunes(t *testing.T) {
	s := "aé" // 'é' is two bytes
	if got := truncate(s, 2); got != "a" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate(s, 10); got != s {
		t.Errorf("truncate = %q", got)
	}
}

func TestRotateFiles(t *testing.T) {
	dir := t.TempDir()

	// Create 5 log files
	for i := 0; i < 5; i++ {
		path := filepath.Join(dir, strings.Repeat("a", i+1)+".log")
		_ = os.WriteFile(path, []byte("data"), 0644)
	}

	rotateFiles(dir, 3)

	entries, _ := os.ReadDir(dir)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	if len(names) != 3 {
		t.Fatalf("expected 3 files after rotation, got %v", names)
	}
	if names[0] != "aaa.log" {
		t.Errorf("oldest files should go first, kept %v", names)
	}
}
