package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polaminggkub-debug/crux/internal/filter"
)

var stamp = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func mapFile(s string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(s), ModTime: stamp}
}

func newCache(t *testing.T, fsys fstest.MapFS, fp Fingerprinter) *Cache {
	t.Helper()
	return &Cache{
		Path:          filepath.Join(t.TempDir(), "crux", "index.gob"),
		Sources:       []filter.Source{{Tier: filter.TierGlobal, FS: fsys, Root: "g"}},
		Fingerprinter: fp,
	}
}

func tailCount(t *testing.T, ix *filter.Index, cmd string) int {
	t.Helper()
	s := ix.Lookup(cmd)
	require.NotNil(t, s, "spec %q missing", cmd)
	require.Len(t, s.Stages, 1)
	return s.Stages[0].Count
}

func TestLoadWritesSnapshot(t *testing.T) {
	fsys := fstest.MapFS{"make.toml": mapFile("command = \"make\"\ntail = 5")}
	c := newCache(t, fsys, nil)

	ix := c.Load()
	assert.Equal(t, 5, tailCount(t, ix, "make"))

	_, err := os.Stat(c.Path)
	require.NoError(t, err)

	entries, err := c.read()
	require.NoError(t, err)
	require.Contains(t, entries, "global:g/make.toml")
	assert.Equal(t, filter.TierGlobal, entries["global:g/make.toml"].Tier)
}

func TestLoadReusesUnchangedEntries(t *testing.T) {
	fsys := fstest.MapFS{"make.toml": mapFile("command = \"make\"\ntail = 5")}
	c := newCache(t, fsys, ModTime{})
	c.Load()

	// Same size and mtime: ModTime cannot see the edit, so the cached
	// spec is served.
	fsys["make.toml"] = mapFile("command = \"make\"\ntail = 7")
	assert.Equal(t, 5, tailCount(t, c.Load(), "make"))

	c.Fingerprinter = ContentHash{}
	assert.Equal(t, 7, tailCount(t, c.Load(), "make"))
}

func TestLoadMatchesFreshParse(t *testing.T) {
	fsys := fstest.MapFS{
		"make.toml":   mapFile("command = \"make\"\ntail = 5"),
		"ls.yaml":     mapFile("command: ls\nhead: 3\n"),
		"broken.toml": mapFile("command = "),
	}
	c := newCache(t, fsys, nil)
	c.Load()

	fsys["make.toml"] = mapFile("command = \"make\"\ntail = 9")
	delete(fsys, "ls.yaml")
	fsys["npm.toml"] = mapFile("command = \"npm\"\ndedup = true")

	cached := c.Load()
	fresh, _ := filter.LoadAll(c.Sources...)
	if diff := cmp.Diff(fresh.Specs(), cached.Specs()); diff != "" {
		t.Errorf("cached index differs from fresh parse (-fresh +cached):\n%s", diff)
	}
	assert.Nil(t, cached.Lookup("ls"), "deleted file must be dropped")

	entries, err := c.read()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestCorruptSnapshotRescans(t *testing.T) {
	fsys := fstest.MapFS{"make.toml": mapFile("command = \"make\"\ntail = 5")}
	c := newCache(t, fsys, nil)
	require.NoError(t, os.MkdirAll(filepath.Dir(c.Path), 0o755))
	require.NoError(t, os.WriteFile(c.Path, []byte("not a gob stream"), 0o644))

	_, err := c.read()
	var ce *Error
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "decode", ce.Op)

	ix := c.Load()
	assert.Equal(t, 5, tailCount(t, ix, "make"))

	_, err = c.read()
	assert.NoError(t, err, "rescan should rewrite a valid snapshot")
}

func TestDisabledCache(t *testing.T) {
	fsys := fstest.MapFS{"make.toml": mapFile("command = \"make\"\ntail = 5")}
	c := &Cache{Sources: []filter.Source{{Tier: filter.TierLocal, FS: fsys}}}
	assert.Equal(t, 5, tailCount(t, c.Load(), "make"))
	assert.NoError(t, c.Clear())
}

func TestClear(t *testing.T) {
	fsys := fstest.MapFS{"make.toml": mapFile("command = \"make\"\ntail = 5")}
	c := newCache(t, fsys, nil)
	c.Refresh()
	require.NoError(t, c.Clear())
	_, err := os.Stat(c.Path)
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, c.Clear(), "clearing twice is fine")
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	assert.Equal(t, "/tmp/xdg/crux/index.gob", DefaultPath())
}
