// Package cache persists parsed filter specifications between runs so that
// unchanged files are not parsed again.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/polaminggkub-debug/crux/internal/filter"
)

// formatVersion is bumped whenever the snapshot layout or filter.Spec changes.
const formatVersion = 1

// Error reports a snapshot that could not be read or written. It never
// reaches the user; a failed read falls back to a full scan.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "cache " + e.Op + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// Fingerprinter decides whether a file changed since it was cached.
type Fingerprinter interface {
	Fingerprint(fsys fs.FS, name string) (string, error)
}

// ContentHash fingerprints a file by the sha256 of its contents.
type ContentHash struct{}

func (ContentHash) Fingerprint(fsys fs.FS, name string) (string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// ModTime fingerprints a file by modification time and size. It avoids
// reading files but misses edits that preserve both.
type ModTime struct{}

func (ModTime) Fingerprint(fsys fs.FS, name string) (string, error) {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(info.ModTime().UnixNano(), 10) + ":" + strconv.FormatInt(info.Size(), 10), nil
}

// Entry is one cached specification file.
type Entry struct {
	Fingerprint string
	Tier        filter.Tier
	Source      string
	Spec        *filter.Spec
}

type snapshot struct {
	Version int
	Entries map[string]Entry
}

func key(tier filter.Tier, source string) string { return tier.String() + ":" + source }

// Cache loads filter sources through an on-disk snapshot.
type Cache struct {
	// Path is the snapshot file. Empty disables persistence.
	Path          string
	Sources       []filter.Source
	Fingerprinter Fingerprinter
	Logger        *zap.Logger
}

// DefaultPath returns $XDG_CACHE_HOME/crux/index.gob, falling back to
// ~/.cache/crux/index.gob.
func DefaultPath() string {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "crux", "index.gob")
}

func (c *Cache) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

func (c *Cache) fingerprinter() Fingerprinter {
	if c.Fingerprinter == nil {
		return ContentHash{}
	}
	return c.Fingerprinter
}

// Load returns the index for the configured sources, reusing cached
// entries whose fingerprint still matches.
func (c *Cache) Load() *filter.Index {
	prev, err := c.read()
	if err != nil {
		c.logger().Debug("discarding filter cache", zap.Error(err))
		prev = nil
	}
	return c.scan(prev)
}

// Refresh ignores any snapshot, rescans every source and rewrites it.
func (c *Cache) Refresh() *filter.Index {
	return c.scan(nil)
}

// Clear removes the snapshot file.
func (c *Cache) Clear() error {
	if c.Path == "" {
		return nil
	}
	if err := os.Remove(c.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &Error{Op: "clear", Err: err}
	}
	return nil
}

func (c *Cache) scan(prev map[string]Entry) *filter.Index {
	log := c.logger()
	fp := c.fingerprinter()
	next := make(map[string]Entry)
	changed := prev == nil
	var specs []*filter.Spec

	for _, src := range c.Sources {
		names, err := src.Files()
		if err != nil {
			log.Warn("skipping filter tier", zap.Stringer("tier", src.Tier), zap.Error(err))
			continue
		}
		for _, name := range names {
			display := src.Display(name)
			k := key(src.Tier, display)
			sum, err := fp.Fingerprint(src.FS, name)
			if err != nil {
				log.Warn("skipping filter", zap.String("path", display), zap.Error(err))
				continue
			}
			if old, ok := prev[k]; ok && old.Fingerprint == sum && old.Spec != nil {
				next[k] = old
				specs = append(specs, old.Spec)
				continue
			}
			changed = true
			s, err := src.Read(name)
			if err != nil {
				log.Warn("skipping invalid filter", zap.Error(err))
				continue
			}
			next[k] = Entry{Fingerprint: sum, Tier: src.Tier, Source: display, Spec: s}
			specs = append(specs, s)
		}
	}
	if len(next) != len(prev) {
		changed = true
	}

	if changed {
		if err := c.write(next); err != nil {
			log.Debug("filter cache not saved", zap.Error(err))
		}
	}

	ix, errs := filter.NewIndex(specs)
	for _, err := range errs {
		log.Warn("skipping duplicate filter", zap.Error(err))
	}
	return ix
}

func (c *Cache) read() (map[string]Entry, error) {
	if c.Path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, &Error{Op: "read", Err: err}
	}
	var snap snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&snap); err != nil {
		return nil, &Error{Op: "decode", Err: err}
	}
	if snap.Version != formatVersion {
		return nil, &Error{Op: "decode", Err: fmt.Errorf("snapshot version %d, want %d", snap.Version, formatVersion)}
	}
	return snap.Entries, nil
}

func (c *Cache) write(entries map[string]Entry) error {
	if c.Path == "" {
		return nil
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(snapshot{Version: formatVersion, Entries: entries}); err != nil {
		return &Error{Op: "encode", Err: err}
	}
	if err := writeAtomic(c.Path, buf.Bytes()); err != nil {
		return &Error{Op: "write", Err: err}
	}
	return nil
}

// writeAtomic writes data to path through a temp file and rename so that
// concurrent readers never see a partial snapshot.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".index-*.gob.tmp")
	if err != nil {
		return fmt.Errorf("create tmp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := true
	defer func() {
		_ = tmp.Close()
		if cleanup {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close tmp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename tmp: %w", err)
	}
	cleanup = false
	return nil
}
