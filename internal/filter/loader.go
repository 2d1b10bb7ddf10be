package filter

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// Source is one tier's specification tree.
type Source struct {
	Tier Tier
	FS   fs.FS
	// Root prefixes file names when reporting where a spec came from.
	Root string
}

// DirSource returns a source rooted at an on-disk directory. A missing
// directory yields an empty tier.
func DirSource(tier Tier, dir string) Source {
	return Source{Tier: tier, FS: os.DirFS(dir), Root: dir}
}

// Display returns the user-facing path of name within src.
func (src Source) Display(name string) string {
	if src.Root == "" {
		return name
	}
	return path.Join(src.Root, name)
}

// Files lists the specification files in src in lexical order. Test
// fixture directories are skipped.
func (src Source) Files() ([]string, error) {
	if src.FS == nil {
		return nil, nil
	}
	var names []string
	err := fs.WalkDir(src.FS, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == "." && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			if p != "." && skipDir(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if _, ok := FormatFor(p); ok {
			names = append(names, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s filters: %w", src.Tier, err)
	}
	return names, nil
}

func skipDir(name string) bool {
	return name == "testdata" || name == "_test" || strings.HasSuffix(name, "_test") || strings.HasPrefix(name, ".")
}

// Read parses one file from src and stamps it with the tier and source.
func (src Source) Read(name string) (*Spec, error) {
	data, err := fs.ReadFile(src.FS, name)
	if err != nil {
		return nil, &ConfigError{Path: src.Display(name), Err: err}
	}
	s, err := ParseFile(src.Display(name), data)
	if err != nil {
		return nil, err
	}
	s.Tier = src.Tier
	return s, nil
}

// Load parses every file in src. Files that fail to parse are reported
// in errs and left out; the rest still load.
func (src Source) Load() (specs []*Spec, errs []error) {
	names, err := src.Files()
	if err != nil {
		return nil, []error{err}
	}
	for _, name := range names {
		s, err := src.Read(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		specs = append(specs, s)
	}
	return specs, errs
}

// LoadAll loads every source without caching and indexes the result.
func LoadAll(srcs ...Source) (*Index, []error) {
	var all []*Spec
	var errs []error
	for _, src := range srcs {
		specs, e := src.Load()
		all = append(all, specs...)
		errs = append(errs, e...)
	}
	ix, e := NewIndex(all)
	return ix, append(errs, e...)
}
