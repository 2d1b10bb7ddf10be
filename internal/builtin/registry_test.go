package builtin

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polaminggkub-debug/crux/internal/pattern"
)

// No two shipped handlers may both match one command while ranking equal.
func TestDefaultRegistryHasNoIncomparablePatterns(t *testing.T) {
	entries := Default().Entries()
	for i, a := range entries {
		for _, b := range entries[i+1:] {
			if a.Pattern.Overlaps(b.Pattern) {
				assert.NotEqual(t, a.Pattern.Specificity(), b.Pattern.Specificity(),
					"%s (%q) and %s (%q) overlap with equal specificity", a.ID, a.Pattern, b.ID, b.Pattern)
			}
		}
	}
}

func TestRegistryOrderIsBySpecificity(t *testing.T) {
	entries := Default().Entries()
	for i := 1; i < len(entries); i++ {
		assert.GreaterOrEqual(t, entries[i-1].Pattern.Specificity(), entries[i].Pattern.Specificity())
	}
}

func TestNewRegistryRejectsAmbiguousPatterns(t *testing.T) {
	noop := func(Input) (string, error) { return "", nil }
	_, err := NewRegistry(entry("a", "git st*", "", noop), entry("b", "git s*", "", noop))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")

	_, err = NewRegistry(entry("a", "git status", "", noop), entry("a", "git diff", "", noop))
	assert.Error(t, err)

	_, err = NewRegistry(entry("a", "git", "", noop), entry("b", "git status", "", noop))
	assert.NoError(t, err)
}

func TestLookupPrefersMostSpecific(t *testing.T) {
	noop := func(Input) (string, error) { return "", nil }
	reg := MustRegistry(
		entry("vitest", "vitest", "", noop),
		entry("vitest-run", "vitest run", "", noop),
	)
	e, ok := reg.Lookup(strings.Fields("vitest run --reporter dot"))
	require.True(t, ok)
	assert.Equal(t, "vitest-run", e.ID)

	e, ok = reg.Lookup(strings.Fields("vitest --watch"))
	require.True(t, ok)
	assert.Equal(t, "vitest", e.ID)

	_, ok = reg.Lookup(strings.Fields("vite build"))
	assert.False(t, ok)
}

func TestDefaultLookup(t *testing.T) {
	tests := map[string]string{
		"git status -sb":          "git-status",
		"/usr/bin/git log -5":     "git-log",
		"go test ./...":           "go-test",
		"npm run test:unit":       "npm-run-test",
		"python -m pytest -x":     "python-pytest",
		"docker ps -a":            "docker-ps",
		"golangci-lint run ./...": "golangci-lint",
	}
	for cmd, want := range tests {
		e, ok := Default().Lookup(strings.Fields(cmd))
		require.True(t, ok, cmd)
		assert.Equal(t, want, e.ID, cmd)
	}
	_, ok := Default().Lookup([]string{"make"})
	assert.False(t, ok)
}

func TestForPatternAndGet(t *testing.T) {
	e, ok := Default().ForPattern(pattern.Parse("git  diff"))
	require.True(t, ok)
	assert.Equal(t, "git-diff", e.ID)

	_, ok = Default().Get("git-diff")
	assert.True(t, ok)
	_, ok = Default().Get("nope")
	assert.False(t, ok)
}

func TestRunRecoversPanics(t *testing.T) {
	e := entry("boom", "boom", "", func(Input) (string, error) { panic("bad index") })
	_, err := Run(e, "x", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
}

func TestRunWrapsUnrecognized(t *testing.T) {
	e, _ := Default().Get("git-log")
	_, err := Run(e, "abc1234 already oneline\n", 0)
	assert.True(t, errors.Is(err, ErrUnrecognized))
}

func TestRunCleansInput(t *testing.T) {
	var seen string
	e := entry("spy", "spy", "", func(in Input) (string, error) {
		seen = in.Output
		return "hint: drop me\nkept", nil
	})
	out, err := Run(e, "\x1b[1mbold\x1b[0m\n⠋ spinning\n", 0)
	require.NoError(t, err)
	assert.Equal(t, "bold", seen)
	assert.Equal(t, "kept", out)
}
