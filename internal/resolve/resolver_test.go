package resolve

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polaminggkub-debug/crux/internal/builtin"
	"github.com/polaminggkub-debug/crux/internal/filter"
)

func tierFS(files map[string]string) fstest.MapFS {
	fsys := fstest.MapFS{}
	for name, body := range files {
		fsys[name] = &fstest.MapFile{Data: []byte(body)}
	}
	return fsys
}

type tiers struct {
	local, global, embedded map[string]string
}

func newResolver(t *testing.T, tt tiers) *Resolver {
	t.Helper()
	ix, errs := filter.LoadAll(
		filter.Source{Tier: filter.TierLocal, FS: tierFS(tt.local), Root: "local"},
		filter.Source{Tier: filter.TierGlobal, FS: tierFS(tt.global), Root: "global"},
		filter.Source{Tier: filter.TierEmbedded, FS: tierFS(tt.embedded), Root: "embedded"},
	)
	require.Empty(t, errs)
	return New(func() *filter.Index { return ix }, builtin.Default())
}

func name(r Result) string {
	if IsPassthrough(r) {
		return "passthrough"
	}
	return r.Tier().String() + ":" + r.Name()
}

func TestPriorityOrder(t *testing.T) {
	all := tiers{
		local:    map[string]string{"gs.toml": `command = "git status"`},
		global:   map[string]string{"gs.toml": `command = "git status"`},
		embedded: map[string]string{"gs.toml": `command = "git status"`},
	}
	r := newResolver(t, all)
	assert.Equal(t, "local:git status", name(r.ResolveString("git status")))

	// Removing the winning tier falls through to the next one.
	all.local = nil
	r = newResolver(t, all)
	assert.Equal(t, "global:git status", name(r.ResolveString("git status")))

	all.global = nil
	r = newResolver(t, all)
	assert.Equal(t, "embedded:git status", name(r.ResolveString("git status")))

	all.embedded = nil
	r = newResolver(t, all)
	assert.Equal(t, "builtin:git-status", name(r.ResolveString("git status")))

	assert.Equal(t, "passthrough", name(r.ResolveString("frobnicate --all")))
}

func TestLowerTierMoreSpecificStillLoses(t *testing.T) {
	r := newResolver(t, tiers{
		global:   map[string]string{"git.toml": `command = "git"`},
		embedded: map[string]string{"gs.toml": `command = "git status"`},
	})
	assert.Equal(t, "global:git", name(r.ResolveString("git status --short")))
}

func TestBuiltinSpecificity(t *testing.T) {
	r := newResolver(t, tiers{})
	assert.Equal(t, "builtin:python-pytest", name(r.ResolveString("python -m pytest -q")))
	assert.Equal(t, "builtin:npm-run-test", name(r.ResolveString("npm run test:unit")))
	assert.Equal(t, "passthrough", name(r.ResolveString("gitk")))
}

func TestEmbeddedBeatsBuiltinForSamePattern(t *testing.T) {
	r := newResolver(t, tiers{embedded: map[string]string{
		"gs.toml": "command = \"git status\"\nhead = 3",
	}})
	res := r.ResolveString("git status")
	sr, ok := res.(SpecResult)
	require.True(t, ok, "got %T", res)
	assert.Equal(t, filter.TierEmbedded, sr.Spec.Tier)
}

func TestBuiltinShadow(t *testing.T) {
	r := newResolver(t, tiers{local: map[string]string{
		"gs.toml": "command = \"git status\"\nbuiltin = true\nexit_mask = false",
	}})
	res := r.ResolveString("git status")
	br, ok := res.(BuiltinResult)
	require.True(t, ok, "got %T", res)
	assert.Equal(t, "git-status", br.Entry.ID)
	assert.Equal(t, filter.TierLocal, br.Tier())
	assert.False(t, br.ExitMask())

	assert.True(t, BuiltinResult{Entry: br.Entry}.ExitMask())
}

func TestBuiltinShadowWithoutHandlerFallsThrough(t *testing.T) {
	r := newResolver(t, tiers{
		local:    map[string]string{"x.toml": "command = \"git status\"\nbuiltin = true\n"},
		embedded: map[string]string{"x.toml": "command = \"git\"\nhead = 1"},
	})
	r.Builtins = builtin.MustRegistry()
	assert.Equal(t, "embedded:git", name(r.ResolveString("git status")))
}

func TestUnusableShadowTriesRestOfTier(t *testing.T) {
	r := newResolver(t, tiers{local: map[string]string{
		"stash.toml": "command = \"git stash list\"\nbuiltin = true\n",
		"any.toml":   "command = \"git *\"\nhead = 5\n",
	}})
	assert.Equal(t, "local:git *", name(r.ResolveString("git stash list")))
}

func TestNormalizedCandidates(t *testing.T) {
	r := newResolver(t, tiers{embedded: map[string]string{"jest.toml": `command = "jest"`}})
	tests := []struct {
		cmd  []string
		want string
	}{
		{[]string{"npx", "jest", "--ci"}, "embedded:jest"},
		{[]string{"npx", "-y", "jest"}, "embedded:jest"},
		{[]string{"bunx", "jest"}, "embedded:jest"},
		{[]string{"bash", "-c", "jest --ci 2>&1 | tail -20"}, "embedded:jest"},
		{[]string{"sh", "-lc", `"npx jest" >/dev/null`}, "embedded:jest"},
		{[]string{"bash", "-c", "git status | grep modified"}, "builtin:git-status"},
		{[]string{"bash", "-c", "./deploy.sh"}, "passthrough"},
		{[]string{"npx"}, "passthrough"},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.cmd, " "), func(t *testing.T) {
			assert.Equal(t, tt.want, name(r.Resolve(tt.cmd)))
		})
	}

	res, as := r.Explain([]string{"npx", "jest"})
	assert.Equal(t, "embedded:jest", name(res))
	assert.Equal(t, []string{"jest"}, as)
}

func TestLiteralWinsOverNormalized(t *testing.T) {
	r := newResolver(t, tiers{embedded: map[string]string{
		"npx.toml":  `command = "npx"`,
		"jest.toml": `command = "jest"`,
	}})
	assert.Equal(t, "embedded:npx", name(r.ResolveString("npx jest")))
}

func TestVariants(t *testing.T) {
	r := newResolver(t, tiers{embedded: map[string]string{
		"test.toml": `command = "npm test"
[[variant]]
name = "vitest"
detect_file = "vitest.config.ts"
filter = "vitest"
[[variant]]
name = "jest-output"
detect_output = "Test Suites:"
filter = "jest"
`,
		"vitest.toml": "command = \"vitest\"\nhead = 10",
		"jest.toml":   "command = \"jest\"\ntail = 10",
	}})
	dir := t.TempDir()
	r.Dir = dir

	res := r.ResolveString("npm test")
	assert.Equal(t, "embedded:npm test", name(res))

	refined := r.Refine(res, "PASS a.test.js\nTest Suites: 1 passed")
	assert.Equal(t, "embedded:jest", name(refined))
	assert.Equal(t, "embedded:npm test", name(r.Refine(res, "plain output")))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "vitest.config.ts"), nil, 0o644))
	assert.Equal(t, "embedded:vitest", name(r.ResolveString("npm test")))

	assert.Equal(t, "passthrough", name(r.Refine(Passthrough{}, "Test Suites:")))
}

func TestIndexLoadedOnce(t *testing.T) {
	var calls atomic.Int32
	r := New(func() *filter.Index {
		calls.Add(1)
		ix, _ := filter.NewIndex(nil)
		return ix
	}, nil)
	assert.Equal(t, int32(0), calls.Load(), "index must load lazily")
	for i := 0; i < 3; i++ {
		r.ResolveString("ls")
	}
	assert.Equal(t, int32(1), calls.Load())
	assert.True(t, IsPassthrough(r.ResolveString("ls")), "no builtins configured")
}

func TestList(t *testing.T) {
	r := newResolver(t, tiers{
		local:    map[string]string{"gs.toml": `command = "git status"`},
		embedded: map[string]string{"gs.toml": `command = "git status"`},
	})
	var shadowed []string
	var first Listing
	for i, l := range r.List() {
		if i == 0 {
			first = l
		}
		if l.Shadowed {
			shadowed = append(shadowed, l.Tier.String()+":"+l.Name)
		}
	}
	assert.Equal(t, filter.TierLocal, first.Tier)
	assert.Equal(t, "local/gs.toml", first.Source)
	assert.ElementsMatch(t, []string{"embedded:git status", "builtin:git-status"}, shadowed)
}
