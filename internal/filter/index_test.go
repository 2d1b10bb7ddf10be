package filter

import (
	"errors"
	"strings"
	"testing"
)

func spec(tier Tier, cmd, source string, priority int) *Spec {
	return &Spec{Command: cmd, Tier: tier, Source: source, Priority: priority, ExitMask: true}
}

func TestIndexMatchOrder(t *testing.T) {
	ix, errs := NewIndex([]*Spec{
		spec(TierEmbedded, "git", "e/git.toml", 0),
		spec(TierEmbedded, "git status", "e/git-status.toml", 0),
		spec(TierEmbedded, "git *", "e/git-any.toml", 5),
		spec(TierEmbedded, "npm run *", "e/b.toml", 0),
		spec(TierEmbedded, "npm * test", "e/a.toml", 0),
	})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	tests := []struct {
		cmd  string
		want string
	}{
		{"git status -s", "git status"},
		// "git *" scores 3, beating "git" at 2 despite equal tier.
		{"git log", "git *"},
		{"/usr/bin/git", "git"},
		// Equal specificity and priority: smaller source wins.
		{"npm run test", "npm * test"},
		{"gitk", ""},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			got := ix.Match(TierEmbedded, strings.Fields(tt.cmd))
			switch {
			case tt.want == "" && got != nil:
				t.Errorf("expected no match, got %q", got.Command)
			case tt.want != "" && got == nil:
				t.Errorf("expected %q, got nil", tt.want)
			case got != nil && got.Command != tt.want:
				t.Errorf("got %q, want %q", got.Command, tt.want)
			}
		})
	}
}

func TestIndexPriorityBreaksTies(t *testing.T) {
	ix, _ := NewIndex([]*Spec{
		spec(TierLocal, "go test", "a.toml", 0),
		spec(TierLocal, "go *", "b.toml", 0),
		spec(TierLocal, "* test", "c.toml", 9),
	})
	got := ix.Match(TierLocal, []string{"go", "test"})
	if got == nil || got.Command != "go test" {
		t.Fatalf("got %+v", got)
	}
	got = ix.Match(TierLocal, []string{"make", "test"})
	if got == nil || got.Command != "* test" {
		t.Fatalf("got %+v", got)
	}

	ix, _ = NewIndex([]*Spec{
		spec(TierLocal, "go *", "a.toml", 0),
		spec(TierLocal, "* build", "b.toml", 1),
	})
	if got := ix.Match(TierLocal, []string{"go", "build"}); got.Command != "* build" {
		t.Errorf("priority should win between equal specificity, got %q", got.Command)
	}
}

func TestIndexDuplicateWithinTier(t *testing.T) {
	ix, errs := NewIndex([]*Spec{
		spec(TierGlobal, "make", "z.toml", 0),
		spec(TierGlobal, "make", "a.yaml", 0),
		spec(TierLocal, "make", "local.toml", 0),
	})
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	var ce *ConfigError
	if !errors.As(errs[0], &ce) || ce.Path != "z.toml" {
		t.Errorf("error = %v", errs[0])
	}
	if got := ix.Match(TierGlobal, []string{"make"}); got.Source != "a.yaml" {
		t.Errorf("kept %q", got.Source)
	}
	if ix.Len() != 2 {
		t.Errorf("len = %d", ix.Len())
	}
}

func TestIndexDuplicateKeepsHigherPriority(t *testing.T) {
	ix, errs := NewIndex([]*Spec{
		spec(TierLocal, "make", "a.toml", 0),
		spec(TierLocal, "make", "b.toml", 10),
	})
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	var ce *ConfigError
	if !errors.As(errs[0], &ce) || ce.Path != "a.toml" {
		t.Errorf("error = %v", errs[0])
	}
	if got := ix.Match(TierLocal, []string{"make"}); got == nil || got.Source != "b.toml" {
		t.Errorf("kept %+v", got)
	}
}

func TestIndexMatchAll(t *testing.T) {
	ix, _ := NewIndex([]*Spec{
		spec(TierLocal, "git *", "any.toml", 0),
		spec(TierLocal, "git stash list", "stash.toml", 0),
		spec(TierLocal, "npm", "npm.toml", 0),
	})
	got := ix.MatchAll(TierLocal, []string{"git", "stash", "list"})
	if len(got) != 2 || got[0].Command != "git stash list" || got[1].Command != "git *" {
		t.Errorf("MatchAll = %+v", got)
	}
	if ix.MatchAll(TierGlobal, []string{"git"}) != nil {
		t.Error("empty tier should match nothing")
	}
}

func TestIndexLookupPrefersHigherTier(t *testing.T) {
	ix, _ := NewIndex([]*Spec{
		spec(TierEmbedded, "pytest", "e.toml", 0),
		spec(TierGlobal, "pytest", "g.toml", 0),
	})
	if got := ix.Lookup("pytest"); got == nil || got.Tier != TierGlobal {
		t.Errorf("lookup = %+v", got)
	}
	if ix.Lookup("pytest -x") != nil {
		t.Error("lookup is exact")
	}
	specs := ix.Specs()
	if len(specs) != 2 || specs[0].Tier != TierGlobal {
		t.Errorf("specs = %+v", specs)
	}
}

func TestNilIndex(t *testing.T) {
	var ix *Index
	if ix.Match(TierLocal, []string{"ls"}) != nil || ix.MatchAll(TierLocal, []string{"ls"}) != nil || ix.Lookup("ls") != nil || ix.Len() != 0 {
		t.Error("nil index should be empty")
	}
}
