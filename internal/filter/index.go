package filter

import (
	"fmt"
	"sort"
)

// Index holds loaded specs grouped by tier, each tier ordered so that the
// first matching spec is the one that wins.
type Index struct {
	tiers map[Tier][]*Spec
}

// NewIndex groups specs by tier. A pattern declared twice within one tier
// keeps the copy with the higher priority, then the one from the lexically
// smaller source; the other is reported as a ConfigError.
func NewIndex(specs []*Spec) (*Index, []error) {
	ix := &Index{tiers: make(map[Tier][]*Spec)}
	sorted := make([]*Spec, len(specs))
	copy(sorted, specs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].Source < sorted[j].Source
	})

	var errs []error
	seen := make(map[Tier]map[string]string)
	for _, s := range sorted {
		if seen[s.Tier] == nil {
			seen[s.Tier] = make(map[string]string)
		}
		key := s.Pattern().String()
		if prev, dup := seen[s.Tier][key]; dup {
			errs = append(errs, &ConfigError{
				Path: s.Source,
				Err:  fmt.Errorf("pattern %q already defined in %s", key, prev),
			})
			continue
		}
		seen[s.Tier][key] = s.Source
		ix.tiers[s.Tier] = append(ix.tiers[s.Tier], s)
	}
	for _, list := range ix.tiers {
		sort.SliceStable(list, func(i, j int) bool { return less(list[i], list[j]) })
	}
	return ix, errs
}

// less orders by specificity, then priority, then source path.
func less(a, b *Spec) bool {
	sa, sb := a.Pattern().Specificity(), b.Pattern().Specificity()
	if sa != sb {
		return sa > sb
	}
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	return a.Source < b.Source
}

// Match returns the winning spec in tier for cmd, or nil.
func (ix *Index) Match(tier Tier, cmd []string) *Spec {
	if m := ix.MatchAll(tier, cmd); len(m) > 0 {
		return m[0]
	}
	return nil
}

// MatchAll returns every spec in tier that matches cmd, best first.
func (ix *Index) MatchAll(tier Tier, cmd []string) []*Spec {
	if ix == nil {
		return nil
	}
	var out []*Spec
	for _, s := range ix.tiers[tier] {
		if s.Pattern().Match(cmd) {
			out = append(out, s)
		}
	}
	return out
}

// Lookup returns the spec declared with exactly pattern, searching tiers
// in precedence order.
func (ix *Index) Lookup(pattern string) *Spec {
	if ix == nil {
		return nil
	}
	for _, tier := range []Tier{TierLocal, TierGlobal, TierEmbedded} {
		for _, s := range ix.tiers[tier] {
			if s.Command == pattern {
				return s
			}
		}
	}
	return nil
}

// Tier returns the specs of one tier in match order.
func (ix *Index) Tier(t Tier) []*Spec {
	if ix == nil {
		return nil
	}
	return ix.tiers[t]
}

// Specs returns every indexed spec, tier by tier.
func (ix *Index) Specs() []*Spec {
	var out []*Spec
	for _, t := range []Tier{TierLocal, TierGlobal, TierEmbedded} {
		out = append(out, ix.Tier(t)...)
	}
	return out
}

// Len reports the number of indexed specs.
func (ix *Index) Len() int { return len(ix.Specs()) }
