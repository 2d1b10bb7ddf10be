// Package resolve decides which filter applies to a command line.
//
// Sources are consulted in a fixed order and the first match wins: local
// specs, global specs, embedded specs, compiled builtins, and finally
// passthrough. Within a tier the most specific pattern wins.
package resolve

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/polaminggkub-debug/crux/internal/builtin"
	"github.com/polaminggkub-debug/crux/internal/filter"
)

var specTiers = []filter.Tier{filter.TierLocal, filter.TierGlobal, filter.TierEmbedded}

// Resolver maps commands to filters. The index is loaded on first use and
// shared by every later call.
type Resolver struct {
	Builtins *builtin.Registry
	// Dir is where variant detect_file paths are looked up. Empty means
	// the working directory.
	Dir    string
	Logger *zap.Logger

	load func() *filter.Index
	once sync.Once
	ix   *filter.Index
}

// New returns a resolver that obtains its index from load.
func New(load func() *filter.Index, reg *builtin.Registry) *Resolver {
	return &Resolver{Builtins: reg, load: load}
}

// Index returns the spec index, loading it on first call.
func (r *Resolver) Index() *filter.Index {
	r.once.Do(func() {
		if r.load != nil {
			r.ix = r.load()
		}
	})
	return r.ix
}

func (r *Resolver) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// Resolve returns the filter for cmd. It never fails: anything that does
// not match resolves to Passthrough.
func (r *Resolver) Resolve(cmd []string) Result {
	res, _ := r.Explain(cmd)
	return res
}

// ResolveString splits a shell command line and resolves it.
func (r *Resolver) ResolveString(cmd string) Result {
	return r.Resolve(Split(cmd))
}

// Explain is Resolve that also reports the command form that matched,
// which differs from cmd when a runner prefix or shell wrapper was
// removed.
func (r *Resolver) Explain(cmd []string) (Result, []string) {
	if res := r.literal(cmd); !IsPassthrough(res) {
		return res, cmd
	}
	for _, c := range Candidates(cmd) {
		if res := r.literal(c); !IsPassthrough(res) {
			r.logger().Debug("resolved normalized command",
				zap.Strings("command", cmd), zap.Strings("as", c), zap.String("filter", res.Name()))
			return res, c
		}
	}
	return Passthrough{}, cmd
}

func (r *Resolver) literal(cmd []string) Result {
	if len(cmd) == 0 {
		return Passthrough{}
	}
	ix := r.Index()
	for _, tier := range specTiers {
		for _, s := range ix.MatchAll(tier, cmd) {
			if res, ok := r.fromSpec(s); ok {
				return r.detectFile(res)
			}
		}
	}
	if r.Builtins != nil {
		if e, ok := r.Builtins.Lookup(cmd); ok {
			return BuiltinResult{Entry: e}
		}
	}
	return Passthrough{}
}

// fromSpec turns a matched spec into a result. A builtin shadow whose
// pattern has no registered handler is unusable and resolution moves on.
func (r *Resolver) fromSpec(s *filter.Spec) (Result, bool) {
	if !s.Builtin {
		return SpecResult{Spec: s}, true
	}
	if r.Builtins != nil {
		if e, ok := r.Builtins.ForPattern(s.Pattern()); ok {
			return BuiltinResult{Entry: e, Shadow: s}, true
		}
	}
	r.logger().Warn("builtin spec names no registered handler",
		zap.String("pattern", s.Command), zap.String("path", s.Source))
	return nil, false
}

func specOf(res Result) *filter.Spec {
	switch t := res.(type) {
	case SpecResult:
		return t.Spec
	case BuiltinResult:
		return t.Shadow
	}
	return nil
}

func (r *Resolver) detectFile(res Result) Result {
	s := specOf(res)
	if s == nil {
		return res
	}
	for _, v := range s.Variants {
		if v.DetectFile == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(r.Dir, v.DetectFile)); err != nil {
			continue
		}
		if alt, ok := r.variant(s, v); ok {
			return alt
		}
	}
	return res
}

// Refine applies output-detected variants once the command has run.
func (r *Resolver) Refine(res Result, output string) Result {
	s := specOf(res)
	if s == nil {
		return res
	}
	for _, v := range s.Variants {
		if v.DetectOutput == "" || !strings.Contains(output, v.DetectOutput) {
			continue
		}
		if alt, ok := r.variant(s, v); ok {
			return alt
		}
	}
	return res
}

func (r *Resolver) variant(from *filter.Spec, v filter.Variant) (Result, bool) {
	target := r.Index().Lookup(v.Filter)
	if target == nil || target == from {
		r.logger().Debug("variant target not found",
			zap.String("variant", v.Name), zap.String("filter", v.Filter))
		return nil, false
	}
	r.logger().Debug("variant selected", zap.String("variant", v.Name), zap.String("filter", target.Command))
	return r.fromSpec(target)
}

// Listing describes one resolvable filter.
type Listing struct {
	Name        string
	Pattern     string
	Description string
	Tier        filter.Tier
	Source      string
	// Shadowed is set when a higher tier declares the same pattern, so
	// this entry is never selected.
	Shadowed bool
}

// List returns every spec and builtin in precedence order.
func (r *Resolver) List() []Listing {
	ix := r.Index()
	seen := make(map[string]bool)
	var out []Listing
	for _, tier := range specTiers {
		for _, s := range ix.Tier(tier) {
			out = append(out, Listing{
				Name:        s.Command,
				Pattern:     s.Command,
				Description: s.Description,
				Tier:        tier,
				Source:      s.Source,
				Shadowed:    seen[s.Command],
			})
		}
		for _, s := range ix.Tier(tier) {
			seen[s.Command] = true
		}
	}
	if r.Builtins != nil {
		for _, e := range r.Builtins.Entries() {
			out = append(out, Listing{
				Name:        e.ID,
				Pattern:     e.Pattern.String(),
				Description: e.Description,
				Tier:        filter.TierBuiltin,
				Shadowed:    seen[e.Pattern.String()],
			})
		}
	}
	return out
}
