package resolve

import (
	"github.com/polaminggkub-debug/crux/internal/builtin"
	"github.com/polaminggkub-debug/crux/internal/filter"
)

// Result is the outcome of resolving a command. It is one of SpecResult,
// BuiltinResult or Passthrough.
type Result interface {
	// Name identifies the filter for tracking and display. Passthrough
	// reports an empty name.
	Name() string
	Tier() filter.Tier
	sealed()
}

// SpecResult selects a declarative specification.
type SpecResult struct {
	Spec *filter.Spec
}

func (r SpecResult) Name() string      { return r.Spec.Command }
func (r SpecResult) Tier() filter.Tier { return r.Spec.Tier }
func (SpecResult) sealed()             {}

// BuiltinResult selects a compiled handler. Shadow is set when a spec file
// delegated to the handler, and its exit_mask then applies.
type BuiltinResult struct {
	Entry  builtin.Entry
	Shadow *filter.Spec
}

func (r BuiltinResult) Name() string { return r.Entry.ID }

func (r BuiltinResult) Tier() filter.Tier {
	if r.Shadow != nil {
		return r.Shadow.Tier
	}
	return filter.TierBuiltin
}

func (BuiltinResult) sealed() {}

// ExitMask reports whether the original exit code passes through unchanged.
func (r BuiltinResult) ExitMask() bool { return r.Shadow == nil || r.Shadow.ExitMask }

// Passthrough means no filter applies.
type Passthrough struct{}

func (Passthrough) Name() string      { return "" }
func (Passthrough) Tier() filter.Tier { return filter.TierNone }
func (Passthrough) sealed()           {}

// IsPassthrough reports whether r selects no filter.
func IsPassthrough(r Result) bool {
	_, ok := r.(Passthrough)
	return ok
}
