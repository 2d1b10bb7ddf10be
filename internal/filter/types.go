package filter

import (
	"fmt"

	"github.com/polaminggkub-debug/crux/internal/pattern"
	"github.com/polaminggkub-debug/crux/internal/stage"
)

// Tier is the configuration layer a specification was loaded from. Lower
// values take precedence.
type Tier int

const (
	TierLocal Tier = iota
	TierGlobal
	TierEmbedded
	TierBuiltin

	// TierNone is reported when no filter applies.
	TierNone Tier = -1
)

var tierNames = [...]string{"local", "global", "embedded", "builtin"}

func (t Tier) String() string {
	if t == TierNone {
		return "none"
	}
	if t < 0 || int(t) >= len(tierNames) {
		return fmt.Sprintf("tier(%d)", int(t))
	}
	return tierNames[t]
}

// Spec is a declarative filter for one command pattern.
type Spec struct {
	Command     string
	Description string
	Priority    int
	// Builtin marks a spec that delegates to the compiled handler
	// registered for the same pattern.
	Builtin  bool
	ExitMask bool
	Stages   []stage.Config
	Variants []Variant
	Tier     Tier
	Source   string
}

// Variant selects an alternative spec when a project file exists or the
// output contains a marker.
type Variant struct {
	Name         string
	DetectFile   string
	DetectOutput string
	Filter       string
}

// Pattern returns the parsed command pattern.
func (s *Spec) Pattern() pattern.Pattern { return pattern.Parse(s.Command) }

// Name is how the spec is reported to users.
func (s *Spec) Name() string { return s.Command }

// Compile compiles the spec's stages. A failure is reported as a ConfigError
// against the spec's source.
func (s *Spec) Compile() ([]stage.Stage, error) {
	stages, err := stage.CompileAll(s.Stages)
	if err != nil {
		return nil, &ConfigError{Path: s.Source, Err: err}
	}
	return stages, nil
}

// ConfigError reports a specification file that could not be loaded.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
