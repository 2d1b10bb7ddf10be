// Package stage implements the text transforms that make up a filter
// pipeline. A Config is the declarative, serializable form of one stage;
// Compile turns it into a Stage that can be applied to a text buffer.
package stage

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind identifies a stage variant.
type Kind string

const (
	KindMatchOutput   Kind = "match_output"
	KindStripANSI     Kind = "strip_ansi"
	KindClean         Kind = "clean"
	KindReplace       Kind = "replace"
	KindSkip          Kind = "skip"
	KindKeep          Kind = "keep"
	KindSection       Kind = "section"
	KindExtract       Kind = "extract"
	KindDedup         Kind = "dedup"
	KindTemplate      Kind = "template"
	KindTrimTrailing  Kind = "trim_trailing_whitespace"
	KindCollapseBlank Kind = "collapse_blank_lines"
	KindHead          Kind = "head"
	KindTail          Kind = "tail"
	KindScript        Kind = "script"
)

// Kinds lists every recognized stage kind in canonical order. A document
// that uses flat keys instead of an explicit pipeline gets its stages in
// this order.
var Kinds = []Kind{
	KindMatchOutput,
	KindStripANSI,
	KindClean,
	KindReplace,
	KindSkip,
	KindKeep,
	KindSection,
	KindExtract,
	KindDedup,
	KindTemplate,
	KindTrimTrailing,
	KindCollapseBlank,
	KindHead,
	KindTail,
	KindScript,
}

// DefaultScriptTimeout bounds a script stage that does not set its own timeout.
const DefaultScriptTimeout = 250 * time.Millisecond

// ErrUnknownKind is returned by Compile for an unrecognized stage kind.
var ErrUnknownKind = errors.New("unknown stage")

// Rule is a pattern paired with a template. Its meaning depends on the
// stage: the halt-with text for match_output, the replacement for replace,
// the output template for extract.
type Rule struct {
	Pattern  string
	Contains string
	Template string
}

// SectionRule delimits a section of output. An empty End runs to the end
// of the buffer.
type SectionRule struct {
	Start string
	End   string
	Name  string
}

// Config is the declarative form of a single stage. Only the fields
// relevant to Kind are set.
type Config struct {
	Kind     Kind
	Patterns []string
	Rules    []Rule
	Sections []SectionRule
	Template string
	Vars     map[string]string
	Count    int
	Source   string
	Timeout  time.Duration
}

// Verdict tells the fold whether to keep going.
type Verdict int

const (
	Continue Verdict = iota
	Halt
)

// Stage is one compiled pipeline step.
type Stage interface {
	Kind() Kind
	Apply(ctx context.Context, text string, env *Env) (string, Verdict, error)
}

// Env carries the invocation context a pipeline runs against. Section
// stages record captured sections into it for later template stages.
type Env struct {
	Command    string
	ExitCode   int
	Duration   time.Duration
	InputBytes int
	InputLines int
	Sections   map[string]string
	Evaluator  Evaluator
}

func (e *Env) setSection(key, text string) {
	if e.Sections == nil {
		e.Sections = make(map[string]string)
	}
	e.Sections[key] = text
}

// ScriptRequest is the input handed to an Evaluator.
type ScriptRequest struct {
	Source   string
	Input    string
	ExitCode int
}

// Evaluator runs sandboxed script source against a buffer. Implementations
// must honor ctx cancellation.
type Evaluator interface {
	Evaluate(ctx context.Context, req ScriptRequest) (string, error)
}

// RuntimeError reports a stage that failed while being applied. The
// pipeline leaves the buffer unchanged and moves on.
type RuntimeError struct {
	Stage Kind
	Err   error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *RuntimeError) Unwrap() error { return e.Err }
