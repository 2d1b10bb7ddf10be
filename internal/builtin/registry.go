// Package builtin holds the compiled, command-specific output handlers.
//
// Each Entry pairs a command pattern with a Handler. Entries are ordered by
// pattern specificity so that "git stash list" is tried before "git stash".
// NewRegistry rejects two entries that could match the same command with
// equal specificity, which keeps selection deterministic.
package builtin

import (
	"errors"
	"fmt"
	"sort"

	"github.com/polaminggkub-debug/crux/internal/pattern"
	"github.com/polaminggkub-debug/crux/internal/stage"
)

// ErrUnrecognized is returned by a handler when the output does not have
// the structure it expects. Callers fall back to passthrough.
var ErrUnrecognized = errors.New("output not recognized")

// Input is the captured output handed to a handler.
type Input struct {
	// Output is stdout and stderr combined, with escape sequences and
	// progress noise already removed.
	Output   string
	ExitCode int
}

// Handler compresses the output of one command.
type Handler interface {
	Filter(in Input) (string, error)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(in Input) (string, error)

// Filter calls f.
func (f HandlerFunc) Filter(in Input) (string, error) { return f(in) }

// Entry is a registered handler.
type Entry struct {
	ID          string
	Pattern     pattern.Pattern
	Description string
	Handler     Handler
}

func entry(id, pat, desc string, fn func(Input) (string, error)) Entry {
	return Entry{ID: id, Pattern: pattern.Parse(pat), Description: desc, Handler: HandlerFunc(fn)}
}

// Registry is an immutable, specificity-ordered set of entries.
type Registry struct {
	entries []Entry
	byID    map[string]int
}

// NewRegistry validates and orders entries.
func NewRegistry(entries ...Entry) (*Registry, error) {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := sorted[i].Pattern.Specificity(), sorted[j].Pattern.Specificity()
		if si != sj {
			return si > sj
		}
		return sorted[i].ID < sorted[j].ID
	})

	r := &Registry{entries: sorted, byID: make(map[string]int, len(sorted))}
	for i, e := range sorted {
		if e.ID == "" || e.Pattern.IsZero() || e.Handler == nil {
			return nil, fmt.Errorf("builtin %q: incomplete entry", e.ID)
		}
		if _, dup := r.byID[e.ID]; dup {
			return nil, fmt.Errorf("builtin %q: duplicate id", e.ID)
		}
		r.byID[e.ID] = i
		for _, prev := range sorted[:i] {
			if prev.Pattern.Specificity() == e.Pattern.Specificity() && prev.Pattern.Overlaps(e.Pattern) {
				return nil, fmt.Errorf("builtin %q and %q: ambiguous patterns %q and %q",
					prev.ID, e.ID, prev.Pattern, e.Pattern)
			}
		}
	}
	return r, nil
}

// MustRegistry is NewRegistry that panics on error.
func MustRegistry(entries ...Entry) *Registry {
	r, err := NewRegistry(entries...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the most specific entry matching the command tokens.
func (r *Registry) Lookup(cmd []string) (Entry, bool) {
	for _, e := range r.entries {
		if e.Pattern.Match(cmd) {
			return e, true
		}
	}
	return Entry{}, false
}

// Get returns the entry with the given id.
func (r *Registry) Get(id string) (Entry, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Entry{}, false
	}
	return r.entries[i], true
}

// ForPattern returns the entry registered under exactly pat.
func (r *Registry) ForPattern(pat pattern.Pattern) (Entry, bool) {
	for _, e := range r.entries {
		if e.Pattern.String() == pat.String() {
			return e, true
		}
	}
	return Entry{}, false
}

// Entries returns all entries in lookup order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Run cleans raw, invokes the handler and tidies its result. A panicking
// handler is reported as an error so that callers can fall back.
func Run(e Entry, raw string, exitCode int) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = "", fmt.Errorf("builtin %s: panic: %v", e.ID, p)
		}
	}()
	out, err = e.Handler.Filter(Input{Output: stage.PreClean(raw), ExitCode: exitCode})
	if err != nil {
		return "", fmt.Errorf("builtin %s: %w", e.ID, err)
	}
	return stage.PostClean(out), nil
}
