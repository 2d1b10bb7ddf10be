// Package verify runs declarative filter tests.
//
// Fixtures live next to the specification they exercise. For a spec file
// go-test.toml the directory go-test_test/ holds either a single case as
// input.txt and expected.txt, or any number of named cases as
// <case>.input and <case>.expected. A shared _test/ directory in the same
// folder may hold <spec>.input and <spec>.expected, or a <spec>/
// subdirectory laid out like a <spec>_test/ directory.
package verify

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/polaminggkub-debug/crux/internal/builtin"
	"github.com/polaminggkub-debug/crux/internal/engine"
	"github.com/polaminggkub-debug/crux/internal/filter"
	"github.com/polaminggkub-debug/crux/internal/stage"
	"github.com/polaminggkub-debug/crux/internal/utils"
)

// Case is one input/expected pair bound to a spec.
type Case struct {
	Spec     *filter.Spec
	Name     string
	Input    string
	Expected string
}

// Result is the outcome of one case.
type Result struct {
	Case Case
	Got  string
	// Diff is empty when the case passed.
	Diff string
	Err  error
}

// Passed reports whether the filter produced the expected output.
func (r Result) Passed() bool { return r.Err == nil && r.Diff == "" }

// Discover loads every spec in src and the cases beside it. Specs without
// fixtures are not reported. Unreadable specs and half-written cases come
// back as errors.
func Discover(src filter.Source) ([]Case, []error) {
	names, err := src.Files()
	if err != nil {
		return nil, []error{err}
	}
	var cases []Case
	var errs []error
	for _, name := range names {
		found, err := fixtures(src.FS, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src.Display(name), err))
		}
		if len(found) == 0 {
			continue
		}
		s, err := src.Read(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, c := range found {
			c.Spec = s
			cases = append(cases, c)
		}
	}
	return cases, errs
}

func fixtures(fsys fs.FS, name string) ([]Case, error) {
	dir, file := path.Split(name)
	base := strings.TrimSuffix(file, path.Ext(file))

	var out []Case
	var errs []error
	add := func(cs []Case, err error) {
		out = append(out, cs...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	add(caseDir(fsys, path.Join(dir, base+"_test")))
	add(caseDir(fsys, path.Join(dir, "_test", base)))
	add(pair(fsys, path.Join(dir, "_test"), base, ".input", ".expected"))
	return out, errors.Join(errs...)
}

// caseDir reads the cases in one fixture directory. A missing directory
// has no cases.
func caseDir(fsys fs.FS, dir string) ([]Case, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var out []Case
	var errs []error
	single, err := pair(fsys, dir, "input", ".txt", ".txt")
	out = append(out, single...)
	if err != nil {
		errs = append(errs, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".input") {
			names = append(names, strings.TrimSuffix(e.Name(), ".input"))
		}
	}
	sort.Strings(names)
	for _, n := range names {
		cs, err := pair(fsys, dir, n, ".input", ".expected")
		out = append(out, cs...)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return out, errors.Join(errs...)
}

// pair reads dir/name+inExt and its expected counterpart. For the
// input.txt form the expected file is expected.txt.
func pair(fsys fs.FS, dir, name, inExt, expExt string) ([]Case, error) {
	inPath := path.Join(dir, name+inExt)
	expPath := path.Join(dir, name+expExt)
	caseName := name
	if name == "input" && inExt == ".txt" {
		expPath = path.Join(dir, "expected.txt")
		caseName = path.Base(dir)
	}
	in, err := fs.ReadFile(fsys, inPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	exp, err := fs.ReadFile(fsys, expPath)
	if err != nil {
		return nil, fmt.Errorf("case %s: %w", caseName, err)
	}
	return []Case{{Name: caseName, Input: string(in), Expected: string(exp)}}, nil
}

// Runner applies specs to case inputs.
type Runner struct {
	// Builtins serves specs that delegate to a compiled handler.
	Builtins  *builtin.Registry
	Evaluator stage.Evaluator
	Logger    *zap.Logger
}

// Run filters c.Input with c.Spec and compares the result to c.Expected.
// Trailing newlines are not significant.
func (r *Runner) Run(ctx context.Context, c Case) Result {
	res := Result{Case: c}
	got, err := r.filter(ctx, c)
	if err != nil {
		res.Err = err
		return res
	}
	res.Got = got
	want := strings.TrimRight(c.Expected, "\n")
	have := strings.TrimRight(got, "\n")
	if want != have {
		res.Diff = cmp.Diff(strings.Split(want, "\n"), strings.Split(have, "\n"))
	}
	return res
}

func (r *Runner) filter(ctx context.Context, c Case) (string, error) {
	s := c.Spec
	if s.Builtin {
		var e builtin.Entry
		ok := false
		if r.Builtins != nil {
			e, ok = r.Builtins.ForPattern(s.Pattern())
		}
		if !ok {
			return "", fmt.Errorf("no builtin handler for %q", s.Command)
		}
		return builtin.Run(e, c.Input, 0)
	}
	stages, err := s.Compile()
	if err != nil {
		return "", err
	}
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	env := &stage.Env{
		Command:    s.Command,
		InputBytes: len(c.Input),
		InputLines: utils.CountLines(c.Input),
		Evaluator:  r.Evaluator,
	}
	return engine.Fold(ctx, stages, c.Input, env, log), nil
}

// RunAll runs every case in order.
func (r *Runner) RunAll(ctx context.Context, cases []Case) []Result {
	out := make([]Result, 0, len(cases))
	for _, c := range cases {
		out = append(out, r.Run(ctx, c))
	}
	return out
}
