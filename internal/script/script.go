// Package script evaluates user-supplied Go snippets for the script stage.
//
// A script defines
//
//	func Filter(input string, exitCode int) string
//
// and is run by the yaegi interpreter with a restricted standard library:
// no filesystem, process, network or unsafe access.
package script

import (
	"context"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/polaminggkub-debug/crux/internal/stage"
)

// Allowed lists the importable packages.
var Allowed = []string{
	"bufio",
	"bytes",
	"fmt",
	"math",
	"regexp",
	"sort",
	"strconv",
	"strings",
	"unicode",
	"unicode/utf8",
}

// ErrForbiddenImport is returned for a script importing a package outside
// Allowed.
var ErrForbiddenImport = errors.New("import not allowed")

var symbols = func() interp.Exports {
	allowed := make(map[string]bool, len(Allowed))
	for _, p := range Allowed {
		allowed[p] = true
	}
	out := make(interp.Exports)
	for key, syms := range stdlib.Symbols {
		// Keys have the form "import/path/name".
		if i := strings.LastIndex(key, "/"); i > 0 && allowed[key[:i]] {
			out[key] = syms
		}
	}
	return out
}()

// Evaluator implements stage.Evaluator. The zero value is ready to use.
type Evaluator struct {
	// Timeout caps every evaluation on top of the stage's own limit.
	Timeout time.Duration
}

var _ stage.Evaluator = Evaluator{}

// Evaluate interprets req.Source and calls its Filter function. ctx bounds
// the whole evaluation, including any loop inside Filter.
func (e Evaluator) Evaluate(ctx context.Context, req stage.ScriptRequest) (string, error) {
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}
	src := wrap(req.Source)
	if err := checkImports(src); err != nil {
		return "", err
	}

	i := interp.New(interp.Options{Stdout: io.Discard, Stderr: io.Discard})
	if err := i.Use(symbols); err != nil {
		return "", fmt.Errorf("load symbols: %w", err)
	}
	if _, err := i.EvalWithContext(ctx, src); err != nil {
		return "", fmt.Errorf("compile script: %w", err)
	}

	fn, err := i.Eval("main.Filter")
	if err != nil {
		return "", errors.New("script does not define Filter")
	}
	if _, ok := fn.Interface().(func(string, int) string); !ok {
		return "", fmt.Errorf("Filter has type %s, want func(string, int) string", fn.Type())
	}

	call := "main.Filter(" + strconv.Quote(req.Input) + ", " + strconv.Itoa(req.ExitCode) + ")"
	v, err := i.EvalWithContext(ctx, call)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("run script: %w", err)
	}
	if !v.IsValid() || v.Kind() != reflect.String {
		return "", errors.New("Filter returned no string")
	}
	return v.String(), nil
}

func wrap(src string) string {
	if strings.HasPrefix(strings.TrimSpace(src), "package ") {
		return src
	}
	return "package main\n\n" + src
}

func checkImports(src string) error {
	f, err := parser.ParseFile(token.NewFileSet(), "script.go", src, parser.ImportsOnly)
	if err != nil {
		return fmt.Errorf("parse script: %w", err)
	}
	var bad []string
	for _, imp := range f.Imports {
		p, _ := strconv.Unquote(imp.Path.Value)
		if !isAllowed(p) {
			bad = append(bad, p)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return fmt.Errorf("%w: %s", ErrForbiddenImport, strings.Join(bad, ", "))
	}
	return nil
}

func isAllowed(p string) bool {
	for _, a := range Allowed {
		if a == p {
			return true
		}
	}
	return false
}
