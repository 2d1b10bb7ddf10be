package resolve

import (
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"
)

// Split parses a shell command line and returns the words of its first
// simple command, with quotes and escapes resolved. Redirections, variable
// assignments and anything after a pipe, && or ; are left out. Words that
// need expansion ($VAR, $(cmd), ~) are kept as written. A line that does not
// parse falls back to whitespace-separated fields.
func Split(s string) []string {
	f, err := syntax.NewParser().Parse(strings.NewReader(s), "")
	if err != nil {
		return strings.Fields(s)
	}
	if len(f.Stmts) == 0 {
		return nil
	}
	call := firstCall(f.Stmts[0].Cmd)
	if call == nil || len(call.Args) == 0 {
		return nil
	}
	words := make([]string, 0, len(call.Args))
	for _, w := range call.Args {
		words = append(words, literal(w))
	}
	return words
}

// firstCall returns the leftmost simple command of cmd.
func firstCall(cmd syntax.Command) *syntax.CallExpr {
	switch c := cmd.(type) {
	case *syntax.CallExpr:
		return c
	case *syntax.BinaryCmd:
		return firstCall(c.X.Cmd)
	}
	return nil
}

func literal(w *syntax.Word) string {
	if static(w) {
		if v, err := expand.Literal(nil, w); err == nil {
			return v
		}
	}
	var sb strings.Builder
	if err := syntax.NewPrinter().Print(&sb, w); err != nil {
		return w.Lit()
	}
	return sb.String()
}

// static reports whether w expands to itself once quoting is removed.
func static(w *syntax.Word) bool {
	if len(w.Parts) > 0 {
		if lit, ok := w.Parts[0].(*syntax.Lit); ok && strings.HasPrefix(lit.Value, "~") {
			return false
		}
	}
	ok := true
	syntax.Walk(w, func(n syntax.Node) bool {
		switch n.(type) {
		case *syntax.ParamExp, *syntax.CmdSubst, *syntax.ArithmExp, *syntax.ProcSubst, *syntax.ExtGlob:
			ok = false
		}
		return ok
	})
	return ok
}

var runners = map[string]bool{"npx": true, "bunx": true, "pnpx": true}

var shells = map[string]bool{"bash": true, "sh": true, "zsh": true}

// Candidates returns alternative spellings of cmd to try when the literal
// command matches nothing, most direct first.
func Candidates(cmd []string) [][]string {
	if len(cmd) == 0 {
		return nil
	}
	var out [][]string
	prog := filepath.Base(cmd[0])
	switch {
	case runners[prog]:
		rest := cmd[1:]
		for len(rest) > 0 && strings.HasPrefix(rest[0], "-") {
			rest = rest[1:]
		}
		if len(rest) > 0 {
			out = append(out, rest)
		}
	case shells[prog]:
		for i := 1; i+1 < len(cmd); i++ {
			if !isCommandFlag(cmd[i]) {
				continue
			}
			inner := Split(cmd[i+1])
			// A command quoted once too often arrives as a single word.
			if len(inner) == 1 && strings.ContainsAny(inner[0], " \t") {
				inner = Split(inner[0])
			}
			if len(inner) > 0 {
				out = append(out, inner)
				out = append(out, Candidates(inner)...)
			}
			break
		}
	}
	return out
}

// isCommandFlag matches -c and combined short flags such as -lc.
func isCommandFlag(arg string) bool {
	return len(arg) >= 2 && arg[0] == '-' && arg[1] != '-' && strings.HasSuffix(arg, "c")
}
