// Package pattern matches command lines against filter patterns.
//
// A pattern is a whitespace-separated list of tokens. It matches a command
// when its tokens equal the command's leading tokens. The first token is
// compared against the base name of the program, so "git" matches
// "/usr/bin/git". Tokens containing glob metacharacters are matched with
// path.Match. The last token also matches a command token that extends it
// with a ":" suffix, which is how script runners name variants
// ("npm run test" matches "npm run test:unit").
package pattern

import (
	"path"
	"path/filepath"
	"strings"
)

// Pattern is a parsed command pattern.
type Pattern struct {
	raw    string
	tokens []string
}

// Parse splits s into pattern tokens.
func Parse(s string) Pattern {
	tokens := strings.Fields(s)
	return Pattern{raw: strings.Join(tokens, " "), tokens: tokens}
}

// String returns the normalized pattern text.
func (p Pattern) String() string { return p.raw }

// Tokens returns the pattern tokens.
func (p Pattern) Tokens() []string { return p.tokens }

// IsZero reports whether the pattern has no tokens.
func (p Pattern) IsZero() bool { return len(p.tokens) == 0 }

// Specificity ranks patterns: each literal token counts 2 and each glob
// token counts 1. Higher is more specific.
func (p Pattern) Specificity() int {
	n := 0
	for _, t := range p.tokens {
		if isGlob(t) {
			n++
		} else {
			n += 2
		}
	}
	return n
}

// Match reports whether the pattern matches the command tokens.
func (p Pattern) Match(cmd []string) bool {
	if len(p.tokens) == 0 || len(cmd) < len(p.tokens) {
		return false
	}
	last := len(p.tokens) - 1
	for i, pt := range p.tokens {
		ct := cmd[i]
		if i == 0 {
			ct = filepath.Base(ct)
		}
		if matchToken(pt, ct) {
			continue
		}
		if i == last && !isGlob(pt) && strings.HasPrefix(ct, pt+":") {
			continue
		}
		return false
	}
	return true
}

// Overlaps reports whether some command could match both p and q.
func (p Pattern) Overlaps(q Pattern) bool {
	n := min(len(p.tokens), len(q.tokens))
	for i := 0; i < n; i++ {
		a, b := p.tokens[i], q.tokens[i]
		if a == b || isGlob(a) || isGlob(b) {
			continue
		}
		return false
	}
	return n > 0
}

func matchToken(pt, ct string) bool {
	if !isGlob(pt) {
		return pt == ct
	}
	ok, err := path.Match(pt, ct)
	return err == nil && ok
}

func isGlob(t string) bool {
	return strings.ContainsAny(t, "*?[")
}
