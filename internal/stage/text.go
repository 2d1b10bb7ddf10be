package stage

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/polaminggkub-debug/crux/internal/utils"
)

// StripANSI removes terminal escape sequences.
func StripANSI(s string) string {
	return utils.StripANSI(s)
}

// TrimTrailingWhitespace strips trailing whitespace from every line. Line
// structure, including a final newline, is preserved.
func TrimTrailingWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRightFunc(l, unicode.IsSpace)
	}
	return strings.Join(lines, "\n")
}

// CollapseBlankLines reduces every run of blank lines to a single empty
// line. Whitespace-only lines count as blank. A trailing blank run is
// removed.
func CollapseBlankLines(s string) string {
	lines := utils.SplitLines(s)
	out := make([]string, 0, len(lines))
	prevBlank := false
	for _, l := range lines {
		blank := strings.TrimSpace(l) == ""
		if blank {
			if !prevBlank {
				out = append(out, "")
			}
			prevBlank = true
			continue
		}
		out = append(out, l)
		prevBlank = false
	}
	if n := len(out); n > 0 && out[n-1] == "" {
		out = out[:n-1]
	}
	return strings.Join(out, "\n")
}

// Dedup collapses runs of consecutive identical lines into one.
func Dedup(s string) string {
	lines := utils.SplitLines(s)
	out := make([]string, 0, len(lines))
	for i, l := range lines {
		if i > 0 && l == lines[i-1] {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

// SkipKeep drops lines matching any skip pattern, then drops lines that
// match none of the keep patterns. An empty keep list keeps everything.
func SkipKeep(s string, skip, keep []*regexp.Regexp) string {
	lines := utils.SplitLines(s)
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if matchAny(skip, l) {
			continue
		}
		if len(keep) > 0 && !matchAny(keep, l) {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

// Head keeps the first n lines, noting how many were cut.
func Head(s string, n int) string {
	lines := utils.SplitLines(s)
	if n <= 0 || len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	omitted := len(lines) - n
	return strings.Join(lines[:n], "\n") + "\n... (" + utils.Plural(omitted, "more line") + ")"
}

// Tail keeps the last n lines, noting how many were cut.
func Tail(s string, n int) string {
	lines := utils.SplitLines(s)
	if n <= 0 || len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	omitted := len(lines) - n
	return "... (" + utils.Plural(omitted, "line") + " omitted)\n" + strings.Join(lines[len(lines)-n:], "\n")
}

var placeholderRe = utils.NewLazyRegex(`\{([a-zA-Z_][a-zA-Z0-9_]*|[0-9]+)\}`)

// Render replaces {name} placeholders using lookup. Placeholders lookup
// does not know are left as written.
func Render(tmpl string, lookup func(name string) (string, bool)) string {
	return placeholderRe.Re().ReplaceAllStringFunc(tmpl, func(m string) string {
		if v, ok := lookup(m[1 : len(m)-1]); ok {
			return v
		}
		return m
	})
}

func matchAny(res []*regexp.Regexp, line string) bool {
	for _, re := range res {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}
