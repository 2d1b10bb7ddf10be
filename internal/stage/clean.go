package stage

import (
	"strings"

	"github.com/polaminggkub-debug/crux/internal/utils"
)

var (
	progressRe = utils.NewLazyRegex(`(?i)^\s*(\[[\s=>\-#\.]*\]|\d{1,3}%|.*\d{1,3}\s*%\s*\|[█▓░▏▎▍▌▋▊▉\s]*\|)`)
	downloadRe = utils.NewLazyRegex(`(?i)^\s*(downloading|fetching|pulling)\s*\(?\d+/\d+\)?\s*\.{0,3}`)
	hintRe     = utils.NewLazyRegex(`(?i)^\s*(\(use ".*" to .*\)|hint:\s)`)
	noteRe     = utils.NewLazyRegex(`(?i)^\s*note:\s`)
)

const spinnerChars = "⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏"

// IsProgressLine reports whether line is a spinner, progress bar or
// download counter.
func IsProgressLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	for _, r := range trimmed {
		if strings.ContainsRune(spinnerChars, r) {
			return true
		}
		break
	}
	bars := 0
	for _, r := range trimmed {
		switch r {
		case '━', '▓', '░', '█', '▏', '▎', '▍', '▌', '▋', '▊', '▉':
			bars++
		}
	}
	if bars > 3 {
		return true
	}
	return progressRe.MatchString(line) || downloadRe.MatchString(line)
}

// PreClean strips escape sequences and progress noise. Builtin handlers
// see output only after PreClean.
func PreClean(s string) string {
	lines := utils.SplitLines(StripANSI(s))
	out := lines[:0]
	for _, l := range lines {
		if !IsProgressLine(l) {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// PostClean removes hint lines and note lines that do not follow an error,
// drops leading blank lines, then collapses blank runs.
func PostClean(s string) string {
	lines := utils.SplitLines(s)
	out := make([]string, 0, len(lines))
	inError := false
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if trimmed == "" {
			inError = false
			if len(out) > 0 {
				out = append(out, l)
			}
			continue
		}
		if strings.HasPrefix(trimmed, "error") || strings.HasPrefix(trimmed, "Error") {
			inError = true
		}
		if hintRe.MatchString(l) {
			continue
		}
		if !inError && noteRe.MatchString(l) {
			continue
		}
		out = append(out, l)
	}
	return CollapseBlankLines(strings.Join(out, "\n"))
}

// Clean applies PreClean then PostClean.
func Clean(s string) string {
	return PostClean(PreClean(s))
}
