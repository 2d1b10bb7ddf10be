package builtin

import (
	"fmt"
	"strings"

	"github.com/polaminggkub-debug/crux/internal/utils"
)

const (
	maxEnvValue  = 100
	maxBodyLines = 200
)

var (
	secretKeyRe    = utils.NewLazyRegex(`(?i)(secret|token|passw(or)?d|api_?key|auth|credential|private|session|cookie)`)
	curlProgressRe = utils.NewLazyRegex(`^\s*(% Total|Dload|\d+\s+\d+(\.\d+)?[kMG]?\s+\d+\s+)`)
	wgetStatusRe   = utils.NewLazyRegex(`^HTTP request sent, awaiting response\.\.\. (.+)$`)
	wgetSavedRe    = utils.NewLazyRegex(`(saved \[|‘.+’ saved|'.+' saved)`)
)

// env masks values whose key looks sensitive and truncates long values.
func env(in Input) (string, error) {
	lines := utils.SplitLines(in.Output)
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			// Continuation of a multi-line value.
			continue
		}
		switch {
		case secretKeyRe.MatchString(key) && val != "":
			val = "****"
		case len(val) > maxEnvValue:
			val = utils.Truncate(val, maxEnvValue)
		}
		out = append(out, key+"="+val)
	}
	if len(out) == 0 {
		return "", ErrUnrecognized
	}
	return strings.Join(out, "\n"), nil
}

// curl drops the progress meter and bounds the body.
func curl(in Input) (string, error) {
	var out []string
	for _, line := range utils.SplitLines(in.Output) {
		if curlProgressRe.MatchString(line) {
			continue
		}
		out = append(out, line)
	}
	if len(out) > maxBodyLines {
		extra := len(out) - maxBodyLines
		out = append(out[:maxBodyLines], fmt.Sprintf("... (%d more lines)", extra))
	}
	return strings.Join(out, "\n"), nil
}

func wget(in Input) (string, error) {
	var out []string
	for _, line := range utils.SplitLines(in.Output) {
		trimmed := strings.TrimSpace(line)
		switch {
		case wgetStatusRe.MatchString(trimmed):
			out = append(out, "HTTP "+wgetStatusRe.Re().FindStringSubmatch(trimmed)[1])
		case wgetSavedRe.MatchString(trimmed), strings.Contains(trimmed, "ERROR"),
			strings.HasPrefix(trimmed, "wget: "), strings.Contains(trimmed, "failed:"):
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return "", ErrUnrecognized
	}
	return strings.Join(out, "\n"), nil
}
