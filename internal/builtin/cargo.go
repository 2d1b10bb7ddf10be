package builtin

import (
	"fmt"
	"strings"

	"github.com/polaminggkub-debug/crux/internal/utils"
)

var (
	cargoResultRe   = utils.NewLazyRegex(`^test result:`)
	cargoFailTestRe = utils.NewLazyRegex(`^test\s+\S+\s+\.\.\.\s+FAILED`)
	rustErrorRe     = utils.NewLazyRegex(`^error(\[E\d+\])?:`)
	rustDiagRe      = utils.NewLazyRegex(`^(warning|error)(\[[^\]]+\])?:`)
	rustLocationRe  = utils.NewLazyRegex(`^\s*-->\s+`)
	rustGeneratedRe = utils.NewLazyRegex(`generated \d+ warnings?`)
)

func cargoTest(in Input) (string, error) {
	var (
		r         TestReport
		inFailure bool
		current   []string
	)
	flush := func() {
		if len(current) > 0 {
			r.Failures = append(r.Failures, strings.Join(current, "\n"))
			current = nil
		}
	}
	for _, line := range utils.SplitLines(in.Output) {
		trimmed := strings.TrimSpace(line)
		switch {
		case cargoResultRe.MatchString(trimmed):
			flush()
			inFailure = false
			r.Summary = append(r.Summary, trimmed)
		case trimmed == "failures:":
			// The second failures: block only lists names.
			flush()
			inFailure = true
		case inFailure && trimmed == "successes:":
			flush()
			inFailure = false
		case inFailure && strings.HasPrefix(trimmed, "---- ") && strings.HasSuffix(trimmed, " ----"):
			flush()
			current = []string{trimmed}
		case inFailure && len(current) > 0 && trimmed != "" && !strings.HasPrefix(trimmed, "note: run with"):
			current = append(current, "  "+trimmed)
		case !inFailure && cargoFailTestRe.MatchString(trimmed):
			r.Summary = append(r.Summary, trimmed)
		}
	}
	flush()
	if len(r.Summary) == 0 && len(r.Failures) == 0 && in.ExitCode != 0 {
		// Compilation failed before any test ran.
		return cargoBuild(in)
	}
	return r.Render(in.ExitCode), nil
}

func cargoBuild(in Input) (string, error) {
	if in.ExitCode == 0 {
		warnings := 0
		for _, line := range utils.SplitLines(in.Output) {
			if strings.HasPrefix(strings.TrimSpace(line), "warning:") && !rustGeneratedRe.MatchString(line) {
				warnings++
			}
		}
		if warnings > 0 {
			return fmt.Sprintf("ok compiled (%s)", utils.Plural(warnings, "warning")), nil
		}
		return "ok compiled", nil
	}
	var out []string
	keepNext := false
	for _, line := range utils.SplitLines(in.Output) {
		trimmed := strings.TrimSpace(line)
		switch {
		case rustErrorRe.MatchString(trimmed):
			out = append(out, trimmed)
			keepNext = true
		case keepNext && rustLocationRe.MatchString(line):
			out = append(out, "  "+trimmed)
			keepNext = false
		}
	}
	if len(out) == 0 {
		return fmt.Sprintf("build failed (exit code %d)", in.ExitCode), nil
	}
	return strings.Join(out, "\n"), nil
}

func cargoClippy(in Input) (string, error) {
	var out []string
	keepNext := false
	for _, line := range utils.SplitLines(in.Output) {
		trimmed := strings.TrimSpace(line)
		switch {
		case rustDiagRe.MatchString(trimmed):
			out = append(out, trimmed)
			keepNext = !rustGeneratedRe.MatchString(trimmed)
		case keepNext && rustLocationRe.MatchString(line):
			out = append(out, "  "+trimmed)
			keepNext = false
		}
	}
	if len(out) == 0 {
		if in.ExitCode != 0 {
			return "", ErrUnrecognized
		}
		return "no warnings or errors", nil
	}
	return strings.Join(out, "\n"), nil
}
