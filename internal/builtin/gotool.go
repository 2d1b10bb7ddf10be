package builtin

import (
	"fmt"
	"strings"

	"github.com/polaminggkub-debug/crux/internal/utils"
)

var (
	goFailRe     = utils.NewLazyRegex(`^\s*--- FAIL: (\S+)`)
	goPkgOkRe    = utils.NewLazyRegex(`^ok\s+(\S+)\s`)
	goPkgFailRe  = utils.NewLazyRegex(`^FAIL\s+(\S+)\s`)
	goNoTestsRe  = utils.NewLazyRegex(`^\?\s+\S+\s+\[no test files\]`)
	goPosRe      = utils.NewLazyRegex(`^\S+\.go:\d+(:\d+)?:`)
	goLintIssue  = utils.NewLazyRegex(`^\S+\.go:\d+:\d+: .+\(\S+\)$`)
	goLintCount  = utils.NewLazyRegex(`^\d+ issues?`)
	goBuildError = utils.NewLazyRegex(`^(# \S+|\S+\.go:\d+(:\d+)?: .+)$`)
)

// goTest keeps failing tests with their log lines, panics and the FAIL
// package lines. Passing packages are counted.
func goTest(in Input) (string, error) {
	var (
		r                TestReport
		current          []string
		passed, noTests  int
		failedPkgs       []string
		inPanic, inBuild bool
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
		case goFailRe.MatchString(line):
			flush()
			current = []string{trimmed}
			inPanic = false
		case strings.HasPrefix(trimmed, "panic:"):
			flush()
			current = []string{trimmed}
			inPanic = true
		case goPkgOkRe.MatchString(line):
			flush()
			passed++
		case goNoTestsRe.MatchString(line):
			noTests++
		case goPkgFailRe.MatchString(line):
			flush()
			failedPkgs = append(failedPkgs, trimmed)
		case trimmed == "FAIL" || trimmed == "PASS" || strings.HasPrefix(trimmed, "=== "):
			flush()
		case strings.HasPrefix(line, "# "):
			flush()
			inBuild = true
			current = []string{trimmed}
		case inBuild && goPosRe.MatchString(trimmed):
			current = append(current, "  "+trimmed)
		case len(current) > 0 && trimmed != "" && !strings.HasPrefix(trimmed, "--- PASS") && !strings.HasPrefix(trimmed, "--- SKIP"):
			if inPanic && len(current) >= 8 {
				continue
			}
			current = append(current, "  "+trimmed)
		}
	}
	flush()

	if passed+noTests+len(failedPkgs) == 0 && len(r.Failures) == 0 {
		return "", ErrUnrecognized
	}
	r.Summary = append(r.Summary, failedPkgs...)
	summary := fmt.Sprintf("ok: %s", utils.Plural(passed, "package"))
	if len(failedPkgs) > 0 {
		summary += fmt.Sprintf(", failed: %d", len(failedPkgs))
	}
	if noTests > 0 {
		summary += fmt.Sprintf(", no test files: %d", noTests)
	}
	r.Summary = append(r.Summary, summary)
	return r.Render(in.ExitCode), nil
}

func goBuild(in Input) (string, error) {
	var out []string
	for _, line := range utils.SplitLines(in.Output) {
		if goBuildError.MatchString(strings.TrimSpace(line)) {
			out = append(out, strings.TrimSpace(line))
		}
	}
	if len(out) > 0 {
		return strings.Join(out, "\n"), nil
	}
	if in.ExitCode == 0 {
		return "ok build", nil
	}
	return "", ErrUnrecognized
}

func goVet(in Input) (string, error) {
	out, err := goBuild(in)
	if out == "ok build" {
		return "ok vet", nil
	}
	return out, err
}

func golangciLint(in Input) (string, error) {
	var issues []string
	count := ""
	for _, line := range utils.SplitLines(in.Output) {
		trimmed := strings.TrimSpace(line)
		switch {
		case goLintIssue.MatchString(trimmed), goPosRe.MatchString(trimmed) && strings.Contains(trimmed, ": "):
			issues = append(issues, trimmed)
		case goLintCount.MatchString(trimmed):
			count = trimmed
		}
	}
	if len(issues) == 0 {
		if in.ExitCode == 0 {
			return "no issues", nil
		}
		return "", ErrUnrecognized
	}
	if count == "" {
		count = utils.Plural(len(issues), "issue")
	}
	return strings.Join(append(issues, count), "\n"), nil
}
