package builtin

import (
	"fmt"
	"strings"

	"github.com/polaminggkub-debug/crux/internal/utils"
)

// TestReport is the common shape of a compressed test run.
type TestReport struct {
	Summary  []string
	Failures []string
}

// Render prints failures (only for a failed run) followed by the summary.
func (r TestReport) Render(exitCode int) string {
	var parts []string
	if exitCode != 0 && len(r.Failures) > 0 {
		parts = append(parts, "Failures:")
		parts = append(parts, r.Failures...)
		parts = append(parts, "")
	}
	switch {
	case len(r.Summary) > 0:
		parts = append(parts, r.Summary...)
	case exitCode == 0:
		parts = append(parts, "All tests passed.")
	default:
		parts = append(parts, fmt.Sprintf("Tests failed (exit code %d).", exitCode))
	}
	return strings.Join(parts, "\n")
}

var (
	mochaPassingRe = utils.NewLazyRegex(`\d+\s+passing\s+\(\d+\w*\)`)
	rspecRe        = utils.NewLazyRegex(`\d+ examples?, \d+ failures?`)
	phpunitRe      = utils.NewLazyRegex(`(?m)^(OK \(\d+ tests?|Tests: \d+, Assertions:)`)
	dotnetRe       = utils.NewLazyRegex(`(Passed|Failed)!\s+-\s+Failed:\s+\d+`)
	playwrightRe   = utils.NewLazyRegex(`(?m)^\s*\d+ (passed|failed|flaky) \(`)
	failLineRe     = utils.NewLazyRegex(`(?i)(fail|error|panic|assert|expected|✗|✖)`)
)

// DetectFramework guesses which test runner produced out. It returns the
// pattern of the builtin that handles that runner, a bare framework name
// when no builtin exists, or "" when nothing matches.
func DetectFramework(out string) string {
	hasPerFile := false
	for _, l := range utils.SplitLines(out) {
		t := strings.TrimLeft(l, " ")
		if strings.HasPrefix(t, "PASS ") || strings.HasPrefix(t, "FAIL ") {
			hasPerFile = true
			break
		}
	}
	switch {
	case strings.Contains(out, "test result: ok"), strings.Contains(out, "test result: FAILED"):
		return "cargo test"
	case strings.Contains(out, "=====") && (strings.Contains(out, " passed") || strings.Contains(out, " failed") ||
		strings.Contains(out, " error") || strings.Contains(out, "warnings summary")):
		return "pytest"
	case strings.Contains(out, "--- PASS") || strings.Contains(out, "--- FAIL") ||
		strings.Contains(out, "\nok  \t") || strings.HasPrefix(out, "ok  \t"):
		return "go test"
	case strings.Contains(out, "Test Suites:"), hasPerFile && strings.Contains(out, "Tests:"):
		return "jest"
	case strings.Contains(out, "Duration ") && strings.Contains(out, "Tests "):
		return "vitest"
	case playwrightRe.MatchString(out) && strings.Contains(out, "Running "):
		return "playwright"
	case mochaPassingRe.MatchString(out):
		return "mocha"
	case rspecRe.MatchString(out):
		return "rspec"
	case phpunitRe.MatchString(out):
		return "phpunit"
	case dotnetRe.MatchString(out):
		return "dotnet"
	}
	return ""
}

// SummarizeTests compresses the output of an unknown test command by
// detecting its framework. reg supplies the framework handlers.
func SummarizeTests(reg *Registry, raw string, exitCode int) string {
	fw := DetectFramework(raw)
	if fw != "" {
		if e, ok := reg.Lookup(strings.Fields(fw)); ok {
			if out, err := Run(e, raw, exitCode); err == nil {
				return out
			}
		}
		if out, err := Run(genericTestEntry(fw), raw, exitCode); err == nil {
			return out
		}
	}
	return fallbackTestSummary(raw)
}

func genericTestEntry(fw string) Entry {
	return entry("generic-"+fw, fw, "", genericTests)
}

var genericSummaryRe = utils.NewLazyRegex(`(?i)(\d+\s+(passed|passing|failed|failing|failures?|errors?|skipped|pending|examples?|tests?)\b|^(OK|FAILED|Passed!|Failed!)\b)`)

func genericTests(in Input) (string, error) {
	var r TestReport
	for _, line := range utils.SplitLines(in.Output) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if genericSummaryRe.MatchString(trimmed) {
			r.Summary = append(r.Summary, trimmed)
			continue
		}
		if failLineRe.MatchString(trimmed) {
			r.Failures = append(r.Failures, "  "+trimmed)
		}
	}
	if len(r.Summary) == 0 {
		return "", ErrUnrecognized
	}
	return r.Render(in.ExitCode), nil
}

func fallbackTestSummary(raw string) string {
	lines := utils.SplitLines(raw)
	var kept []string
	for _, l := range lines {
		if failLineRe.MatchString(l) || genericSummaryRe.MatchString(strings.TrimSpace(l)) {
			kept = append(kept, l)
		}
	}
	if len(kept) > 0 {
		return strings.Join(kept, "\n")
	}
	if len(lines) > 10 {
		lines = lines[len(lines)-10:]
	}
	return strings.Join(lines, "\n")
}

var errorLineRe = utils.NewLazyRegex(`(?im)^.*(error[:\[]|fatal[:\s]|panic[:\s]|exception[:\s]|traceback|fail(ed|ure)?[:\s]).*$`)

// NoErrors is what ExtractErrors returns when nothing looks like an error.
const NoErrors = "(no error lines detected)"

// ExtractErrors keeps only lines that look like errors or failures.
func ExtractErrors(raw string) string {
	var kept []string
	for _, l := range utils.SplitLines(utils.StripANSI(raw)) {
		if errorLineRe.MatchString(l) {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		return NoErrors
	}
	return strings.Join(kept, "\n")
}
