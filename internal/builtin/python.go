package builtin

import (
	"fmt"
	"strings"

	"github.com/polaminggkub-debug/crux/internal/utils"
)

var (
	pytestFinalRe   = utils.NewLazyRegex(`^=+ (.*\b(passed|failed|error|errors|skipped|no tests ran)\b.*) =+$`)
	pytestSectionRe = utils.NewLazyRegex(`^_{3,} (.+?) _{3,}$`)
	pytestShortRe   = utils.NewLazyRegex(`^(FAILED|ERROR) \S+`)
	ruffIssueRe     = utils.NewLazyRegex(`^\S+:\d+:\d+: [A-Z]+\d+ `)
	ruffFoundRe     = utils.NewLazyRegex(`^Found \d+ errors?`)
	mypyErrorRe     = utils.NewLazyRegex(`^\S+:\d+(:\d+)?: error: `)
	mypySummaryRe   = utils.NewLazyRegex(`^(Found \d+ errors? in|Success: no issues)`)
	pipDoneRe       = utils.NewLazyRegex(`^Successfully (installed|uninstalled) `)
)

func pytest(in Input) (string, error) {
	var (
		r        TestReport
		current  []string
		inDetail bool
		short    []string
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
		case pytestFinalRe.MatchString(trimmed):
			flush()
			inDetail = false
			r.Summary = append(r.Summary, pytestFinalRe.Re().FindStringSubmatch(trimmed)[1])
		case strings.HasPrefix(trimmed, "=") && strings.Contains(trimmed, "short test summary"):
			flush()
			inDetail = false
		case strings.HasPrefix(trimmed, "=") && (strings.Contains(trimmed, "FAILURES") || strings.Contains(trimmed, "ERRORS")):
			inDetail = true
		case inDetail && pytestSectionRe.MatchString(trimmed):
			flush()
			current = []string{pytestSectionRe.Re().FindStringSubmatch(trimmed)[1]}
		case inDetail && len(current) > 0 && (strings.HasPrefix(trimmed, "E ") || strings.HasPrefix(trimmed, ">")):
			current = append(current, "  "+trimmed)
		case inDetail && len(current) > 0 && strings.Contains(trimmed, ".py:") && strings.Contains(trimmed, "Error"):
			current = append(current, "  "+trimmed)
		case pytestShortRe.MatchString(trimmed):
			short = append(short, trimmed)
		}
	}
	flush()
	if len(r.Failures) == 0 {
		for _, s := range short {
			r.Failures = append(r.Failures, "  "+s)
		}
	}
	if len(r.Summary) == 0 && len(r.Failures) == 0 {
		return "", ErrUnrecognized
	}
	return r.Render(in.ExitCode), nil
}

func ruff(in Input) (string, error) {
	var out []string
	for _, line := range utils.SplitLines(in.Output) {
		trimmed := strings.TrimSpace(line)
		if ruffIssueRe.MatchString(trimmed) || ruffFoundRe.MatchString(trimmed) {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		if in.ExitCode == 0 {
			return "no issues", nil
		}
		return "", ErrUnrecognized
	}
	return strings.Join(out, "\n"), nil
}

func mypy(in Input) (string, error) {
	var out []string
	for _, line := range utils.SplitLines(in.Output) {
		trimmed := strings.TrimSpace(line)
		if mypyErrorRe.MatchString(trimmed) || mypySummaryRe.MatchString(trimmed) {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return "", ErrUnrecognized
	}
	return strings.Join(out, "\n"), nil
}

func pipInstall(in Input) (string, error) {
	var out []string
	satisfied := 0
	for _, line := range utils.SplitLines(in.Output) {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Requirement already satisfied"):
			satisfied++
		case pipDoneRe.MatchString(trimmed), strings.HasPrefix(trimmed, "ERROR:"):
			out = append(out, trimmed)
		}
	}
	if satisfied > 0 {
		out = append(out, fmt.Sprintf("%d already satisfied", satisfied))
	}
	if len(out) == 0 {
		if in.ExitCode == 0 {
			return utils.OkConfirmation("installed", ""), nil
		}
		return "", ErrUnrecognized
	}
	return strings.Join(out, "\n"), nil
}
