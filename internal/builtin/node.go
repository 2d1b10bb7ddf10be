package builtin

import (
	"fmt"
	"sort"
	"strings"

	"github.com/polaminggkub-debug/crux/internal/utils"
)

var (
	jestSummaryRe  = utils.NewLazyRegex(`^(Test Suites|Tests|Snapshots|Time):`)
	jestFailHeadRe = utils.NewLazyRegex(`^●\s+(.+)$`)
	vitestSumRe    = utils.NewLazyRegex(`^(Test Files|Tests|Duration)\s+`)
	vitestFailRe   = utils.NewLazyRegex(`^(FAIL|×|✗|❯.*\(\d+ tests? \|)\s*`)
	tscErrorRe     = utils.NewLazyRegex(`^(.+?)\((\d+),(\d+)\): error (TS\d+): (.+)$`)
	tscErrorAltRe  = utils.NewLazyRegex(`^(.+?):(\d+):(\d+) - error (TS\d+): (.+)$`)
	tscFoundRe     = utils.NewLazyRegex(`^Found \d+ errors?`)
	eslintFileRe   = utils.NewLazyRegex(`^(/|\.|[A-Za-z]:\\|\w).*\.(m?[jt]sx?|vue|svelte|cjs)$`)
	eslintIssueRe  = utils.NewLazyRegex(`^\s*(\d+):(\d+)\s+(error|warning)\s+(.+?)\s{2,}(\S+)$`)
	eslintTotalRe  = utils.NewLazyRegex(`^✖ \d+ problems?`)
	npmAddedRe     = utils.NewLazyRegex(`^(added|removed|changed|up to date|audited) `)
	npmVulnRe      = utils.NewLazyRegex(`(found \d+ vulnerabilit|\d+ (low|moderate|high|critical) severity)`)
)

// npmTest delegates to whichever runner the test script invoked.
func npmTest(in Input) (string, error) {
	switch DetectFramework(in.Output) {
	case "jest":
		return jestTests(in)
	case "vitest":
		return vitestTests(in)
	case "":
		if in.ExitCode == 0 {
			return "", ErrUnrecognized
		}
	}
	return genericTests(in)
}

func jestTests(in Input) (string, error) {
	var (
		r       TestReport
		current []string
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
		case jestSummaryRe.MatchString(trimmed):
			flush()
			r.Summary = append(r.Summary, trimmed)
		case jestFailHeadRe.MatchString(trimmed):
			flush()
			current = []string{trimmed}
		case len(current) > 0 && (strings.HasPrefix(trimmed, "Expected") || strings.HasPrefix(trimmed, "Received") ||
			strings.HasPrefix(trimmed, "at ") && len(current) < 6 || strings.Contains(trimmed, "Error:")):
			current = append(current, "  "+trimmed)
		}
	}
	flush()
	if len(r.Summary) == 0 {
		return "", ErrUnrecognized
	}
	return r.Render(in.ExitCode), nil
}

func vitestTests(in Input) (string, error) {
	var r TestReport
	for _, line := range utils.SplitLines(in.Output) {
		trimmed := strings.TrimSpace(line)
		switch {
		case vitestSumRe.MatchString(trimmed):
			r.Summary = append(r.Summary, strings.Join(strings.Fields(trimmed), " "))
		case vitestFailRe.MatchString(trimmed),
			strings.HasPrefix(trimmed, "AssertionError"), strings.HasPrefix(trimmed, "Error:"):
			r.Failures = append(r.Failures, "  "+trimmed)
		}
	}
	if len(r.Summary) == 0 {
		return "", ErrUnrecognized
	}
	return r.Render(in.ExitCode), nil
}

func npmInstall(in Input) (string, error) {
	var out []string
	for _, line := range utils.SplitLines(in.Output) {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "npm ERR!"), strings.HasPrefix(trimmed, "npm error"):
			out = append(out, trimmed)
		case npmAddedRe.MatchString(trimmed), npmVulnRe.MatchString(trimmed):
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		if in.ExitCode == 0 {
			return utils.OkConfirmation("installed", ""), nil
		}
		return "", ErrUnrecognized
	}
	return strings.Join(out, "\n"), nil
}

// tsc groups type errors by file.
func tsc(in Input) (string, error) {
	byFile := map[string][]string{}
	var files []string
	found := ""
	for _, line := range utils.SplitLines(in.Output) {
		trimmed := strings.TrimSpace(line)
		m := tscErrorRe.Re().FindStringSubmatch(trimmed)
		if m == nil {
			m = tscErrorAltRe.Re().FindStringSubmatch(trimmed)
		}
		if m != nil {
			if _, ok := byFile[m[1]]; !ok {
				files = append(files, m[1])
			}
			byFile[m[1]] = append(byFile[m[1]], fmt.Sprintf("  %s:%s %s %s", m[2], m[3], m[4], m[5]))
			continue
		}
		if tscFoundRe.MatchString(trimmed) {
			found = trimmed
		}
	}
	if len(files) == 0 {
		if in.ExitCode == 0 {
			return "no type errors", nil
		}
		return "", ErrUnrecognized
	}
	var out []string
	for _, f := range files {
		out = append(out, utils.CompactPath(f))
		out = append(out, byFile[f]...)
	}
	if found != "" {
		out = append(out, found)
	}
	return strings.Join(out, "\n"), nil
}

// eslint keeps errors with their file and counts warnings per rule.
func eslint(in Input) (string, error) {
	var (
		out      []string
		file     string
		printed  string
		warnings = map[string]int{}
		total    string
	)
	for _, line := range utils.SplitLines(in.Output) {
		trimmed := strings.TrimSpace(line)
		if m := eslintIssueRe.Re().FindStringSubmatch(line); m != nil {
			if m[3] == "warning" {
				warnings[m[5]]++
				continue
			}
			if printed != file {
				out = append(out, utils.CompactPath(file))
				printed = file
			}
			out = append(out, fmt.Sprintf("  %s:%s %s (%s)", m[1], m[2], m[4], m[5]))
			continue
		}
		if eslintTotalRe.MatchString(trimmed) {
			total = trimmed
			continue
		}
		if eslintFileRe.MatchString(trimmed) && !strings.Contains(trimmed, " ") {
			file = trimmed
		}
	}
	if len(warnings) > 0 {
		rules := make([]string, 0, len(warnings))
		for rule := range warnings {
			rules = append(rules, rule)
		}
		sort.Strings(rules)
		parts := make([]string, len(rules))
		for i, rule := range rules {
			parts[i] = fmt.Sprintf("%s x%d", rule, warnings[rule])
		}
		out = append(out, "warnings: "+strings.Join(parts, ", "))
	}
	if total != "" {
		out = append(out, total)
	}
	if len(out) == 0 {
		if in.ExitCode == 0 {
			return "no lint errors", nil
		}
		return "", ErrUnrecognized
	}
	return strings.Join(out, "\n"), nil
}
