package builtin

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/polaminggkub-debug/crux/internal/stage"
	"github.com/polaminggkub-debug/crux/internal/utils"
)

const maxLogLines = 100

var (
	columnSplitRe = regexp.MustCompile(`\s{2,}`)
	buildStepRe   = utils.NewLazyRegex(`^(#\d+ \[[^\]]+\] .+|Step \d+/\d+ : .+)$`)
	buildDoneRe   = utils.NewLazyRegex(`^(Successfully (built|tagged) \S+|#\d+ naming to \S+|.*writing image sha256:\w{12})`)
	buildErrorRe  = utils.NewLazyRegex(`(?i)^(#\d+ )?(error|failed|ERROR:|failed to solve)`)
)

// table parses column-aligned CLI output into header-keyed rows.
func table(lines []string) (header []string, rows []map[string]string) {
	if len(lines) == 0 {
		return nil, nil
	}
	header = columnSplitRe.Split(strings.TrimSpace(lines[0]), -1)
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := columnSplitRe.Split(strings.TrimSpace(line), -1)
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(cells) {
				row[h] = cells[i]
			}
		}
		rows = append(rows, row)
	}
	return header, rows
}

func dockerPs(in Input) (string, error) {
	header, rows := table(utils.SplitLines(in.Output))
	if len(header) == 0 || header[0] != "CONTAINER ID" {
		return "", ErrUnrecognized
	}
	if len(rows) == 0 {
		return "no containers", nil
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		line := fmt.Sprintf("%s %s [%s]", r["NAMES"], r["IMAGE"], r["STATUS"])
		// PORTS is often empty, which shifts NAMES into its column.
		if r["NAMES"] == "" {
			line = fmt.Sprintf("%s %s [%s]", r["PORTS"], r["IMAGE"], r["STATUS"])
		} else if p := r["PORTS"]; p != "" {
			line += " " + p
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n"), nil
}

func dockerImages(in Input) (string, error) {
	header, rows := table(utils.SplitLines(in.Output))
	if len(header) == 0 || header[0] != "REPOSITORY" {
		return "", ErrUnrecognized
	}
	var out []string
	dangling := 0
	for _, r := range rows {
		if r["REPOSITORY"] == "<none>" {
			dangling++
			continue
		}
		out = append(out, fmt.Sprintf("%s:%s %s", r["REPOSITORY"], r["TAG"], r["SIZE"]))
	}
	if dangling > 0 {
		out = append(out, fmt.Sprintf("%d dangling", dangling))
	}
	if len(out) == 0 {
		return "no images", nil
	}
	return strings.Join(out, "\n"), nil
}

func dockerLogs(in Input) (string, error) {
	text := stage.CollapseBlankLines(stage.Dedup(in.Output))
	return stage.Tail(text, maxLogLines), nil
}

func dockerBuild(in Input) (string, error) {
	var steps, done, problems []string
	for _, line := range utils.SplitLines(in.Output) {
		trimmed := strings.TrimSpace(line)
		switch {
		case buildErrorRe.MatchString(trimmed):
			problems = append(problems, trimmed)
		case buildDoneRe.MatchString(trimmed):
			done = append(done, trimmed)
		case buildStepRe.MatchString(trimmed):
			steps = append(steps, trimmed)
		}
	}
	if in.ExitCode != 0 {
		if len(problems) == 0 {
			return "", ErrUnrecognized
		}
		// The last step before the failure gives the error its context.
		if len(steps) > 0 {
			problems = append([]string{steps[len(steps)-1]}, problems...)
		}
		return strings.Join(problems, "\n"), nil
	}
	summary := utils.OkConfirmation("built", utils.Plural(len(steps), "step"))
	return strings.Join(append([]string{summary}, done...), "\n"), nil
}
