package builtin

import (
	"fmt"
	"strings"

	"github.com/polaminggkub-debug/crux/internal/utils"
)

var (
	shortStatusRe = utils.NewLazyRegex(`^([MADRCUT?!]{2}|[ MADRCUT?!][MADRCUT?!]|[MADRCUT?!] )\s+(\S.*)$`)
	longStatusRe  = utils.NewLazyRegex(`^\s*(modified|new file|deleted|renamed|copied|both modified|both added|typechange):\s+(.+)$`)
	commitRe      = utils.NewLazyRegex(`^commit\s+([0-9a-f]{7,40})`)
	authorRe      = utils.NewLazyRegex(`^Author:\s+([^<]+)`)
	commitDoneRe  = utils.NewLazyRegex(`^\[([^\]]+?) ([0-9a-f]{7,40})\] (.+)$`)
	statSummaryRe = utils.NewLazyRegex(`^\s*\d+ files? changed`)
	refUpdateRe   = utils.NewLazyRegex(`^\s*[+\-*=!t ]?\s*(\S+\.\.\.?\S+|\[new (branch|tag)\]|\[deleted\])?\s*(\S+)\s+->\s+(\S+)`)
)

// maxHunkLines bounds how many changed lines of one hunk are shown.
const maxHunkLines = 30

func gitStatus(in Input) (string, error) {
	var (
		header              []string
		staged, changed     []string
		untracked, conflict []string
		section             string
		clean               bool
	)
	for _, line := range utils.SplitLines(in.Output) {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "On branch "),
			strings.HasPrefix(trimmed, "HEAD detached"),
			strings.HasPrefix(trimmed, "Your branch"):
			header = append(header, trimmed)
			continue
		case strings.HasPrefix(trimmed, "nothing to commit"):
			clean = true
			continue
		case strings.HasPrefix(trimmed, "Changes to be committed"):
			section = "staged"
			continue
		case strings.HasPrefix(trimmed, "Changes not staged"):
			section = "changed"
			continue
		case strings.HasPrefix(trimmed, "Untracked files"):
			section = "untracked"
			continue
		case strings.HasPrefix(trimmed, "Unmerged paths"):
			section = "conflict"
			continue
		}

		if m := longStatusRe.Re().FindStringSubmatch(line); m != nil {
			entry := statusAbbrev(m[1]) + " " + m[2]
			switch section {
			case "staged":
				staged = append(staged, entry)
			case "conflict":
				conflict = append(conflict, m[2])
			default:
				changed = append(changed, entry)
			}
			continue
		}
		if section == "untracked" && strings.HasPrefix(line, "\t") {
			untracked = append(untracked, trimmed)
			continue
		}
		if section == "" {
			if m := shortStatusRe.Re().FindStringSubmatch(line); m != nil {
				code := m[1]
				switch {
				case code == "??":
					untracked = append(untracked, m[2])
				case strings.Contains(code, "U") || code == "AA" || code == "DD":
					conflict = append(conflict, m[2])
				case code[0] != ' ':
					staged = append(staged, string(code[0])+" "+m[2])
				default:
					changed = append(changed, string(code[1])+" "+m[2])
				}
			}
		}
	}

	if len(header) == 0 && !clean && len(staged)+len(changed)+len(untracked)+len(conflict) == 0 {
		return "", ErrUnrecognized
	}

	out := header
	out = appendGroup(out, "staged", staged)
	out = appendGroup(out, "changed", changed)
	out = appendGroup(out, "untracked", untracked)
	out = appendGroup(out, "conflicts", conflict)
	if clean && len(staged)+len(changed)+len(untracked)+len(conflict) == 0 {
		out = append(out, "nothing to commit, working tree clean")
	}
	return strings.Join(out, "\n"), nil
}

func statusAbbrev(word string) string {
	switch word {
	case "new file":
		return "A"
	case "deleted":
		return "D"
	case "renamed":
		return "R"
	case "copied":
		return "C"
	case "typechange":
		return "T"
	default:
		return "M"
	}
}

func appendGroup(out []string, label string, items []string) []string {
	if len(items) == 0 {
		return out
	}
	out = append(out, fmt.Sprintf("%s (%d):", label, len(items)))
	for _, it := range items {
		out = append(out, "  "+it)
	}
	return out
}

func gitDiff(in Input) (string, error) {
	if strings.TrimSpace(in.Output) == "" {
		return "no changes", nil
	}
	out := compressDiff(utils.SplitLines(in.Output))
	if len(out) == 0 {
		return "", ErrUnrecognized
	}
	return strings.Join(out, "\n"), nil
}

// compressDiff keeps file names, hunk headers and changed lines, dropping
// context lines and index metadata.
func compressDiff(lines []string) []string {
	var (
		out     []string
		inHunk  bool
		shown   int
		dropped int
	)
	flush := func() {
		if dropped > 0 {
			out = append(out, fmt.Sprintf("  ... (+%d more changed lines)", dropped))
		}
		shown, dropped = 0, 0
	}
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			flush()
			inHunk = false
			name := line[len("diff --git "):]
			if i := strings.Index(name, " b/"); i >= 0 {
				name = name[i+3:]
			}
			out = append(out, name)
		case strings.HasPrefix(line, "--- "), strings.HasPrefix(line, "+++ "),
			strings.HasPrefix(line, "index "), strings.HasPrefix(line, "similarity index"):
			continue
		case strings.HasPrefix(line, "new file mode"), strings.HasPrefix(line, "deleted file mode"),
			strings.HasPrefix(line, "rename from"), strings.HasPrefix(line, "rename to"),
			strings.HasPrefix(line, "Binary files"):
			out = append(out, "  "+line)
		case strings.HasPrefix(line, "@@"):
			flush()
			inHunk = true
			out = append(out, line)
		case statSummaryRe.MatchString(line):
			flush()
			out = append(out, strings.TrimSpace(line))
		case inHunk && (strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-")):
			if shown < maxHunkLines {
				out = append(out, line)
				shown++
			} else {
				dropped++
			}
		}
	}
	flush()
	return out
}

type commit struct {
	hash, author, subject string
}

func (c commit) String() string {
	if c.author == "" {
		return c.hash + " " + c.subject
	}
	return fmt.Sprintf("%s (%s) %s", c.hash, c.author, c.subject)
}

func parseCommits(lines []string) []commit {
	var (
		commits []commit
		cur     *commit
	)
	for _, line := range lines {
		if m := commitRe.Re().FindStringSubmatch(line); m != nil {
			commits = append(commits, commit{hash: m[1][:7]})
			cur = &commits[len(commits)-1]
			continue
		}
		if cur == nil {
			continue
		}
		if m := authorRe.Re().FindStringSubmatch(line); m != nil {
			cur.author = strings.TrimSpace(m[1])
			continue
		}
		trimmed := strings.TrimSpace(line)
		if cur.subject == "" && trimmed != "" && !strings.HasPrefix(line, "Date:") && !strings.HasPrefix(line, "Merge:") {
			cur.subject = trimmed
		}
	}
	return commits
}

func gitLog(in Input) (string, error) {
	commits := parseCommits(utils.SplitLines(in.Output))
	if len(commits) == 0 {
		// Already in --oneline or a custom format.
		return "", ErrUnrecognized
	}
	out := make([]string, len(commits))
	for i, c := range commits {
		out[i] = c.String()
	}
	return strings.Join(out, "\n"), nil
}

func gitShow(in Input) (string, error) {
	lines := utils.SplitLines(in.Output)
	split := len(lines)
	for i, l := range lines {
		if strings.HasPrefix(l, "diff --git ") {
			split = i
			break
		}
	}
	var out []string
	for _, c := range parseCommits(lines[:split]) {
		out = append(out, c.String())
	}
	out = append(out, compressDiff(lines[split:])...)
	if len(out) == 0 {
		return "", ErrUnrecognized
	}
	return strings.Join(out, "\n"), nil
}

func gitPush(in Input) (string, error) {
	var refs, problems []string
	upToDate := false
	for _, line := range utils.SplitLines(in.Output) {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "Everything up-to-date":
			upToDate = true
		case strings.HasPrefix(trimmed, "error:"), strings.HasPrefix(trimmed, "fatal:"),
			strings.HasPrefix(trimmed, "! "), strings.HasPrefix(trimmed, "hint: Updates were rejected"),
			strings.HasPrefix(trimmed, "remote: error"), strings.Contains(trimmed, "[rejected]"):
			problems = append(problems, trimmed)
		case strings.Contains(trimmed, "->") && !strings.HasPrefix(trimmed, "remote:"):
			if m := refUpdateRe.Re().FindStringSubmatch(trimmed); m != nil {
				refs = append(refs, m[3]+" -> "+m[4])
			}
		}
	}
	switch {
	case len(problems) > 0:
		return strings.Join(problems, "\n"), nil
	case in.ExitCode != 0:
		return fmt.Sprintf("push failed (exit code %d)", in.ExitCode), nil
	case upToDate:
		return "ok up-to-date", nil
	case len(refs) > 0:
		return utils.OkConfirmation("pushed", strings.Join(refs, ", ")), nil
	}
	return utils.OkConfirmation("pushed", ""), nil
}

func gitPull(in Input) (string, error) {
	var out []string
	for _, line := range utils.SplitLines(in.Output) {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Already up to date"), strings.HasPrefix(trimmed, "Already up-to-date"):
			return "ok up-to-date", nil
		case strings.HasPrefix(trimmed, "Updating "), trimmed == "Fast-forward",
			strings.HasPrefix(trimmed, "Merge made by"), statSummaryRe.MatchString(trimmed),
			strings.HasPrefix(trimmed, "CONFLICT"), strings.HasPrefix(trimmed, "Automatic merge failed"),
			strings.HasPrefix(trimmed, "error:"), strings.HasPrefix(trimmed, "fatal:"):
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		if in.ExitCode == 0 {
			return utils.OkConfirmation("pulled", ""), nil
		}
		return "", ErrUnrecognized
	}
	return strings.Join(out, "\n"), nil
}

func gitFetch(in Input) (string, error) {
	var refs, problems []string
	for _, line := range utils.SplitLines(in.Output) {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "error:"), strings.HasPrefix(trimmed, "fatal:"):
			problems = append(problems, trimmed)
		case strings.Contains(trimmed, "->"):
			refs = append(refs, trimmed)
		}
	}
	if len(problems) > 0 {
		return strings.Join(problems, "\n"), nil
	}
	if in.ExitCode != 0 {
		return "", ErrUnrecognized
	}
	if len(refs) == 0 {
		return utils.OkConfirmation("fetched", ""), nil
	}
	return utils.OkConfirmation("fetched", utils.Plural(len(refs), "ref")), nil
}

func gitCommit(in Input) (string, error) {
	var head, stat string
	for _, line := range utils.SplitLines(in.Output) {
		trimmed := strings.TrimSpace(line)
		if m := commitDoneRe.Re().FindStringSubmatch(trimmed); m != nil && head == "" {
			head = fmt.Sprintf("%s %s", m[2], m[3])
		}
		if statSummaryRe.MatchString(trimmed) {
			stat = trimmed
		}
	}
	if head == "" {
		return "", ErrUnrecognized
	}
	if stat != "" {
		head += " (" + stat + ")"
	}
	return utils.OkConfirmation("committed", head), nil
}

func gitAdd(in Input) (string, error) {
	if in.ExitCode != 0 {
		return "", ErrUnrecognized
	}
	var kept []string
	for _, line := range utils.SplitLines(in.Output) {
		if strings.Contains(line, "will be replaced by") || strings.HasPrefix(line, "The file will have its original line endings") {
			continue
		}
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	if len(kept) > 0 {
		return strings.Join(kept, "\n"), nil
	}
	return utils.OkConfirmation("added", ""), nil
}

// maxBranches bounds the branch listing; the current branch is always kept.
const maxBranches = 30

func gitBranch(in Input) (string, error) {
	lines := utils.SplitLines(in.Output)
	if in.ExitCode != 0 || len(lines) == 0 {
		return "", ErrUnrecognized
	}
	var current string
	var others []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "* ") {
			current = trimmed
			continue
		}
		others = append(others, trimmed)
	}
	out := []string{}
	if current != "" {
		out = append(out, current)
	}
	if len(others) > maxBranches {
		out = append(out, others[:maxBranches]...)
		out = append(out, fmt.Sprintf("... (%d more branches)", len(others)-maxBranches))
	} else {
		out = append(out, others...)
	}
	return strings.Join(out, "\n"), nil
}

func gitStash(in Input) (string, error) {
	var out []string
	for _, line := range utils.SplitLines(in.Output) {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "Saved working directory and index state "):
			return utils.OkConfirmation("stashed", strings.TrimPrefix(trimmed, "Saved working directory and index state ")), nil
		case strings.HasPrefix(trimmed, "No local changes to save"):
			return "no local changes to stash", nil
		case strings.HasPrefix(trimmed, "Dropped "):
			return utils.OkConfirmation("dropped", strings.TrimPrefix(trimmed, "Dropped ")), nil
		case strings.HasPrefix(trimmed, "stash@{"):
			out = append(out, utils.Truncate(trimmed, 100))
		case strings.HasPrefix(trimmed, "CONFLICT"), strings.HasPrefix(trimmed, "error:"):
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return "", ErrUnrecognized
	}
	return strings.Join(out, "\n"), nil
}
