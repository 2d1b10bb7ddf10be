package builtin

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/polaminggkub-debug/crux/internal/utils"
)

const (
	maxListEntries    = 80
	maxMatchesPerFile = 10
	maxMatchWidth     = 160
	maxTreeLines      = 150
)

var (
	lsLongRe  = utils.NewLazyRegex(`^([dlcbps-])[rwxstST-]{9}[@+.]?\s+\d+\s+\S+\s+\S+\s+(\d+)\s+\S+\s+\S+\s+\S+\s+(.+)$`)
	grepHitRe = utils.NewLazyRegex(`^([^:\s][^:]*):(\d+):(.*)$`)
)

// ls drops permissions, owners and dates from long listings.
func ls(in Input) (string, error) {
	lines := utils.SplitLines(in.Output)
	if in.ExitCode != 0 {
		return "", ErrUnrecognized
	}
	var dirs, files []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "total ") {
			continue
		}
		m := lsLongRe.Re().FindStringSubmatch(trimmed)
		if m == nil {
			// Short format: one or more names per line.
			for _, name := range strings.Fields(trimmed) {
				if strings.HasSuffix(name, "/") {
					dirs = append(dirs, name)
				} else {
					files = append(files, name)
				}
			}
			continue
		}
		name := m[3]
		if name == "." || name == ".." {
			continue
		}
		switch m[1] {
		case "d":
			dirs = append(dirs, name+"/")
		case "l":
			files = append(files, name)
		default:
			var size int64
			fmt.Sscanf(m[2], "%d", &size)
			files = append(files, fmt.Sprintf("%s (%s)", name, utils.FormatBytes(size)))
		}
	}
	out := append(dirs, files...)
	if len(out) == 0 {
		return "(empty)", nil
	}
	if len(out) > maxListEntries {
		extra := len(out) - maxListEntries
		out = append(out[:maxListEntries], fmt.Sprintf("... (%d more)", extra))
	}
	return strings.Join(out, "\n"), nil
}

// find groups paths by directory.
func find(in Input) (string, error) {
	groups := map[string][]string{}
	var order []string
	var problems []string
	total := 0
	for _, line := range utils.SplitLines(in.Output) {
		p := strings.TrimSpace(line)
		if p == "" {
			continue
		}
		if strings.HasPrefix(p, "find: ") {
			problems = append(problems, p)
			continue
		}
		dir, base := path.Split(p)
		dir = strings.TrimSuffix(dir, "/")
		if dir == "" {
			dir = "."
		}
		if _, ok := groups[dir]; !ok {
			order = append(order, dir)
		}
		groups[dir] = append(groups[dir], base)
		total++
	}
	if total == 0 {
		if len(problems) > 0 {
			return strings.Join(problems, "\n"), nil
		}
		return "no matches", nil
	}
	var out []string
	for _, dir := range order {
		names := groups[dir]
		shown := names
		suffix := ""
		if len(shown) > maxMatchesPerFile {
			shown = names[:maxMatchesPerFile]
			suffix = fmt.Sprintf(", +%d more", len(names)-maxMatchesPerFile)
		}
		out = append(out, fmt.Sprintf("%s/ (%d): %s%s", utils.CompactPath(dir), len(names), strings.Join(shown, ", "), suffix))
	}
	out = append(out, problems...)
	out = append(out, fmt.Sprintf("%d paths in %d directories", total, len(order)))
	return strings.Join(out, "\n"), nil
}

// grep groups file:line:text matches by file.
func grep(in Input) (string, error) {
	type hits struct {
		lines []string
		extra int
	}
	byFile := map[string]*hits{}
	var files []string
	var plain []string
	total := 0
	for _, line := range utils.SplitLines(in.Output) {
		m := grepHitRe.Re().FindStringSubmatch(line)
		if m == nil {
			if strings.TrimSpace(line) != "" {
				plain = append(plain, line)
			}
			continue
		}
		h, ok := byFile[m[1]]
		if !ok {
			h = &hits{}
			byFile[m[1]] = h
			files = append(files, m[1])
		}
		total++
		if len(h.lines) >= maxMatchesPerFile {
			h.extra++
			continue
		}
		h.lines = append(h.lines, fmt.Sprintf("  %s: %s", m[2], utils.Truncate(strings.TrimSpace(m[3]), maxMatchWidth)))
	}
	if total == 0 {
		if len(plain) == 0 {
			if in.ExitCode == 1 {
				return "no matches", nil
			}
			return "", ErrUnrecognized
		}
		// Single-file grep or -l output has no file:line prefix.
		return "", ErrUnrecognized
	}
	sort.SliceStable(files, func(i, j int) bool { return len(byFile[files[i]].lines) > len(byFile[files[j]].lines) })
	var out []string
	for _, f := range files {
		h := byFile[f]
		out = append(out, utils.CompactPath(f))
		out = append(out, h.lines...)
		if h.extra > 0 {
			out = append(out, fmt.Sprintf("  ... (+%d more)", h.extra))
		}
	}
	out = append(out, fmt.Sprintf("%s in %s", utils.Plural(total, "match"), utils.Plural(len(files), "file")))
	return strings.Join(out, "\n"), nil
}

func tree(in Input) (string, error) {
	lines := utils.SplitLines(in.Output)
	if len(lines) == 0 {
		return "", ErrUnrecognized
	}
	if len(lines) <= maxTreeLines {
		return strings.Join(lines, "\n"), nil
	}
	last := lines[len(lines)-1]
	out := append([]string{}, lines[:maxTreeLines]...)
	out = append(out, fmt.Sprintf("... (%d more entries)", len(lines)-maxTreeLines-1), last)
	return strings.Join(out, "\n"), nil
}
