// Package display renders crux reports for a terminal or a pipe.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

var (
	HeaderStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	DimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	StatStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	WarnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// IsTerminal returns true if stdout is a TTY.
func IsTerminal() bool {
	return isTTY(os.Stdout)
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// style renders s with st only when w is a terminal.
func style(w io.Writer, st lipgloss.Style, s string) string {
	if isTTY(w) {
		return st.Render(s)
	}
	return s
}

// PrintError prints a styled error to stderr.
func PrintError(msg string) {
	fmt.Fprintln(os.Stderr, style(os.Stderr, ErrorStyle, "crux: "+msg))
}

// PrintWarning prints a styled warning to stderr.
func PrintWarning(msg string) {
	fmt.Fprintln(os.Stderr, style(os.Stderr, WarnStyle, "crux: "+msg))
}

// Heading writes a section title.
func Heading(w io.Writer, title string) {
	fmt.Fprintln(w, style(w, HeaderStyle, title))
}

// FormatSeparator returns a horizontal separator line.
func FormatSeparator(width int) string {
	return strings.Repeat("═", width)
}

// FormatTable formats data as a simple aligned table. Widths are measured
// in cells so styled or wide cells still line up.
func FormatTable(headers []string, rows [][]string) string {
	if len(headers) == 0 {
		return ""
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	var b strings.Builder
	pad := func(s string, w int) {
		b.WriteString(s)
		b.WriteString(strings.Repeat(" ", w-lipgloss.Width(s)))
	}

	for i, h := range headers {
		if i > 0 {
			b.WriteString("  ")
		}
		pad(h, widths[i])
	}
	b.WriteString("\n")

	for i, w := range widths {
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(strings.Repeat("─", w))
	}
	b.WriteString("\n")

	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			if i > 0 {
				b.WriteString("  ")
			}
			pad(cell, widths[i])
		}
		b.WriteString("\n")
	}

	return b.String()
}
