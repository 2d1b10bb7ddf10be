package display

import (
	"strings"
	"testing"
)

func TestFormatSeparator(t *testing.T) {
	s := FormatSeparator(10)
	if len([]rune(s)) != 10 {
		t.Errorf("rune len = %d, want 10", len([]rune(s)))
	}
}

func TestFormatTable(t *testing.T) {
	headers := []string{"Name", "Count", "Pct"}
	rows := [][]string{
		{"git log", "42", "78.5%"},
		{"go test", "15", "85.2%"},
	}

	result := FormatTable(headers, rows)
	if !strings.Contains(result, "Name") {
		t.Error("missing header")
	}
	if !strings.Contains(result, "git log") {
		t.Error("missing row data")
	}
	lines := strings.Split(strings.TrimSpace(result), "\n")
	if len(lines) != 4 { // header + separator + 2 rows
		t.Errorf("got %d lines, want 4", len(lines))
	}
}

func TestFormatTableEmpty(t *testing.T) {
	result := FormatTable(nil, nil)
	if result != "" {
		t.Errorf("expected empty, got %q", result)
	}
}

func TestFormatTableAlignsWideCells(t *testing.T) {
	result := FormatTable([]string{"A", "B"}, [][]string{{"██", "x"}, {"abcd", "y"}})
	lines := strings.Split(strings.TrimRight(result, "\n"), "\n")
	// The second column starts at the same cell offset on every row.
	if !strings.HasPrefix(lines[2], "██    x") {
		t.Errorf("misaligned row %q", lines[2])
	}
}

func TestTierLabel(t *testing.T) {
	tests := []struct {
		pct  float64
		want string
	}{
		{90, "Excellent"},
		{50, "Good"},
		{20, "Fair"},
		{5, "Low"},
	}
	for _, tt := range tests {
		if got := TierLabel(tt.pct); got != tt.want {
			t.Errorf("TierLabel(%v) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestBar(t *testing.T) {
	if got := Bar(5, 10, 10); got != "█████░░░░░" {
		t.Errorf("Bar = %q", got)
	}
	if got := Bar(1, 1000, 4); got != "█░░░" {
		t.Errorf("small nonzero values show one cell, got %q", got)
	}
	if got := Bar(0, 0, 3); got != "░░░" {
		t.Errorf("Bar = %q", got)
	}
}

func TestFormatSparkline(t *testing.T) {
	if got := FormatSparkline([]float64{0, 50, 100}); got != "▁▄█" {
		t.Errorf("sparkline = %q", got)
	}
	if got := FormatSparkline([]float64{3, 3}); got != "▁▁" {
		t.Errorf("flat sparkline = %q", got)
	}
	if FormatSparkline(nil) != "" {
		t.Error("empty input should render nothing")
	}
}
