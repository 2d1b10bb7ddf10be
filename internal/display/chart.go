package display

import (
	"fmt"
	"strings"
)

// TierLabel grades an average savings percentage.
func TierLabel(pct float64) string {
	switch {
	case pct >= 70:
		return "Excellent"
	case pct >= 40:
		return "Good"
	case pct >= 15:
		return "Fair"
	}
	return "Low"
}

// ColorTier colors a TierLabel result.
func ColorTier(label string) string {
	switch label {
	case "Excellent", "Good":
		return SuccessStyle.Render(label)
	case "Fair":
		return WarnStyle.Render(label)
	}
	return ErrorStyle.Render(label)
}

// ColorSavings formats a percentage, colored by how good it is.
func ColorSavings(pct float64) string {
	s := fmt.Sprintf("%.1f%%", pct)
	switch {
	case pct >= 40:
		return SuccessStyle.Render(s)
	case pct >= 15:
		return WarnStyle.Render(s)
	}
	return DimStyle.Render(s)
}

// Bar draws value/max as a bar width cells wide.
func Bar(value, max, width int) string {
	if width <= 0 {
		return ""
	}
	filled := 0
	if max > 0 && value > 0 {
		filled = value * width / max
		if filled == 0 {
			filled = 1
		}
		if filled > width {
			filled = width
		}
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// ColorBar is Bar with the filled part highlighted.
func ColorBar(value, max, width int) string {
	b := Bar(value, max, width)
	filled := strings.Count(b, "█")
	return SuccessStyle.Render(strings.Repeat("█", filled)) + DimStyle.Render(strings.Repeat("░", width-filled))
}

var sparks = []rune("▁▂▃▄▅▆▇█")

// FormatSparkline renders values as a one-line chart scaled to their range.
func FormatSparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	out := make([]rune, len(values))
	for i, v := range values {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparks)-1))
		}
		out[i] = sparks[idx]
	}
	return string(out)
}
