package display

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/polaminggkub-debug/crux/internal/tracking"
	"github.com/polaminggkub-debug/crux/internal/utils"
)

// GainOptions selects the savings report to render.
type GainOptions struct {
	Daily   bool
	Weekly  bool
	Monthly bool
	JSON    bool
	CSV     bool
	// Top limits the per-command table; zero means the default of 10.
	Top int
	// History lists the last N runs instead of aggregates.
	History int
	Days    int
}

// RunGain writes the token savings report.
func RunGain(w io.Writer, tracker *tracking.Tracker, opts GainOptions) error {
	if tracker == nil {
		PrintError("no tracking data (run some commands first)")
		return nil
	}
	if opts.Days <= 0 {
		opts.Days = 7
	}
	if opts.Top <= 0 {
		opts.Top = 10
	}

	summary, err := tracker.GetSummary()
	if err != nil {
		return fmt.Errorf("get summary: %w", err)
	}

	switch {
	case opts.JSON:
		return exportJSON(w, summary, tracker, opts.Days)
	case opts.CSV:
		return exportCSV(w, tracker, opts.Days)
	case opts.History > 0:
		return showRecent(w, tracker, opts.History)
	case opts.Weekly:
		printSummary(w, summary)
		return showPeriodReport(w, tracker, "weekly")
	case opts.Monthly:
		printSummary(w, summary)
		return showPeriodReport(w, tracker, "monthly")
	case opts.Daily:
		printSummary(w, summary)
		return showDailyReport(w, tracker, opts.Days)
	}

	printSummary(w, summary)
	showSparkline(w, tracker)
	return showByCommand(w, tracker, opts.Top)
}

func printSummary(w io.Writer, s *tracking.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, style(w, HeaderStyle, "  crux token savings"))
	fmt.Fprintln(w, style(w, DimStyle, "  "+FormatSeparator(30)))
	fmt.Fprintln(w)

	kpi := func(label, value string) {
		fmt.Fprintf(w, "  %s  %s\n", style(w, DimStyle, fmt.Sprintf("%-20s", label)), value)
	}
	plain := !isTTY(w)
	savings := ColorSavings(s.AvgSavings)
	tier := ColorTier(TierLabel(s.AvgSavings))
	if plain {
		savings = fmt.Sprintf("%.1f%%", s.AvgSavings)
		tier = TierLabel(s.AvgSavings)
	}
	kpi("Commands filtered", style(w, StatStyle, strconv.Itoa(s.TotalCommands)))
	kpi("Tokens saved", style(w, StatStyle, utils.FormatTokens(s.TotalSaved)))
	kpi("Avg savings", savings)
	kpi("Efficiency", tier)
	kpi("Total time", style(w, StatStyle, fmt.Sprintf("%.1fs", float64(s.TotalTimeMs)/1000)))

	pct := min(max(s.AvgSavings, 0), 100)
	bar := Bar(int(pct), 100, 20)
	if !plain {
		bar = ColorBar(int(pct), 100, 20)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %.0f%%\n", bar, s.AvgSavings)
	fmt.Fprintln(w)
}

func showByCommand(w io.Writer, tracker *tracking.Tracker, limit int) error {
	stats, err := tracker.GetByCommand(limit)
	if err != nil {
		return err
	}
	if len(stats) == 0 {
		return nil
	}

	maxSaved := 0
	for _, s := range stats {
		maxSaved = max(maxSaved, s.SavedTokens)
	}

	fmt.Fprintln(w, style(w, DimStyle, "  Top commands by tokens saved"))
	fmt.Fprintln(w)

	headers := []string{"Command", "Filter", "Runs", "Saved", "Savings", "Impact"}
	var rows [][]string
	for _, s := range stats {
		rows = append(rows, []string{
			shorten(s.Command, 25),
			orDash(s.Filter),
			strconv.Itoa(s.Count),
			utils.FormatTokens(s.SavedTokens),
			fmt.Sprintf("%.1f%%", s.AvgSavings),
			Bar(s.SavedTokens, maxSaved, 12),
		})
	}

	fmt.Fprint(w, FormatTable(headers, rows))
	fmt.Fprintln(w)
	return nil
}

func showSparkline(w io.Writer, tracker *tracking.Tracker) {
	daily, err := tracker.GetDaily(14)
	if err != nil || len(daily) < 2 {
		return
	}

	// Daily rows are newest first.
	values := make([]float64, len(daily))
	for i, d := range daily {
		values[len(daily)-1-i] = d.AvgSavings
	}
	fmt.Fprintf(w, "  %s  %s\n\n", style(w, DimStyle, "14-day trend"), style(w, SuccessStyle, FormatSparkline(values)))
}

func showDailyReport(w io.Writer, tracker *tracking.Tracker, days int) error {
	daily, err := tracker.GetDaily(days)
	if err != nil {
		return err
	}

	headers := []string{"Date", "Cmds", "Input", "Output", "Saved", "Savings"}
	var rows [][]string
	for _, d := range daily {
		rows = append(rows, []string{
			d.Day,
			strconv.Itoa(d.Commands),
			utils.FormatTokens(d.InputTokens),
			utils.FormatTokens(d.OutputTokens),
			utils.FormatTokens(d.SavedTokens),
			fmt.Sprintf("%.1f%%", d.AvgSavings),
		})
	}

	fmt.Fprint(w, FormatTable(headers, rows))
	return nil
}

func showPeriodReport(w io.Writer, tracker *tracking.Tracker, period string) error {
	var stats []tracking.PeriodStats
	var err error
	var label string

	switch period {
	case "weekly":
		stats, err = tracker.GetWeekly(8)
		label = "Weekly"
	case "monthly":
		stats, err = tracker.GetMonthly(6)
		label = "Monthly"
	default:
		return fmt.Errorf("unknown period: %s", period)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(w, style(w, DimStyle, fmt.Sprintf("  %s breakdown", label)))
	fmt.Fprintln(w)

	headers := []string{"Period", "Cmds", "Input", "Output", "Saved", "Savings"}
	var rows [][]string
	for _, s := range stats {
		rows = append(rows, []string{
			s.Period,
			strconv.Itoa(s.Commands),
			utils.FormatTokens(s.InputTokens),
			utils.FormatTokens(s.OutputTokens),
			utils.FormatTokens(s.SavedTokens),
			fmt.Sprintf("%.1f%%", s.AvgSavings),
		})
	}

	fmt.Fprint(w, FormatTable(headers, rows))
	fmt.Fprintln(w)
	return nil
}

func showRecent(w io.Writer, tracker *tracking.Tracker, n int) error {
	records, err := tracker.GetRecent(n)
	if err != nil {
		return err
	}

	headers := []string{"Command", "Filter", "Tier", "Input", "Output", "Savings", "Exit", "Time"}
	var rows [][]string
	for _, r := range records {
		rows = append(rows, []string{
			shorten(r.Command, 30),
			orDash(r.Filter),
			r.Tier,
			utils.FormatTokens(r.InputTokens),
			utils.FormatTokens(r.OutputTokens),
			fmt.Sprintf("%.1f%%", r.SavingsPct),
			strconv.Itoa(r.ExitCode),
			fmt.Sprintf("%dms", r.ExecTimeMs),
		})
	}

	fmt.Fprint(w, FormatTable(headers, rows))
	return nil
}

func exportJSON(w io.Writer, summary *tracking.Summary, tracker *tracking.Tracker, days int) error {
	daily, err := tracker.GetDaily(days)
	if err != nil {
		return err
	}
	byCmd, err := tracker.GetByCommand(10)
	if err != nil {
		return err
	}
	data := map[string]any{
		"summary":    summary,
		"daily":      daily,
		"by_command": byCmd,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func exportCSV(w io.Writer, tracker *tracking.Tracker, days int) error {
	daily, err := tracker.GetDaily(days)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"date", "commands", "input_tokens", "output_tokens", "saved_tokens", "avg_savings"})
	for _, d := range daily {
		_ = cw.Write([]string{
			d.Day,
			strconv.Itoa(d.Commands),
			strconv.Itoa(d.InputTokens),
			strconv.Itoa(d.OutputTokens),
			strconv.Itoa(d.SavedTokens),
			fmt.Sprintf("%.1f", d.AvgSavings),
		})
	}
	cw.Flush()
	return cw.Error()
}

// History writes stored raw and filtered text, newest first.
func History(w io.Writer, entries []tracking.HistoryEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no history recorded (set tracking.history = true)")
		return
	}
	for i, e := range entries {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, style(w, HeaderStyle, fmt.Sprintf("%s  %s", e.Timestamp, e.Command)))
		fmt.Fprintln(w, style(w, DimStyle, fmt.Sprintf("filter: %s  raw: %d bytes  filtered: %d bytes",
			orDash(e.Filter), len(e.Raw), len(e.Filtered))))
		fmt.Fprint(w, utils.EnsureNewline(e.Filtered))
	}
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
