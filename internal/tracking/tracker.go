package tracking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/polaminggkub-debug/crux/internal/utils"
)

// ErrUnavailable is returned by NewTracker in builds without SQLite.
var ErrUnavailable = errors.New("tracking not compiled in")

// Tracker manages token savings tracking in SQLite.
type Tracker struct {
	db *sql.DB
}

// NewTracker opens or creates a SQLite database for tracking.
func NewTracker(dbPath string) (*Tracker, error) {
	if !DriverAvailable {
		return nil, ErrUnavailable
	}
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	return &Tracker{db: db}, nil
}

// Record stores one filtered invocation.
func (t *Tracker) Record(ctx context.Context, ev Event) error {
	in := utils.EstimateTokensN(ev.InputBytes)
	out := utils.EstimateTokensN(ev.OutputBytes)
	saved := in - out
	pct := 0.0
	if in > 0 {
		pct = float64(saved) / float64(in) * 100
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := t.db.ExecContext(ctx, insertSQL,
		ev.RunID, ts.UTC().Format(timeLayout), ev.Command, ev.Filter, ev.Tier,
		ev.InputBytes, ev.OutputBytes, ev.InputLines, ev.OutputLines,
		in, out, saved, pct, ev.ExitCode, ev.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("track: %w", err)
	}

	// Cleanup old records
	t.db.ExecContext(ctx, cleanupSQL)

	return nil
}

// RecordHistory stores the raw and filtered text of one invocation.
func (t *Tracker) RecordHistory(ctx context.Context, h HistoryEntry) error {
	_, err := t.db.ExecContext(ctx, insertHistorySQL,
		h.RunID, time.Now().UTC().Format(timeLayout), h.Command, h.Filter, h.Raw, h.Filtered)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	return nil
}

// GetSummary returns aggregate tracking stats.
func (t *Tracker) GetSummary() (*Summary, error) {
	var s Summary
	err := t.db.QueryRow(summarySQL).Scan(&s.TotalCommands, &s.TotalSaved, &s.AvgSavings, &s.TotalTimeMs)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	return &s, nil
}

// GetDaily returns daily stats for the last N days.
func (t *Tracker) GetDaily(days int) ([]DayStats, error) {
	if days <= 0 {
		days = 7
	}
	rows, err := t.db.Query(dailySQL, fmt.Sprintf("-%d", days))
	if err != nil {
		return nil, fmt.Errorf("daily: %w", err)
	}
	defer rows.Close()

	var stats []DayStats
	for rows.Next() {
		var d DayStats
		if err := rows.Scan(&d.Day, &d.Commands, &d.InputTokens, &d.OutputTokens, &d.SavedTokens, &d.AvgSavings); err != nil {
			return nil, fmt.Errorf("daily scan: %w", err)
		}
		stats = append(stats, d)
	}
	return stats, rows.Err()
}

// GetWeekly returns stats grouped by week for the last N weeks.
func (t *Tracker) GetWeekly(weeks int) ([]PeriodStats, error) {
	if weeks <= 0 {
		weeks = 8
	}
	return t.period(weeklySQL, weeks*7)
}

// GetMonthly returns stats grouped by month for the last N months.
func (t *Tracker) GetMonthly(months int) ([]PeriodStats, error) {
	if months <= 0 {
		months = 6
	}
	return t.period(monthlySQL, months*31)
}

func (t *Tracker) period(query string, days int) ([]PeriodStats, error) {
	rows, err := t.db.Query(query, fmt.Sprintf("-%d", days))
	if err != nil {
		return nil, fmt.Errorf("period: %w", err)
	}
	defer rows.Close()

	var stats []PeriodStats
	for rows.Next() {
		var p PeriodStats
		if err := rows.Scan(&p.Period, &p.Commands, &p.InputTokens, &p.OutputTokens, &p.SavedTokens, &p.AvgSavings); err != nil {
			return nil, fmt.Errorf("period scan: %w", err)
		}
		stats = append(stats, p)
	}
	return stats, rows.Err()
}

// GetByCommand returns the commands with the largest savings.
func (t *Tracker) GetByCommand(limit int) ([]CommandStats, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := t.db.Query(byCommandSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("by command: %w", err)
	}
	defer rows.Close()

	var stats []CommandStats
	for rows.Next() {
		var c CommandStats
		if err := rows.Scan(&c.Command, &c.Filter, &c.Count, &c.InputTokens, &c.OutputTokens, &c.SavedTokens, &c.AvgSavings); err != nil {
			return nil, fmt.Errorf("by command scan: %w", err)
		}
		stats = append(stats, c)
	}
	return stats, rows.Err()
}

// GetRecent returns the last N tracked commands.
func (t *Tracker) GetRecent(n int) ([]CommandRecord, error) {
	rows, err := t.db.Query(recentSQL, n)
	if err != nil {
		return nil, fmt.Errorf("recent: %w", err)
	}
	defer rows.Close()

	var records []CommandRecord
	for rows.Next() {
		var r CommandRecord
		if err := rows.Scan(&r.RunID, &r.Command, &r.Filter, &r.Tier, &r.InputTokens, &r.OutputTokens,
			&r.SavedTokens, &r.SavingsPct, &r.ExitCode, &r.ExecTimeMs, &r.Timestamp); err != nil {
			return nil, fmt.Errorf("recent scan: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// GetHistory returns the last N history entries.
func (t *Tracker) GetHistory(n int) ([]HistoryEntry, error) {
	rows, err := t.db.Query(historySQL, n)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.RunID, &h.Command, &h.Filter, &h.Raw, &h.Filtered, &h.Timestamp); err != nil {
			return nil, fmt.Errorf("history scan: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (t *Tracker) Close() error {
	return t.db.Close()
}

// DBPath resolves the tracking database path.
func DBPath(configPath string) string {
	if p := os.Getenv("CRUX_DB_PATH"); p != "" {
		return p
	}
	if configPath != "" {
		return configPath
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".local", "share", "crux", "tracking.db")
}
