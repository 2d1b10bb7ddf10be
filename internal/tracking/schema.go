package tracking

import "time"

const createTableSQL = `
CREATE TABLE IF NOT EXISTS filter_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	command TEXT NOT NULL,
	filter TEXT NOT NULL,
	tier TEXT NOT NULL,
	input_bytes INTEGER NOT NULL,
	output_bytes INTEGER NOT NULL,
	input_lines INTEGER NOT NULL,
	output_lines INTEGER NOT NULL,
	input_tokens INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	saved_tokens INTEGER NOT NULL,
	savings_pct REAL NOT NULL,
	exit_code INTEGER NOT NULL,
	exec_time_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS filter_events_timestamp ON filter_events(timestamp);
CREATE TABLE IF NOT EXISTS history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	timestamp DATETIME NOT NULL,
	command TEXT NOT NULL,
	filter TEXT NOT NULL,
	raw TEXT NOT NULL,
	filtered TEXT NOT NULL
);
`

const cleanupSQL = `
DELETE FROM filter_events WHERE timestamp < datetime('now', '-90 days');
DELETE FROM history WHERE id NOT IN (SELECT id FROM history ORDER BY id DESC LIMIT 200);
`

const insertSQL = `
INSERT INTO filter_events (run_id, timestamp, command, filter, tier,
	input_bytes, output_bytes, input_lines, output_lines,
	input_tokens, output_tokens, saved_tokens, savings_pct, exit_code, exec_time_ms)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`

const insertHistorySQL = `
INSERT INTO history (run_id, timestamp, command, filter, raw, filtered)
VALUES (?, ?, ?, ?, ?, ?);
`

const summarySQL = `
SELECT
	COUNT(*) as total_commands,
	COALESCE(SUM(saved_tokens), 0) as total_saved,
	COALESCE(SUM(saved_tokens) * 100.0 / NULLIF(SUM(input_tokens), 0), 0) as avg_savings,
	COALESCE(SUM(exec_time_ms), 0) as total_time_ms
FROM filter_events;
`

const dailySQL = `
SELECT
	date(timestamp) as day,
	COUNT(*) as commands,
	SUM(input_tokens) as input_tokens,
	SUM(output_tokens) as output_tokens,
	SUM(saved_tokens) as saved_tokens,
	COALESCE(SUM(saved_tokens) * 100.0 / NULLIF(SUM(input_tokens), 0), 0) as avg_savings
FROM filter_events
WHERE timestamp >= datetime('now', ? || ' days')
GROUP BY date(timestamp)
ORDER BY day DESC;
`

const recentSQL = `
SELECT run_id, command, filter, tier, input_tokens, output_tokens, saved_tokens, savings_pct,
	exit_code, exec_time_ms, timestamp
FROM filter_events
ORDER BY id DESC
LIMIT ?;
`

const historySQL = `
SELECT run_id, command, filter, raw, filtered, timestamp
FROM history
ORDER BY id DESC
LIMIT ?;
`

const byCommandSQL = `
SELECT
	command,
	filter,
	COUNT(*) as count,
	SUM(input_tokens) as input_tokens,
	SUM(output_tokens) as output_tokens,
	SUM(saved_tokens) as saved_tokens,
	COALESCE(SUM(saved_tokens) * 100.0 / NULLIF(SUM(input_tokens), 0), 0) as avg_savings
FROM filter_events
GROUP BY command, filter
ORDER BY saved_tokens DESC
LIMIT ?;
`

const weeklySQL = `
SELECT
	strftime('%Y-W%W', timestamp) as period,
	COUNT(*) as commands,
	SUM(input_tokens) as input_tokens,
	SUM(output_tokens) as output_tokens,
	SUM(saved_tokens) as saved_tokens,
	COALESCE(SUM(saved_tokens) * 100.0 / NULLIF(SUM(input_tokens), 0), 0) as avg_savings
FROM filter_events
WHERE timestamp >= datetime('now', ? || ' days')
GROUP BY strftime('%Y-W%W', timestamp)
ORDER BY period DESC;
`

const monthlySQL = `
SELECT
	strftime('%Y-%m', timestamp) as period,
	COUNT(*) as commands,
	SUM(input_tokens) as input_tokens,
	SUM(output_tokens) as output_tokens,
	SUM(saved_tokens) as saved_tokens,
	COALESCE(SUM(saved_tokens) * 100.0 / NULLIF(SUM(input_tokens), 0), 0) as avg_savings
FROM filter_events
WHERE timestamp >= datetime('now', ? || ' days')
GROUP BY strftime('%Y-%m', timestamp)
ORDER BY period DESC;
`

// timeLayout is how timestamps are stored so that SQLite date functions
// can read them.
const timeLayout = "2006-01-02 15:04:05"

// Event is one filtered invocation.
type Event struct {
	RunID       string
	Command     string
	Filter      string
	Tier        string
	InputBytes  int
	OutputBytes int
	InputLines  int
	OutputLines int
	ExitCode    int
	Duration    time.Duration
	Timestamp   time.Time
}

// HistoryEntry keeps the raw and filtered text of one invocation.
type HistoryEntry struct {
	RunID     string
	Command   string
	Filter    string
	Raw       string
	Filtered  string
	Timestamp string
}

// Summary holds aggregate tracking stats.
type Summary struct {
	TotalCommands int
	TotalSaved    int
	AvgSavings    float64
	TotalTimeMs   int64
}

// DayStats holds daily tracking stats.
type DayStats struct {
	Day          string
	Commands     int
	InputTokens  int
	OutputTokens int
	SavedTokens  int
	AvgSavings   float64
}

// CommandRecord holds a single tracked command.
type CommandRecord struct {
	RunID        string
	Command      string
	Filter       string
	Tier         string
	InputTokens  int
	OutputTokens int
	SavedTokens  int
	SavingsPct   float64
	ExitCode     int
	ExecTimeMs   int64
	Timestamp    string
}

// CommandStats holds aggregate stats per command and filter.
type CommandStats struct {
	Command      string
	Filter       string
	Count        int
	InputTokens  int
	OutputTokens int
	SavedTokens  int
	AvgSavings   float64
}

// PeriodStats holds aggregate stats for a time period (week or month).
type PeriodStats struct {
	Period       string
	Commands     int
	InputTokens  int
	OutputTokens int
	SavedTokens  int
	AvgSavings   float64
}
