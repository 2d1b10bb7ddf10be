//go:build !lite

package tracking

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestTracker(t *testing.T) *Tracker {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	tracker, err := NewTracker(dbPath)
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	t.Cleanup(func() { tracker.Close() })
	return tracker
}

func event(cmd string, in, out int) Event {
	return Event{
		RunID:       NewRunID(),
		Command:     cmd,
		Filter:      cmd,
		Tier:        "builtin",
		InputBytes:  in,
		OutputBytes: out,
		Duration:    50 * time.Millisecond,
	}
}

func TestRecord(t *testing.T) {
	tracker := newTestTracker(t)

	if err := tracker.Record(context.Background(), event("git log", 4000, 800)); err != nil {
		t.Fatalf("record: %v", err)
	}

	summary, err := tracker.GetSummary()
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.TotalCommands != 1 {
		t.Errorf("total commands = %d", summary.TotalCommands)
	}
	if summary.TotalSaved != 800 {
		t.Errorf("total saved = %d", summary.TotalSaved)
	}
	if summary.AvgSavings < 79 || summary.AvgSavings > 81 {
		t.Errorf("avg savings = %.1f%%", summary.AvgSavings)
	}
	if summary.TotalTimeMs != 50 {
		t.Errorf("total time = %d", summary.TotalTimeMs)
	}
}

func TestRecordPassthroughSavesNothing(t *testing.T) {
	tracker := newTestTracker(t)

	ev := event("npm install", 2000, 2000)
	ev.Filter, ev.Tier = "", "none"
	if err := tracker.Record(context.Background(), ev); err != nil {
		t.Fatalf("record: %v", err)
	}

	summary, err := tracker.GetSummary()
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.TotalSaved != 0 {
		t.Errorf("expected 0 saved for passthrough, got %d", summary.TotalSaved)
	}
}

func TestGetRecent(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	_ = tracker.Record(ctx, event("cmd1", 400, 120))
	_ = tracker.Record(ctx, event("cmd2", 800, 200))
	_ = tracker.Record(ctx, event("cmd3", 1200, 320))

	recent, err := tracker.GetRecent(2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("got %d records, want 2", len(recent))
	}
	// Most recent first
	if recent[0].Command != "cmd3" {
		t.Errorf("first = %q", recent[0].Command)
	}
	if recent[0].RunID == "" || recent[0].Tier != "builtin" {
		t.Errorf("record = %+v", recent[0])
	}
}

func TestGetDailyAndPeriods(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	tracker.Record(ctx, event("cmd1", 400, 120))
	tracker.Record(ctx, event("cmd2", 800, 200))

	daily, err := tracker.GetDaily(7)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if len(daily) != 1 {
		t.Fatalf("got %d days, want 1", len(daily))
	}
	if daily[0].Commands != 2 {
		t.Errorf("commands = %d", daily[0].Commands)
	}

	weekly, err := tracker.GetWeekly(2)
	if err != nil {
		t.Fatalf("weekly: %v", err)
	}
	if len(weekly) != 1 || !strings.Contains(weekly[0].Period, "-W") {
		t.Errorf("weekly = %+v", weekly)
	}

	monthly, err := tracker.GetMonthly(1)
	if err != nil {
		t.Fatalf("monthly: %v", err)
	}
	if len(monthly) != 1 || monthly[0].Commands != 2 {
		t.Errorf("monthly = %+v", monthly)
	}
}

func TestGetByCommand(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	tracker.Record(ctx, event("go test", 4000, 400))
	tracker.Record(ctx, event("go test", 4000, 400))
	tracker.Record(ctx, event("ls", 400, 300))

	stats, err := tracker.GetByCommand(10)
	if err != nil {
		t.Fatalf("by command: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("got %d rows, want 2", len(stats))
	}
	if stats[0].Command != "go test" || stats[0].Count != 2 {
		t.Errorf("top = %+v", stats[0])
	}
}

func TestHistory(t *testing.T) {
	tracker := newTestTracker(t)
	ctx := context.Background()

	h := HistoryEntry{RunID: NewRunID(), Command: "make", Filter: "make", Raw: "a\nb\n", Filtered: "b\n"}
	if err := tracker.RecordHistory(ctx, h); err != nil {
		t.Fatalf("history: %v", err)
	}
	got, err := tracker.GetHistory(5)
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	if len(got) != 1 || got[0].Raw != "a\nb\n" || got[0].Filtered != "b\n" {
		t.Errorf("history = %+v", got)
	}
}

func TestRecorderFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rec.db")
	rec := NewRecorder(path, true, nil)
	rec.Record(event("cargo test", 1000, 100), "raw", "filtered")
	rec.Flush()

	tracker, err := NewTracker(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer tracker.Close()

	recent, err := tracker.GetRecent(1)
	if err != nil || len(recent) != 1 {
		t.Fatalf("recent = %v, %v", recent, err)
	}
	hist, err := tracker.GetHistory(1)
	if err != nil || len(hist) != 1 || hist[0].RunID != recent[0].RunID {
		t.Errorf("history = %+v, %v", hist, err)
	}
}

func TestRecorderUnopenableDatabase(t *testing.T) {
	// A regular file where the parent directory should be.
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	rec := NewRecorder(filepath.Join(blocker, "x.db"), false, nil)
	rec.Record(event("ls", 10, 10), "", "")

	start := time.Now()
	rec.Flush()
	if time.Since(start) > FlushTimeout+100*time.Millisecond {
		t.Error("flush exceeded its bound")
	}
}

func TestNilRecorder(t *testing.T) {
	var rec *Recorder
	rec.Record(event("ls", 1, 1), "", "")
	rec.Flush()
}

func TestDBPath(t *testing.T) {
	t.Setenv("CRUX_DB_PATH", "/custom/path.db")
	if got := DBPath(""); got != "/custom/path.db" {
		t.Errorf("got %q", got)
	}

	t.Setenv("CRUX_DB_PATH", "")
	if got := DBPath("/config/path.db"); got != "/config/path.db" {
		t.Errorf("got %q", got)
	}
}
