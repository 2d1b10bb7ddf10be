//go:build !lite

package display

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polaminggkub-debug/crux/internal/tracking"
)

func newTestTracker(t *testing.T) *tracking.Tracker {
	t.Helper()
	tracker, err := tracking.NewTracker(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { tracker.Close() })
	return tracker
}

func record(t *testing.T, tr *tracking.Tracker, cmd, filter string, in, out int) {
	t.Helper()
	require.NoError(t, tr.Record(context.Background(), tracking.Event{
		RunID:       tracking.NewRunID(),
		Command:     cmd,
		Filter:      filter,
		Tier:        "embedded",
		InputBytes:  in,
		OutputBytes: out,
		Duration:    40 * time.Millisecond,
	}))
}

func TestRunGainNoData(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RunGain(&buf, newTestTracker(t), GainOptions{}))
	assert.Contains(t, buf.String(), "Commands filtered")
}

func TestRunGainWithData(t *testing.T) {
	tracker := newTestTracker(t)
	record(t, tracker, "git log", "git log", 4000, 800)
	record(t, tracker, "go test ./...", "go-test", 8000, 1200)

	var buf bytes.Buffer
	require.NoError(t, RunGain(&buf, tracker, GainOptions{}))
	out := buf.String()
	assert.Contains(t, out, "Top commands by tokens saved")
	assert.Contains(t, out, "go test ./...")
	assert.Contains(t, out, "go-test")
}

func TestRunGainReports(t *testing.T) {
	tracker := newTestTracker(t)
	record(t, tracker, "cargo build", "cargo build", 2000, 400)

	for _, opts := range []GainOptions{{Daily: true}, {Weekly: true}, {Monthly: true}, {History: 5}} {
		var buf bytes.Buffer
		require.NoError(t, RunGain(&buf, tracker, opts), "%+v", opts)
		assert.NotEmpty(t, buf.String())
	}
}

func TestRunGainJSON(t *testing.T) {
	tracker := newTestTracker(t)
	record(t, tracker, "npm test", "npm test", 1000, 100)

	var buf bytes.Buffer
	require.NoError(t, RunGain(&buf, tracker, GainOptions{JSON: true}))
	var data map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &data))
	assert.Contains(t, data, "summary")
	assert.Contains(t, data, "by_command")
}

func TestRunGainCSV(t *testing.T) {
	tracker := newTestTracker(t)
	record(t, tracker, "npm test", "npm test", 1000, 100)

	var buf bytes.Buffer
	require.NoError(t, RunGain(&buf, tracker, GainOptions{CSV: true}))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "date,commands,input_tokens,output_tokens,saved_tokens,avg_savings", lines[0])
	assert.Len(t, lines, 2)
}

func TestRunGainNilTracker(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, RunGain(&buf, nil, GainOptions{}))
}

func TestHistory(t *testing.T) {
	var buf bytes.Buffer
	History(&buf, nil)
	assert.Contains(t, buf.String(), "no history")

	buf.Reset()
	History(&buf, []tracking.HistoryEntry{{Command: "git status", Filter: "git status", Raw: "long raw", Filtered: "clean"}})
	assert.Contains(t, buf.String(), "git status")
	assert.Contains(t, buf.String(), "clean\n")
}
