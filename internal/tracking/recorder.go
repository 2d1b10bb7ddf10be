package tracking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FlushTimeout bounds how long a run waits for tracking writes before
// exiting.
const FlushTimeout = 500 * time.Millisecond

// Recorder writes events without holding up the command. The database is
// opened in the background as soon as the recorder is created, so the open
// overlaps with command execution.
type Recorder struct {
	logger  *zap.Logger
	history bool

	ready   chan struct{}
	tracker *Tracker
	openErr error

	wg sync.WaitGroup
}

// NewRecorder starts opening the database at path. With history set, raw
// and filtered text is kept as well.
func NewRecorder(path string, history bool, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Recorder{logger: logger, history: history, ready: make(chan struct{})}
	go func() {
		defer close(r.ready)
		r.tracker, r.openErr = NewTracker(path)
	}()
	return r
}

// NewRunID returns a fresh identifier for one invocation.
func NewRunID() string { return uuid.NewString() }

// Record queues ev and, when history is enabled, the raw and filtered text.
// Failures are logged and never returned.
func (r *Recorder) Record(ev Event, raw, filtered string) {
	if r == nil {
		return
	}
	if ev.RunID == "" {
		ev.RunID = NewRunID()
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		<-r.ready
		if r.openErr != nil {
			r.logger.Debug("tracking disabled", zap.Error(r.openErr))
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), FlushTimeout)
		defer cancel()
		if err := r.tracker.Record(ctx, ev); err != nil {
			r.logger.Warn("tracking write failed", zap.Error(err))
			return
		}
		if !r.history {
			return
		}
		h := HistoryEntry{RunID: ev.RunID, Command: ev.Command, Filter: ev.Filter, Raw: raw, Filtered: filtered}
		if err := r.tracker.RecordHistory(ctx, h); err != nil {
			r.logger.Warn("history write failed", zap.Error(err))
		}
	}()
}

// Flush waits for queued writes, at most FlushTimeout, then closes the
// database if every write finished.
func (r *Recorder) Flush() {
	if r == nil {
		return
	}
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		<-r.ready
		close(done)
	}()
	select {
	case <-done:
		if r.tracker != nil {
			r.tracker.Close()
		}
	case <-time.After(FlushTimeout):
		r.logger.Debug("tracking flush timed out")
	}
}
