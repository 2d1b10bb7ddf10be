package tracking

import (
	"testing"
	"time"
)

func TestTimedPhases(t *testing.T) {
	timed := Start()
	time.Sleep(2 * time.Millisecond)
	timed.Mark("resolve")
	timed.Mark("exec")

	phases := timed.Phases()
	if len(phases) != 2 {
		t.Fatalf("got %d phases, want 2", len(phases))
	}
	if phases[0].Name != "resolve" || phases[1].Name != "exec" {
		t.Errorf("phases = %+v", phases)
	}
	if phases[0].Duration < 2*time.Millisecond {
		t.Errorf("resolve = %v, want >= 2ms", phases[0].Duration)
	}
	if timed.Elapsed() < phases[0].Duration+phases[1].Duration {
		t.Error("elapsed should cover every phase")
	}
}
