package tracking

import "time"

// Phase is one named span of a run.
type Phase struct {
	Name     string
	Duration time.Duration
}

// Timed splits a run into consecutive phases.
type Timed struct {
	start  time.Time
	last   time.Time
	phases []Phase
}

// Start begins timing.
func Start() *Timed {
	now := time.Now()
	return &Timed{start: now, last: now}
}

// Mark closes the current phase under name and starts the next one.
func (t *Timed) Mark(name string) time.Duration {
	now := time.Now()
	d := now.Sub(t.last)
	t.last = now
	t.phases = append(t.phases, Phase{Name: name, Duration: d})
	return d
}

// Phases returns the phases marked so far.
func (t *Timed) Phases() []Phase { return t.phases }

// Elapsed is the time since Start.
func (t *Timed) Elapsed() time.Duration { return time.Since(t.start) }
