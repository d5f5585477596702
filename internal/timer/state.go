package timer

import "time"

// State is one of Idle, Running or Paused.
type State interface {
	isState()
}

// Idle has no phase. It remembers where the cycle stands so a manual restart
// after a break picks the cycle up again.
type Idle struct {
	CyclesCompleted int
	NextMode        Mode
}

// Phase holds the fields shared by every active state.
type Phase struct {
	Mode            Mode
	StartTime       time.Time
	DurationSec     int
	CyclesCompleted int
	TaskID          string
}

type Running struct {
	Phase
}

// Paused keeps a snapshot of the remaining seconds. StartTime is the start
// the phase would have had if it never paused. Ran is the exact running time
// at the pause; zero means only RemainingSec is known.
type Paused struct {
	Phase
	RemainingSec int
	Ran          time.Duration
}

// Active is implemented by Running and Paused.
type Active interface {
	State
	phase() Phase
	elapsed(now time.Time) int
}

func (Idle) isState()    {}
func (Running) isState() {}
func (Paused) isState()  {}

func (r Running) phase() Phase { return r.Phase }
func (p Paused) phase() Phase  { return p.Phase }

func (r Running) elapsed(now time.Time) int {
	elapsed := int(now.Sub(r.StartTime) / time.Second)
	return clamp(elapsed, 0, r.DurationSec)
}

func (p Paused) elapsed(time.Time) int {
	return clamp(p.DurationSec-p.RemainingSec, 0, p.DurationSec)
}

// PhaseOf returns the phase of an active state.
func PhaseOf(a Active) Phase {
	return a.phase()
}

// NewPhase starts a phase at now. A non-positive durationSec selects the
// default length for mode.
func NewPhase(mode Mode, taskID string, cyclesCompleted, durationSec int, now time.Time) Running {
	if durationSec <= 0 {
		durationSec = DefaultSettings().DurationSec(mode)
	}
	if cyclesCompleted < 0 {
		cyclesCompleted = 0
	}
	return Running{Phase: Phase{
		Mode:            mode,
		StartTime:       now,
		DurationSec:     durationSec,
		CyclesCompleted: cyclesCompleted,
		TaskID:          taskID,
	}}
}

func Pause(r Running, now time.Time) Paused {
	ran := now.Sub(r.StartTime)
	if limit := time.Duration(r.DurationSec) * time.Second; ran > limit {
		ran = limit
	}
	if ran < 0 {
		ran = 0
	}
	return Paused{
		Phase:        r.Phase,
		RemainingSec: r.DurationSec - r.elapsed(now),
		Ran:          ran,
	}
}

// Resume keeps sub-second running time, so repeated pauses lose nothing.
func Resume(p Paused, now time.Time) Running {
	ran := p.Ran
	if ran <= 0 {
		ran = time.Duration(p.elapsed(now)) * time.Second
	}
	phase := p.Phase
	phase.StartTime = now.Add(-ran)
	return Running{Phase: phase}
}

func Elapsed(a Active, now time.Time) int {
	return a.elapsed(now)
}

func Remaining(a Active, now time.Time) int {
	return max(0, a.phase().DurationSec-a.elapsed(now))
}

func IsComplete(a Active, now time.Time) bool {
	return Remaining(a, now) <= 0
}

// Progress is the elapsed fraction of the phase in [0, 1].
func Progress(a Active, now time.Time) float64 {
	duration := a.phase().DurationSec
	if duration <= 0 {
		return 0
	}
	return float64(a.elapsed(now)) / float64(duration)
}

func clamp(value, lo, hi int) int {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
