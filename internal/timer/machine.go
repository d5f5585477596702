package timer

import "time"

type EventKind string

const (
	EventStart  EventKind = "start"
	EventPause  EventKind = "pause"
	EventResume EventKind = "resume"
	EventStop   EventKind = "stop"
	EventSkip   EventKind = "skip"
	EventTick   EventKind = "tick"
)

// Event is a user action or a clock tick. Mode and TaskID are read only by
// EventStart.
type Event struct {
	Kind   EventKind
	Mode   Mode
	TaskID string
}

func StartEvent(mode Mode, taskID string) Event { return Event{Kind: EventStart, Mode: mode, TaskID: taskID} }

// Outcome is the result of applying one event. Changed is false when the
// event left the state as it was.
type Outcome struct {
	State    State
	Sessions []FocusSession
	Changed  bool
}

// Machine applies events to timer states. It holds no state of its own.
type Machine struct {
	Policy Policy
	NewID  func() string
}

func NewMachine(policy Policy, newID func() string) *Machine {
	return &Machine{Policy: policy, NewID: newID}
}

func (m *Machine) Apply(state State, ev Event, settings Settings, now time.Time) (Outcome, error) {
	if state == nil {
		state = Idle{}
	}

	switch ev.Kind {
	case EventStart:
		return m.start(state, ev, settings, now)
	case EventTick:
		return m.Reconcile(state, settings, now), nil
	}

	active, ok := state.(Active)
	if !ok {
		return Outcome{State: state}, ErrNoActivePhase
	}

	switch ev.Kind {
	case EventPause:
		running, ok := active.(Running)
		if !ok {
			return Outcome{State: state}, nil
		}
		return Outcome{State: Pause(running, now), Changed: true}, nil
	case EventResume:
		paused, ok := active.(Paused)
		if !ok {
			return Outcome{State: state}, nil
		}
		return Outcome{State: Resume(paused, now), Changed: true}, nil
	case EventStop:
		return Outcome{State: Idle{NextMode: ModeWork}, Sessions: m.finalize(active, now), Changed: true}, nil
	case EventSkip:
		return m.skip(active, settings, now), nil
	}
	return Outcome{State: state}, nil
}

// Reconcile settles a state that may have run out while nobody was watching.
// A running phase past its end is finished exactly as a live tick would have
// finished it, and the following phase starts at now.
func (m *Machine) Reconcile(state State, settings Settings, now time.Time) Outcome {
	running, ok := state.(Running)
	if !ok || !IsComplete(running, now) {
		return Outcome{State: state}
	}

	sessions := m.finalize(running, now)
	phase := running.Phase
	if phase.Mode == ModeWork {
		cycles := phase.CyclesCompleted + 1
		next := NextMode(ModeWork, cycles, settings.cycles())
		if settings.AutoAdvance {
			return Outcome{State: m.begin(next, "", cycles, settings, now), Sessions: sessions, Changed: true}
		}
		return Outcome{State: Idle{CyclesCompleted: cycles, NextMode: next}, Sessions: sessions, Changed: true}
	}

	cycles := cyclesAfterBreak(phase)
	if settings.AutoResumeWork {
		return Outcome{State: m.begin(ModeWork, "", cycles, settings, now), Sessions: sessions, Changed: true}
	}
	return Outcome{State: Idle{CyclesCompleted: cycles, NextMode: ModeWork}, Sessions: sessions, Changed: true}
}

func (m *Machine) start(state State, ev Event, settings Settings, now time.Time) (Outcome, error) {
	if _, err := ParseMode(string(ev.Mode)); err != nil {
		return Outcome{State: state}, err
	}

	var sessions []FocusSession
	cycles := 0
	switch current := state.(type) {
	case Idle:
		cycles = current.CyclesCompleted
	case Active:
		phase := current.phase()
		if phase.Mode == ModeWork {
			cycles = phase.CyclesCompleted + 1
		}
		sessions = m.finalize(current, now)
	}

	return Outcome{
		State:    m.begin(ev.Mode, ev.TaskID, cycles, settings, now),
		Sessions: sessions,
		Changed:  true,
	}, nil
}

func (m *Machine) skip(active Active, settings Settings, now time.Time) Outcome {
	sessions := m.finalize(active, now)
	phase := active.phase()
	if phase.Mode == ModeWork {
		cycles := phase.CyclesCompleted + 1
		next := NextMode(ModeWork, cycles, settings.cycles())
		return Outcome{State: m.begin(next, "", cycles, settings, now), Sessions: sessions, Changed: true}
	}
	return Outcome{
		State:    Idle{CyclesCompleted: cyclesAfterBreak(phase), NextMode: ModeWork},
		Sessions: sessions,
		Changed:  true,
	}
}

func (m *Machine) begin(mode Mode, taskID string, cycles int, settings Settings, now time.Time) Running {
	return NewPhase(mode, taskID, cycles, settings.DurationSec(mode), now)
}

func (m *Machine) finalize(active Active, now time.Time) []FocusSession {
	if !m.Policy.ShouldRecord(active, now) {
		return nil
	}
	id := ""
	if m.NewID != nil {
		id = m.NewID()
	}
	return []FocusSession{Finalize(active, now, id)}
}

// A long break closes the cycle.
func cyclesAfterBreak(phase Phase) int {
	if phase.Mode == ModeLongBreak {
		return 0
	}
	return phase.CyclesCompleted
}
