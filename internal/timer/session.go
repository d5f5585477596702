package timer

import "time"

const (
	DefaultMinSessionSeconds = 10
	completionPercent        = 90
)

// FocusSession is the record of one finished phase. It is created once, when
// the phase ends, and is not changed by the engine afterwards.
type FocusSession struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"taskId,omitempty"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	DurationSec int       `json:"durationSec"`
	Completed   bool      `json:"completed"`
	Type        Mode      `json:"type"`
}

// Policy controls which ended phases produce a FocusSession.
type Policy struct {
	MinSessionSeconds int
	RecordBreaks      bool
}

func DefaultPolicy() Policy {
	return Policy{MinSessionSeconds: DefaultMinSessionSeconds}
}

// Finalize builds the session record for a at now. DurationSec is the actual
// elapsed time, never more than the nominal duration.
func Finalize(a Active, now time.Time, id string) FocusSession {
	phase := a.phase()
	elapsed := a.elapsed(now)
	return FocusSession{
		ID:          id,
		TaskID:      phase.TaskID,
		StartTime:   phase.StartTime,
		EndTime:     phase.StartTime.Add(time.Duration(elapsed) * time.Second),
		DurationSec: elapsed,
		Completed:   elapsed*100 >= phase.DurationSec*completionPercent,
		Type:        phase.Mode,
	}
}

// ShouldRecord reports whether ending a at now is worth a session record.
func (p Policy) ShouldRecord(a Active, now time.Time) bool {
	phase := a.phase()
	if phase.Mode.IsBreak() && !p.RecordBreaks {
		return false
	}
	minimum := p.MinSessionSeconds
	if minimum <= 0 {
		minimum = DefaultMinSessionSeconds
	}
	return a.elapsed(now) >= minimum
}
