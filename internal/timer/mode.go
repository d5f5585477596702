package timer

import (
	"errors"
	"time"
)

type Mode string

const (
	ModeWork       Mode = "work"
	ModeShortBreak Mode = "shortBreak"
	ModeLongBreak  Mode = "longBreak"
)

const (
	DefaultWorkMinutes           = 25
	DefaultShortBreakMinutes     = 5
	DefaultLongBreakMinutes      = 15
	DefaultCyclesBeforeLongBreak = 4

	MaxPhaseMinutes = 180
	MaxCycles       = 12
)

var (
	ErrInvalidMode     = errors.New("timer: invalid mode")
	ErrInvalidSettings = errors.New("timer: invalid settings")
	ErrNoActivePhase   = errors.New("timer: no active phase")
)

func ParseMode(raw string) (Mode, error) {
	switch Mode(raw) {
	case ModeWork, ModeShortBreak, ModeLongBreak:
		return Mode(raw), nil
	}
	return "", ErrInvalidMode
}

func (m Mode) IsBreak() bool {
	return m == ModeShortBreak || m == ModeLongBreak
}

// Settings are read whenever a phase starts. Changing them never touches a
// phase that is already in progress.
type Settings struct {
	WorkMinutes           int  `json:"workDuration" yaml:"work_minutes"`
	ShortBreakMinutes     int  `json:"shortBreakDuration" yaml:"short_break_minutes"`
	LongBreakMinutes      int  `json:"longBreakDuration" yaml:"long_break_minutes"`
	CyclesBeforeLongBreak int  `json:"cyclesBeforeLongBreak" yaml:"cycles_before_long_break"`
	AutoAdvance           bool `json:"autoAdvance" yaml:"auto_advance"`
	AutoResumeWork        bool `json:"autoResumeWork" yaml:"auto_resume_work"`
}

func DefaultSettings() Settings {
	return Settings{
		WorkMinutes:           DefaultWorkMinutes,
		ShortBreakMinutes:     DefaultShortBreakMinutes,
		LongBreakMinutes:      DefaultLongBreakMinutes,
		CyclesBeforeLongBreak: DefaultCyclesBeforeLongBreak,
		AutoAdvance:           true,
	}
}

func (s Settings) Validate() error {
	for _, minutes := range []int{s.WorkMinutes, s.ShortBreakMinutes, s.LongBreakMinutes} {
		if minutes <= 0 || minutes > MaxPhaseMinutes {
			return ErrInvalidSettings
		}
	}
	if s.CyclesBeforeLongBreak <= 0 || s.CyclesBeforeLongBreak > MaxCycles {
		return ErrInvalidSettings
	}
	return nil
}

// DurationSec returns the nominal phase length for mode in seconds, falling
// back to the defaults when a field is unset.
func (s Settings) DurationSec(mode Mode) int {
	var minutes int
	switch mode {
	case ModeShortBreak:
		minutes = orDefault(s.ShortBreakMinutes, DefaultShortBreakMinutes)
	case ModeLongBreak:
		minutes = orDefault(s.LongBreakMinutes, DefaultLongBreakMinutes)
	default:
		minutes = orDefault(s.WorkMinutes, DefaultWorkMinutes)
	}
	return int((time.Duration(minutes) * time.Minute).Seconds())
}

func (s Settings) cycles() int {
	return orDefault(s.CyclesBeforeLongBreak, DefaultCyclesBeforeLongBreak)
}

func orDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

// NextMode decides the phase that follows current. cyclesCompleted is the
// count of finished work phases including the one that just ended.
func NextMode(current Mode, cyclesCompleted, cyclesBeforeLongBreak int) Mode {
	if current != ModeWork {
		return ModeWork
	}
	if cyclesCompleted >= orDefault(cyclesBeforeLongBreak, DefaultCyclesBeforeLongBreak) {
		return ModeLongBreak
	}
	return ModeShortBreak
}
