package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func at(seconds int) time.Time {
	return t0.Add(time.Duration(seconds) * time.Second)
}

func TestNewPhase_StartsAtZero(t *testing.T) {
	for _, duration := range []int{1, 60, 300, 1500} {
		r := NewPhase(ModeWork, "", 0, duration, t0)
		assert.Equal(t, 0, Elapsed(r, t0))
		assert.Equal(t, duration, Remaining(r, t0))
		assert.False(t, IsComplete(r, t0))
	}
}

func TestNewPhase_DefaultDuration(t *testing.T) {
	r := NewPhase(ModeShortBreak, "task-1", 2, 0, t0)
	assert.Equal(t, 300, r.DurationSec)
	assert.Equal(t, "task-1", r.TaskID)
	assert.Equal(t, 2, r.CyclesCompleted)
}

func TestElapsedPlusRemaining_AlwaysDuration(t *testing.T) {
	r := NewPhase(ModeWork, "", 0, 100, t0)
	for _, offset := range []int{-5, 0, 1, 50, 99, 100, 101, 5000} {
		elapsed := Elapsed(r, at(offset))
		remaining := Remaining(r, at(offset))
		assert.GreaterOrEqual(t, elapsed, 0, "offset %d", offset)
		assert.GreaterOrEqual(t, remaining, 0, "offset %d", offset)
		assert.Equal(t, 100, elapsed+remaining, "offset %d", offset)
	}
}

func TestPauseResume_KeepsElapsed(t *testing.T) {
	r := NewPhase(ModeWork, "", 0, 1500, t0)
	paused := Pause(r, at(120))
	assert.Equal(t, 120, Elapsed(paused, at(120)))

	resumed := Resume(paused, at(120))
	assert.Equal(t, 120, Elapsed(resumed, at(120)))
}

func TestPausedClockDoesNotAdvance(t *testing.T) {
	r := NewPhase(ModeWork, "", 0, 1500, t0)
	paused := Pause(r, at(600))
	assert.Equal(t, 900, paused.RemainingSec)
	assert.Equal(t, 900, Remaining(paused, at(4000)))
}

func TestPauseResumeScenario(t *testing.T) {
	r := NewPhase(ModeWork, "", 0, 1500, t0)

	paused := Pause(r, at(600))
	require.Equal(t, 900, paused.RemainingSec)

	// Resume an hour later; the pause must not count.
	resumed := Resume(paused, at(4200))
	assert.Equal(t, at(3600), resumed.StartTime)
	assert.False(t, IsComplete(resumed, at(4200+899)))
	assert.True(t, IsComplete(resumed, at(4200+900)))
}

func TestPauseResume_KeepsSubSecondTime(t *testing.T) {
	r := NewPhase(ModeWork, "", 0, 1500, t0)
	now := t0
	for i := 0; i < 10; i++ {
		now = now.Add(1900 * time.Millisecond)
		paused := Pause(r, now)
		assert.Equal(t, 1900*time.Duration(i+1)*time.Millisecond, paused.Ran)
		r = Resume(paused, now)
	}
	assert.Equal(t, 19, Elapsed(r, now))
	assert.Equal(t, t0, r.StartTime)
}

func TestResume_WithoutRanFallsBackToSeconds(t *testing.T) {
	paused := Paused{Phase: NewPhase(ModeWork, "", 0, 1500, t0).Phase, RemainingSec: 1380}
	resumed := Resume(paused, at(1000))
	assert.Equal(t, at(880), resumed.StartTime)
	assert.Equal(t, 120, Elapsed(resumed, at(1000)))
}

func TestProgress(t *testing.T) {
	r := NewPhase(ModeWork, "", 0, 200, t0)
	assert.InDelta(t, 0.0, Progress(r, t0), 1e-9)
	assert.InDelta(t, 0.5, Progress(r, at(100)), 1e-9)
	assert.InDelta(t, 1.0, Progress(r, at(900)), 1e-9)
}

func TestNextMode(t *testing.T) {
	assert.Equal(t, ModeShortBreak, NextMode(ModeWork, 1, 4))
	assert.Equal(t, ModeShortBreak, NextMode(ModeWork, 3, 4))
	assert.Equal(t, ModeLongBreak, NextMode(ModeWork, 4, 4))
	assert.Equal(t, ModeLongBreak, NextMode(ModeWork, 5, 4))
	assert.Equal(t, ModeLongBreak, NextMode(ModeWork, 2, 2))
	assert.Equal(t, ModeWork, NextMode(ModeShortBreak, 4, 4))
	assert.Equal(t, ModeWork, NextMode(ModeLongBreak, 0, 4))
}

func TestSettingsValidate(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())

	bad := DefaultSettings()
	bad.WorkMinutes = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidSettings)

	bad = DefaultSettings()
	bad.CyclesBeforeLongBreak = MaxCycles + 1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidSettings)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("longBreak")
	require.NoError(t, err)
	assert.Equal(t, ModeLongBreak, mode)

	_, err = ParseMode("nap")
	assert.ErrorIs(t, err, ErrInvalidMode)
}
