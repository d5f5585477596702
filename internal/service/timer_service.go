package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	apperrors "focusjournal/backend/internal/errors"
	"focusjournal/backend/internal/model"
	"focusjournal/backend/internal/repository"
	"focusjournal/backend/internal/timer"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	// EventTimerState is the event name used when a timer state is published.
	EventTimerState = "timer_state"
)

// Publisher receives every committed timer state.
type Publisher interface {
	Publish(userID, event string, payload interface{})
}

type TimerService struct {
	repo      *repository.TimerRepository
	machine   *timer.Machine
	publisher Publisher
	now       func() time.Time
}

type TimerOption func(*TimerService)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) TimerOption {
	return func(s *TimerService) {
		s.now = now
	}
}

func WithPublisher(publisher Publisher) TimerOption {
	return func(s *TimerService) {
		s.publisher = publisher
	}
}

type StateView struct {
	Status          string     `json:"status"`
	Mode            string     `json:"mode,omitempty"`
	NextMode        string     `json:"nextMode"`
	DurationSec     int        `json:"durationSec"`
	ElapsedSec      int        `json:"elapsedSec"`
	RemainingSec    int        `json:"remainingSec"`
	Progress        float64    `json:"progress"`
	CyclesCompleted int        `json:"cyclesCompleted"`
	TaskID          string     `json:"taskId,omitempty"`
	StartTime       *time.Time `json:"startTime,omitempty"`
	Version         int        `json:"version"`
	UpdatedAt       time.Time  `json:"updatedAt"`
	ServerTime      time.Time  `json:"serverTime"`
}

type StartInput struct {
	BaseVersion int
	Mode        string
	TaskID      string
}

func NewTimerService(repo *repository.TimerRepository, policy timer.Policy, opts ...TimerOption) *TimerService {
	s := &TimerService{
		repo:    repo,
		machine: timer.NewMachine(policy, uuid.NewString),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TimerService) GetState(ctx context.Context, userID string) (*StateView, *apperrors.APIError) {
	return s.apply(ctx, userID, 0, timer.Event{Kind: timer.EventTick})
}

func (s *TimerService) Start(ctx context.Context, userID string, input StartInput) (*StateView, *apperrors.APIError) {
	mode := timer.ModeWork
	if input.Mode != "" {
		parsed, err := timer.ParseMode(input.Mode)
		if err != nil {
			return nil, apperrors.BadRequest("invalid_mode", "mode must be one of work, shortBreak, longBreak")
		}
		mode = parsed
	}
	return s.apply(ctx, userID, input.BaseVersion, timer.StartEvent(mode, input.TaskID))
}

func (s *TimerService) Pause(ctx context.Context, userID string, baseVersion int) (*StateView, *apperrors.APIError) {
	return s.apply(ctx, userID, baseVersion, timer.Event{Kind: timer.EventPause})
}

func (s *TimerService) Resume(ctx context.Context, userID string, baseVersion int) (*StateView, *apperrors.APIError) {
	return s.apply(ctx, userID, baseVersion, timer.Event{Kind: timer.EventResume})
}

func (s *TimerService) Stop(ctx context.Context, userID string, baseVersion int) (*StateView, *apperrors.APIError) {
	return s.apply(ctx, userID, baseVersion, timer.Event{Kind: timer.EventStop})
}

func (s *TimerService) Skip(ctx context.Context, userID string, baseVersion int) (*StateView, *apperrors.APIError) {
	return s.apply(ctx, userID, baseVersion, timer.Event{Kind: timer.EventSkip})
}

// Tick settles the user's timer against the clock. It is what the ticker
// calls for every running timer.
func (s *TimerService) Tick(ctx context.Context, userID string) (*StateView, *apperrors.APIError) {
	return s.apply(ctx, userID, 0, timer.Event{Kind: timer.EventTick})
}

func (s *TimerService) ListRunningUsers(ctx context.Context) ([]string, error) {
	return s.repo.ListUserIDsByStatus(ctx, model.StatusRunning)
}

func (s *TimerService) GetSettings(ctx context.Context, userID string) (*timer.Settings, *apperrors.APIError) {
	settings, err := s.repo.GetSettings(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("settings_not_found", "timer settings not found")
	}
	if err != nil {
		return nil, internalError(err, "failed to get settings")
	}
	return &settings, nil
}

// UpdateSettings replaces the user's settings. A phase already in progress
// keeps its duration.
func (s *TimerService) UpdateSettings(ctx context.Context, userID string, settings timer.Settings) (*timer.Settings, *apperrors.APIError) {
	if err := settings.Validate(); err != nil {
		return nil, apperrors.BadRequest(
			"invalid_settings",
			"durations must be between 1 and 180 minutes and cycles between 1 and 12",
		)
	}

	err := s.repo.UpdateSettings(ctx, userID, settings)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("settings_not_found", "timer settings not found")
	}
	if err != nil {
		return nil, internalError(err, "failed to update settings")
	}

	// Published exactly once, reconciled or not; the idle duration follows the settings.
	if view, _, apiErr := s.run(ctx, userID, 0, timer.Event{Kind: timer.EventTick}); apiErr == nil {
		s.publish(userID, view)
	}
	return &settings, nil
}

func (s *TimerService) History(ctx context.Context, userID string, limit int) ([]model.FocusSession, *apperrors.APIError) {
	if limit <= 0 || limit > maxHistoryLimit {
		limit = defaultHistoryLimit
	}
	sessions, err := s.repo.ListSessions(ctx, userID, limit)
	if err != nil {
		return nil, internalError(err, "failed to get history")
	}
	return sessions, nil
}

// SessionsBetween returns the sessions that started in [from, to).
func (s *TimerService) SessionsBetween(ctx context.Context, userID string, from, to time.Time) ([]model.FocusSession, *apperrors.APIError) {
	sessions, err := s.repo.ListSessionsBetween(ctx, userID, from, to)
	if err != nil {
		return nil, internalError(err, "failed to get sessions")
	}
	return sessions, nil
}

func (s *TimerService) DeleteSession(ctx context.Context, userID, sessionID string) *apperrors.APIError {
	err := s.repo.DeleteSession(ctx, userID, sessionID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound("session_not_found", "focus session not found")
	}
	if err != nil {
		return internalError(err, "failed to delete session")
	}
	return nil
}

// apply runs ev and publishes the resulting state when it changed.
func (s *TimerService) apply(ctx context.Context, userID string, baseVersion int, ev timer.Event) (*StateView, *apperrors.APIError) {
	view, changed, apiErr := s.run(ctx, userID, baseVersion, ev)
	if apiErr != nil {
		return nil, apiErr
	}
	if changed {
		s.publish(userID, view)
	}
	return view, nil
}

// run executes one event inside a transaction. The stored state is reconciled
// first, then checked against baseVersion, then the event is applied.
func (s *TimerService) run(ctx context.Context, userID string, baseVersion int, ev timer.Event) (*StateView, bool, *apperrors.APIError) {
	now := s.now().UTC()
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, false, internalError(err, "failed to start transaction")
	}
	defer tx.Rollback()

	record, settings, changed, apiErr := s.getStateForUpdate(ctx, tx, userID, now)
	if apiErr != nil {
		return nil, false, apiErr
	}

	if apiErr := s.ensureVersion(baseVersion, record, settings, now); apiErr != nil {
		return nil, false, apiErr
	}

	if ev.Kind != timer.EventTick {
		outcome, err := s.machine.Apply(record.State, ev, settings, now)
		switch {
		case errors.Is(err, timer.ErrNoActivePhase):
			view := toStateView(record, settings, now)
			return nil, false, apperrors.Conflict("no_active_phase", "timer is not running", map[string]interface{}{
				"state": view,
			})
		case errors.Is(err, timer.ErrInvalidMode):
			return nil, false, apperrors.BadRequest("invalid_mode", "mode must be one of work, shortBreak, longBreak")
		case err != nil:
			return nil, false, internalError(err, "failed to apply timer event")
		}

		if outcome.Changed {
			if apiErr := s.persist(ctx, tx, record, outcome, now); apiErr != nil {
				return nil, false, apiErr
			}
			changed = true
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, internalError(err, "failed to commit transaction")
	}

	view := toStateView(record, settings, now)
	return &view, changed, nil
}

// getStateForUpdate loads the state and settles a phase that ran out since
// the last request. changed reports whether that wrote anything.
func (s *TimerService) getStateForUpdate(
	ctx context.Context,
	tx *sqlx.Tx,
	userID string,
	now time.Time,
) (*model.TimerRecord, timer.Settings, bool, *apperrors.APIError) {
	record, err := s.repo.GetStateTx(ctx, tx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, timer.Settings{}, false, apperrors.NotFound("state_not_found", "timer state not found")
	}
	if err != nil {
		return nil, timer.Settings{}, false, internalError(err, "failed to get state")
	}

	settings, err := s.repo.GetSettingsTx(ctx, tx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		settings = timer.DefaultSettings()
	} else if err != nil {
		return nil, timer.Settings{}, false, internalError(err, "failed to get settings")
	}

	outcome := s.machine.Reconcile(record.State, settings, now)
	if !outcome.Changed {
		return record, settings, false, nil
	}
	if apiErr := s.persist(ctx, tx, record, outcome, now); apiErr != nil {
		return nil, timer.Settings{}, false, apiErr
	}
	return record, settings, true, nil
}

// persist writes the sessions of outcome and the new state, bumping the
// version of record in place.
func (s *TimerService) persist(ctx context.Context, tx *sqlx.Tx, record *model.TimerRecord, outcome timer.Outcome, now time.Time) *apperrors.APIError {
	for _, finished := range outcome.Sessions {
		session := model.FocusSession{
			FocusSession: finished,
			UserID:       record.UserID,
			CreatedAt:    now,
		}
		if err := s.repo.InsertSessionTx(ctx, tx, &session); err != nil {
			return internalError(err, "failed to record focus session")
		}
	}

	record.State = outcome.State
	record.UpdatedAt = now
	record.Version++
	if err := s.repo.UpdateStateTx(ctx, tx, record); err != nil {
		return internalError(err, "failed to update state")
	}
	return nil
}

func (s *TimerService) ensureVersion(baseVersion int, record *model.TimerRecord, settings timer.Settings, now time.Time) *apperrors.APIError {
	if baseVersion <= 0 || baseVersion == record.Version {
		return nil
	}
	view := toStateView(record, settings, now)
	return apperrors.Conflict("state_conflict", "state changed on another device", map[string]interface{}{
		"state": view,
	})
}

func (s *TimerService) publish(userID string, view *StateView) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(userID, EventTimerState, view)
}

func toStateView(record *model.TimerRecord, settings timer.Settings, now time.Time) StateView {
	view := StateView{
		Status:     model.StatusIdle,
		Version:    record.Version,
		UpdatedAt:  record.UpdatedAt,
		ServerTime: now,
	}

	switch state := record.State.(type) {
	case timer.Active:
		phase := timer.PhaseOf(state)
		view.Mode = string(phase.Mode)
		view.NextMode = string(upcomingMode(phase, settings))
		view.DurationSec = phase.DurationSec
		view.ElapsedSec = timer.Elapsed(state, now)
		view.RemainingSec = timer.Remaining(state, now)
		view.Progress = timer.Progress(state, now)
		view.CyclesCompleted = phase.CyclesCompleted
		view.TaskID = phase.TaskID
		startTime := phase.StartTime
		view.StartTime = &startTime
		view.Status = model.StatusRunning
		if _, paused := state.(timer.Paused); paused {
			view.Status = model.StatusPaused
		}
	case timer.Idle:
		next := state.NextMode
		if next == "" {
			next = timer.ModeWork
		}
		view.NextMode = string(next)
		view.DurationSec = settings.DurationSec(next)
		view.RemainingSec = view.DurationSec
		view.CyclesCompleted = state.CyclesCompleted
	}
	return view
}

func upcomingMode(phase timer.Phase, settings timer.Settings) timer.Mode {
	if phase.Mode != timer.ModeWork {
		return timer.ModeWork
	}
	return timer.NextMode(timer.ModeWork, phase.CyclesCompleted+1, settings.CyclesBeforeLongBreak)
}

// internalError logs err and hides it from the client.
func internalError(err error, message string) *apperrors.APIError {
	log.Error().Err(err).Msg(message)
	return apperrors.InternalCause(err, message)
}
