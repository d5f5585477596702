package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"focusjournal/backend/internal/model"
	"focusjournal/backend/internal/timer"
)

type TimerRepository struct {
	db *sqlx.DB
}

type timerStateRow struct {
	UserID          string         `db:"user_id"`
	Status          string         `db:"status"`
	Mode            sql.NullString `db:"mode"`
	StartTime       sql.NullString `db:"start_time"`
	DurationSec     int            `db:"duration_sec"`
	RemainingSec    int            `db:"remaining_sec"`
	PausedRanNs     int64          `db:"paused_ran_ns"`
	CyclesCompleted int            `db:"cycles_completed"`
	TaskID          sql.NullString `db:"task_id"`
	NextMode        sql.NullString `db:"next_mode"`
	Version         int            `db:"version"`
	UpdatedAt       string         `db:"updated_at"`
}

type timerSettingsRow struct {
	WorkMinutes           int  `db:"work_minutes"`
	ShortBreakMinutes     int  `db:"short_break_minutes"`
	LongBreakMinutes      int  `db:"long_break_minutes"`
	CyclesBeforeLongBreak int  `db:"cycles_before_long_break"`
	AutoAdvance           bool `db:"auto_advance"`
	AutoResumeWork        bool `db:"auto_resume_work"`
}

type focusSessionRow struct {
	ID          string         `db:"id"`
	UserID      string         `db:"user_id"`
	TaskID      sql.NullString `db:"task_id"`
	Type        string         `db:"type"`
	StartTime   string         `db:"start_time"`
	EndTime     string         `db:"end_time"`
	DurationSec int            `db:"duration_sec"`
	Completed   bool           `db:"completed"`
	CreatedAt   string         `db:"created_at"`
}

const selectTimerState = `SELECT user_id, status, mode, start_time, duration_sec, remaining_sec,
		paused_ran_ns, cycles_completed, task_id, next_mode, version, updated_at
	 FROM timer_states WHERE user_id = ?`

const selectFocusSession = `SELECT id, user_id, task_id, type, start_time, end_time,
		duration_sec, completed, created_at
	 FROM focus_sessions`

func NewTimerRepository(db *sqlx.DB) *TimerRepository {
	return &TimerRepository{db: db}
}

func (r *TimerRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

func (r *TimerRepository) CreateInitialStateTx(ctx context.Context, tx *sqlx.Tx, userID string, settings timer.Settings) error {
	now := formatTime(time.Now())
	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO timer_states (user_id, status, next_mode, version, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		userID,
		model.StatusIdle,
		string(timer.ModeWork),
		1,
		now,
	); err != nil {
		return fmt.Errorf("create initial state: %w", err)
	}

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO timer_settings (
			user_id, work_minutes, short_break_minutes, long_break_minutes,
			cycles_before_long_break, auto_advance, auto_resume_work, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		userID,
		settings.WorkMinutes,
		settings.ShortBreakMinutes,
		settings.LongBreakMinutes,
		settings.CyclesBeforeLongBreak,
		settings.AutoAdvance,
		settings.AutoResumeWork,
		now,
	); err != nil {
		return fmt.Errorf("create initial settings: %w", err)
	}
	return nil
}

func (r *TimerRepository) GetStateTx(ctx context.Context, tx *sqlx.Tx, userID string) (*model.TimerRecord, error) {
	var row timerStateRow
	if err := tx.GetContext(ctx, &row, selectTimerState, userID); err != nil {
		if err = notFound(err); err == ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("get state: %w", err)
	}
	return row.toRecord()
}

func (r *TimerRepository) UpdateStateTx(ctx context.Context, tx *sqlx.Tx, record *model.TimerRecord) error {
	row := timerStateRow{
		UserID:    record.UserID,
		Status:    model.StatusIdle,
		Version:   record.Version,
		UpdatedAt: formatTime(record.UpdatedAt),
	}

	switch state := record.State.(type) {
	case timer.Running:
		row.Status = model.StatusRunning
		row.fillPhase(state.Phase)
	case timer.Paused:
		row.Status = model.StatusPaused
		row.fillPhase(state.Phase)
		row.RemainingSec = state.RemainingSec
		row.PausedRanNs = int64(state.Ran)
	case timer.Idle:
		row.CyclesCompleted = state.CyclesCompleted
		row.NextMode = nullableString(string(state.NextMode))
	}

	_, err := tx.ExecContext(
		ctx,
		`UPDATE timer_states
		 SET status = ?,
		     mode = ?,
		     start_time = ?,
		     duration_sec = ?,
		     remaining_sec = ?,
		     paused_ran_ns = ?,
		     cycles_completed = ?,
		     task_id = ?,
		     next_mode = ?,
		     version = ?,
		     updated_at = ?
		 WHERE user_id = ?`,
		row.Status,
		row.Mode,
		row.StartTime,
		row.DurationSec,
		row.RemainingSec,
		row.PausedRanNs,
		row.CyclesCompleted,
		row.TaskID,
		row.NextMode,
		row.Version,
		row.UpdatedAt,
		row.UserID,
	)
	if err != nil {
		return fmt.Errorf("update state: %w", err)
	}
	return nil
}

// ListUserIDsByStatus returns the users whose timer is in the given status.
func (r *TimerRepository) ListUserIDsByStatus(ctx context.Context, status string) ([]string, error) {
	userIDs := make([]string, 0)
	if err := r.db.SelectContext(
		ctx,
		&userIDs,
		`SELECT user_id FROM timer_states WHERE status = ? ORDER BY user_id`,
		status,
	); err != nil {
		return nil, fmt.Errorf("list users by status: %w", err)
	}
	return userIDs, nil
}

func (r *TimerRepository) GetSettings(ctx context.Context, userID string) (timer.Settings, error) {
	return getSettings(ctx, r.db, userID)
}

func (r *TimerRepository) GetSettingsTx(ctx context.Context, tx *sqlx.Tx, userID string) (timer.Settings, error) {
	return getSettings(ctx, tx, userID)
}

func getSettings(ctx context.Context, q Queryer, userID string) (timer.Settings, error) {
	var row timerSettingsRow
	err := q.GetContext(
		ctx,
		&row,
		`SELECT work_minutes, short_break_minutes, long_break_minutes,
		        cycles_before_long_break, auto_advance, auto_resume_work
		 FROM timer_settings WHERE user_id = ?`,
		userID,
	)
	if err != nil {
		if err = notFound(err); err == ErrNotFound {
			return timer.Settings{}, err
		}
		return timer.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return timer.Settings{
		WorkMinutes:           row.WorkMinutes,
		ShortBreakMinutes:     row.ShortBreakMinutes,
		LongBreakMinutes:      row.LongBreakMinutes,
		CyclesBeforeLongBreak: row.CyclesBeforeLongBreak,
		AutoAdvance:           row.AutoAdvance,
		AutoResumeWork:        row.AutoResumeWork,
	}, nil
}

func (r *TimerRepository) UpdateSettings(ctx context.Context, userID string, settings timer.Settings) error {
	result, err := r.db.ExecContext(
		ctx,
		`UPDATE timer_settings
		 SET work_minutes = ?,
		     short_break_minutes = ?,
		     long_break_minutes = ?,
		     cycles_before_long_break = ?,
		     auto_advance = ?,
		     auto_resume_work = ?,
		     updated_at = ?
		 WHERE user_id = ?`,
		settings.WorkMinutes,
		settings.ShortBreakMinutes,
		settings.LongBreakMinutes,
		settings.CyclesBeforeLongBreak,
		settings.AutoAdvance,
		settings.AutoResumeWork,
		formatTime(time.Now()),
		userID,
	)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return affectedOrNotFound(result)
}

func (r *TimerRepository) InsertSessionTx(ctx context.Context, tx *sqlx.Tx, session *model.FocusSession) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO focus_sessions (
			id, user_id, task_id, type, start_time, end_time, duration_sec, completed, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.UserID,
		nullableString(session.TaskID),
		string(session.Type),
		formatTime(session.StartTime),
		formatTime(session.EndTime),
		session.DurationSec,
		session.Completed,
		formatTime(session.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *TimerRepository) ListSessions(ctx context.Context, userID string, limit int) ([]model.FocusSession, error) {
	rows := make([]focusSessionRow, 0, limit)
	if err := r.db.SelectContext(
		ctx,
		&rows,
		selectFocusSession+` WHERE user_id = ? ORDER BY start_time DESC LIMIT ?`,
		userID,
		limit,
	); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return toFocusSessions(rows)
}

// ListSessionsBetween returns sessions that started in [from, to).
func (r *TimerRepository) ListSessionsBetween(ctx context.Context, userID string, from, to time.Time) ([]model.FocusSession, error) {
	rows := make([]focusSessionRow, 0)
	if err := r.db.SelectContext(
		ctx,
		&rows,
		selectFocusSession+` WHERE user_id = ? AND start_time >= ? AND start_time < ? ORDER BY start_time`,
		userID,
		formatTime(from),
		formatTime(to),
	); err != nil {
		return nil, fmt.Errorf("list sessions between: %w", err)
	}
	return toFocusSessions(rows)
}

func (r *TimerRepository) DeleteSession(ctx context.Context, userID, sessionID string) error {
	result, err := r.db.ExecContext(
		ctx,
		`DELETE FROM focus_sessions WHERE id = ? AND user_id = ?`,
		sessionID,
		userID,
	)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return affectedOrNotFound(result)
}

func (row *timerStateRow) fillPhase(phase timer.Phase) {
	row.Mode = nullableString(string(phase.Mode))
	row.StartTime = nullableTime(phase.StartTime)
	row.DurationSec = phase.DurationSec
	row.CyclesCompleted = phase.CyclesCompleted
	row.TaskID = nullableString(phase.TaskID)
}

func (row timerStateRow) toRecord() (*model.TimerRecord, error) {
	updatedAt, err := parseTime(row.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse state updated_at: %w", err)
	}
	record := &model.TimerRecord{
		UserID:    row.UserID,
		Version:   row.Version,
		UpdatedAt: updatedAt,
	}

	if row.Status == model.StatusIdle {
		record.State = timer.Idle{
			CyclesCompleted: row.CyclesCompleted,
			NextMode:        timer.Mode(row.NextMode.String),
		}
		return record, nil
	}

	mode, err := timer.ParseMode(row.Mode.String)
	if err != nil {
		return nil, fmt.Errorf("parse state mode %q: %w", row.Mode.String, err)
	}
	startTime, err := parseTime(row.StartTime.String)
	if err != nil {
		return nil, fmt.Errorf("parse state start_time: %w", err)
	}
	phase := timer.Phase{
		Mode:            mode,
		StartTime:       startTime,
		DurationSec:     row.DurationSec,
		CyclesCompleted: row.CyclesCompleted,
		TaskID:          row.TaskID.String,
	}

	switch row.Status {
	case model.StatusRunning:
		record.State = timer.Running{Phase: phase}
	case model.StatusPaused:
		record.State = timer.Paused{
			Phase:        phase,
			RemainingSec: row.RemainingSec,
			Ran:          time.Duration(row.PausedRanNs),
		}
	default:
		return nil, fmt.Errorf("unknown timer status %q", row.Status)
	}
	return record, nil
}

func toFocusSessions(rows []focusSessionRow) ([]model.FocusSession, error) {
	sessions := make([]model.FocusSession, 0, len(rows))
	for _, row := range rows {
		startTime, err := parseTime(row.StartTime)
		if err != nil {
			return nil, fmt.Errorf("parse session start_time: %w", err)
		}
		endTime, err := parseTime(row.EndTime)
		if err != nil {
			return nil, fmt.Errorf("parse session end_time: %w", err)
		}
		createdAt, err := parseTime(row.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse session created_at: %w", err)
		}
		sessions = append(sessions, model.FocusSession{
			FocusSession: timer.FocusSession{
				ID:          row.ID,
				TaskID:      row.TaskID.String,
				StartTime:   startTime,
				EndTime:     endTime,
				DurationSec: row.DurationSec,
				Completed:   row.Completed,
				Type:        timer.Mode(row.Type),
			},
			UserID:    row.UserID,
			CreatedAt: createdAt,
		})
	}
	return sessions, nil
}
