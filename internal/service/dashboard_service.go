package service

import (
	"context"
	"math"

	apperrors "focusjournal/backend/internal/errors"
	"focusjournal/backend/internal/model"
	"focusjournal/backend/internal/timer"
)

type DashboardService struct {
	tasks    *TaskService
	courses  *CourseService
	timer    *TimerService
	calendar *Calendar
}

type Dashboard struct {
	Date               string             `json:"date"`
	Tasks              []model.Task       `json:"tasks"`
	ProgressPercent    int                `json:"progressPercent"`
	FocusMinutesToday  int                `json:"focusMinutesToday"`
	OverdueAssignments []model.Assignment `json:"overdueAssignments"`
	Timer              *StateView         `json:"timer"`
}

func NewDashboardService(tasks *TaskService, courses *CourseService, timerService *TimerService, calendar *Calendar) *DashboardService {
	return &DashboardService{tasks: tasks, courses: courses, timer: timerService, calendar: calendar}
}

func (s *DashboardService) Summary(ctx context.Context, userID string) (*Dashboard, *apperrors.APIError) {
	// Settle the timer first so a phase that just ran out counts today.
	state, apiErr := s.timer.GetState(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	today := s.calendar.Today()

	tasks, apiErr := s.tasks.List(ctx, userID, today)
	if apiErr != nil {
		return nil, apiErr
	}

	from, to, err := s.calendar.DayBounds(today)
	if err != nil {
		return nil, internalError(err, "failed to compute day bounds")
	}
	sessions, apiErr := s.timer.SessionsBetween(ctx, userID, from, to)
	if apiErr != nil {
		return nil, apiErr
	}

	overdue, apiErr := s.courses.Overdue(ctx, userID)
	if apiErr != nil {
		return nil, apiErr
	}

	return &Dashboard{
		Date:               today,
		Tasks:              tasks,
		ProgressPercent:    TaskProgress(tasks),
		FocusMinutesToday:  FocusMinutes(sessions),
		OverdueAssignments: overdue,
		Timer:              state,
	}, nil
}

// TaskProgress is the rounded percentage of done tasks, 0 for no tasks.
func TaskProgress(tasks []model.Task) int {
	if len(tasks) == 0 {
		return 0
	}
	done := 0
	for _, task := range tasks {
		if task.Done {
			done++
		}
	}
	return int(math.Round(float64(done) / float64(len(tasks)) * 100))
}

// FocusMinutes sums the whole minutes of the work sessions.
func FocusMinutes(sessions []model.FocusSession) int {
	total := 0
	for _, session := range sessions {
		if session.Type == timer.ModeWork {
			total += session.DurationSec / 60
		}
	}
	return total
}
