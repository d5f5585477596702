package service

import (
	"context"
	"math"

	apperrors "focusjournal/backend/internal/errors"
	"focusjournal/backend/internal/model"
	"focusjournal/backend/internal/repository"
	"focusjournal/backend/internal/timer"
)

type StatsRange string

const (
	RangeDaily   StatsRange = "daily"
	RangeWeekly  StatsRange = "weekly"
	RangeMonthly StatsRange = "monthly"
)

const (
	// StreakWindowDays bounds how far back a focus streak is counted.
	StreakWindowDays = 30
	// WeeklyGoalMinutes is the focus target the goal progress is measured against.
	WeeklyGoalMinutes = 15 * 60
)

// ParseStatsRange defaults to weekly.
func ParseStatsRange(raw string) (StatsRange, bool) {
	switch StatsRange(raw) {
	case "":
		return RangeWeekly, true
	case RangeDaily, RangeWeekly, RangeMonthly:
		return StatsRange(raw), true
	}
	return "", false
}

// Days is the number of calendar days the range covers, today included.
func (r StatsRange) Days() int {
	switch r {
	case RangeDaily:
		return 1
	case RangeMonthly:
		return 31
	default:
		return 8
	}
}

type StatsTotals struct {
	TotalTasks        int `json:"totalTasks"`
	CompletedTasks    int `json:"completedTasks"`
	CompletionRate    int `json:"completionRate"`
	TotalFocusMinutes int `json:"totalFocusMinutes"`
	ReflectionDays    int `json:"reflectionDays"`
	TotalDays         int `json:"totalDays"`
}

type DayStats struct {
	Date           string `json:"date"`
	TotalTasks     int    `json:"totalTasks"`
	CompletedTasks int    `json:"completedTasks"`
	CompletionRate int    `json:"completionRate"`
	FocusMinutes   int    `json:"focusMinutes"`
	HasReflection  bool   `json:"hasReflection"`
}

type HourStats struct {
	Hour     int `json:"hour"`
	Minutes  int `json:"minutes"`
	Sessions int `json:"sessions"`
}

type Stats struct {
	Range        StatsRange  `json:"range"`
	From         string      `json:"from"`
	To           string      `json:"to"`
	Totals       StatsTotals `json:"totals"`
	Days         []DayStats  `json:"days"`
	Hours        []HourStats `json:"hours"`
	BestDay      *DayStats   `json:"bestDay"`
	WorstDay     *DayStats   `json:"worstDay"`
	StreakDays   int         `json:"streakDays"`
	GoalProgress float64     `json:"goalProgress"`
}

type StatsService struct {
	tasks       *repository.TaskRepository
	reflections *repository.ReflectionRepository
	timer       *TimerService
	calendar    *Calendar
}

func NewStatsService(
	tasks *repository.TaskRepository,
	reflections *repository.ReflectionRepository,
	timerService *TimerService,
	calendar *Calendar,
) *StatsService {
	return &StatsService{tasks: tasks, reflections: reflections, timer: timerService, calendar: calendar}
}

// Summary aggregates the user's journal over the days of rangeKind ending today.
func (s *StatsService) Summary(ctx context.Context, userID string, rangeKind StatsRange) (*Stats, *apperrors.APIError) {
	if _, apiErr := s.timer.GetState(ctx, userID); apiErr != nil {
		return nil, apiErr
	}

	today := s.calendar.Today()
	days, err := s.calendar.DaysEndingAt(today, rangeKind.Days())
	if err != nil {
		return nil, internalError(err, "failed to compute stats range")
	}
	first, last := days[0], days[len(days)-1]

	tasks, err := s.tasks.ListBetween(ctx, userID, first, last)
	if err != nil {
		return nil, internalError(err, "failed to list tasks")
	}
	reflections, err := s.reflections.ListBetween(ctx, userID, first, last)
	if err != nil {
		return nil, internalError(err, "failed to list reflections")
	}

	// Sessions cover both the range and the streak window.
	windowDays := max(len(days), StreakWindowDays)
	window, err := s.calendar.DaysEndingAt(today, windowDays)
	if err != nil {
		return nil, internalError(err, "failed to compute streak window")
	}
	from, _, err := s.calendar.DayBounds(window[0])
	if err != nil {
		return nil, internalError(err, "failed to compute day bounds")
	}
	_, to, err := s.calendar.DayBounds(today)
	if err != nil {
		return nil, internalError(err, "failed to compute day bounds")
	}
	sessions, apiErr := s.timer.SessionsBetween(ctx, userID, from, to)
	if apiErr != nil {
		return nil, apiErr
	}

	minutesByDay := make(map[string]int)
	hours := make([]HourStats, 24)
	for hour := range hours {
		hours[hour].Hour = hour
	}
	rangeStart, _, err := s.calendar.DayBounds(first)
	if err != nil {
		return nil, internalError(err, "failed to compute day bounds")
	}
	for _, session := range sessions {
		if session.Type != timer.ModeWork {
			continue
		}
		start := session.StartTime.In(s.calendar.loc)
		minutes := roundedMinutes(session.DurationSec)
		minutesByDay[start.Format(model.DateLayout)] += minutes
		if !start.Before(rangeStart) {
			hours[start.Hour()].Minutes += minutes
			hours[start.Hour()].Sessions++
		}
	}

	stats := &Stats{
		Range:      rangeKind,
		From:       first,
		To:         last,
		Days:       buildDayStats(days, tasks, reflections, minutesByDay),
		Hours:      hours,
		StreakDays: focusStreak(window, minutesByDay),
	}
	stats.Totals = totals(stats.Days)
	stats.BestDay, stats.WorstDay = bestAndWorst(stats.Days)
	stats.GoalProgress = math.Min(100, float64(stats.Totals.TotalFocusMinutes)/WeeklyGoalMinutes*100)
	return stats, nil
}

func buildDayStats(days []string, tasks []model.Task, reflections []model.Reflection, minutesByDay map[string]int) []DayStats {
	byDate := make(map[string]*DayStats, len(days))
	out := make([]DayStats, len(days))
	for i, date := range days {
		out[i] = DayStats{Date: date, FocusMinutes: minutesByDay[date]}
		byDate[date] = &out[i]
	}
	for _, task := range tasks {
		day, ok := byDate[task.Date]
		if !ok {
			continue
		}
		day.TotalTasks++
		if task.Done {
			day.CompletedTasks++
		}
	}
	for _, reflection := range reflections {
		if day, ok := byDate[reflection.Date]; ok {
			day.HasReflection = true
		}
	}
	for i := range out {
		out[i].CompletionRate = percent(out[i].CompletedTasks, out[i].TotalTasks)
	}
	return out
}

func totals(days []DayStats) StatsTotals {
	t := StatsTotals{TotalDays: len(days)}
	for _, day := range days {
		t.TotalTasks += day.TotalTasks
		t.CompletedTasks += day.CompletedTasks
		t.TotalFocusMinutes += day.FocusMinutes
		if day.HasReflection {
			t.ReflectionDays++
		}
	}
	t.CompletionRate = percent(t.CompletedTasks, t.TotalTasks)
	return t
}

// bestAndWorst compares focus minutes; the earliest day wins a tie.
func bestAndWorst(days []DayStats) (*DayStats, *DayStats) {
	if len(days) == 0 {
		return nil, nil
	}
	best, worst := days[0], days[0]
	for _, day := range days[1:] {
		if day.FocusMinutes > best.FocusMinutes {
			best = day
		}
		if day.FocusMinutes < worst.FocusMinutes {
			worst = day
		}
	}
	return &best, &worst
}

// focusStreak counts consecutive days with focus time, walking back from the
// last day of window.
func focusStreak(window []string, minutesByDay map[string]int) int {
	streak := 0
	for i := len(window) - 1; i >= 0 && streak < StreakWindowDays; i-- {
		if minutesByDay[window[i]] <= 0 {
			break
		}
		streak++
	}
	return streak
}

func roundedMinutes(durationSec int) int {
	return int(math.Round(float64(durationSec) / 60))
}

func percent(part, whole int) int {
	if whole == 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(whole) * 100))
}
