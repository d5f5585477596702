package router_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusjournal/backend/internal/db"
	"focusjournal/backend/internal/handler"
	"focusjournal/backend/internal/realtime"
	"focusjournal/backend/internal/repository"
	"focusjournal/backend/internal/router"
	"focusjournal/backend/internal/service"
	"focusjournal/backend/internal/timer"
)

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"user"`
}

type stateView struct {
	Status          string `json:"status"`
	Mode            string `json:"mode"`
	NextMode        string `json:"nextMode"`
	DurationSec     int    `json:"durationSec"`
	RemainingSec    int    `json:"remainingSec"`
	CyclesCompleted int    `json:"cyclesCompleted"`
	Version         int    `json:"version"`
}

type stateEnvelope struct {
	State stateView `json:"state"`
}

type historyEnvelope struct {
	Sessions []struct {
		ID          string `json:"id"`
		Type        string `json:"type"`
		DurationSec int    `json:"durationSec"`
		Completed   bool   `json:"completed"`
		TaskID      string `json:"taskId"`
	} `json:"sessions"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details struct {
			State stateView `json:"state"`
		} `json:"details"`
	} `json:"error"`
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	engine http.Handler
	hub    *realtime.Hub
	clock  *fakeClock
}

func TestTimerSyncAndConflict(t *testing.T) {
	env := setupTestEnv(t)

	user1 := registerUser(t, env.engine, "سارا", "123456")
	user2 := registerUser(t, env.engine, "user2", "123456")

	state1 := getState(t, env.engine, user1.Token)
	require.Equal(t, 1, state1.Version)
	assert.Equal(t, "idle", state1.Status)
	assert.Equal(t, "work", state1.NextMode)
	assert.Equal(t, 1500, state1.RemainingSec)

	status, raw := requestJSON(t, env.engine, http.MethodPost, "/api/timer/start", user1.Token, map[string]interface{}{
		"baseVersion": state1.Version,
		"taskId":      "task-1",
	})
	require.Equal(t, http.StatusOK, status, string(raw))
	started := decode[stateEnvelope](t, raw).State
	assert.Equal(t, "running", started.Status)
	assert.Equal(t, "work", started.Mode)
	assert.Equal(t, 2, started.Version)

	// A second device still holding version 1 must not pause the timer.
	status, raw = requestJSON(t, env.engine, http.MethodPost, "/api/timer/pause", user1.Token, map[string]int{
		"baseVersion": state1.Version,
	})
	require.Equal(t, http.StatusConflict, status)
	conflict := decode[apiErrorEnvelope](t, raw)
	assert.Equal(t, "state_conflict", conflict.Error.Code)
	assert.Equal(t, "running", conflict.Error.Details.State.Status)

	env.clock.Advance(20 * time.Minute)

	status, raw = requestJSON(t, env.engine, http.MethodPost, "/api/timer/stop", user1.Token, map[string]int{
		"baseVersion": conflict.Error.Details.State.Version,
	})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, "idle", decode[stateEnvelope](t, raw).State.Status)

	user2History := getHistory(t, env.engine, user2.Token)
	assert.Empty(t, user2History.Sessions)

	user1History := getHistory(t, env.engine, user1.Token)
	require.Len(t, user1History.Sessions, 1)
	session := user1History.Sessions[0]
	assert.Equal(t, "work", session.Type)
	assert.Equal(t, 1200, session.DurationSec)
	assert.False(t, session.Completed)
	assert.Equal(t, "task-1", session.TaskID)

	status, _ = requestJSON(t, env.engine, http.MethodDelete, "/api/timer/sessions/"+session.ID, user2.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = requestJSON(t, env.engine, http.MethodDelete, "/api/timer/sessions/"+session.ID, user1.Token, nil)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Empty(t, getHistory(t, env.engine, user1.Token).Sessions)
}

func TestTimerCompletesWhileNobodyWatches(t *testing.T) {
	env := setupTestEnv(t)
	user := registerUser(t, env.engine, "reload", "123456")

	state := getState(t, env.engine, user.Token)
	status, raw := requestJSON(t, env.engine, http.MethodPost, "/api/timer/start", user.Token, map[string]int{
		"baseVersion": state.Version,
	})
	require.Equal(t, http.StatusOK, status, string(raw))

	env.clock.Advance(26 * time.Minute)

	reloaded := getState(t, env.engine, user.Token)
	assert.Equal(t, "running", reloaded.Status)
	assert.Equal(t, "shortBreak", reloaded.Mode)
	assert.Equal(t, 1, reloaded.CyclesCompleted)
	assert.Equal(t, 300, reloaded.RemainingSec)

	history := getHistory(t, env.engine, user.Token)
	require.Len(t, history.Sessions, 1)
	assert.Equal(t, 1500, history.Sessions[0].DurationSec)
	assert.True(t, history.Sessions[0].Completed)

	// Reloading again must not record the phase twice.
	getState(t, env.engine, user.Token)
	assert.Len(t, getHistory(t, env.engine, user.Token).Sessions, 1)

	for _, path := range []string{"/api/timer/sessions", "/api/timer/sessions?limit=abc", "/api/timer/sessions?limit=0"} {
		status, raw = requestJSON(t, env.engine, http.MethodGet, path, user.Token, nil)
		require.Equal(t, http.StatusOK, status, path)
		assert.Len(t, decode[historyEnvelope](t, raw).Sessions, 1, path)
	}
}

func TestTimerShortStopAndIdleActions(t *testing.T) {
	env := setupTestEnv(t)
	user := registerUser(t, env.engine, "short", "123456")

	state := getState(t, env.engine, user.Token)
	status, raw := requestJSON(t, env.engine, http.MethodPost, "/api/timer/pause", user.Token, map[string]int{
		"baseVersion": state.Version,
	})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "no_active_phase", decode[apiErrorEnvelope](t, raw).Error.Code)

	status, raw = requestJSON(t, env.engine, http.MethodPost, "/api/timer/start", user.Token, map[string]interface{}{
		"baseVersion": state.Version,
		"mode":        "nap",
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_mode", decode[apiErrorEnvelope](t, raw).Error.Code)

	status, raw = requestJSON(t, env.engine, http.MethodPost, "/api/timer/start", user.Token, map[string]int{
		"baseVersion": state.Version,
	})
	require.Equal(t, http.StatusOK, status, string(raw))

	env.clock.Advance(3 * time.Second)
	status, raw = requestJSON(t, env.engine, http.MethodPost, "/api/timer/stop", user.Token, map[string]int{
		"baseVersion": decode[stateEnvelope](t, raw).State.Version,
	})
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Empty(t, getHistory(t, env.engine, user.Token).Sessions)
}

func TestTimerSettings(t *testing.T) {
	env := setupTestEnv(t)
	user := registerUser(t, env.engine, "settings", "123456")

	status, raw := requestJSON(t, env.engine, http.MethodGet, "/api/timer/settings", user.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var current struct {
		Settings timer.Settings `json:"settings"`
	}
	require.NoError(t, json.Unmarshal(raw, &current))
	assert.Equal(t, timer.DefaultSettings(), current.Settings)

	invalid := timer.DefaultSettings()
	invalid.WorkMinutes = 0
	status, raw = requestJSON(t, env.engine, http.MethodPut, "/api/timer/settings", user.Token, invalid)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_settings", decode[apiErrorEnvelope](t, raw).Error.Code)

	updated := timer.DefaultSettings()
	updated.WorkMinutes = 50
	status, raw = requestJSON(t, env.engine, http.MethodPut, "/api/timer/settings", user.Token, updated)
	require.Equal(t, http.StatusOK, status, string(raw))

	state := getState(t, env.engine, user.Token)
	assert.Equal(t, 3000, state.DurationSec)
}

func TestTimerEventsStream(t *testing.T) {
	env := setupTestEnv(t)
	user := registerUser(t, env.engine, "stream", "123456")
	state := getState(t, env.engine, user.Token)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/timer/events?access_token="+user.Token, nil).WithContext(ctx)
	recorder := newStreamRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		env.engine.ServeHTTP(recorder, req)
	}()

	require.Eventually(t, func() bool {
		return env.hub.SubscriberCount(user.User.ID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	status, raw := requestJSON(t, env.engine, http.MethodPost, "/api/timer/start", user.Token, map[string]int{
		"baseVersion": state.Version,
	})
	require.Equal(t, http.StatusOK, status, string(raw))

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event stream did not end")
	}

	body := recorder.Body.String()
	assert.True(t, strings.HasPrefix(recorder.Header().Get("Content-Type"), "text/event-stream"), recorder.Header().Get("Content-Type"))
	assert.Equal(t, 2, strings.Count(body, "event:"+service.EventTimerState))
	assert.Contains(t, body, `"status":"running"`)
	assert.Equal(t, 0, env.hub.SubscriberCount(user.User.ID))
}

func TestTasksAndDashboard(t *testing.T) {
	env := setupTestEnv(t)
	user := registerUser(t, env.engine, "planner", "123456")

	status, raw := requestJSON(t, env.engine, http.MethodPost, "/api/tasks", user.Token, map[string]string{
		"title":    "خواندن فصل ۳",
		"category": "دانشگاه",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	var created struct {
		Task struct {
			ID   string `json:"id"`
			Date string `json:"date"`
			Done bool   `json:"done"`
		} `json:"task"`
	}
	require.NoError(t, json.Unmarshal(raw, &created))
	assert.Equal(t, "2025-03-01", created.Task.Date)

	status, _ = requestJSON(t, env.engine, http.MethodPost, "/api/tasks", user.Token, map[string]string{
		"title":    "ورزش",
		"category": "شخصی",
	})
	require.Equal(t, http.StatusCreated, status)

	status, raw = requestJSON(t, env.engine, http.MethodPost, "/api/tasks", user.Token, map[string]string{
		"title":    "bad",
		"category": "other",
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_category", decode[apiErrorEnvelope](t, raw).Error.Code)

	status, raw = requestJSON(t, env.engine, http.MethodPost, "/api/tasks/"+created.Task.ID+"/toggle", user.Token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))

	state := getState(t, env.engine, user.Token)
	status, _ = requestJSON(t, env.engine, http.MethodPost, "/api/timer/start", user.Token, map[string]int{
		"baseVersion": state.Version,
	})
	require.Equal(t, http.StatusOK, status)
	env.clock.Advance(25 * time.Minute)

	status, raw = requestJSON(t, env.engine, http.MethodGet, "/api/dashboard", user.Token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	var dashboard struct {
		Dashboard struct {
			Date              string `json:"date"`
			Tasks             []any  `json:"tasks"`
			ProgressPercent   int    `json:"progressPercent"`
			FocusMinutesToday int    `json:"focusMinutesToday"`
			Timer             struct {
				Mode string `json:"mode"`
			} `json:"timer"`
		} `json:"dashboard"`
	}
	require.NoError(t, json.Unmarshal(raw, &dashboard))
	assert.Equal(t, "2025-03-01", dashboard.Dashboard.Date)
	assert.Len(t, dashboard.Dashboard.Tasks, 2)
	assert.Equal(t, 50, dashboard.Dashboard.ProgressPercent)
	assert.Equal(t, 25, dashboard.Dashboard.FocusMinutesToday)
	assert.Equal(t, "shortBreak", dashboard.Dashboard.Timer.Mode)

	status, _ = requestJSON(t, env.engine, http.MethodDelete, "/api/tasks/"+created.Task.ID, user.Token, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = requestJSON(t, env.engine, http.MethodDelete, "/api/tasks/"+created.Task.ID, user.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

type statsEnvelope struct {
	Stats struct {
		Range  string `json:"range"`
		From   string `json:"from"`
		To     string `json:"to"`
		Totals struct {
			TotalTasks        int `json:"totalTasks"`
			CompletedTasks    int `json:"completedTasks"`
			CompletionRate    int `json:"completionRate"`
			TotalFocusMinutes int `json:"totalFocusMinutes"`
			ReflectionDays    int `json:"reflectionDays"`
			TotalDays         int `json:"totalDays"`
		} `json:"totals"`
		Days  []struct{ Date string } `json:"days"`
		Hours []struct {
			Hour     int `json:"hour"`
			Minutes  int `json:"minutes"`
			Sessions int `json:"sessions"`
		} `json:"hours"`
		BestDay    struct{ Date string } `json:"bestDay"`
		WorstDay   struct{ Date string } `json:"worstDay"`
		StreakDays int                   `json:"streakDays"`
	} `json:"stats"`
}

func TestStatsRanges(t *testing.T) {
	env := setupTestEnv(t)
	user := registerUser(t, env.engine, "stats", "123456")

	var todayTask string
	for _, date := range []string{"2025-03-01", "2025-02-27", "2025-02-10"} {
		status, raw := requestJSON(t, env.engine, http.MethodPost, "/api/tasks", user.Token, map[string]string{
			"title":    "کار " + date,
			"category": "پروژه",
			"date":     date,
		})
		require.Equal(t, http.StatusCreated, status, string(raw))
		if todayTask == "" {
			var created struct {
				Task struct {
					ID string `json:"id"`
				} `json:"task"`
			}
			require.NoError(t, json.Unmarshal(raw, &created))
			todayTask = created.Task.ID
		}
	}
	status, raw := requestJSON(t, env.engine, http.MethodPost, "/api/tasks/"+todayTask+"/toggle", user.Token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))

	status, raw = requestJSON(t, env.engine, http.MethodPut, "/api/reflections/2025-02-28", user.Token, map[string]string{
		"good": "مرور",
	})
	require.Equal(t, http.StatusOK, status, string(raw))

	state := getState(t, env.engine, user.Token)
	status, _ = requestJSON(t, env.engine, http.MethodPost, "/api/timer/start", user.Token, map[string]int{
		"baseVersion": state.Version,
	})
	require.Equal(t, http.StatusOK, status)
	env.clock.Advance(25 * time.Minute)

	status, raw = requestJSON(t, env.engine, http.MethodGet, "/api/stats", user.Token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	weekly := decode[statsEnvelope](t, raw).Stats
	assert.Equal(t, "weekly", weekly.Range)
	assert.Equal(t, "2025-02-22", weekly.From)
	assert.Equal(t, "2025-03-01", weekly.To)
	assert.Len(t, weekly.Days, 8)
	assert.Equal(t, 2, weekly.Totals.TotalTasks)
	assert.Equal(t, 1, weekly.Totals.CompletedTasks)
	assert.Equal(t, 50, weekly.Totals.CompletionRate)
	assert.Equal(t, 25, weekly.Totals.TotalFocusMinutes)
	assert.Equal(t, 1, weekly.Totals.ReflectionDays)
	assert.Equal(t, 8, weekly.Totals.TotalDays)
	require.Len(t, weekly.Hours, 24)
	assert.Equal(t, 25, weekly.Hours[9].Minutes)
	assert.Equal(t, 1, weekly.Hours[9].Sessions)
	assert.Equal(t, "2025-03-01", weekly.BestDay.Date)
	assert.Equal(t, "2025-02-22", weekly.WorstDay.Date)
	assert.Equal(t, 1, weekly.StreakDays)

	status, raw = requestJSON(t, env.engine, http.MethodGet, "/api/stats?range=daily", user.Token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	daily := decode[statsEnvelope](t, raw).Stats
	assert.Equal(t, 1, daily.Totals.TotalDays)
	assert.Equal(t, 1, daily.Totals.TotalTasks)
	assert.Equal(t, 100, daily.Totals.CompletionRate)
	assert.Zero(t, daily.Totals.ReflectionDays)

	status, raw = requestJSON(t, env.engine, http.MethodGet, "/api/stats?range=monthly", user.Token, nil)
	require.Equal(t, http.StatusOK, status, string(raw))
	assert.Equal(t, 3, decode[statsEnvelope](t, raw).Stats.Totals.TotalTasks)

	status, raw = requestJSON(t, env.engine, http.MethodGet, "/api/stats?range=yearly", user.Token, nil)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_range", decode[apiErrorEnvelope](t, raw).Error.Code)
}

func TestCoursesAndOverdueAssignments(t *testing.T) {
	env := setupTestEnv(t)
	user := registerUser(t, env.engine, "student", "123456")
	other := registerUser(t, env.engine, "other", "123456")

	status, raw := requestJSON(t, env.engine, http.MethodPost, "/api/courses", user.Token, map[string]string{
		"name": "ساختمان داده",
		"code": "CS201",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	var course struct {
		Course struct {
			ID string `json:"id"`
		} `json:"course"`
	}
	require.NoError(t, json.Unmarshal(raw, &course))
	base := "/api/courses/" + course.Course.ID + "/assignments"

	status, raw = requestJSON(t, env.engine, http.MethodPost, base, user.Token, map[string]interface{}{
		"title":          "تمرین ۱",
		"dueDate":        "2025-02-20",
		"estimatedHours": 3.5,
		"linkedTaskIds":  []string{"t1", "t2"},
	})
	require.Equal(t, http.StatusCreated, status, string(raw))
	status, raw = requestJSON(t, env.engine, http.MethodPost, base, user.Token, map[string]interface{}{
		"title":   "پروژه",
		"dueDate": "2025-03-10T12:00:00Z",
	})
	require.Equal(t, http.StatusCreated, status, string(raw))

	status, _ = requestJSON(t, env.engine, http.MethodPost, base, other.Token, map[string]string{
		"title":   "intruder",
		"dueDate": "2025-02-01",
	})
	assert.Equal(t, http.StatusNotFound, status)

	status, raw = requestJSON(t, env.engine, http.MethodGet, "/api/assignments/overdue", user.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var overdue struct {
		Assignments []struct {
			ID            string   `json:"id"`
			Title         string   `json:"title"`
			LinkedTaskIDs []string `json:"linkedTaskIds"`
		} `json:"assignments"`
	}
	require.NoError(t, json.Unmarshal(raw, &overdue))
	require.Len(t, overdue.Assignments, 1)
	assert.Equal(t, "تمرین ۱", overdue.Assignments[0].Title)
	assert.Equal(t, []string{"t1", "t2"}, overdue.Assignments[0].LinkedTaskIDs)

	status, raw = requestJSON(t, env.engine, http.MethodPatch, base+"/"+overdue.Assignments[0].ID, user.Token, map[string]bool{
		"done": true,
	})
	require.Equal(t, http.StatusOK, status, string(raw))

	status, raw = requestJSON(t, env.engine, http.MethodGet, "/api/assignments/overdue", user.Token, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(raw, &overdue))
	assert.Empty(t, overdue.Assignments)

	status, raw = requestJSON(t, env.engine, http.MethodGet, "/api/courses", user.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var courses struct {
		Courses []struct {
			Assignments []any `json:"assignments"`
		} `json:"courses"`
	}
	require.NoError(t, json.Unmarshal(raw, &courses))
	require.Len(t, courses.Courses, 1)
	assert.Len(t, courses.Courses[0].Assignments, 2)

	status, _ = requestJSON(t, env.engine, http.MethodDelete, "/api/courses/"+course.Course.ID, user.Token, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = requestJSON(t, env.engine, http.MethodGet, "/api/assignments/overdue", user.Token, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestReflectionUpsert(t *testing.T) {
	env := setupTestEnv(t)
	user := registerUser(t, env.engine, "writer", "123456")

	path := "/api/reflections/2025-03-01"
	status, raw := requestJSON(t, env.engine, http.MethodPut, path, user.Token, map[string]interface{}{
		"good":   "تمرکز صبح",
		"rating": 4,
	})
	require.Equal(t, http.StatusOK, status, string(raw))

	status, raw = requestJSON(t, env.engine, http.MethodPut, path, user.Token, map[string]interface{}{
		"good":    "تمرکز صبح",
		"improve": "خواب زودتر",
		"rating":  5,
	})
	require.Equal(t, http.StatusOK, status, string(raw))

	status, raw = requestJSON(t, env.engine, http.MethodPut, path, user.Token, map[string]interface{}{
		"rating": 7,
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_rating", decode[apiErrorEnvelope](t, raw).Error.Code)

	status, raw = requestJSON(t, env.engine, http.MethodGet, "/api/reflections", user.Token, nil)
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Reflections []struct {
			Date    string `json:"date"`
			Improve string `json:"improve"`
			Rating  *int   `json:"rating"`
		} `json:"reflections"`
	}
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list.Reflections, 1)
	assert.Equal(t, "خواب زودتر", list.Reflections[0].Improve)
	require.NotNil(t, list.Reflections[0].Rating)
	assert.Equal(t, 5, *list.Reflections[0].Rating)

	status, _ = requestJSON(t, env.engine, http.MethodDelete, path, user.Token, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, _ = requestJSON(t, env.engine, http.MethodGet, path, user.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAuthRequired(t *testing.T) {
	env := setupTestEnv(t)

	status, raw := requestJSON(t, env.engine, http.MethodGet, "/api/timer/state", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", decode[apiErrorEnvelope](t, raw).Error.Code)

	status, _ = requestJSON(t, env.engine, http.MethodGet, "/api/timer/state", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	registerUser(t, env.engine, "dup", "123456")
	status, raw = requestJSON(t, env.engine, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     "dup",
		"password": "123456",
	})
	require.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "name_exists", decode[apiErrorEnvelope](t, raw).Error.Code)

	status, _ = requestJSON(t, env.engine, http.MethodPost, "/api/auth/login", "", map[string]string{
		"name":     "dup",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, raw = requestJSON(t, env.engine, http.MethodPost, "/api/auth/login", "", map[string]string{
		"name":     "dup",
		"password": "123456",
	})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, decode[authResponse](t, raw).Token)
}

func TestCORSPreflight(t *testing.T) {
	env := setupTestEnv(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	recorder := httptest.NewRecorder()

	env.engine.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "http://localhost:5173", recorder.Header().Get("Access-Control-Allow-Origin"))
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	require.NoError(t, db.RunMigrations(database, migrationsDir))

	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	hub := realtime.NewHub(realtime.DefaultBuffer)
	calendar := service.NewCalendar(time.UTC, clock.Now)

	userRepo := repository.NewUserRepository(database)
	timerRepo := repository.NewTimerRepository(database)
	authService := service.NewAuthService(userRepo, timerRepo, "test-secret", 24*time.Hour)
	timerService := service.NewTimerService(
		timerRepo,
		timer.DefaultPolicy(),
		service.WithClock(clock.Now),
		service.WithPublisher(hub),
	)
	taskRepo := repository.NewTaskRepository(database)
	reflectionRepo := repository.NewReflectionRepository(database)
	taskService := service.NewTaskService(taskRepo, calendar)
	courseService := service.NewCourseService(repository.NewCourseRepository(database), calendar)
	reflectionService := service.NewReflectionService(reflectionRepo, calendar)
	dashboardService := service.NewDashboardService(taskService, courseService, timerService, calendar)
	statsService := service.NewStatsService(taskRepo, reflectionRepo, timerService, calendar)

	engine := router.New(authService, router.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Timer:      handler.NewTimerHandler(timerService, hub),
		Tasks:      handler.NewTaskHandler(taskService),
		Courses:    handler.NewCourseHandler(courseService),
		Reflection: handler.NewReflectionHandler(reflectionService),
		Dashboard:  handler.NewDashboardHandler(dashboardService),
		Stats:      handler.NewStatsHandler(statsService),
	}, []string{"http://localhost:5173"})

	return &testEnv{engine: engine, hub: hub, clock: clock}
}

func registerUser(t *testing.T, server http.Handler, name, password string) authResponse {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name":     name,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, status, "register %s: %s", name, string(body))
	resp := decode[authResponse](t, body)
	require.NotEmpty(t, resp.Token)
	return resp
}

func getState(t *testing.T, server http.Handler, token string) stateView {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodGet, "/api/timer/state", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	return decode[stateEnvelope](t, body).State
}

func getHistory(t *testing.T, server http.Handler, token string) historyEnvelope {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodGet, "/api/timer/sessions?limit=10", token, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	return decode[historyEnvelope](t, body)
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	return out
}

func requestJSON(
	t *testing.T,
	server http.Handler,
	method, path, token string,
	body interface{},
) (int, []byte) {
	t.Helper()

	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		payload = raw
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	return recorder.Code, recorder.Body.Bytes()
}

// streamRecorder adds the CloseNotifier gin's Stream expects.
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newStreamRecorder() *streamRecorder {
	return &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}
}

func (r *streamRecorder) CloseNotify() <-chan bool {
	return r.closed
}
