package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	apperrors "focusjournal/backend/internal/errors"
	"focusjournal/backend/internal/realtime"
	"focusjournal/backend/internal/service"
	"focusjournal/backend/internal/timer"
)

const keepAliveInterval = 15 * time.Second

type TimerHandler struct {
	timerService *service.TimerService
	hub          *realtime.Hub
}

type versionRequest struct {
	BaseVersion int `json:"baseVersion"`
}

type startRequest struct {
	BaseVersion int    `json:"baseVersion"`
	Mode        string `json:"mode"`
	TaskID      string `json:"taskId"`
}

func NewTimerHandler(timerService *service.TimerService, hub *realtime.Hub) *TimerHandler {
	return &TimerHandler{timerService: timerService, hub: hub}
}

func (h *TimerHandler) GetState(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	state, apiErr := h.timerService.GetState(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) Start(c *gin.Context) {
	var req startRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.BaseVersion <= 0 {
		writeError(c, apperrors.BadRequest("invalid_base_version", "baseVersion is required"))
		return
	}

	userID, ok := requireUser(c)
	if !ok {
		return
	}
	state, apiErr := h.timerService.Start(c.Request.Context(), userID, service.StartInput{
		BaseVersion: req.BaseVersion,
		Mode:        req.Mode,
		TaskID:      req.TaskID,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) Pause(c *gin.Context) {
	h.versioned(c, h.timerService.Pause)
}

func (h *TimerHandler) Resume(c *gin.Context) {
	h.versioned(c, h.timerService.Resume)
}

func (h *TimerHandler) Stop(c *gin.Context) {
	h.versioned(c, h.timerService.Stop)
}

func (h *TimerHandler) Skip(c *gin.Context) {
	h.versioned(c, h.timerService.Skip)
}

func (h *TimerHandler) versioned(
	c *gin.Context,
	action func(ctx context.Context, userID string, baseVersion int) (*service.StateView, *apperrors.APIError),
) {
	var req versionRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.BaseVersion <= 0 {
		writeError(c, apperrors.BadRequest("invalid_base_version", "baseVersion is required"))
		return
	}

	userID, ok := requireUser(c)
	if !ok {
		return
	}
	state, apiErr := action(c.Request.Context(), userID, req.BaseVersion)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": state})
}

func (h *TimerHandler) GetSettings(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	settings, apiErr := h.timerService.GetSettings(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (h *TimerHandler) UpdateSettings(c *gin.Context) {
	var req timer.Settings
	if !bindJSON(c, &req) {
		return
	}

	userID, ok := requireUser(c)
	if !ok {
		return
	}
	settings, apiErr := h.timerService.UpdateSettings(c.Request.Context(), userID, req)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

func (h *TimerHandler) ListSessions(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	// Zero lets the service pick its default.
	limit := 0
	if rawLimit := c.Query("limit"); rawLimit != "" {
		if parsed, err := strconv.Atoi(rawLimit); err == nil {
			limit = parsed
		}
	}

	sessions, apiErr := h.timerService.History(c.Request.Context(), userID, limit)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *TimerHandler) DeleteSession(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if apiErr := h.timerService.DeleteSession(c.Request.Context(), userID, c.Param("id")); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.Status(http.StatusNoContent)
}

// Events streams the user's timer state as server-sent events. The current
// state is sent first, then every change until the client goes away.
func (h *TimerHandler) Events(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	state, apiErr := h.timerService.GetState(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	initial, err := json.Marshal(state)
	if err != nil {
		writeError(c, apperrors.Internal("failed to encode state"))
		return
	}

	sub := h.hub.Subscribe(userID)
	defer h.hub.Unsubscribe(sub)

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent(service.EventTimerState, string(initial))
	c.Writer.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	done := c.Request.Context().Done()
	c.Stream(func(io.Writer) bool {
		select {
		case <-done:
			return false
		case event, open := <-sub.Events():
			if !open {
				return false
			}
			c.SSEvent(event.Name, string(event.Data))
			return true
		case <-keepAlive.C:
			c.SSEvent("ping", strconv.FormatInt(time.Now().Unix(), 10))
			return true
		}
	})
}
