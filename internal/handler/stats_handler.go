package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "focusjournal/backend/internal/errors"
	"focusjournal/backend/internal/service"
)

type StatsHandler struct {
	statsService *service.StatsService
}

func NewStatsHandler(statsService *service.StatsService) *StatsHandler {
	return &StatsHandler{statsService: statsService}
}

func (h *StatsHandler) Get(c *gin.Context) {
	rangeKind, ok := service.ParseStatsRange(c.Query("range"))
	if !ok {
		writeError(c, apperrors.BadRequest("invalid_range", "range must be one of daily, weekly, monthly"))
		return
	}

	userID, ok := requireUser(c)
	if !ok {
		return
	}
	stats, apiErr := h.statsService.Summary(c.Request.Context(), userID, rangeKind)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
