package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focusjournal/backend/internal/model"
	"focusjournal/backend/internal/service"
)

type ReflectionHandler struct {
	reflectionService *service.ReflectionService
}

func NewReflectionHandler(reflectionService *service.ReflectionService) *ReflectionHandler {
	return &ReflectionHandler{reflectionService: reflectionService}
}

func (h *ReflectionHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	reflections, apiErr := h.reflectionService.List(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reflections": reflections})
}

func (h *ReflectionHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	reflection, apiErr := h.reflectionService.Get(c.Request.Context(), userID, c.Param("date"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reflection": reflection})
}

// Save upserts the reflection. PUT /:date takes the day from the path.
func (h *ReflectionHandler) Save(c *gin.Context) {
	var req model.Reflection
	if !bindJSON(c, &req) {
		return
	}
	if date := c.Param("date"); date != "" {
		req.Date = date
	}
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	reflection, apiErr := h.reflectionService.Save(c.Request.Context(), userID, req)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reflection": reflection})
}

func (h *ReflectionHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if apiErr := h.reflectionService.Delete(c.Request.Context(), userID, c.Param("date")); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.Status(http.StatusNoContent)
}
