package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focusjournal/backend/internal/service"
)

type TaskHandler struct {
	taskService *service.TaskService
}

type createTaskRequest struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Date     string `json:"date"`
}

type updateTaskRequest struct {
	Title    *string `json:"title"`
	Category *string `json:"category"`
	Date     *string `json:"date"`
	Done     *bool   `json:"done"`
}

func NewTaskHandler(taskService *service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	tasks, apiErr := h.taskService.List(c.Request.Context(), userID, c.Query("date"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req createTaskRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	task, apiErr := h.taskService.Create(c.Request.Context(), userID, service.TaskInput{
		Title:    req.Title,
		Category: req.Category,
		Date:     req.Date,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task})
}

func (h *TaskHandler) Update(c *gin.Context) {
	var req updateTaskRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	task, apiErr := h.taskService.Update(c.Request.Context(), userID, c.Param("id"), service.TaskPatch{
		Title:    req.Title,
		Category: req.Category,
		Date:     req.Date,
		Done:     req.Done,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

func (h *TaskHandler) Toggle(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	task, apiErr := h.taskService.Toggle(c.Request.Context(), userID, c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if apiErr := h.taskService.Delete(c.Request.Context(), userID, c.Param("id")); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.Status(http.StatusNoContent)
}
