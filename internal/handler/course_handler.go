package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"focusjournal/backend/internal/service"
)

type CourseHandler struct {
	courseService *service.CourseService
}

type courseRequest struct {
	Name       string `json:"name"`
	Code       string `json:"code"`
	Instructor string `json:"instructor"`
}

type createAssignmentRequest struct {
	Title          string   `json:"title"`
	DueDate        string   `json:"dueDate"`
	Description    string   `json:"description"`
	EstimatedHours float64  `json:"estimatedHours"`
	LinkedTaskIDs  []string `json:"linkedTaskIds"`
}

type updateAssignmentRequest struct {
	Title          *string   `json:"title"`
	DueDate        *string   `json:"dueDate"`
	Done           *bool     `json:"done"`
	Description    *string   `json:"description"`
	EstimatedHours *float64  `json:"estimatedHours"`
	LinkedTaskIDs  *[]string `json:"linkedTaskIds"`
}

func NewCourseHandler(courseService *service.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

func (h *CourseHandler) List(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	courses, apiErr := h.courseService.List(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

func (h *CourseHandler) Get(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	course, apiErr := h.courseService.Get(c.Request.Context(), userID, c.Param("id"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"course": course})
}

func (h *CourseHandler) Create(c *gin.Context) {
	var req courseRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	course, apiErr := h.courseService.Create(c.Request.Context(), userID, service.CourseInput(req))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"course": course})
}

func (h *CourseHandler) Update(c *gin.Context) {
	var req courseRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	course, apiErr := h.courseService.Update(c.Request.Context(), userID, c.Param("id"), service.CourseInput(req))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"course": course})
}

func (h *CourseHandler) Delete(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	if apiErr := h.courseService.Delete(c.Request.Context(), userID, c.Param("id")); apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CourseHandler) CreateAssignment(c *gin.Context) {
	var req createAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	assignment, apiErr := h.courseService.AddAssignment(c.Request.Context(), userID, c.Param("id"), service.AssignmentInput{
		Title:          req.Title,
		DueDate:        req.DueDate,
		Description:    req.Description,
		EstimatedHours: req.EstimatedHours,
		LinkedTaskIDs:  req.LinkedTaskIDs,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"assignment": assignment})
}

func (h *CourseHandler) UpdateAssignment(c *gin.Context) {
	var req updateAssignmentRequest
	if !bindJSON(c, &req) {
		return
	}
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	assignment, apiErr := h.courseService.UpdateAssignment(
		c.Request.Context(),
		userID,
		c.Param("id"),
		c.Param("assignmentId"),
		service.AssignmentPatch{
			Title:          req.Title,
			DueDate:        req.DueDate,
			Done:           req.Done,
			Description:    req.Description,
			EstimatedHours: req.EstimatedHours,
			LinkedTaskIDs:  req.LinkedTaskIDs,
		},
	)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignment": assignment})
}

func (h *CourseHandler) DeleteAssignment(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	apiErr := h.courseService.DeleteAssignment(c.Request.Context(), userID, c.Param("id"), c.Param("assignmentId"))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CourseHandler) Overdue(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	assignments, apiErr := h.courseService.Overdue(c.Request.Context(), userID)
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignments": assignments})
}
