package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	apperrors "focusjournal/backend/internal/errors"
	"focusjournal/backend/internal/model"
	"focusjournal/backend/internal/repository"
)

type CourseService struct {
	repo     *repository.CourseRepository
	calendar *Calendar
}

type CourseInput struct {
	Name       string
	Code       string
	Instructor string
}

type AssignmentInput struct {
	Title          string
	DueDate        string
	Description    string
	EstimatedHours float64
	LinkedTaskIDs  []string
}

// AssignmentPatch carries the fields to change; nil fields are left as they are.
type AssignmentPatch struct {
	Title          *string
	DueDate        *string
	Done           *bool
	Description    *string
	EstimatedHours *float64
	LinkedTaskIDs  *[]string
}

func NewCourseService(repo *repository.CourseRepository, calendar *Calendar) *CourseService {
	return &CourseService{repo: repo, calendar: calendar}
}

func (s *CourseService) Create(ctx context.Context, userID string, input CourseInput) (*model.Course, *apperrors.APIError) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.BadRequest("invalid_name", "course name is required")
	}
	course := model.Course{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        name,
		Code:        strings.TrimSpace(input.Code),
		Instructor:  strings.TrimSpace(input.Instructor),
		Assignments: []model.Assignment{},
	}
	if err := s.repo.Create(ctx, &course); err != nil {
		return nil, internalError(err, "failed to create course")
	}
	return &course, nil
}

func (s *CourseService) List(ctx context.Context, userID string) ([]model.Course, *apperrors.APIError) {
	courses, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, internalError(err, "failed to list courses")
	}
	return courses, nil
}

func (s *CourseService) Get(ctx context.Context, userID, id string) (*model.Course, *apperrors.APIError) {
	course, err := s.repo.Get(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, courseNotFound()
	}
	if err != nil {
		return nil, internalError(err, "failed to get course")
	}
	return course, nil
}

func (s *CourseService) Update(ctx context.Context, userID, id string, input CourseInput) (*model.Course, *apperrors.APIError) {
	course, apiErr := s.Get(ctx, userID, id)
	if apiErr != nil {
		return nil, apiErr
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.BadRequest("invalid_name", "course name is required")
	}
	course.Name = name
	course.Code = strings.TrimSpace(input.Code)
	course.Instructor = strings.TrimSpace(input.Instructor)

	err := s.repo.Update(ctx, course)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, courseNotFound()
	}
	if err != nil {
		return nil, internalError(err, "failed to update course")
	}
	return course, nil
}

// Delete removes the course and its assignments.
func (s *CourseService) Delete(ctx context.Context, userID, id string) *apperrors.APIError {
	err := s.repo.Delete(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return courseNotFound()
	}
	if err != nil {
		return internalError(err, "failed to delete course")
	}
	return nil
}

func (s *CourseService) AddAssignment(ctx context.Context, userID, courseID string, input AssignmentInput) (*model.Assignment, *apperrors.APIError) {
	if _, apiErr := s.Get(ctx, userID, courseID); apiErr != nil {
		return nil, apiErr
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.BadRequest("invalid_title", "assignment title is required")
	}
	dueDate, err := s.calendar.ParseInstant(input.DueDate)
	if err != nil {
		return nil, invalidDueDate()
	}
	if input.EstimatedHours < 0 {
		return nil, invalidEstimate()
	}

	linked := input.LinkedTaskIDs
	if linked == nil {
		linked = []string{}
	}
	assignment := model.Assignment{
		ID:             uuid.NewString(),
		CourseID:       courseID,
		Title:          title,
		DueDate:        dueDate.UTC(),
		Description:    strings.TrimSpace(input.Description),
		EstimatedHours: input.EstimatedHours,
		LinkedTaskIDs:  linked,
	}
	if err := s.repo.CreateAssignment(ctx, &assignment); err != nil {
		return nil, internalError(err, "failed to create assignment")
	}
	return &assignment, nil
}

func (s *CourseService) UpdateAssignment(
	ctx context.Context,
	userID, courseID, id string,
	patch AssignmentPatch,
) (*model.Assignment, *apperrors.APIError) {
	assignment, err := s.repo.GetAssignment(ctx, userID, courseID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, assignmentNotFound()
	}
	if err != nil {
		return nil, internalError(err, "failed to get assignment")
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, apperrors.BadRequest("invalid_title", "assignment title is required")
		}
		assignment.Title = title
	}
	if patch.DueDate != nil {
		dueDate, err := s.calendar.ParseInstant(*patch.DueDate)
		if err != nil {
			return nil, invalidDueDate()
		}
		assignment.DueDate = dueDate.UTC()
	}
	if patch.Done != nil {
		assignment.Done = *patch.Done
	}
	if patch.Description != nil {
		assignment.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.EstimatedHours != nil {
		if *patch.EstimatedHours < 0 {
			return nil, invalidEstimate()
		}
		assignment.EstimatedHours = *patch.EstimatedHours
	}
	if patch.LinkedTaskIDs != nil {
		assignment.LinkedTaskIDs = *patch.LinkedTaskIDs
	}

	err = s.repo.UpdateAssignment(ctx, assignment)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, assignmentNotFound()
	}
	if err != nil {
		return nil, internalError(err, "failed to update assignment")
	}
	return assignment, nil
}

func (s *CourseService) DeleteAssignment(ctx context.Context, userID, courseID, id string) *apperrors.APIError {
	if _, apiErr := s.Get(ctx, userID, courseID); apiErr != nil {
		return apiErr
	}
	err := s.repo.DeleteAssignment(ctx, courseID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return assignmentNotFound()
	}
	if err != nil {
		return internalError(err, "failed to delete assignment")
	}
	return nil
}

// Overdue lists unfinished assignments whose due date has passed.
func (s *CourseService) Overdue(ctx context.Context, userID string) ([]model.Assignment, *apperrors.APIError) {
	assignments, err := s.repo.ListOpenAssignmentsDueBefore(ctx, userID, s.calendar.Now())
	if err != nil {
		return nil, internalError(err, "failed to list overdue assignments")
	}
	return assignments, nil
}

func courseNotFound() *apperrors.APIError {
	return apperrors.NotFound("course_not_found", "course not found")
}

func assignmentNotFound() *apperrors.APIError {
	return apperrors.NotFound("assignment_not_found", "assignment not found")
}

func invalidDueDate() *apperrors.APIError {
	return apperrors.BadRequest("invalid_due_date", "dueDate must be an RFC 3339 timestamp or YYYY-MM-DD")
}

func invalidEstimate() *apperrors.APIError {
	return apperrors.BadRequest("invalid_estimate", "estimatedHours must not be negative")
}
