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

type TaskService struct {
	repo     *repository.TaskRepository
	calendar *Calendar
}

type TaskInput struct {
	Title    string
	Category string
	Date     string
}

// TaskPatch carries the fields to change; nil fields are left as they are.
type TaskPatch struct {
	Title    *string
	Category *string
	Date     *string
	Done     *bool
}

func NewTaskService(repo *repository.TaskRepository, calendar *Calendar) *TaskService {
	return &TaskService{repo: repo, calendar: calendar}
}

func (s *TaskService) Create(ctx context.Context, userID string, input TaskInput) (*model.Task, *apperrors.APIError) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.BadRequest("invalid_title", "title is required")
	}
	category := input.Category
	if category == "" {
		category = model.CategoryPersonal
	}
	if !model.IsValidCategory(category) {
		return nil, invalidCategory()
	}
	date := input.Date
	if date == "" {
		date = s.calendar.Today()
	} else if _, err := s.calendar.ParseDate(date); err != nil {
		return nil, invalidDate()
	}

	task := model.Task{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Category:  category,
		Date:      date,
		CreatedAt: s.calendar.Now().UTC(),
	}
	if err := s.repo.Create(ctx, &task); err != nil {
		return nil, internalError(err, "failed to create task")
	}
	return &task, nil
}

// List returns the user's tasks for date, or all of them when date is empty.
func (s *TaskService) List(ctx context.Context, userID, date string) ([]model.Task, *apperrors.APIError) {
	if date != "" {
		if _, err := s.calendar.ParseDate(date); err != nil {
			return nil, invalidDate()
		}
	}
	tasks, err := s.repo.List(ctx, userID, date)
	if err != nil {
		return nil, internalError(err, "failed to list tasks")
	}
	return tasks, nil
}

func (s *TaskService) Update(ctx context.Context, userID, id string, patch TaskPatch) (*model.Task, *apperrors.APIError) {
	task, apiErr := s.get(ctx, userID, id)
	if apiErr != nil {
		return nil, apiErr
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, apperrors.BadRequest("invalid_title", "title is required")
		}
		task.Title = title
	}
	if patch.Category != nil {
		if !model.IsValidCategory(*patch.Category) {
			return nil, invalidCategory()
		}
		task.Category = *patch.Category
	}
	if patch.Date != nil {
		if _, err := s.calendar.ParseDate(*patch.Date); err != nil {
			return nil, invalidDate()
		}
		task.Date = *patch.Date
	}
	if patch.Done != nil {
		task.Done = *patch.Done
	}

	return s.save(ctx, task)
}

func (s *TaskService) Toggle(ctx context.Context, userID, id string) (*model.Task, *apperrors.APIError) {
	task, apiErr := s.get(ctx, userID, id)
	if apiErr != nil {
		return nil, apiErr
	}
	task.Done = !task.Done
	return s.save(ctx, task)
}

func (s *TaskService) Delete(ctx context.Context, userID, id string) *apperrors.APIError {
	err := s.repo.Delete(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return taskNotFound()
	}
	if err != nil {
		return internalError(err, "failed to delete task")
	}
	return nil
}

func (s *TaskService) get(ctx context.Context, userID, id string) (*model.Task, *apperrors.APIError) {
	task, err := s.repo.Get(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, taskNotFound()
	}
	if err != nil {
		return nil, internalError(err, "failed to get task")
	}
	return task, nil
}

func (s *TaskService) save(ctx context.Context, task *model.Task) (*model.Task, *apperrors.APIError) {
	err := s.repo.Update(ctx, task)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, taskNotFound()
	}
	if err != nil {
		return nil, internalError(err, "failed to update task")
	}
	return task, nil
}

func taskNotFound() *apperrors.APIError {
	return apperrors.NotFound("task_not_found", "task not found")
}

func invalidCategory() *apperrors.APIError {
	return apperrors.BadRequest("invalid_category", "category must be one of دانشگاه, پروژه, شخصی")
}

func invalidDate() *apperrors.APIError {
	return apperrors.BadRequest("invalid_date", "date must be formatted as YYYY-MM-DD")
}
