package service

import (
	"context"
	"errors"
	"strings"

	apperrors "focusjournal/backend/internal/errors"
	"focusjournal/backend/internal/model"
	"focusjournal/backend/internal/repository"
)

const (
	minRating = 1
	maxRating = 5
)

type ReflectionService struct {
	repo     *repository.ReflectionRepository
	calendar *Calendar
}

func NewReflectionService(repo *repository.ReflectionRepository, calendar *Calendar) *ReflectionService {
	return &ReflectionService{repo: repo, calendar: calendar}
}

// Save writes the reflection for reflection.Date, today when empty. A second
// save for the same day replaces the first.
func (s *ReflectionService) Save(ctx context.Context, userID string, reflection model.Reflection) (*model.Reflection, *apperrors.APIError) {
	if reflection.Date == "" {
		reflection.Date = s.calendar.Today()
	} else if _, err := s.calendar.ParseDate(reflection.Date); err != nil {
		return nil, invalidDate()
	}
	if reflection.Rating != nil && (*reflection.Rating < minRating || *reflection.Rating > maxRating) {
		return nil, apperrors.BadRequest("invalid_rating", "rating must be between 1 and 5")
	}
	if reflection.FocusMinutes != nil && *reflection.FocusMinutes < 0 {
		return nil, apperrors.BadRequest("invalid_focus_minutes", "focusMinutes must not be negative")
	}

	reflection.Good = strings.TrimSpace(reflection.Good)
	reflection.Distraction = strings.TrimSpace(reflection.Distraction)
	reflection.Improve = strings.TrimSpace(reflection.Improve)
	reflection.Note = strings.TrimSpace(reflection.Note)

	if err := s.repo.Upsert(ctx, userID, &reflection); err != nil {
		return nil, internalError(err, "failed to save reflection")
	}
	return &reflection, nil
}

func (s *ReflectionService) Get(ctx context.Context, userID, date string) (*model.Reflection, *apperrors.APIError) {
	if _, err := s.calendar.ParseDate(date); err != nil {
		return nil, invalidDate()
	}
	reflection, err := s.repo.Get(ctx, userID, date)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, reflectionNotFound()
	}
	if err != nil {
		return nil, internalError(err, "failed to get reflection")
	}
	return reflection, nil
}

func (s *ReflectionService) List(ctx context.Context, userID string) ([]model.Reflection, *apperrors.APIError) {
	reflections, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, internalError(err, "failed to list reflections")
	}
	return reflections, nil
}

func (s *ReflectionService) Delete(ctx context.Context, userID, date string) *apperrors.APIError {
	err := s.repo.Delete(ctx, userID, date)
	if errors.Is(err, repository.ErrNotFound) {
		return reflectionNotFound()
	}
	if err != nil {
		return internalError(err, "failed to delete reflection")
	}
	return nil
}

func reflectionNotFound() *apperrors.APIError {
	return apperrors.NotFound("reflection_not_found", "reflection not found")
}
