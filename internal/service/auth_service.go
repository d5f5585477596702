package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "focusjournal/backend/internal/errors"
	"focusjournal/backend/internal/model"
	"focusjournal/backend/internal/repository"
	"focusjournal/backend/internal/timer"
)

const (
	maxNameLength     = 64
	minPasswordLength = 6
)

type AuthService struct {
	userRepo  *repository.UserRepository
	timerRepo *repository.TimerRepository
	jwtSecret []byte
	tokenTTL  time.Duration
}

func NewAuthService(
	userRepo *repository.UserRepository,
	timerRepo *repository.TimerRepository,
	jwtSecret string,
	tokenTTL time.Duration,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		timerRepo: timerRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
	}
}

type AuthResult struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Register creates the user together with an idle timer and default
// settings.
func (s *AuthService) Register(ctx context.Context, name, password string) (*AuthResult, *apperrors.APIError) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLength {
		return nil, apperrors.BadRequest("invalid_name", "name is required and must be at most 64 characters")
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.BadRequest("invalid_password", "password must be at least 6 characters")
	}

	_, err := s.userRepo.GetByName(ctx, name)
	if err == nil {
		return nil, apperrors.Conflict("name_exists", "name already registered", nil)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, internalError(err, "failed to query user")
	}

	passwordHashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, internalError(err, "failed to secure password")
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Name:         name,
		PasswordHash: string(passwordHashBytes),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	tx, err := s.userRepo.BeginTx(ctx)
	if err != nil {
		return nil, internalError(err, "failed to start transaction")
	}
	defer tx.Rollback()

	if err := s.userRepo.CreateTx(ctx, tx, &user); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, apperrors.Conflict("name_exists", "name already registered", nil)
		}
		return nil, internalError(err, "failed to create user")
	}

	if err := s.timerRepo.CreateInitialStateTx(ctx, tx, user.ID, timer.DefaultSettings()); err != nil {
		return nil, internalError(err, "failed to initialize user state")
	}

	if err := tx.Commit(); err != nil {
		return nil, internalError(err, "failed to commit transaction")
	}

	token, apiErr := s.issueToken(user)
	if apiErr != nil {
		return nil, apiErr
	}

	user.PasswordHash = ""
	return &AuthResult{
		Token: token,
		User:  user,
	}, nil
}

func (s *AuthService) Login(ctx context.Context, name, password string) (*AuthResult, *apperrors.APIError) {
	name = strings.TrimSpace(name)
	if name == "" || password == "" {
		return nil, apperrors.BadRequest("invalid_credentials", "name and password are required")
	}

	user, err := s.userRepo.GetByName(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Unauthorized("invalid name or password")
	}
	if err != nil {
		return nil, internalError(err, "failed to query user")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperrors.Unauthorized("invalid name or password")
	}

	token, apiErr := s.issueToken(*user)
	if apiErr != nil {
		return nil, apiErr
	}

	user.PasswordHash = ""
	return &AuthResult{
		Token: token,
		User:  *user,
	}, nil
}

func (s *AuthService) ParseToken(tokenString string) (string, *apperrors.APIError) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return "", apperrors.Unauthorized("invalid token")
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return "", apperrors.Unauthorized("invalid token")
	}

	if claims.Subject == "" {
		return "", apperrors.Unauthorized("invalid token subject")
	}

	return claims.Subject, nil
}

func (s *AuthService) issueToken(user model.User) (string, *apperrors.APIError) {
	now := time.Now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", internalError(err, "failed to sign token")
	}
	return signed, nil
}
