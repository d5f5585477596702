package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"focusjournal/backend/internal/model"
)

type UserRepository struct {
	db *sqlx.DB
}

type userRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    string `db:"created_at"`
	UpdatedAt    string `db:"updated_at"`
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

func (r *UserRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, user *model.User) error {
	_, err := tx.ExecContext(
		ctx,
		`INSERT INTO users (id, name, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.PasswordHash,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByName(ctx context.Context, name string) (*model.User, error) {
	var row userRow
	err := r.db.GetContext(
		ctx,
		&row,
		`SELECT id, name, password_hash, created_at, updated_at
		 FROM users
		 WHERE name = ?`,
		name,
	)
	if err != nil {
		if err = notFound(err); err == ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("get user by name: %w", err)
	}
	return row.toModel()
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var row userRow
	err := r.db.GetContext(
		ctx,
		&row,
		`SELECT id, name, password_hash, created_at, updated_at
		 FROM users
		 WHERE id = ?`,
		id,
	)
	if err != nil {
		if err = notFound(err); err == ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return row.toModel()
}

func (row userRow) toModel() (*model.User, error) {
	createdAt, err := parseTime(row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse user created_at: %w", err)
	}
	updatedAt, err := parseTime(row.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse user updated_at: %w", err)
	}
	return &model.User{
		ID:           row.ID,
		Name:         row.Name,
		PasswordHash: row.PasswordHash,
		CreatedAt:    createdAt,
		UpdatedAt:    updatedAt,
	}, nil
}
