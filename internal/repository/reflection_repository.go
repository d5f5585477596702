package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"focusjournal/backend/internal/model"
)

type ReflectionRepository struct {
	db *sqlx.DB
}

type reflectionRow struct {
	UserID       string        `db:"user_id"`
	Date         string        `db:"date"`
	Good         string        `db:"good"`
	Distraction  string        `db:"distraction"`
	Improve      string        `db:"improve"`
	FocusMinutes sql.NullInt64 `db:"focus_minutes"`
	Note         string        `db:"note"`
	Rating       sql.NullInt64 `db:"rating"`
}

const selectReflection = `SELECT user_id, date, good, distraction, improve, focus_minutes, note, rating
	 FROM reflections`

func NewReflectionRepository(db *sqlx.DB) *ReflectionRepository {
	return &ReflectionRepository{db: db}
}

// Upsert stores the reflection for its date, replacing any earlier entry.
func (r *ReflectionRepository) Upsert(ctx context.Context, userID string, reflection *model.Reflection) error {
	row := reflectionRow{
		UserID:      userID,
		Date:        reflection.Date,
		Good:        reflection.Good,
		Distraction: reflection.Distraction,
		Improve:     reflection.Improve,
		Note:        reflection.Note,
	}
	if reflection.FocusMinutes != nil {
		row.FocusMinutes = sql.NullInt64{Int64: int64(*reflection.FocusMinutes), Valid: true}
	}
	if reflection.Rating != nil {
		row.Rating = sql.NullInt64{Int64: int64(*reflection.Rating), Valid: true}
	}

	_, err := r.db.NamedExecContext(
		ctx,
		`INSERT INTO reflections (user_id, date, good, distraction, improve, focus_minutes, note, rating)
		 VALUES (:user_id, :date, :good, :distraction, :improve, :focus_minutes, :note, :rating)
		 ON CONFLICT (user_id, date) DO UPDATE SET
		     good = excluded.good,
		     distraction = excluded.distraction,
		     improve = excluded.improve,
		     focus_minutes = excluded.focus_minutes,
		     note = excluded.note,
		     rating = excluded.rating`,
		row,
	)
	if err != nil {
		return fmt.Errorf("upsert reflection: %w", err)
	}
	return nil
}

func (r *ReflectionRepository) Get(ctx context.Context, userID, date string) (*model.Reflection, error) {
	var row reflectionRow
	if err := r.db.GetContext(ctx, &row, selectReflection+` WHERE user_id = ? AND date = ?`, userID, date); err != nil {
		if err = notFound(err); err == ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("get reflection: %w", err)
	}
	reflection := row.toModel()
	return &reflection, nil
}

func (r *ReflectionRepository) List(ctx context.Context, userID string) ([]model.Reflection, error) {
	rows := make([]reflectionRow, 0)
	if err := r.db.SelectContext(ctx, &rows, selectReflection+` WHERE user_id = ? ORDER BY date DESC`, userID); err != nil {
		return nil, fmt.Errorf("list reflections: %w", err)
	}
	reflections := make([]model.Reflection, 0, len(rows))
	for _, row := range rows {
		reflections = append(reflections, row.toModel())
	}
	return reflections, nil
}

func (r *ReflectionRepository) ListBetween(ctx context.Context, userID, from, to string) ([]model.Reflection, error) {
	rows := make([]reflectionRow, 0)
	if err := r.db.SelectContext(
		ctx,
		&rows,
		selectReflection+` WHERE user_id = ? AND date >= ? AND date <= ? ORDER BY date`,
		userID,
		from,
		to,
	); err != nil {
		return nil, fmt.Errorf("list reflections between: %w", err)
	}
	reflections := make([]model.Reflection, 0, len(rows))
	for _, row := range rows {
		reflections = append(reflections, row.toModel())
	}
	return reflections, nil
}

func (r *ReflectionRepository) Delete(ctx context.Context, userID, date string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reflections WHERE user_id = ? AND date = ?`, userID, date)
	if err != nil {
		return fmt.Errorf("delete reflection: %w", err)
	}
	return affectedOrNotFound(result)
}

func (row reflectionRow) toModel() model.Reflection {
	reflection := model.Reflection{
		Date:        row.Date,
		Good:        row.Good,
		Distraction: row.Distraction,
		Improve:     row.Improve,
		Note:        row.Note,
	}
	if row.FocusMinutes.Valid {
		minutes := int(row.FocusMinutes.Int64)
		reflection.FocusMinutes = &minutes
	}
	if row.Rating.Valid {
		rating := int(row.Rating.Int64)
		reflection.Rating = &rating
	}
	return reflection
}
