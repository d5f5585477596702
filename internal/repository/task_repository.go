package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"focusjournal/backend/internal/model"
)

type TaskRepository struct {
	db *sqlx.DB
}

type taskRow struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Title     string `db:"title"`
	Category  string `db:"category"`
	Date      string `db:"date"`
	Done      bool   `db:"done"`
	CreatedAt string `db:"created_at"`
}

const selectTask = `SELECT id, user_id, title, category, date, done, created_at FROM tasks`

func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	_, err := r.db.NamedExecContext(
		ctx,
		`INSERT INTO tasks (id, user_id, title, category, date, done, created_at)
		 VALUES (:id, :user_id, :title, :category, :date, :done, :created_at)`,
		fromTask(task),
	)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *TaskRepository) Get(ctx context.Context, userID, id string) (*model.Task, error) {
	var row taskRow
	if err := r.db.GetContext(ctx, &row, selectTask+` WHERE id = ? AND user_id = ?`, id, userID); err != nil {
		if err = notFound(err); err == ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return row.toModel()
}

// List returns the user's tasks, limited to one day when date is set.
func (r *TaskRepository) List(ctx context.Context, userID, date string) ([]model.Task, error) {
	query := selectTask + ` WHERE user_id = ?`
	args := []interface{}{userID}
	if date != "" {
		query += ` AND date = ?`
		args = append(args, date)
	}
	query += ` ORDER BY date, created_at`

	rows := make([]taskRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		task, err := row.toModel()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, nil
}

// ListBetween returns the user's tasks dated from..to, both days included.
func (r *TaskRepository) ListBetween(ctx context.Context, userID, from, to string) ([]model.Task, error) {
	rows := make([]taskRow, 0)
	if err := r.db.SelectContext(
		ctx,
		&rows,
		selectTask+` WHERE user_id = ? AND date >= ? AND date <= ? ORDER BY date, created_at`,
		userID,
		from,
		to,
	); err != nil {
		return nil, fmt.Errorf("list tasks between: %w", err)
	}

	tasks := make([]model.Task, 0, len(rows))
	for _, row := range rows {
		task, err := row.toModel()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *task)
	}
	return tasks, nil
}

func (r *TaskRepository) Update(ctx context.Context, task *model.Task) error {
	result, err := r.db.NamedExecContext(
		ctx,
		`UPDATE tasks
		 SET title = :title, category = :category, date = :date, done = :done
		 WHERE id = :id AND user_id = :user_id`,
		fromTask(task),
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return affectedOrNotFound(result)
}

func (r *TaskRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return affectedOrNotFound(result)
}

func fromTask(task *model.Task) taskRow {
	return taskRow{
		ID:        task.ID,
		UserID:    task.UserID,
		Title:     task.Title,
		Category:  task.Category,
		Date:      task.Date,
		Done:      task.Done,
		CreatedAt: formatTime(task.CreatedAt),
	}
}

func (row taskRow) toModel() (*model.Task, error) {
	createdAt, err := parseTime(row.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse task created_at: %w", err)
	}
	return &model.Task{
		ID:        row.ID,
		UserID:    row.UserID,
		Title:     row.Title,
		Category:  row.Category,
		Date:      row.Date,
		Done:      row.Done,
		CreatedAt: createdAt,
	}, nil
}
