package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmoiron/sqlx"

	"focusjournal/backend/internal/model"
)

type CourseRepository struct {
	db *sqlx.DB
}

type courseRow struct {
	ID         string `db:"id"`
	UserID     string `db:"user_id"`
	Name       string `db:"name"`
	Code       string `db:"code"`
	Instructor string `db:"instructor"`
}

type assignmentRow struct {
	ID             string  `db:"id"`
	CourseID       string  `db:"course_id"`
	Title          string  `db:"title"`
	DueDate        string  `db:"due_date"`
	Done           bool    `db:"done"`
	Description    string  `db:"description"`
	EstimatedHours float64 `db:"estimated_hours"`
	LinkedTaskIDs  string  `db:"linked_task_ids"`
}

const selectAssignment = `SELECT a.id, a.course_id, a.title, a.due_date, a.done, a.description,
		a.estimated_hours, a.linked_task_ids
	 FROM assignments a JOIN courses c ON c.id = a.course_id`

func NewCourseRepository(db *sqlx.DB) *CourseRepository {
	return &CourseRepository{db: db}
}

func (r *CourseRepository) Create(ctx context.Context, course *model.Course) error {
	_, err := r.db.NamedExecContext(
		ctx,
		`INSERT INTO courses (id, user_id, name, code, instructor)
		 VALUES (:id, :user_id, :name, :code, :instructor)`,
		fromCourse(course),
	)
	if err != nil {
		return fmt.Errorf("create course: %w", err)
	}
	return nil
}

func (r *CourseRepository) Get(ctx context.Context, userID, id string) (*model.Course, error) {
	var row courseRow
	err := r.db.GetContext(
		ctx,
		&row,
		`SELECT id, user_id, name, code, instructor FROM courses WHERE id = ? AND user_id = ?`,
		id,
		userID,
	)
	if err != nil {
		if err = notFound(err); err == ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("get course: %w", err)
	}

	assignments, err := r.listAssignments(ctx, selectAssignment+` WHERE c.user_id = ? AND a.course_id = ? ORDER BY a.due_date`, userID, id)
	if err != nil {
		return nil, err
	}
	course := row.toModel()
	course.Assignments = assignments
	return &course, nil
}

// List returns every course of the user with its assignments attached.
func (r *CourseRepository) List(ctx context.Context, userID string) ([]model.Course, error) {
	rows := make([]courseRow, 0)
	if err := r.db.SelectContext(
		ctx,
		&rows,
		`SELECT id, user_id, name, code, instructor FROM courses WHERE user_id = ? ORDER BY name`,
		userID,
	); err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	assignments, err := r.listAssignments(ctx, selectAssignment+` WHERE c.user_id = ? ORDER BY a.due_date`, userID)
	if err != nil {
		return nil, err
	}
	byCourse := make(map[string][]model.Assignment, len(rows))
	for _, assignment := range assignments {
		byCourse[assignment.CourseID] = append(byCourse[assignment.CourseID], assignment)
	}

	courses := make([]model.Course, 0, len(rows))
	for _, row := range rows {
		course := row.toModel()
		if list, ok := byCourse[course.ID]; ok {
			course.Assignments = list
		}
		courses = append(courses, course)
	}
	return courses, nil
}

func (r *CourseRepository) Update(ctx context.Context, course *model.Course) error {
	result, err := r.db.NamedExecContext(
		ctx,
		`UPDATE courses SET name = :name, code = :code, instructor = :instructor
		 WHERE id = :id AND user_id = :user_id`,
		fromCourse(course),
	)
	if err != nil {
		return fmt.Errorf("update course: %w", err)
	}
	return affectedOrNotFound(result)
}

func (r *CourseRepository) Delete(ctx context.Context, userID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM courses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete course: %w", err)
	}
	return affectedOrNotFound(result)
}

func (r *CourseRepository) CreateAssignment(ctx context.Context, assignment *model.Assignment) error {
	row, err := fromAssignment(assignment)
	if err != nil {
		return err
	}
	if _, err := r.db.NamedExecContext(
		ctx,
		`INSERT INTO assignments (
			id, course_id, title, due_date, done, description, estimated_hours, linked_task_ids
		) VALUES (
			:id, :course_id, :title, :due_date, :done, :description, :estimated_hours, :linked_task_ids
		)`,
		row,
	); err != nil {
		return fmt.Errorf("create assignment: %w", err)
	}
	return nil
}

func (r *CourseRepository) GetAssignment(ctx context.Context, userID, courseID, id string) (*model.Assignment, error) {
	assignments, err := r.listAssignments(
		ctx,
		selectAssignment+` WHERE c.user_id = ? AND a.course_id = ? AND a.id = ?`,
		userID,
		courseID,
		id,
	)
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return nil, ErrNotFound
	}
	return &assignments[0], nil
}

func (r *CourseRepository) UpdateAssignment(ctx context.Context, assignment *model.Assignment) error {
	row, err := fromAssignment(assignment)
	if err != nil {
		return err
	}
	result, err := r.db.NamedExecContext(
		ctx,
		`UPDATE assignments
		 SET title = :title, due_date = :due_date, done = :done, description = :description,
		     estimated_hours = :estimated_hours, linked_task_ids = :linked_task_ids
		 WHERE id = :id AND course_id = :course_id`,
		row,
	)
	if err != nil {
		return fmt.Errorf("update assignment: %w", err)
	}
	return affectedOrNotFound(result)
}

func (r *CourseRepository) DeleteAssignment(ctx context.Context, courseID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM assignments WHERE id = ? AND course_id = ?`, id, courseID)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return affectedOrNotFound(result)
}

// ListOpenAssignmentsDueBefore returns the user's unfinished assignments due
// before the given instant.
func (r *CourseRepository) ListOpenAssignmentsDueBefore(ctx context.Context, userID string, before time.Time) ([]model.Assignment, error) {
	return r.listAssignments(
		ctx,
		selectAssignment+` WHERE c.user_id = ? AND a.done = 0 AND a.due_date < ? ORDER BY a.due_date`,
		userID,
		formatTime(before),
	)
}

func (r *CourseRepository) listAssignments(ctx context.Context, query string, args ...interface{}) ([]model.Assignment, error) {
	rows := make([]assignmentRow, 0)
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	assignments := make([]model.Assignment, 0, len(rows))
	for _, row := range rows {
		assignment, err := row.toModel()
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment)
	}
	return assignments, nil
}

func fromCourse(course *model.Course) courseRow {
	return courseRow{
		ID:         course.ID,
		UserID:     course.UserID,
		Name:       course.Name,
		Code:       course.Code,
		Instructor: course.Instructor,
	}
}

func (row courseRow) toModel() model.Course {
	return model.Course{
		ID:          row.ID,
		UserID:      row.UserID,
		Name:        row.Name,
		Code:        row.Code,
		Instructor:  row.Instructor,
		Assignments: []model.Assignment{},
	}
}

func fromAssignment(assignment *model.Assignment) (assignmentRow, error) {
	linked := assignment.LinkedTaskIDs
	if linked == nil {
		linked = []string{}
	}
	encoded, err := json.Marshal(linked)
	if err != nil {
		return assignmentRow{}, fmt.Errorf("encode linked task ids: %w", err)
	}
	return assignmentRow{
		ID:             assignment.ID,
		CourseID:       assignment.CourseID,
		Title:          assignment.Title,
		DueDate:        formatTime(assignment.DueDate),
		Done:           assignment.Done,
		Description:    assignment.Description,
		EstimatedHours: assignment.EstimatedHours,
		LinkedTaskIDs:  string(encoded),
	}, nil
}

func (row assignmentRow) toModel() (model.Assignment, error) {
	dueDate, err := parseTime(row.DueDate)
	if err != nil {
		return model.Assignment{}, fmt.Errorf("parse assignment due_date: %w", err)
	}
	linked := []string{}
	if row.LinkedTaskIDs != "" {
		if err := json.Unmarshal([]byte(row.LinkedTaskIDs), &linked); err != nil {
			return model.Assignment{}, fmt.Errorf("decode linked task ids: %w", err)
		}
	}
	return model.Assignment{
		ID:             row.ID,
		CourseID:       row.CourseID,
		Title:          row.Title,
		DueDate:        dueDate,
		Done:           row.Done,
		Description:    row.Description,
		EstimatedHours: row.EstimatedHours,
		LinkedTaskIDs:  linked,
	}, nil
}
