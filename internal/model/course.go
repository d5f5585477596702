package model

import "time"

type Course struct {
	ID          string       `json:"id"`
	UserID      string       `json:"-"`
	Name        string       `json:"name"`
	Code        string       `json:"code"`
	Instructor  string       `json:"instructor"`
	Assignments []Assignment `json:"assignments"`
}

type Assignment struct {
	ID             string    `json:"id"`
	CourseID       string    `json:"courseId"`
	Title          string    `json:"title"`
	DueDate        time.Time `json:"dueDate"`
	Done           bool      `json:"done"`
	Description    string    `json:"description,omitempty"`
	EstimatedHours float64   `json:"estimatedHours"`
	LinkedTaskIDs  []string  `json:"linkedTaskIds"`
}

// IsOverdue reports whether the assignment is still open after its due date.
func (a Assignment) IsOverdue(now time.Time) bool {
	return !a.Done && a.DueDate.Before(now)
}
