package model

import "time"

// Task categories as shown in the app.
const (
	CategoryUniversity = "دانشگاه"
	CategoryProject    = "پروژه"
	CategoryPersonal   = "شخصی"
)

// DateLayout is the calendar-day format used for task and reflection dates.
const DateLayout = "2006-01-02"

type Task struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Date      string    `json:"date"`
	Done      bool      `json:"done"`
	CreatedAt time.Time `json:"createdAt"`
}

func IsValidCategory(category string) bool {
	switch category {
	case CategoryUniversity, CategoryProject, CategoryPersonal:
		return true
	}
	return false
}
