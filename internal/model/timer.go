package model

import (
	"time"

	"focusjournal/backend/internal/timer"
)

const (
	StatusIdle    = "idle"
	StatusRunning = "running"
	StatusPaused  = "paused"
)

// TimerRecord is the durable copy of a user's timer state together with the
// version used for optimistic concurrency.
type TimerRecord struct {
	UserID    string
	State     timer.State
	Version   int
	UpdatedAt time.Time
}

// FocusSession is a finished phase as stored for one user.
type FocusSession struct {
	timer.FocusSession
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
