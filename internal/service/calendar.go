package service

import (
	"time"

	"focusjournal/backend/internal/model"
)

// Calendar turns the clock into the calendar days the journal is keyed by.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

func NewCalendar(loc *time.Location, now func() time.Time) *Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &Calendar{loc: loc, now: now}
}

func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

func (c *Calendar) Today() string {
	return c.Now().Format(model.DateLayout)
}

// ParseDate accepts a YYYY-MM-DD day in the calendar's location.
func (c *Calendar) ParseDate(raw string) (time.Time, error) {
	return time.ParseInLocation(model.DateLayout, raw, c.loc)
}

// DayBounds returns the half-open interval covering date.
func (c *Calendar) DayBounds(date string) (time.Time, time.Time, error) {
	start, err := c.ParseDate(date)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 0, 1), nil
}

// DaysEndingAt lists n consecutive dates, oldest first, ending with date.
func (c *Calendar) DaysEndingAt(date string, n int) ([]string, error) {
	end, err := c.ParseDate(date)
	if err != nil {
		return nil, err
	}
	if n < 1 {
		n = 1
	}
	days := make([]string, n)
	for i := range days {
		days[i] = end.AddDate(0, 0, i-n+1).Format(model.DateLayout)
	}
	return days, nil
}

// ParseInstant accepts either an RFC 3339 timestamp or a bare date, which
// is read as the start of that day.
func (c *Calendar) ParseInstant(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return c.ParseDate(raw)
}
