package service

import (
	"time"

	"routine-coach/internal/habit"
)

// Clock tells services what "today" is.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// SystemClock uses the wall clock in loc, or the process zone when nil.
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return Clock{Now: time.Now, Location: loc}
}

// Current returns the current time in the clock location.
func (c Clock) Current() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}

// Today returns the current calendar date.
func (c Clock) Today() string {
	return habit.DateOf(c.Current())
}
