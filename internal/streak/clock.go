package streak

import "time"

// Clock abstracts wall-clock time so tests can pin "today".
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return realClock{} }

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// Calendar turns instants into Days in one configured timezone.
type Calendar struct {
	Clock    Clock
	Location *time.Location
}

// NewCalendar returns a Calendar; nil arguments default to the system clock and UTC.
func NewCalendar(clock Clock, loc *time.Location) Calendar {
	if clock == nil {
		clock = SystemClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{Clock: clock, Location: loc}
}

// Now returns the current instant.
func (c Calendar) Now() time.Time {
	if c.Clock == nil {
		return time.Now()
	}
	return c.Clock.Now()
}

// Today returns the current calendar day.
func (c Calendar) Today() Day {
	return DayOf(c.Now(), c.Location)
}
