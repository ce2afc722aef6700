// Package streak implements calendar-day arithmetic and the daily-streak rules.
package streak

import (
	"fmt"
	"time"
)

// DateLayout is the wire form of a Day.
const DateLayout = "2006-01-02"

// Day is a calendar date with no time-of-day component. The zero Day means
// "absent" (a profile that never recorded a visit).
type Day struct {
	t time.Time // midnight UTC of the date
}

// NewDay returns the Day for the given date.
func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf returns the calendar date t falls on in loc. A nil loc means UTC.
func DayOf(t time.Time, loc *time.Location) Day {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return NewDay(y, m, d)
}

// ParseDay accepts "YYYY-MM-DD" or an RFC 3339 timestamp. Timestamps are
// reduced to their UTC date. The empty string yields the zero Day.
func ParseDay(s string) (Day, error) {
	return ParseDayIn(s, time.UTC)
}

// ParseDayIn is ParseDay with timestamps reduced to their date in loc.
// Plain dates are taken as written.
func ParseDayIn(s string, loc *time.Location) (Day, error) {
	if s == "" {
		return Day{}, nil
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return NewDay(t.Date()), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Day{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return DayOf(t, loc), nil
}

// IsZero reports whether d is absent.
func (d Day) IsZero() bool { return d.t.IsZero() }

// String returns "YYYY-MM-DD", or "" for the zero Day.
func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(DateLayout)
}

// AddDays returns d shifted by n days.
func (d Day) AddDays(n int) Day {
	return Day{t: d.t.AddDate(0, 0, n)}
}

// DaysSince returns the whole number of calendar days from earlier to d.
// Negative when earlier lies after d.
func (d Day) DaysSince(earlier Day) int {
	return int(d.t.Sub(earlier.t).Hours() / 24)
}

// Before reports whether d is strictly earlier than o.
func (d Day) Before(o Day) bool { return d.t.Before(o.t) }

// After reports whether d is strictly later than o.
func (d Day) After(o Day) bool { return d.t.After(o.t) }

// Time returns midnight UTC of d.
func (d Day) Time() time.Time { return d.t }

// MarshalText implements encoding.TextMarshaler.
func (d Day) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
