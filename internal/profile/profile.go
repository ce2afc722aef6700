// Package profile defines the per-user learning profile and its document codec.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/frenchbreeze/breeze/internal/streak"
)

// Collection is the document collection holding profiles, keyed by identity id.
const Collection = "users"

// Document field names.
const (
	FieldName          = "name"
	FieldEmail         = "email"
	FieldLevel         = "level"
	FieldProgress      = "progress"
	FieldDailyStreak   = "dailyStreak"
	FieldLastLoginDate = "lastLoginDate"
	FieldCreatedAt     = "createdAt"
)

// ErrInvalidLessonID is returned for lesson ids that cannot be used as a field path.
var ErrInvalidLessonID = errors.New("invalid lesson id")

// Profile is the in-memory projection of a user document.
type Profile struct {
	Name          string          `json:"name,omitempty"`
	Email         string          `json:"email,omitempty"`
	Level         Level           `json:"level,omitempty"`
	Progress      map[string]bool `json:"progress"`
	DailyStreak   int             `json:"dailyStreak"`
	LastLoginDate streak.Day      `json:"lastLoginDate"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	cp := p
	cp.Progress = make(map[string]bool, len(p.Progress))
	maps.Copy(cp.Progress, p.Progress)
	return cp
}

// Onboarded reports whether the learner picked both a name and a level.
func (p Profile) Onboarded() bool {
	return strings.TrimSpace(p.Name) != "" && p.Level != LevelUnset
}

// CompletedAmong counts completed lessons whose id is in known.
func (p Profile) CompletedAmong(known []string) int {
	n := 0
	for _, id := range known {
		if p.Progress[id] {
			n++
		}
	}
	return n
}

// ProgressPath returns the dotted field path of a lesson's completion flag.
func ProgressPath(lessonID string) string {
	return FieldProgress + "." + lessonID
}

// ValidateLessonID rejects ids that would split into nested field paths.
func ValidateLessonID(id string) error {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, ".$") {
		return fmt.Errorf("%w: %q", ErrInvalidLessonID, id)
	}
	return nil
}

// Fields encodes p as a full document. Empty strings are stored as null.
func (p Profile) Fields() map[string]any {
	progress := make(map[string]any, len(p.Progress))
	for k, v := range p.Progress {
		progress[k] = v
	}
	f := map[string]any{
		FieldName:          nullable(p.Name),
		FieldEmail:         nullable(p.Email),
		FieldLevel:         nullable(string(p.Level)),
		FieldProgress:      progress,
		FieldDailyStreak:   p.DailyStreak,
		FieldLastLoginDate: nullable(p.LastLoginDate.String()),
	}
	if !p.CreatedAt.IsZero() {
		f[FieldCreatedAt] = p.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return f
}

// StreakFields is the partial document written by a streak update.
func StreakFields(n int, last streak.Day) map[string]any {
	return map[string]any{
		FieldDailyStreak:   n,
		FieldLastLoginDate: nullable(last.String()),
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// FromFields decodes a stored document with timestamps read in UTC.
func FromFields(f map[string]any) (Profile, error) {
	return FromFieldsIn(f, time.UTC)
}

// FromFieldsIn decodes a stored document. A lastLoginDate stored as a
// timestamp counts for the calendar day it falls on in loc. Numeric fields
// accept any of the representations produced by the supported backends.
// A negative dailyStreak is returned as stored so the streak rules can
// correct it.
func FromFieldsIn(f map[string]any, loc *time.Location) (Profile, error) {
	p := Profile{Progress: map[string]bool{}}
	p.Name = stringField(f[FieldName])
	p.Email = stringField(f[FieldEmail])

	lvl, err := ParseLevel(stringField(f[FieldLevel]))
	if err != nil {
		return Profile{}, err
	}
	p.Level = lvl

	if raw, ok := f[FieldProgress].(map[string]any); ok {
		for k, v := range raw {
			if b, ok := v.(bool); ok {
				p.Progress[k] = b
			}
		}
	}

	n, err := IntField(f[FieldDailyStreak])
	if err != nil {
		return Profile{}, fmt.Errorf("%s: %w", FieldDailyStreak, err)
	}
	p.DailyStreak = n

	switch v := f[FieldLastLoginDate].(type) {
	case time.Time:
		p.LastLoginDate = streak.DayOf(v, loc)
	default:
		d, err := streak.ParseDayIn(stringField(v), loc)
		if err != nil {
			return Profile{}, fmt.Errorf("%s: %w", FieldLastLoginDate, err)
		}
		p.LastLoginDate = d
	}

	switch v := f[FieldCreatedAt].(type) {
	case time.Time:
		p.CreatedAt = v.UTC()
	case string:
		if v != "" {
			t, err := time.Parse(time.RFC3339Nano, v)
			if err != nil {
				return Profile{}, fmt.Errorf("%s: %w", FieldCreatedAt, err)
			}
			p.CreatedAt = t.UTC()
		}
	}
	return p, nil
}

func stringField(v any) string {
	s, _ := v.(string)
	return s
}

// IntField converts a decoded numeric value to int. nil yields 0.
func IntField(v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0, err
			}
			return int(f), nil
		}
		return int(i), nil
	case string:
		var i int
		if _, err := fmt.Sscanf(n, "%d", &i); err != nil {
			return 0, fmt.Errorf("not a number: %q", n)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("unexpected numeric type %T", v)
	}
}
