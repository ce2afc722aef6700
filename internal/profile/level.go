package profile

import (
	"errors"
	"fmt"
	"strings"
)

// Level is a self-reported proficiency level.
type Level string

const (
	LevelUnset        Level = ""
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
)

// AllLevels lists the selectable levels in ascending order.
var AllLevels = []Level{LevelBeginner, LevelIntermediate, LevelAdvanced}

// ErrInvalidLevel is returned for a level outside the enumerated set.
var ErrInvalidLevel = errors.New("invalid level")

// Valid reports whether l is one of the enumerated levels or unset.
func (l Level) Valid() bool {
	switch l {
	case LevelUnset, LevelBeginner, LevelIntermediate, LevelAdvanced:
		return true
	}
	return false
}

// String returns the level name.
func (l Level) String() string { return string(l) }

// ParseLevel parses a level name case-insensitively. "" and "none" yield LevelUnset.
func ParseLevel(s string) (Level, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return LevelUnset, nil
	}
	for _, l := range AllLevels {
		if strings.EqualFold(s, string(l)) {
			return l, nil
		}
	}
	return LevelUnset, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
}
