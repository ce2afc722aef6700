package content

import (
	"github.com/frenchbreeze/breeze/internal/profile"
	"github.com/frenchbreeze/breeze/internal/streak"
)

// Dashboard summarizes a learner's progress through the catalog.
type Dashboard struct {
	Name          string        `json:"name"`
	Level         profile.Level `json:"level"`
	Completed     int           `json:"completed"`
	Total         int           `json:"total"`
	Percent       int           `json:"percent"`
	DailyStreak   int           `json:"dailyStreak"`
	NextMilestone int           `json:"nextMilestone"`
	// Suggested is the first unfinished lesson at the learner's level, if any.
	Suggested *Lesson `json:"suggested,omitempty"`
}

// Dashboard builds the progress summary of p. Completion flags for lessons
// no longer in the catalog are not counted.
func (c *Catalog) Dashboard(p profile.Profile) Dashboard {
	d := Dashboard{
		Name:          p.Name,
		Level:         p.Level,
		Completed:     p.CompletedAmong(c.LessonIDs()),
		Total:         len(c.lessons),
		DailyStreak:   p.DailyStreak,
		NextMilestone: streak.NextMilestone(p.DailyStreak),
	}
	d.Percent = Percent(d.Completed, d.Total)
	for _, l := range c.LessonsByLevel(p.Level) {
		if !p.Progress[l.ID] {
			d.Suggested = &l
			break
		}
	}
	return d
}
