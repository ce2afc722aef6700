package streak

// Correction describes a self-healing write required after a snapshot.
type Correction struct {
	Needed        bool
	DailyStreak   int
	LastLoginDate Day
}

// Validate applies the snapshot rule to a stored streak. A last visit more
// than one day in the past breaks the streak; a last visit in the future is
// clamped to today with the count kept. A negative count is reset to zero.
func Validate(current int, last, today Day) Correction {
	if last.IsZero() {
		if current < 0 {
			return Correction{Needed: true}
		}
		return Correction{}
	}
	diff := today.DaysSince(last)
	switch {
	case diff < 0:
		return Correction{Needed: true, DailyStreak: max(current, 0), LastLoginDate: today}
	case diff <= 1:
		if current < 0 {
			return Correction{Needed: true, DailyStreak: 0, LastLoginDate: last}
		}
		return Correction{}
	default:
		return Correction{Needed: true, DailyStreak: 0, LastLoginDate: today}
	}
}

// Next computes the streak after a qualifying visit today. changed is false
// when the visit was already counted.
//
// A zero streak with a visit recorded today (a fresh or just-healed profile)
// has not counted today yet, so it becomes 1.
func Next(current int, last, today Day) (next int, changed bool) {
	if last.IsZero() {
		return 1, true
	}
	diff := today.DaysSince(last)
	switch {
	case diff <= 0:
		if current <= 0 {
			return 1, true
		}
		return current, false
	case diff == 1:
		return max(current, 0) + 1, true
	default:
		return 1, true
	}
}
