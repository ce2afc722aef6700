package streak

// FirstMilestone is the shortest streak worth celebrating.
const FirstMilestone = 3

// NextMilestone returns the next streak milestone above the current length.
func NextMilestone(current int) int {
	thresholds := []int{3, 7, 14, 30}
	for _, t := range thresholds {
		if t > current {
			return t
		}
	}
	// Beyond 30, every 30 days.
	return ((current / 30) + 1) * 30
}

// IsMilestone reports whether n is exactly a milestone length.
func IsMilestone(n int) bool {
	if n <= 0 {
		return false
	}
	return NextMilestone(n-1) == n
}
