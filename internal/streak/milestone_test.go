package streak

import "testing"

func TestNextMilestone(t *testing.T) {
	tests := []struct {
		current int
		want    int
	}{
		{0, 3},
		{2, 3},
		{3, 7},
		{7, 14},
		{13, 14},
		{29, 30},
		{30, 60},
		{61, 90},
	}
	for _, tt := range tests {
		if got := NextMilestone(tt.current); got != tt.want {
			t.Errorf("NextMilestone(%d) = %d, want %d", tt.current, got, tt.want)
		}
	}
}

func TestIsMilestone(t *testing.T) {
	for _, n := range []int{3, 7, 14, 30, 60} {
		if !IsMilestone(n) {
			t.Errorf("IsMilestone(%d) = false", n)
		}
	}
	for _, n := range []int{0, 1, 5, 31} {
		if IsMilestone(n) {
			t.Errorf("IsMilestone(%d) = true", n)
		}
	}
}
