package profile

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/frenchbreeze/breeze/internal/streak"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"Beginner", LevelBeginner, false},
		{"intermediate", LevelIntermediate, false},
		{" ADVANCED ", LevelAdvanced, false},
		{"", LevelUnset, false},
		{"none", LevelUnset, false},
		{"Expert", LevelUnset, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) err = %v", tt.in, err)
		}
		if tt.wantErr && !errors.Is(err, ErrInvalidLevel) {
			t.Errorf("ParseLevel(%q) err = %v, want ErrInvalidLevel", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFromFields_JSONDecoded(t *testing.T) {
	raw := `{"name":"Amélie","email":"a@example.com","level":"Advanced",
		"progress":{"greetings-1":true,"food-1":false},
		"dailyStreak":4,"lastLoginDate":"2024-05-09","createdAt":"2024-01-02T03:04:05Z"}`
	var f map[string]any
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		t.Fatal(err)
	}

	p, err := FromFields(f)
	if err != nil {
		t.Fatalf("FromFields: %v", err)
	}
	if p.Name != "Amélie" || p.Level != LevelAdvanced || p.DailyStreak != 4 {
		t.Errorf("unexpected profile: %+v", p)
	}
	if !p.Progress["greetings-1"] || p.Progress["food-1"] {
		t.Errorf("progress = %v", p.Progress)
	}
	if p.LastLoginDate != streak.NewDay(2024, 5, 9) {
		t.Errorf("lastLoginDate = %s", p.LastLoginDate)
	}
	if !p.CreatedAt.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)) {
		t.Errorf("createdAt = %s", p.CreatedAt)
	}
}

func TestFromFields_NullsAndNumericVariants(t *testing.T) {
	for _, n := range []any{int(3), int32(3), int64(3), float64(3), json.Number("3")} {
		p, err := FromFields(map[string]any{
			FieldName:        nil,
			FieldLevel:       nil,
			FieldDailyStreak: n,
		})
		if err != nil {
			t.Fatalf("FromFields(%T): %v", n, err)
		}
		if p.DailyStreak != 3 {
			t.Errorf("%T: streak = %d", n, p.DailyStreak)
		}
		if p.Name != "" || p.Level != LevelUnset || !p.LastLoginDate.IsZero() {
			t.Errorf("%T: expected empty fields, got %+v", n, p)
		}
	}
}

func TestFromFields_NegativeStreakKept(t *testing.T) {
	p, err := FromFields(map[string]any{FieldDailyStreak: -2})
	if err != nil {
		t.Fatal(err)
	}
	if p.DailyStreak != -2 {
		t.Errorf("streak = %d, want -2", p.DailyStreak)
	}
}

func TestFromFieldsIn_TimestampUsesLocation(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	late := time.Date(2024, 6, 15, 2, 0, 0, 0, time.UTC) // 22:00 on June 14 in New York

	tests := []struct {
		name string
		in   any
		loc  *time.Location
		want string
	}{
		{"string in utc", "2024-06-15T02:00:00Z", time.UTC, "2024-06-15"},
		{"string in new york", "2024-06-15T02:00:00Z", ny, "2024-06-14"},
		{"time in new york", late, ny, "2024-06-14"},
		{"plain date ignores zone", "2024-06-15", ny, "2024-06-15"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := FromFieldsIn(map[string]any{FieldLastLoginDate: tt.in}, tt.loc)
			if err != nil {
				t.Fatal(err)
			}
			if got := p.LastLoginDate.String(); got != tt.want {
				t.Errorf("lastLoginDate = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFields_RoundTrip(t *testing.T) {
	in := Profile{
		Name:          "Jo",
		Level:         LevelBeginner,
		Progress:      map[string]bool{"travel-1": true},
		DailyStreak:   2,
		LastLoginDate: streak.NewDay(2024, 2, 29),
		CreatedAt:     time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	f := in.Fields()
	if f[FieldEmail] != nil {
		t.Errorf("empty email should encode as nil, got %v", f[FieldEmail])
	}
	out, err := FromFields(f)
	if err != nil {
		t.Fatal(err)
	}
	if out.Name != in.Name || out.Level != in.Level || out.DailyStreak != in.DailyStreak ||
		out.LastLoginDate != in.LastLoginDate || !out.CreatedAt.Equal(in.CreatedAt) || !out.Progress["travel-1"] {
		t.Errorf("round trip mismatch: %+v", out)
	}
}

func TestValidateLessonID(t *testing.T) {
	for _, id := range []string{"greetings-1", "daily-life-1"} {
		if err := ValidateLessonID(id); err != nil {
			t.Errorf("ValidateLessonID(%q) = %v", id, err)
		}
	}
	for _, id := range []string{"", " ", "a.b", "$set"} {
		if err := ValidateLessonID(id); !errors.Is(err, ErrInvalidLessonID) {
			t.Errorf("ValidateLessonID(%q) = %v, want ErrInvalidLessonID", id, err)
		}
	}
}

func TestClone_Independent(t *testing.T) {
	p := Profile{Progress: map[string]bool{"a": true}}
	c := p.Clone()
	c.Progress["b"] = true
	if p.Progress["b"] {
		t.Error("clone shares progress map")
	}
}

func TestOnboarded(t *testing.T) {
	if (Profile{Name: "x"}).Onboarded() {
		t.Error("missing level should not be onboarded")
	}
	if !(Profile{Name: "x", Level: LevelBeginner}).Onboarded() {
		t.Error("expected onboarded")
	}
}
