package views

import (
	"strings"
	"testing"
	"time"

	"github.com/frenchbreeze/breeze/internal/content"
	"github.com/frenchbreeze/breeze/internal/profile"
)

func TestOnboarding(t *testing.T) {
	out := Onboarding(profile.Profile{Name: "Ana"})
	if strings.Contains(out, "breeze name") || !strings.Contains(out, "breeze level") {
		t.Errorf("onboarding for named learner = %q", out)
	}
	out = Onboarding(profile.Profile{})
	if !strings.Contains(out, "breeze name") || !strings.Contains(out, "breeze level") {
		t.Errorf("onboarding for new learner = %q", out)
	}
}

func TestDashboard(t *testing.T) {
	d := content.Default().Dashboard(profile.Profile{
		Name:        "Ana",
		Level:       profile.LevelBeginner,
		Progress:    map[string]bool{"greetings-1": true},
		DailyStreak: 3,
	})
	out := Dashboard(d, 72)
	for _, want := range []string{"Ana", "1 of 10 lessons completed", "Milestone reached!", "next milestone: 7", "breeze lesson food-1"} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard missing %q:\n%s", want, out)
		}
	}
}

func TestStreakLine(t *testing.T) {
	if out := streakLine(0, 3); !strings.Contains(out, "Start a streak") {
		t.Errorf("zero streak = %q", out)
	}
	if out := streakLine(1, 3); !strings.Contains(out, "1 day streak") || strings.Contains(out, "Milestone") {
		t.Errorf("one day = %q", out)
	}
}

func TestLessonsMarksCompletion(t *testing.T) {
	c := content.Default()
	out := Lessons(c.Topics(), c.Lessons(), map[string]bool{"food-1": true})
	if !strings.Contains(out, "✓") || strings.Count(out, "✓") != 1 {
		t.Errorf("expected exactly one completed mark:\n%s", out)
	}
	if !strings.Contains(out, "Daily Life") {
		t.Error("topic heading missing")
	}
}

func TestQuizResult(t *testing.T) {
	quiz, _ := content.Default().Quiz("travel-quiz-1")
	r, _ := quiz.Grade([]string{"Where is the train station?", "droite"})
	out := QuizResult(quiz, r)
	if !strings.Contains(out, "1 out of 2 (50%)") || !strings.Contains(out, "answer: gauche") {
		t.Errorf("result = %s", out)
	}
	if strings.Contains(out, "certificate") {
		t.Error("failed attempt offered a certificate")
	}
}

func TestCertificate(t *testing.T) {
	quiz, _ := content.Default().Quiz("food-quiz-1")
	cert, err := content.NewCertificate(quiz, "", 100, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	out := Certificate(cert)
	for _, want := range []string{"Dedicated Learner", "Food Vocabulary", "100%", "June 15, 2024"} {
		if !strings.Contains(out, want) {
			t.Errorf("certificate missing %q", want)
		}
	}
}
