// Package views renders learner-facing screens as styled terminal text.
package views

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/frenchbreeze/breeze/internal/content"
	"github.com/frenchbreeze/breeze/internal/profile"
	"github.com/frenchbreeze/breeze/internal/streak"
	"github.com/frenchbreeze/breeze/internal/ui/components"
	"github.com/frenchbreeze/breeze/internal/ui/layout"
	"github.com/frenchbreeze/breeze/internal/ui/theme"
)

// Onboarding tells a learner without a name or level how to finish setup.
func Onboarding(p profile.Profile) string {
	var steps []layout.CommandHint
	if p.Name == "" {
		steps = append(steps, layout.CommandHint{Command: "breeze name <your name>", Description: "choose your display name"})
	}
	if p.Level == profile.LevelUnset {
		steps = append(steps, layout.CommandHint{Command: "breeze level <Beginner|Intermediate|Advanced>", Description: "pick your level"})
	}
	lines := []string{theme.Title.Render("Bienvenue ! Let's finish setting up."), ""}
	for _, s := range steps {
		lines = append(lines, "  "+theme.Emphasis.Render(s.Command)+"  "+theme.Subtitle.Render(s.Description))
	}
	return strings.Join(lines, "\n")
}

// Dashboard renders the progress summary card.
func Dashboard(d content.Dashboard, width int) string {
	header := layout.RenderHeader("Dashboard", d.Name, d.DailyStreak, width)

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", theme.Title.Render("Bonjour, "+d.Name+" !"), theme.Subtitle.Render("("+d.Level.String()+")"))

	bar := components.NewProgressBar("Lessons", d.Percent, true, width-8)
	b.WriteString(bar.View() + "\n")
	b.WriteString(theme.Subtitle.Render(fmt.Sprintf("%d of %d lessons completed", d.Completed, d.Total)) + "\n\n")

	b.WriteString(streakLine(d.DailyStreak, d.NextMilestone) + "\n")

	if d.Suggested != nil {
		fmt.Fprintf(&b, "\n%s %s %s",
			theme.Body.Render("Up next:"),
			theme.Emphasis.Render(d.Suggested.Title),
			theme.Hint.Render("breeze lesson "+d.Suggested.ID))
	}

	footer := layout.RenderFooter([]layout.CommandHint{
		{Command: "lessons", Description: "browse"},
		{Command: "flashcards", Description: "review"},
		{Command: "quizzes", Description: "test yourself"},
	})
	return layout.RenderFrame(header, theme.Card.Width(width).Render(b.String()), footer)
}

func streakLine(n, next int) string {
	if n == 0 {
		return theme.Body.Render("Start a streak today: complete a lesson or a quiz.")
	}
	days := "days"
	if n == 1 {
		days = "day"
	}
	line := theme.Streak.Render(fmt.Sprintf("🔥 %d %s streak", n, days))
	if streak.IsMilestone(n) {
		line += "  " + theme.Correct.Render("Milestone reached!")
	}
	return line + "  " + theme.Subtitle.Render(fmt.Sprintf("next milestone: %d", next))
}

// Lessons lists lessons grouped by topic, marking completed ones.
func Lessons(topics []string, lessons []content.Lesson, progress map[string]bool) string {
	var b strings.Builder
	for _, topic := range topics {
		var rows []string
		for _, l := range lessons {
			if l.Topic != topic {
				continue
			}
			mark := theme.Subtitle.Render("○")
			if progress[l.ID] {
				mark = theme.Correct.Render("✓")
			}
			rows = append(rows, fmt.Sprintf("  %s %-14s %s %s", mark, l.ID, theme.Body.Render(l.Title), theme.Hint.Render(l.Level.String())))
		}
		if len(rows) == 0 {
			continue
		}
		b.WriteString(theme.Title.Render(topic) + "\n")
		b.WriteString(strings.Join(rows, "\n") + "\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Lesson renders one lesson's vocabulary and grammar tip.
func Lesson(l content.Lesson, completed bool) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render(l.Title) + "  " + theme.Subtitle.Render(l.Topic+" · "+l.Level.String()) + "\n\n")

	wordWidth := 0
	for _, v := range l.Vocabulary {
		wordWidth = max(wordWidth, lipgloss.Width(v.Word))
	}
	for _, v := range l.Vocabulary {
		pad := strings.Repeat(" ", wordWidth-lipgloss.Width(v.Word))
		fmt.Fprintf(&b, "  %s%s  %s\n", theme.Emphasis.Render(v.Word), pad, theme.Body.Render(v.Translation))
		if v.Example != "" {
			fmt.Fprintf(&b, "  %s  %s\n", strings.Repeat(" ", wordWidth), theme.Hint.Render(v.Example))
		}
	}
	if l.GrammarTip != "" {
		b.WriteString("\n" + theme.Body.Render("Grammar tip: ") + theme.Subtitle.Render(l.GrammarTip) + "\n")
	}
	if completed {
		b.WriteString("\n" + theme.Correct.Render("✓ Completed"))
	} else {
		b.WriteString("\n" + theme.Hint.Render("Mark it done with: breeze complete "+l.ID))
	}
	return b.String()
}

// Flashcards renders a flashcard set as a two-column table.
func Flashcards(set content.FlashcardSet) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render(set.Topic) + "  " + theme.Subtitle.Render(set.Level.String()) + "\n\n")
	for i, c := range set.Cards {
		hint := ""
		if c.PronunciationHint != "" {
			hint = theme.Hint.Render("[" + c.PronunciationHint + "]")
		}
		fmt.Fprintf(&b, "  %2d. %s  %s  %s\n", i+1, theme.Emphasis.Render(c.Front), theme.Body.Render("→ "+c.Back), hint)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Question renders one quiz question for the prompt.
func Question(n, total int, q content.Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", theme.Subtitle.Render(fmt.Sprintf("Question %d/%d", n, total)), theme.Emphasis.Render(q.Prompt()))
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "  %c) %s\n", 'a'+i, theme.Body.Render(opt))
	}
	return b.String()
}

// QuizResult renders the graded attempt.
func QuizResult(quiz content.Quiz, r content.Result) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render(quiz.Title+" complete") + "\n")
	fmt.Fprintf(&b, "You scored %d out of %d (%d%%)\n", r.Correct, r.Total, r.Percent)
	if r.Excellent {
		b.WriteString(theme.Correct.Render("Excellent work!") + "\n")
	} else {
		b.WriteString(theme.Incorrect.Render("Good effort! Keep practicing.") + "\n")
	}
	for _, i := range r.Missed {
		q := quiz.Questions[i]
		fmt.Fprintf(&b, "  %s %s %s\n", theme.Incorrect.Render("✗"), theme.Body.Render(q.Prompt()), theme.Hint.Render("answer: "+q.CorrectAnswer))
	}
	if r.Passed {
		b.WriteString("\n" + theme.Hint.Render(fmt.Sprintf("Claim your certificate: breeze certificate %s --score %d", quiz.ID, r.Percent)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// Certificate renders a completion certificate.
func Certificate(c content.Certificate) string {
	body := strings.Join([]string{
		theme.Title.Render("French Breeze"),
		theme.Subtitle.Render("Certificate of Completion"),
		"",
		theme.Body.Render("This certifies that"),
		lipgloss.NewStyle().Foreground(theme.Gold).Bold(true).Render(c.LearnerName),
		theme.Body.Render("has successfully completed"),
		theme.Emphasis.Render(c.QuizTitle),
		theme.Body.Render(fmt.Sprintf("achieving a score of %d%%", c.Percent)),
		"",
		theme.Hint.Render("Issued " + c.IssuedAt.Format("January 2, 2006")),
	}, "\n")
	return theme.Certificate.Render(body)
}
