package content

import (
	"fmt"
	"math"
	"strings"

	"github.com/frenchbreeze/breeze/internal/profile"
)

// QuestionType distinguishes quiz question shapes.
type QuestionType string

const (
	MultipleChoice QuestionType = "multiple-choice"
	FillInTheBlank QuestionType = "fill-in-the-blank"
)

// Grading thresholds, in percent.
const (
	PassPercent      = 60
	ExcellentPercent = 70
)

// Question is a quiz question. Multiple-choice questions carry Question and
// Options; fill-in-the-blank questions carry Sentence with a "___" gap.
type Question struct {
	Type          QuestionType `json:"type"`
	Question      string       `json:"question,omitempty"`
	Sentence      string       `json:"sentence,omitempty"`
	Options       []string     `json:"options,omitempty"`
	CorrectAnswer string       `json:"correctAnswer"`
	AudioHint     string       `json:"audioHint,omitempty"`
}

// Prompt returns the text shown to the learner.
func (q Question) Prompt() string {
	if q.Type == FillInTheBlank {
		return q.Sentence
	}
	return q.Question
}

// Check reports whether answer matches, ignoring case and surrounding space.
func (q Question) Check(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(q.CorrectAnswer))
}

// Quiz is a graded set of questions on one topic.
type Quiz struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Topic     string        `json:"topic"`
	Level     profile.Level `json:"level"`
	Questions []Question    `json:"questions"`
}

// Result is a graded quiz attempt.
type Result struct {
	QuizID    string `json:"quizId"`
	Correct   int    `json:"correct"`
	Total     int    `json:"total"`
	Percent   int    `json:"percent"`
	Passed    bool   `json:"passed"`
	Excellent bool   `json:"excellent"`
	// Missed holds the indexes of wrong or unanswered questions.
	Missed []int `json:"missed,omitempty"`
}

// Grade scores answers against the quiz. Missing answers count as wrong;
// extra answers are an error.
func (q Quiz) Grade(answers []string) (Result, error) {
	if len(answers) > len(q.Questions) {
		return Result{}, fmt.Errorf("quiz %q: %d answers for %d questions", q.ID, len(answers), len(q.Questions))
	}

	r := Result{QuizID: q.ID, Total: len(q.Questions)}
	for i, question := range q.Questions {
		if i < len(answers) && question.Check(answers[i]) {
			r.Correct++
			continue
		}
		r.Missed = append(r.Missed, i)
	}
	r.Percent = Percent(r.Correct, r.Total)
	r.Passed = r.Percent >= PassPercent
	r.Excellent = r.Percent >= ExcellentPercent
	return r, nil
}

// Percent returns part/total as a rounded percentage; 0 when total is 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(total)))
}
