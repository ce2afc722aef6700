package content

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// FallbackLearnerName is printed when the learner has no name.
const FallbackLearnerName = "Dedicated Learner"

// ErrNotEligible is returned for certificates below the pass mark.
var ErrNotEligible = errors.New("score below the certificate threshold")

// Certificate is a completion certificate for a passed quiz.
type Certificate struct {
	LearnerName string    `json:"learnerName"`
	QuizID      string    `json:"quizId"`
	QuizTitle   string    `json:"quizTitle"`
	Percent     int       `json:"percent"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// NewCertificate issues a certificate for percent on quiz, or ErrNotEligible.
func NewCertificate(quiz Quiz, learner string, percent int, at time.Time) (Certificate, error) {
	if percent > 100 {
		return Certificate{}, fmt.Errorf("invalid score %d%%", percent)
	}
	if percent < PassPercent {
		return Certificate{}, fmt.Errorf("%w: %d%%", ErrNotEligible, percent)
	}
	learner = strings.TrimSpace(learner)
	if learner == "" {
		learner = FallbackLearnerName
	}
	return Certificate{
		LearnerName: learner,
		QuizID:      quiz.ID,
		QuizTitle:   quiz.Title,
		Percent:     percent,
		IssuedAt:    at,
	}, nil
}
