package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/frenchbreeze/breeze/internal/content"
	"github.com/frenchbreeze/breeze/internal/profile"
)

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Topics())
}

// handleLessons lists lessons, optionally filtered by ?topic= and ?level=.
func (s *Server) handleLessons(w http.ResponseWriter, r *http.Request) {
	lessons := s.catalog.Lessons()
	if topic := r.URL.Query().Get("topic"); topic != "" {
		lessons = s.catalog.LessonsByTopic(topic)
	}
	if raw := r.URL.Query().Get("level"); raw != "" {
		level, err := profile.ParseLevel(raw)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		filtered := lessons[:0:0]
		for _, l := range lessons {
			if level == profile.LevelUnset || l.Level == level {
				filtered = append(filtered, l)
			}
		}
		lessons = filtered
	}
	if lessons == nil {
		lessons = []content.Lesson{}
	}
	writeJSON(w, http.StatusOK, lessons)
}

func (s *Server) handleLesson(w http.ResponseWriter, r *http.Request) {
	l, err := s.catalog.Lesson(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleFlashcardSets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.FlashcardSets())
}

func (s *Server) handleFlashcards(w http.ResponseWriter, r *http.Request) {
	set, err := s.catalog.Flashcards(chi.URLParam(r, "topic"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, set)
}

func (s *Server) handleQuizzes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Quizzes())
}

func (s *Server) handleQuiz(w http.ResponseWriter, r *http.Request) {
	q, err := s.catalog.Quiz(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

type submitRequest struct {
	Answers []string `json:"answers"`
}

// handleSubmitQuiz grades an attempt and counts it toward the streak.
func (s *Server) handleSubmitQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := s.catalog.Quiz(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req submitRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid-body", "invalid request body")
		return
	}
	result, err := quiz.Grade(req.Answers)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid-answers", err.Error())
		return
	}

	m, release, err := s.manager(r)
	defer release()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := m.IncrementStreak(r.Context()); err != nil {
		s.logger.WarnContext(r.Context(), "count quiz attempt", "quiz", quiz.ID, "error", err)
	}
	writeJSON(w, http.StatusOK, result)
}

// handleCertificate issues a certificate for ?score=<percent>.
func (s *Server) handleCertificate(w http.ResponseWriter, r *http.Request) {
	quiz, err := s.catalog.Quiz(chi.URLParam(r, "quizID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	score, err := strconv.Atoi(r.URL.Query().Get("score"))
	if err != nil {
		s.fail(w, r, content.ErrNotEligible)
		return
	}
	if score > 100 {
		writeError(w, http.StatusBadRequest, "invalid-score", "score must be between 0 and 100")
		return
	}

	m, release, err := s.manager(r)
	defer release()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	cert, err := content.NewCertificate(quiz, m.State().Profile.Name, score, s.now())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cert)
}
