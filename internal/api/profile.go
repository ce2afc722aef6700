package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/frenchbreeze/breeze/internal/profile"
	"github.com/frenchbreeze/breeze/internal/session"
)

type profileView struct {
	UID           string          `json:"uid"`
	Email         string          `json:"email,omitempty"`
	Name          string          `json:"name"`
	Level         profile.Level   `json:"level"`
	Progress      map[string]bool `json:"progress"`
	DailyStreak   int             `json:"dailyStreak"`
	LastLoginDate string          `json:"lastLoginDate,omitempty"`
	CreatedAt     *time.Time      `json:"createdAt,omitempty"`
	Onboarded     bool            `json:"onboarded"`
	Loading       bool            `json:"loading"`
	Degraded      bool            `json:"degraded"`
}

func viewOf(st session.State) profileView {
	p := st.Profile
	v := profileView{
		Name:          p.Name,
		Email:         p.Email,
		Level:         p.Level,
		Progress:      p.Progress,
		DailyStreak:   p.DailyStreak,
		LastLoginDate: p.LastLoginDate.String(),
		Onboarded:     p.Onboarded(),
		Loading:       st.LoadingProfile,
		Degraded:      st.Degraded,
	}
	if st.Identity != nil {
		v.UID = st.Identity.ID
		if v.Email == "" {
			v.Email = st.Identity.Email
		}
	}
	if !p.CreatedAt.IsZero() {
		t := p.CreatedAt
		v.CreatedAt = &t
	}
	if v.Progress == nil {
		v.Progress = map[string]bool{}
	}
	return v
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	m, release, err := s.manager(r)
	defer release()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(m.State()))
}

type levelRequest struct {
	Level string `json:"level"`
}

func (s *Server) handleSetLevel(w http.ResponseWriter, r *http.Request) {
	var req levelRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid-body", "invalid request body")
		return
	}
	level, err := profile.ParseLevel(req.Level)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.mutate(w, r, func(m *session.Manager) error {
		return m.SetLevel(r.Context(), level)
	})
}

type nameRequest struct {
	Name           string `json:"name"`
	UpdateIdentity *bool  `json:"updateIdentity,omitempty"`
}

func (s *Server) handleSetName(w http.ResponseWriter, r *http.Request) {
	var req nameRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid-body", "invalid request body")
		return
	}
	alsoIdentity := req.UpdateIdentity == nil || *req.UpdateIdentity
	s.mutate(w, r, func(m *session.Manager) error {
		return m.SetDisplayName(r.Context(), req.Name, alsoIdentity)
	})
}

type progressRequest struct {
	Completed bool `json:"completed"`
}

func (s *Server) handleSetProgress(w http.ResponseWriter, r *http.Request) {
	var req progressRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid-body", "invalid request body")
		return
	}
	lessonID := chi.URLParam(r, "lessonID")
	if _, err := s.catalog.Lesson(lessonID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.mutate(w, r, func(m *session.Manager) error {
		return m.MarkLessonComplete(r.Context(), lessonID, req.Completed)
	})
}

// handleCompleteLesson marks the lesson done and counts today's visit.
func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	lessonID := chi.URLParam(r, "lessonID")
	if _, err := s.catalog.Lesson(lessonID); err != nil {
		s.fail(w, r, err)
		return
	}
	s.mutate(w, r, func(m *session.Manager) error {
		if err := m.MarkLessonComplete(r.Context(), lessonID, true); err != nil {
			return err
		}
		return m.IncrementStreak(r.Context())
	})
}

func (s *Server) handleIncrementStreak(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(m *session.Manager) error {
		return m.IncrementStreak(r.Context())
	})
}

func (s *Server) handleResetStreak(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(m *session.Manager) error {
		return m.ResetStreak(r.Context())
	})
}

// mutate runs fn against the caller's session and responds with the
// resulting state.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(*session.Manager) error) {
	m, release, err := s.manager(r)
	defer release()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := fn(m); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(m.State()))
}

// handleDashboard counts the visit toward the streak and returns the summary.
// Learners without a name or level get 409 until onboarding is done.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	m, release, err := s.manager(r)
	defer release()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	st := m.State()
	if !st.Profile.Onboarded() {
		writeError(w, http.StatusConflict, "onboarding-required", "Set your name and level to see your dashboard.")
		return
	}
	if err := m.IncrementStreak(r.Context()); err != nil {
		s.logger.WarnContext(r.Context(), "count dashboard visit", "uid", st.Identity.ID, "error", err)
	}
	writeJSON(w, http.StatusOK, s.catalog.Dashboard(m.State().Profile))
}
