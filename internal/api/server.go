// Package api exposes learner sessions over HTTP and websockets.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/frenchbreeze/breeze/internal/content"
	"github.com/frenchbreeze/breeze/internal/identity"
	"github.com/frenchbreeze/breeze/internal/session"
)

// Config configures a Server.
type Config struct {
	AllowedOrigins []string
	Logger         *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Server holds the HTTP handlers. One session manager per signed-in
// identity lives in the registry until sign-out.
type Server struct {
	auth     *identity.Service
	sessions *session.Registry
	catalog  *content.Catalog
	logger   *slog.Logger
	origins  []string
	now      func() time.Time
	upgrader websocket.Upgrader
}

// New creates a Server.
func New(auth *identity.Service, sessions *session.Registry, catalog *content.Catalog, cfg Config) *Server {
	s := &Server{
		auth:     auth,
		sessions: sessions,
		catalog:  catalog,
		logger:   cfg.Logger,
		origins:  cfg.AllowedOrigins,
		now:      cfg.Now,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		// ---- Public ----
		r.Post("/auth/signup", s.handleSignUp)
		r.Post("/auth/signin", s.handleSignIn)
		r.Post("/auth/social/{provider}", s.handleSocial)

		r.Get("/topics", s.handleTopics)
		r.Get("/lessons", s.handleLessons)
		r.Get("/lessons/{id}", s.handleLesson)
		r.Get("/flashcards", s.handleFlashcardSets)
		r.Get("/flashcards/{topic}", s.handleFlashcards)
		r.Get("/quizzes", s.handleQuizzes)
		r.Get("/quizzes/{id}", s.handleQuiz)

		// ---- Authenticated ----
		r.Group(func(pr chi.Router) {
			pr.Use(s.requireAuth)

			pr.Post("/auth/signout", s.handleSignOut)

			pr.Get("/profile", s.handleProfile)
			pr.Put("/profile/level", s.handleSetLevel)
			pr.Put("/profile/name", s.handleSetName)
			pr.Put("/progress/{lessonID}", s.handleSetProgress)
			pr.Post("/lessons/{lessonID}/complete", s.handleCompleteLesson)
			pr.Post("/streak/increment", s.handleIncrementStreak)
			pr.Post("/streak/reset", s.handleResetStreak)
			pr.Get("/dashboard", s.handleDashboard)

			pr.Post("/quizzes/{id}/submit", s.handleSubmitQuiz)
			pr.Get("/certificates/{quizID}", s.handleCertificate)

			pr.Get("/ws", s.handleWS)
		})
	})

	return r
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// requestLogger logs one line per request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
