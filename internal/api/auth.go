package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/frenchbreeze/breeze/internal/identity"
)

type signUpRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type socialRequest struct {
	IDToken string `json:"idToken"`
}

type authResponse struct {
	Token       string `json:"token"`
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName,omitempty"`
	Provider    string `json:"provider"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid-body", "invalid request body")
		return
	}
	if req.Password != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "password-mismatch", "Passwords do not match.")
		return
	}
	id, err := s.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.issue(w, r, id, http.StatusCreated)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid-body", "invalid request body")
		return
	}
	id, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.issue(w, r, id, http.StatusOK)
}

func (s *Server) handleSocial(w http.ResponseWriter, r *http.Request) {
	var req socialRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid-body", "invalid request body")
		return
	}
	id, err := s.auth.SignInWithSocial(r.Context(), chi.URLParam(r, "provider"), req.IDToken)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.issue(w, r, id, http.StatusOK)
}

// issue mints a token for id and attaches its session so the profile exists
// before the first authenticated call.
func (s *Server) issue(w http.ResponseWriter, r *http.Request, id identity.Identity, status int) {
	token, err := s.auth.IssueToken(id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if _, err := s.sessions.Get(r.Context(), id); err != nil {
		s.logger.WarnContext(r.Context(), "attach session after sign-in", "uid", id.ID, "error", err)
	}
	writeJSON(w, status, authResponse{
		Token:       token,
		UID:         id.ID,
		Email:       id.Email,
		DisplayName: id.DisplayName,
		Provider:    id.Provider,
	})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r.Context())
	s.auth.Revoke(claimsFrom(r.Context()))
	s.sessions.Drop(id.ID)
	writeJSON(w, http.StatusOK, nil)
}
