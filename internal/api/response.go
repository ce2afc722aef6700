package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/frenchbreeze/breeze/internal/content"
	"github.com/frenchbreeze/breeze/internal/identity"
	"github.com/frenchbreeze/breeze/internal/profile"
	"github.com/frenchbreeze/breeze/internal/session"
	"github.com/frenchbreeze/breeze/internal/store"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{Status: "success", Data: data})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{Status: "error", Code: code, Message: msg})
}

const maxBody = 64 << 10

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// fail maps domain errors to HTTP responses.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := classify(err)
	if status >= 500 {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, status, code, msg)
}

func classify(err error) (status int, code, msg string) {
	var ae *identity.AuthError
	if errors.As(err, &ae) {
		switch ae.Kind {
		case identity.KindInvalidCredentials:
			var v *identity.ValidationError
			if errors.As(err, &v) {
				return http.StatusBadRequest, ae.Kind.String(), ae.UserMessage()
			}
			return http.StatusUnauthorized, ae.Kind.String(), ae.UserMessage()
		case identity.KindAccountExists:
			return http.StatusConflict, ae.Kind.String(), ae.UserMessage()
		case identity.KindProviderDisabled, identity.KindUnauthorizedOrigin:
			return http.StatusForbidden, ae.Kind.String(), ae.UserMessage()
		case identity.KindPopupClosed, identity.KindPopupBlocked:
			return http.StatusBadRequest, ae.Kind.String(), ae.UserMessage()
		default:
			return http.StatusInternalServerError, ae.Kind.String(), ae.UserMessage()
		}
	}

	switch {
	case errors.Is(err, profile.ErrInvalidLevel), errors.Is(err, profile.ErrInvalidLessonID):
		return http.StatusBadRequest, "invalid-input", err.Error()
	case errors.Is(err, content.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "not-found", err.Error()
	case errors.Is(err, content.ErrNotEligible):
		return http.StatusForbidden, "not-eligible", "This certificate cannot be accessed, or the required score was not met."
	case errors.Is(err, session.ErrNoIdentity):
		return http.StatusUnauthorized, "no-identity", "Sign in first."
	case errors.Is(err, session.ErrDegraded):
		return http.StatusServiceUnavailable, "degraded", "Profile sync is unavailable. Please sign in again later."
	case store.IsTransient(err):
		return http.StatusServiceUnavailable, "unavailable", "Could not save your progress. Please try again."
	}

	var pwe *session.ProfileWriteError
	if errors.As(err, &pwe) {
		return http.StatusInternalServerError, "write-failed", "Could not save your progress."
	}
	return http.StatusInternalServerError, "internal", "Something went wrong."
}
