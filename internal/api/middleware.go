package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/frenchbreeze/breeze/internal/identity"
	"github.com/frenchbreeze/breeze/internal/session"
)

type ctxKey int

const (
	identityKey ctxKey = iota
	claimsKey
)

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	// Browsers cannot set headers on websocket upgrades.
	if r.URL.Path == "/api/ws" {
		return r.URL.Query().Get("token")
	}
	return ""
}

// requireAuth verifies the bearer token and stores the identity in the context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing-token", "missing session token")
			return
		}
		id, claims, err := s.auth.VerifyToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid-token", "invalid session token")
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, id)
		ctx = context.WithValue(ctx, claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func identityFrom(ctx context.Context) identity.Identity {
	id, _ := ctx.Value(identityKey).(identity.Identity)
	return id
}

func claimsFrom(ctx context.Context) *identity.Claims {
	c, _ := ctx.Value(claimsKey).(*identity.Claims)
	return c
}

// manager returns the attached session of the caller, held against idle
// eviction until release is called.
func (s *Server) manager(r *http.Request) (*session.Manager, func(), error) {
	return s.sessions.Acquire(r.Context(), identityFrom(r.Context()))
}
