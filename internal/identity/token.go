package identity

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// Claims is the JWT payload of a session token.
type Claims struct {
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Provider string `json:"provider,omitempty"`
	jwt.RegisteredClaims
}

// ErrTokenRevoked is returned for tokens invalidated by sign-out.
var ErrTokenRevoked = errors.New("token revoked")

// IssueToken returns a signed HS256 token for id.
func (s *Service) IssueToken(id Identity) (string, error) {
	if len(s.config.Secret) == 0 {
		return "", errors.New("token secret not configured")
	}
	now := s.now()
	claims := &Claims{
		Email:    id.Email,
		Name:     id.DisplayName,
		Provider: id.Provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   id.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        ulid.Make().String(),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.config.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken validates a token and returns its identity and claims.
func (s *Service) VerifyToken(raw string) (Identity, *Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithTimeFunc(s.now),
	)
	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.config.Secret, nil
	})
	if err != nil {
		return Identity{}, nil, authErr(KindInvalidCredentials, err)
	}
	if s.revoked != nil {
		if _, ok := s.revoked.Get(revokedKey(claims.ID)); ok {
			return Identity{}, nil, authErr(KindInvalidCredentials, ErrTokenRevoked)
		}
	}
	return Identity{
		ID:          claims.Subject,
		Email:       claims.Email,
		DisplayName: claims.Name,
		Provider:    claims.Provider,
	}, claims, nil
}

// Revoke invalidates a verified token until it expires.
func (s *Service) Revoke(claims *Claims) {
	if s.revoked == nil || claims == nil || claims.ID == "" {
		return
	}
	var exp int64
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Unix()
	}
	s.revoked.Set(revokedKey(claims.ID), strconv.FormatInt(exp, 10))
}

func revokedKey(jti string) string {
	return "frenchBreezeRevoked_" + jti
}
