// Package identity authenticates learners and issues session tokens.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/frenchbreeze/breeze/internal/cache"
	"github.com/frenchbreeze/breeze/internal/store"
)

// Sign-in providers.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 6

// Identity is an authenticated learner.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	Provider    string `json:"provider,omitempty"`
}

// SocialProfile is what a third-party sign-in flow learned about the user.
type SocialProfile struct {
	Email       string
	DisplayName string
}

// SocialFlow verifies the credential a third-party sign-in handed to the
// client. Failures should be *AuthError values such as KindPopupClosed.
type SocialFlow interface {
	Authenticate(ctx context.Context, credential string) (SocialProfile, error)
}

// Config configures token issuance.
type Config struct {
	Secret   []byte
	TokenTTL time.Duration
	Issuer   string
}

// Service verifies credentials against an AccountRepo and mints tokens.
type Service struct {
	accounts store.AccountRepo
	config   Config
	socials  map[string]SocialFlow
	revoked  cache.Cache
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithSocialFlow enables a third-party provider.
func WithSocialFlow(provider string, flow SocialFlow) Option {
	return func(s *Service) { s.socials[provider] = flow }
}

// WithRevocationCache records signed-out token ids in c.
func WithRevocationCache(c cache.Cache) Option {
	return func(s *Service) { s.revoked = c }
}

// WithNow overrides the clock used for token timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service.
func NewService(accounts store.AccountRepo, cfg Config, opts ...Option) *Service {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 7 * 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "breeze"
	}
	s := &Service{
		accounts: accounts,
		config:   cfg,
		socials:  make(map[string]SocialFlow),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignUp creates a password account.
func (s *Service) SignUp(ctx context.Context, email, password string) (Identity, error) {
	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return Identity{}, authErr(KindInvalidCredentials, err)
	}
	if len(password) < MinPasswordLength {
		return Identity{}, authErr(KindInvalidCredentials, &ValidationError{
			Field: "password",
			Msg:   fmt.Sprintf("Password should be at least %d characters.", MinPasswordLength),
		})
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Identity{}, authErr(KindUnknown, fmt.Errorf("hash password: %w", err))
	}

	acct := &store.Account{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(email),
		PasswordHash: string(hash),
		Provider:     ProviderPassword,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.accounts.CreateAccount(ctx, acct); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return Identity{}, authErr(KindAccountExists, err)
		}
		return Identity{}, authErr(KindUnknown, err)
	}

	s.logger.InfoContext(ctx, "account created", "id", acct.ID, "provider", acct.Provider)
	return identityOf(acct), nil
}

// SignIn verifies a password.
func (s *Service) SignIn(ctx context.Context, email, password string) (Identity, error) {
	acct, err := s.accounts.AccountByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, store.ErrNotFound) {
		return Identity{}, authErr(KindInvalidCredentials, nil)
	}
	if err != nil {
		return Identity{}, authErr(KindUnknown, err)
	}
	if acct.Provider != ProviderPassword || acct.PasswordHash == "" {
		return Identity{}, authErr(KindAccountExists, fmt.Errorf("account uses %s sign-in", acct.Provider))
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return Identity{}, authErr(KindInvalidCredentials, nil)
	}
	return identityOf(acct), nil
}

// SignInWithSocial verifies credential with a registered third-party flow,
// creating the account on first use.
func (s *Service) SignInWithSocial(ctx context.Context, provider, credential string) (Identity, error) {
	flow, ok := s.socials[provider]
	if !ok {
		return Identity{}, authErr(KindProviderDisabled, fmt.Errorf("provider %q", provider))
	}

	prof, err := flow.Authenticate(ctx, credential)
	if err != nil {
		var ae *AuthError
		if errors.As(err, &ae) {
			return Identity{}, err
		}
		return Identity{}, authErr(KindUnknown, err)
	}

	acct, err := s.accounts.AccountByEmail(ctx, prof.Email)
	switch {
	case err == nil:
		if acct.Provider != provider {
			return Identity{}, authErr(KindAccountExists, fmt.Errorf("account uses %s sign-in", acct.Provider))
		}
		return identityOf(acct), nil
	case !errors.Is(err, store.ErrNotFound):
		return Identity{}, authErr(KindUnknown, err)
	}

	acct = &store.Account{
		ID:          uuid.NewString(),
		Email:       strings.ToLower(prof.Email),
		DisplayName: prof.DisplayName,
		Provider:    provider,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.accounts.CreateAccount(ctx, acct); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return Identity{}, authErr(KindAccountExists, err)
		}
		return Identity{}, authErr(KindUnknown, err)
	}
	s.logger.InfoContext(ctx, "account created", "id", acct.ID, "provider", provider)
	return identityOf(acct), nil
}

// Lookup returns the current identity record for id.
func (s *Service) Lookup(ctx context.Context, id string) (Identity, error) {
	acct, err := s.accounts.AccountByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return Identity{}, authErr(KindInvalidCredentials, err)
	}
	if err != nil {
		return Identity{}, authErr(KindUnknown, err)
	}
	return identityOf(acct), nil
}

// UpdateDisplayName changes the display name stored on the account.
func (s *Service) UpdateDisplayName(ctx context.Context, id Identity, name string) error {
	if err := s.accounts.SetDisplayName(ctx, id.ID, name); err != nil {
		return fmt.Errorf("update display name: %w", err)
	}
	return nil
}

func identityOf(a *store.Account) Identity {
	return Identity{ID: a.ID, Email: a.Email, DisplayName: a.DisplayName, Provider: a.Provider}
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return &ValidationError{Field: "email", Msg: "Please enter a valid email address."}
	}
	return nil
}
