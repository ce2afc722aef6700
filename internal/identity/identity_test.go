package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/frenchbreeze/breeze/internal/cache"
	"github.com/frenchbreeze/breeze/internal/store"
)

type stubFlow struct {
	prof SocialProfile
	err  error
}

func (f stubFlow) Authenticate(context.Context, string) (SocialProfile, error) { return f.prof, f.err }

func newTestService(opts ...Option) (*Service, *store.Memory) {
	mem := store.NewMemory()
	return NewService(mem, Config{Secret: []byte("test-secret"), TokenTTL: time.Hour}, opts...), mem
}

func TestSignUpAndSignIn(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	id, err := svc.SignUp(ctx, "camille@example.com", "croissant")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if id.ID == "" || id.Email != "camille@example.com" {
		t.Errorf("unexpected identity %+v", id)
	}

	got, err := svc.SignIn(ctx, "Camille@Example.com", "croissant")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if got.ID != id.ID {
		t.Errorf("SignIn id = %s, want %s", got.ID, id.ID)
	}
}

func TestAuthErrors(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	if _, err := svc.SignUp(ctx, "jules@example.com", "baguette"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		run  func() error
		want Kind
	}{
		{"wrong password", func() error { _, err := svc.SignIn(ctx, "jules@example.com", "nope!!"); return err }, KindInvalidCredentials},
		{"unknown email", func() error { _, err := svc.SignIn(ctx, "nobody@example.com", "whatever"); return err }, KindInvalidCredentials},
		{"duplicate sign-up", func() error { _, err := svc.SignUp(ctx, "jules@example.com", "another1"); return err }, KindAccountExists},
		{"weak password", func() error { _, err := svc.SignUp(ctx, "new@example.com", "abc"); return err }, KindInvalidCredentials},
		{"bad email", func() error { _, err := svc.SignUp(ctx, "not-an-email", "abcdef"); return err }, KindInvalidCredentials},
		{"disabled provider", func() error { _, err := svc.SignInWithSocial(ctx, "github", "token"); return err }, KindProviderDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			var ae *AuthError
			if !errors.As(err, &ae) {
				t.Fatalf("err = %v, want *AuthError", err)
			}
			if ae.Kind != tt.want {
				t.Errorf("kind = %s, want %s", ae.Kind, tt.want)
			}
			if ae.UserMessage() == "" {
				t.Error("empty user message")
			}
		})
	}
}

func TestSignInWithSocial(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(WithSocialFlow(ProviderGoogle, stubFlow{prof: SocialProfile{Email: "g@example.com", DisplayName: "Gabriel"}}))

	first, err := svc.SignInWithSocial(ctx, ProviderGoogle, "id-token")
	if err != nil {
		t.Fatalf("first sign-in: %v", err)
	}
	second, err := svc.SignInWithSocial(ctx, ProviderGoogle, "id-token")
	if err != nil {
		t.Fatalf("second sign-in: %v", err)
	}
	if first.ID != second.ID || first.DisplayName != "Gabriel" {
		t.Errorf("first = %+v, second = %+v", first, second)
	}
}

func TestSignInWithSocial_ExistingPasswordAccount(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(WithSocialFlow(ProviderGoogle, stubFlow{prof: SocialProfile{Email: "p@example.com"}}))
	if _, err := svc.SignUp(ctx, "p@example.com", "secret1"); err != nil {
		t.Fatal(err)
	}
	_, err := svc.SignInWithSocial(ctx, ProviderGoogle, "id-token")
	if KindOf(err) != KindAccountExists {
		t.Errorf("err = %v, want account-exists", err)
	}
}

func TestSignInWithSocial_PopupErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(WithSocialFlow(ProviderGoogle, stubFlow{err: &AuthError{Kind: KindPopupClosed}}))
	_, err := svc.SignInWithSocial(ctx, ProviderGoogle, "id-token")
	if KindOf(err) != KindPopupClosed {
		t.Errorf("err = %v, want popup-closed", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	c := cache.NewMemory()
	svc, _ := newTestService(WithRevocationCache(c))
	id := Identity{ID: "u1", Email: "u1@example.com", DisplayName: "Ulysse", Provider: ProviderPassword}

	tok, err := svc.IssueToken(id)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	got, claims, err := svc.VerifyToken(tok)
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if got != id {
		t.Errorf("identity = %+v, want %+v", got, id)
	}

	svc.Revoke(claims)
	if _, _, err := svc.VerifyToken(tok); !errors.Is(err, ErrTokenRevoked) {
		t.Errorf("after revoke err = %v", err)
	}
}

func TestVerifyToken_Expired(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	svc, _ := newTestService(WithNow(func() time.Time { return now }))
	tok, err := svc.IssueToken(Identity{ID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	now = now.Add(2 * time.Hour)
	if _, _, err := svc.VerifyToken(tok); KindOf(err) != KindInvalidCredentials {
		t.Errorf("err = %v, want invalid-credentials", err)
	}
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	svc, _ := newTestService()
	tok, err := svc.IssueToken(Identity{ID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	other := NewService(store.NewMemory(), Config{Secret: []byte("other")})
	if _, _, err := other.VerifyToken(tok); err == nil {
		t.Error("expected verification failure")
	}
}

func TestClient_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory()
	svc, _ := newTestService(WithRevocationCache(c))
	client := NewClient(svc, c, nil)

	var events []*Identity
	unsubscribe := client.OnIdentityChanged(func(id *Identity) { events = append(events, id) })
	defer unsubscribe()

	id, err := client.SignUp(ctx, "lou@example.com", "macaron")
	if err != nil {
		t.Fatalf("SignUp: %v", err)
	}
	if cur := client.Current(); cur == nil || cur.ID != id.ID {
		t.Fatalf("Current = %+v", cur)
	}
	if _, ok := c.Get(SessionKey); !ok {
		t.Fatal("session token not cached")
	}

	// A fresh client resumes the cached session.
	resumed := NewClient(svc, c, nil)
	if got := resumed.Restore(ctx); got == nil || got.ID != id.ID {
		t.Fatalf("Restore = %+v", got)
	}

	client.SignOut()
	if client.Current() != nil {
		t.Error("expected signed out")
	}
	if NewClient(svc, c, nil).Restore(ctx) != nil {
		t.Error("expected no session after sign-out")
	}

	if len(events) != 3 || events[0] != nil || events[1] == nil || events[2] != nil {
		t.Errorf("events = %v, want [nil, identity, nil]", events)
	}
}

func TestClient_UpdateDisplayName(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestService()
	client := NewClient(svc, cache.NewMemory(), nil)
	id, err := client.SignUp(ctx, "noe@example.com", "eclair1")
	if err != nil {
		t.Fatal(err)
	}
	if err := client.UpdateDisplayName(ctx, id, "Noé"); err != nil {
		t.Fatal(err)
	}
	if client.Current().DisplayName != "Noé" {
		t.Error("current identity not updated")
	}
	acct, err := mem.AccountByID(ctx, id.ID)
	if err != nil || acct.DisplayName != "Noé" {
		t.Errorf("account = %+v, err = %v", acct, err)
	}
}
