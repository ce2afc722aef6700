package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frenchbreeze/breeze/internal/cache"
	"github.com/frenchbreeze/breeze/internal/content"
	"github.com/frenchbreeze/breeze/internal/identity"
	"github.com/frenchbreeze/breeze/internal/session"
	"github.com/frenchbreeze/breeze/internal/store"
	"github.com/frenchbreeze/breeze/internal/streak"
)

var testNow = time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	handler http.Handler
	docs    *store.Memory
	catalog *content.Catalog
}

func newTestEnv(t *testing.T, authOpts ...identity.Option) *testEnv {
	t.Helper()
	docs := store.NewMemory()
	auth := identity.NewService(docs, identity.Config{
		Secret:   []byte("test-secret-test-secret-test-secret"),
		TokenTTL: time.Hour,
		Issuer:   "breeze-test",
	}, append([]identity.Option{identity.WithRevocationCache(cache.NewMemory())}, authOpts...)...)

	registry := session.NewRegistry(func() *session.Manager {
		return session.NewManager(auth, docs, cache.NewMemory(),
			session.WithClock(streak.FixedClock(testNow)),
			session.WithLocation(time.UTC),
		)
	})
	t.Cleanup(registry.Close)

	catalog := content.Default()
	srv := New(auth, registry, catalog, Config{
		AllowedOrigins: []string{"http://localhost:3000"},
		Now:            func() time.Time { return testNow },
	})
	return &testEnv{handler: srv.Handler(), docs: docs, catalog: catalog}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (int, APIResponse, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var env struct {
		APIResponse
		Data json.RawMessage `json:"data"`
	}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env.APIResponse, env.Data
}

func (e *testEnv) signUp(t *testing.T, email string) string {
	t.Helper()
	code, _, data := e.do(t, http.MethodPost, "/api/auth/signup", "", signUpRequest{
		Email: email, Password: "secret123", ConfirmPassword: "secret123",
	})
	require.Equal(t, http.StatusCreated, code)
	var resp authResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (e *testEnv) profile(t *testing.T, token string) profileView {
	t.Helper()
	code, _, data := e.do(t, http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, code)
	var v profileView
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestSignUp_Errors(t *testing.T) {
	e := newTestEnv(t)
	e.signUp(t, "marie@example.com")

	tests := []struct {
		name string
		body signUpRequest
		want int
		code string
	}{
		{"mismatch", signUpRequest{"a@example.com", "secret123", "secret124"}, http.StatusBadRequest, "password-mismatch"},
		{"short password", signUpRequest{"a@example.com", "abc", "abc"}, http.StatusBadRequest, identity.KindInvalidCredentials.String()},
		{"duplicate", signUpRequest{"marie@example.com", "secret123", "secret123"}, http.StatusConflict, identity.KindAccountExists.String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp, _ := e.do(t, http.MethodPost, "/api/auth/signup", "", tt.body)
			assert.Equal(t, tt.want, code)
			assert.Equal(t, "error", resp.Status)
			assert.Equal(t, tt.code, resp.Code)
		})
	}
}

func TestSignIn(t *testing.T) {
	e := newTestEnv(t)
	e.signUp(t, "marie@example.com")

	code, _, _ := e.do(t, http.MethodPost, "/api/auth/signin", "", signInRequest{"marie@example.com", "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _, data := e.do(t, http.MethodPost, "/api/auth/signin", "", signInRequest{"marie@example.com", "secret123"})
	require.Equal(t, http.StatusOK, code)
	var resp authResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, "marie@example.com", resp.Email)
	assert.Equal(t, identity.ProviderPassword, resp.Provider)
}

func TestSocial_ProviderDisabled(t *testing.T) {
	e := newTestEnv(t)
	code, resp, _ := e.do(t, http.MethodPost, "/api/auth/social/google", "", nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, identity.KindProviderDisabled.String(), resp.Code)
}

// tokenFlow accepts the ID tokens it maps to a profile.
type tokenFlow map[string]identity.SocialProfile

func (f tokenFlow) Authenticate(_ context.Context, token string) (identity.SocialProfile, error) {
	if token == "" {
		return identity.SocialProfile{}, &identity.AuthError{Kind: identity.KindPopupClosed}
	}
	p, ok := f[token]
	if !ok {
		return identity.SocialProfile{}, &identity.AuthError{Kind: identity.KindInvalidCredentials}
	}
	return p, nil
}

func TestSocial_GoogleIDToken(t *testing.T) {
	e := newTestEnv(t, identity.WithSocialFlow(identity.ProviderGoogle, tokenFlow{
		"good": {Email: "noemie@example.com", DisplayName: "Noémie"},
	}))

	code, _, data := e.do(t, http.MethodPost, "/api/auth/social/google", "", socialRequest{IDToken: "good"})
	require.Equal(t, http.StatusOK, code)
	var resp authResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, "noemie@example.com", resp.Email)
	assert.Equal(t, identity.ProviderGoogle, resp.Provider)
	assert.NotEmpty(t, resp.Token)

	code, apiResp, _ := e.do(t, http.MethodPost, "/api/auth/social/google", "", socialRequest{IDToken: "forged"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, identity.KindInvalidCredentials.String(), apiResp.Code)

	code, apiResp, _ = e.do(t, http.MethodPost, "/api/auth/social/google", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, identity.KindPopupClosed.String(), apiResp.Code)
}

func TestRequireAuth(t *testing.T) {
	e := newTestEnv(t)

	code, resp, _ := e.do(t, http.MethodGet, "/api/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "missing-token", resp.Code)

	code, resp, _ = e.do(t, http.MethodGet, "/api/profile", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid-token", resp.Code)
}

func TestSignOut_RevokesToken(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "marie@example.com")

	code, _, _ := e.do(t, http.MethodPost, "/api/auth/signout", token, nil)
	require.Equal(t, http.StatusOK, code)

	code, _, _ = e.do(t, http.MethodGet, "/api/profile", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestOnboardingAndDashboard(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "marie@example.com")

	p := e.profile(t, token)
	assert.False(t, p.Onboarded)
	assert.Equal(t, 0, p.DailyStreak)
	require.NotNil(t, p.CreatedAt)

	code, resp, _ := e.do(t, http.MethodGet, "/api/dashboard", token, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "onboarding-required", resp.Code)

	code, resp, _ = e.do(t, http.MethodPut, "/api/profile/level", token, levelRequest{Level: "Expert"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid-input", resp.Code)

	code, _, _ = e.do(t, http.MethodPut, "/api/profile/level", token, levelRequest{Level: "beginner"})
	require.Equal(t, http.StatusOK, code)
	code, _, _ = e.do(t, http.MethodPut, "/api/profile/name", token, nameRequest{Name: "Marie"})
	require.Equal(t, http.StatusOK, code)

	code, _, data := e.do(t, http.MethodGet, "/api/dashboard", token, nil)
	require.Equal(t, http.StatusOK, code)
	var d content.Dashboard
	require.NoError(t, json.Unmarshal(data, &d))
	assert.Equal(t, "Marie", d.Name)
	assert.Equal(t, len(e.catalog.LessonIDs()), d.Total)
	require.NotNil(t, d.Suggested)

	assert.Eventually(t, func() bool {
		return e.profile(t, token).DailyStreak == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "2024-06-15", e.profile(t, token).LastLoginDate)
}

func TestProgress(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "marie@example.com")
	lessonID := e.catalog.LessonIDs()[0]

	code, _, _ := e.do(t, http.MethodPut, "/api/progress/no-such-lesson", token, progressRequest{Completed: true})
	assert.Equal(t, http.StatusNotFound, code)

	code, _, data := e.do(t, http.MethodPost, "/api/lessons/"+lessonID+"/complete", token, nil)
	require.Equal(t, http.StatusOK, code)
	var v profileView
	require.NoError(t, json.Unmarshal(data, &v))
	assert.True(t, v.Progress[lessonID])

	code, _, _ = e.do(t, http.MethodPut, "/api/progress/"+lessonID, token, progressRequest{Completed: false})
	require.Equal(t, http.StatusOK, code)
	assert.Eventually(t, func() bool {
		p := e.profile(t, token)
		return !p.Progress[lessonID] && p.DailyStreak == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestStreakReset(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "marie@example.com")

	code, _, _ := e.do(t, http.MethodPost, "/api/streak/increment", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Eventually(t, func() bool { return e.profile(t, token).DailyStreak == 1 }, 2*time.Second, 10*time.Millisecond)

	code, _, _ = e.do(t, http.MethodPost, "/api/streak/reset", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Eventually(t, func() bool {
		p := e.profile(t, token)
		return p.DailyStreak == 0 && p.LastLoginDate == "2024-06-15"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestContentRoutes(t *testing.T) {
	e := newTestEnv(t)

	code, _, data := e.do(t, http.MethodGet, "/api/topics", "", nil)
	require.Equal(t, http.StatusOK, code)
	var topics []string
	require.NoError(t, json.Unmarshal(data, &topics))
	assert.Equal(t, e.catalog.Topics(), topics)

	code, _, data = e.do(t, http.MethodGet, "/api/lessons?level=Beginner", "", nil)
	require.Equal(t, http.StatusOK, code)
	var lessons []content.Lesson
	require.NoError(t, json.Unmarshal(data, &lessons))
	require.NotEmpty(t, lessons)
	for _, l := range lessons {
		assert.Equal(t, "Beginner", l.Level.String())
	}

	code, _, _ = e.do(t, http.MethodGet, "/api/lessons?level=Expert", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	tests := []struct {
		path string
		want int
	}{
		{"/api/lessons/" + e.catalog.LessonIDs()[0], http.StatusOK},
		{"/api/lessons/nope", http.StatusNotFound},
		{"/api/flashcards", http.StatusOK},
		{"/api/flashcards/nope", http.StatusNotFound},
		{"/api/quizzes", http.StatusOK},
		{"/api/quizzes/" + e.catalog.Quizzes()[0].ID, http.StatusOK},
		{"/api/quizzes/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			code, _, _ := e.do(t, http.MethodGet, tt.path, "", nil)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestSubmitQuizAndCertificate(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "marie@example.com")
	quiz := e.catalog.Quizzes()[0]

	answers := make([]string, len(quiz.Questions))
	for i, q := range quiz.Questions {
		answers[i] = "  " + strings.ToUpper(q.CorrectAnswer) + " "
	}
	code, _, data := e.do(t, http.MethodPost, "/api/quizzes/"+quiz.ID+"/submit", token, submitRequest{Answers: answers})
	require.Equal(t, http.StatusOK, code)
	var r content.Result
	require.NoError(t, json.Unmarshal(data, &r))
	assert.Equal(t, 100, r.Percent)
	assert.True(t, r.Excellent)

	extra := append(answers, "one too many")
	code, _, _ = e.do(t, http.MethodPost, "/api/quizzes/"+quiz.ID+"/submit", token, submitRequest{Answers: extra})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp, _ := e.do(t, http.MethodGet, "/api/certificates/"+quiz.ID+"?score=40", token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "not-eligible", resp.Code)

	code, _, _ = e.do(t, http.MethodGet, "/api/certificates/"+quiz.ID, token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _, data = e.do(t, http.MethodGet, "/api/certificates/"+quiz.ID+"?score=80", token, nil)
	require.Equal(t, http.StatusOK, code)
	var cert content.Certificate
	require.NoError(t, json.Unmarshal(data, &cert))
	assert.Equal(t, content.FallbackLearnerName, cert.LearnerName)
	assert.Equal(t, 80, cert.Percent)
	assert.True(t, cert.IssuedAt.Equal(testNow))
}

func TestWebsocket_PushesProfile(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "marie@example.com")

	srv := httptest.NewServer(e.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	var msg wsMessage
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "profile", msg.Type)
	assert.Equal(t, "marie@example.com", msg.Profile.Email)

	code, _, _ := e.do(t, http.MethodPut, "/api/profile/name", token, nameRequest{Name: "Marie"})
	require.Equal(t, http.StatusOK, code)

	for msg.Profile.Name != "Marie" {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		require.NoError(t, conn.ReadJSON(&msg))
	}
	assert.Equal(t, "Marie", msg.Profile.Name)
}

func TestWebsocket_RejectsForeignOrigin(t *testing.T) {
	e := newTestEnv(t)
	token := e.signUp(t, "marie@example.com")

	srv := httptest.NewServer(e.handler)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws?token=" + token
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
