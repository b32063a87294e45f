package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shieldscore/authkit/pkg/audit"
	"github.com/shieldscore/authkit/pkg/auth"
	"github.com/shieldscore/authkit/pkg/notification"
	"github.com/shieldscore/authkit/pkg/password"
	"github.com/shieldscore/authkit/pkg/ratelimit"
	"github.com/shieldscore/authkit/pkg/session"
)

const (
	testEmail    = "user@example.com"
	testPassword = "Correct-Horse-Battery-1"
)

var testSecret = []byte("test-secret-at-least-32-bytes-long")

type testServer struct {
	router      chi.Router
	repo        *auth.InMemoryRepository
	sessionRepo *session.InMemoryRepository
	sessions    *session.Manager
	notifier    *notification.MockNotifier
	user        *auth.User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	repo := auth.NewInMemoryRepository()
	sessionRepo := session.NewInMemoryRepository()
	sessions := session.NewManager(sessionRepo, testSecret)
	notifier := &notification.MockNotifier{}

	service := auth.NewAuthService(
		repo,
		password.NewBcryptHasher(password.BcryptCost),
		password.DefaultPolicy(),
		sessions,
		notification.NewNotificationManager("https://example.com", notifier),
		audit.NewLogger(audit.NewInMemoryRepository()),
	)

	limiter := ratelimit.NewMemoryLimiter(nil)
	t.Cleanup(func() { limiter.Close() })

	handler := NewHandler(service, limiter, WithInsecureCookies())

	tokenAuth := jwtauth.New("HS256", testSecret, nil)
	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		handler.RegisterRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(tokenAuth))
			r.Use(jwtauth.Authenticator(tokenAuth))
			handler.RegisterProtectedRoutes(r)
		})
	})

	hashed, err := password.NewBcryptHasher(password.BcryptCost).Hash(testPassword)
	require.NoError(t, err)
	user := repo.AddUser(auth.User{
		Email:              testEmail,
		PasswordHash:       hashed.Hash,
		PasswordSalt:       hashed.Salt,
		Role:               "user",
		LastPasswordChange: time.Now(),
	})
	sessionRepo.SetUser(user.ID, user.Email, user.Role)

	return &testServer{
		router:      router,
		repo:        repo,
		sessionRepo: sessionRepo,
		sessions:    sessions,
		notifier:    notifier,
		user:        user,
	}
}

func (s *testServer) post(t *testing.T, path string, body interface{}, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestForgotPassword_ResponseDoesNotRevealAccounts(t *testing.T) {
	s := newTestServer(t)

	known := s.post(t, "/auth/password/forgot", map[string]string{"email": testEmail})
	unknown := s.post(t, "/auth/password/forgot", map[string]string{"email": "nobody@example.com"})

	assert.Equal(t, http.StatusOK, known.Code)
	assert.Equal(t, http.StatusOK, unknown.Code)
	assert.JSONEq(t, known.Body.String(), unknown.Body.String())

	// Only the known account got an email
	assert.Len(t, s.notifier.SentTo(testEmail), 1)
	assert.Empty(t, s.notifier.SentTo("nobody@example.com"))
}

func TestForgotPassword_InternalFailureReturns500(t *testing.T) {
	s := newTestServer(t)

	// A broken mail backend is an internal failure, not an
	// account-existence signal
	s.notifier.Err = errors.New("smtp connection refused")

	rec := s.post(t, "/auth/password/forgot", map[string]string{"email": testEmail})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error", decodeBody(t, rec)["error"])
}

func TestForgotPassword_RateLimited(t *testing.T) {
	s := newTestServer(t)

	// Budget is 3 per hour per identifier
	for i := 0; i < 3; i++ {
		rec := s.post(t, "/auth/password/forgot", map[string]string{"email": testEmail})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := s.post(t, "/auth/password/forgot", map[string]string{"email": testEmail})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestValidateResetToken(t *testing.T) {
	s := newTestServer(t)

	require.NoError(t, s.repo.CreateResetToken(context.Background(), auth.PasswordResetToken{
		ID:        uuid.New(),
		UserID:    s.user.ID,
		Token:     "valid-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	rec := s.post(t, "/auth/password/validate-token", map[string]string{"token": "valid-token"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["success"])

	rec = s.post(t, "/auth/password/validate-token", map[string]string{"token": "bogus"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Invalid or expired token", body["error"])
}

func TestResetPassword_WeakPasswordListsAllViolations(t *testing.T) {
	s := newTestServer(t)

	require.NoError(t, s.repo.CreateResetToken(context.Background(), auth.PasswordResetToken{
		ID:        uuid.New(),
		UserID:    s.user.ID,
		Token:     "reset-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	rec := s.post(t, "/auth/password/reset", map[string]string{
		"token":        "reset-token",
		"new_password": "weak",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeBody(t, rec)
	violations, ok := body["errors"].([]interface{})
	require.True(t, ok)
	assert.Greater(t, len(violations), 1)
}

func TestResetPassword_Success(t *testing.T) {
	s := newTestServer(t)

	require.NoError(t, s.repo.CreateResetToken(context.Background(), auth.PasswordResetToken{
		ID:        uuid.New(),
		UserID:    s.user.ID,
		Token:     "reset-token",
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	rec := s.post(t, "/auth/password/reset", map[string]string{
		"token":        "reset-token",
		"new_password": "Brand-New-Passw0rd!",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	// Second use of the same token fails
	rec = s.post(t, "/auth/password/reset", map[string]string{
		"token":        "reset-token",
		"new_password": "Another-Passw0rd-42!",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_MissingFields(t *testing.T) {
	s := newTestServer(t)

	rec := s.post(t, "/auth/login", map[string]string{"email": testEmail})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.post(t, "/auth/login", map[string]string{"password": testPassword})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_GenericUnauthorized(t *testing.T) {
	s := newTestServer(t)

	wrong := s.post(t, "/auth/login", map[string]string{"email": testEmail, "password": "Wrong-Password-99!"})
	unknown := s.post(t, "/auth/login", map[string]string{"email": "nobody@example.com", "password": "Wrong-Password-99!"})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.JSONEq(t, wrong.Body.String(), unknown.Body.String())
}

func TestLogin_SixthAttemptIsRateLimited(t *testing.T) {
	s := newTestServer(t)

	for i := 0; i < 5; i++ {
		rec := s.post(t, "/auth/login", map[string]string{"email": testEmail, "password": "Wrong-Password-99!"})
		require.Equal(t, http.StatusUnauthorized, rec.Code, "attempt %d", i+1)
	}

	rec := s.post(t, "/auth/login", map[string]string{"email": testEmail, "password": "Wrong-Password-99!"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestLogin_ReturnsUserIDAndSendsCode(t *testing.T) {
	s := newTestServer(t)

	rec := s.post(t, "/auth/login", map[string]string{"email": testEmail, "password": testPassword})
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, s.user.ID.String(), body["user_id"])
	assert.NotEmpty(t, body["message"])

	require.Len(t, s.notifier.Sent, 1)
	assert.Equal(t, notification.NoticeMFACode, s.notifier.Sent[0].Type)
}

func loginAndVerify(t *testing.T, s *testServer) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	rec := s.post(t, "/auth/login", map[string]string{"email": testEmail, "password": testPassword})
	require.Equal(t, http.StatusOK, rec.Code)

	code, err := s.repo.GetMFACode(context.Background(), s.user.ID)
	require.NoError(t, err)

	rec = s.post(t, "/auth/login/verify", map[string]string{
		"user_id": s.user.ID.String(),
		"code":    code.Code,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	return rec, decodeBody(t, rec)
}

func cookieByName(t *testing.T, rec *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()

	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("cookie %s not set", name)
	return nil
}

func TestVerifyLogin_SetsCookiesAndReturnsTokens(t *testing.T) {
	s := newTestServer(t)

	rec, body := loginAndVerify(t, s)

	assert.NotEmpty(t, body["access_token"])
	assert.NotEmpty(t, body["refresh_token"])

	access := cookieByName(t, rec, AccessTokenCookie)
	refresh := cookieByName(t, rec, RefreshTokenCookie)
	assert.True(t, access.HttpOnly)
	assert.True(t, refresh.HttpOnly)
}

func TestVerifyLogin_WrongCode(t *testing.T) {
	s := newTestServer(t)

	rec := s.post(t, "/auth/login", map[string]string{"email": testEmail, "password": testPassword})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.post(t, "/auth/login/verify", map[string]string{
		"user_id": s.user.ID.String(),
		"code":    "000000",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshToken(t *testing.T) {
	s := newTestServer(t)

	rec, _ := loginAndVerify(t, s)
	refresh := cookieByName(t, rec, RefreshTokenCookie)

	rec2 := s.post(t, "/auth/token/refresh", nil, refresh)
	assert.Equal(t, http.StatusOK, rec2.Code)
	assert.NotEmpty(t, decodeBody(t, rec2)["access_token"])

	// Without the cookie the refresh is rejected
	rec3 := s.post(t, "/auth/token/refresh", nil)
	assert.Equal(t, http.StatusUnauthorized, rec3.Code)
}

func TestLogout_RevokesSession(t *testing.T) {
	s := newTestServer(t)

	rec, body := loginAndVerify(t, s)
	refresh := cookieByName(t, rec, RefreshTokenCookie)
	accessToken, _ := body["access_token"].(string)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))
	req.AddCookie(refresh)
	out := httptest.NewRecorder()
	s.router.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code)

	// The refresh token is dead afterwards
	rec2 := s.post(t, "/auth/token/refresh", nil, refresh)
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)
}

func TestRevokeAllSessions(t *testing.T) {
	s := newTestServer(t)

	rec, body := loginAndVerify(t, s)
	refresh := cookieByName(t, rec, RefreshTokenCookie)
	accessToken, _ := body["access_token"].(string)

	// Unauthenticated call is rejected
	rec2 := s.post(t, "/auth/sessions/revoke-all", nil)
	assert.Equal(t, http.StatusUnauthorized, rec2.Code)

	req := httptest.NewRequest(http.MethodPost, "/auth/sessions/revoke-all", nil)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", accessToken))
	out := httptest.NewRecorder()
	s.router.ServeHTTP(out, req)
	require.Equal(t, http.StatusOK, out.Code)

	rec3 := s.post(t, "/auth/token/refresh", nil, refresh)
	assert.Equal(t, http.StatusUnauthorized, rec3.Code)
}
