package session

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-at-least-32-bytes-long")

func TestManager_CreateSession(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	mgr := NewManager(repo, testSecret)

	userID := uuid.New()
	pair, err := mgr.CreateSession(ctx, userID, "user@example.com", "user")
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.True(t, pair.AccessTokenExpires.After(time.Now()))
	assert.True(t, pair.RefreshTokenExpires.After(pair.AccessTokenExpires))
	assert.Equal(t, 1, repo.Len())

	payload, err := mgr.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID, payload.UserID)
	assert.Equal(t, "user@example.com", payload.Email)
	assert.Equal(t, "user", payload.Role)
}

func TestManager_VerifyAccessToken_RejectsTampering(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(NewInMemoryRepository(), testSecret)

	pair, err := mgr.CreateSession(ctx, uuid.New(), "user@example.com", "user")
	require.NoError(t, err)

	// Wrong key
	other := NewManager(NewInMemoryRepository(), []byte("another-secret-also-32-bytes-long!"))
	_, err = other.VerifyAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// Garbage
	_, err = mgr.VerifyAccessToken("not-a-token")
	assert.ErrorIs(t, err, ErrTokenInvalid)

	// Unsigned token with alg=none
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": uuid.NewString(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = mgr.VerifyAccessToken(unsigned)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestManager_VerifyAccessToken_RejectsExpired(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	mgr := NewManager(repo, testSecret)
	mgr.now = func() time.Time { return time.Now().Add(-time.Hour) }

	pair, err := mgr.CreateSession(ctx, uuid.New(), "user@example.com", "user")
	require.NoError(t, err)

	// Issued an hour ago with a 15 minute lifetime
	_, err = mgr.VerifyAccessToken(pair.AccessToken)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestManager_RefreshAccessToken(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	mgr := NewManager(repo, testSecret)

	userID := uuid.New()
	repo.SetUser(userID, "user@example.com", "user")

	pair, err := mgr.CreateSession(ctx, userID, "user@example.com", "user")
	require.NoError(t, err)

	token, expires, err := mgr.RefreshAccessToken(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.True(t, expires.After(time.Now()))

	payload, err := mgr.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, payload.UserID)
}

func TestManager_RefreshAccessToken_UsesCurrentUserData(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	mgr := NewManager(repo, testSecret)

	userID := uuid.New()
	repo.SetUser(userID, "user@example.com", "user")

	pair, err := mgr.CreateSession(ctx, userID, "user@example.com", "user")
	require.NoError(t, err)

	// Role changed after the session was created
	repo.SetUser(userID, "user@example.com", "admin")

	token, _, err := mgr.RefreshAccessToken(ctx, pair.RefreshToken)
	require.NoError(t, err)

	payload, err := mgr.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", payload.Role)
}

func TestManager_RefreshAccessToken_UnknownToken(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(NewInMemoryRepository(), testSecret)

	_, _, err := mgr.RefreshAccessToken(ctx, "no-such-token")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_RevokeSession(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	mgr := NewManager(repo, testSecret)

	userID := uuid.New()
	repo.SetUser(userID, "user@example.com", "user")

	pair, err := mgr.CreateSession(ctx, userID, "user@example.com", "user")
	require.NoError(t, err)

	require.NoError(t, mgr.RevokeSession(ctx, pair.RefreshToken))

	_, _, err = mgr.RefreshAccessToken(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestManager_RevokeAllUserSessions(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	mgr := NewManager(repo, testSecret)

	userID := uuid.New()
	otherID := uuid.New()
	repo.SetUser(userID, "user@example.com", "user")
	repo.SetUser(otherID, "other@example.com", "user")

	first, err := mgr.CreateSession(ctx, userID, "user@example.com", "user")
	require.NoError(t, err)
	second, err := mgr.CreateSession(ctx, userID, "user@example.com", "user")
	require.NoError(t, err)
	others, err := mgr.CreateSession(ctx, otherID, "other@example.com", "user")
	require.NoError(t, err)

	require.NoError(t, mgr.RevokeAllUserSessions(ctx, userID))

	_, _, err = mgr.RefreshAccessToken(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, _, err = mgr.RefreshAccessToken(ctx, second.RefreshToken)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Other users keep their sessions
	_, _, err = mgr.RefreshAccessToken(ctx, others.RefreshToken)
	assert.NoError(t, err)
}

func TestManager_CleanupExpiredSessions(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	mgr := NewManager(repo, testSecret, WithRefreshTokenExpiry(-time.Minute))

	userID := uuid.New()
	repo.SetUser(userID, "user@example.com", "user")

	_, err := mgr.CreateSession(ctx, userID, "user@example.com", "user")
	require.NoError(t, err)
	require.Equal(t, 1, repo.Len())

	require.NoError(t, mgr.CleanupExpiredSessions(ctx))
	assert.Equal(t, 0, repo.Len())
}

func TestManager_Options(t *testing.T) {
	mgr := NewManager(NewInMemoryRepository(), testSecret,
		WithAccessTokenExpiry(5*time.Minute),
		WithRefreshTokenExpiry(48*time.Hour),
		WithIssuer("test-issuer"),
		WithAudience("test-audience"),
	)

	assert.Equal(t, 5*time.Minute, mgr.AccessTokenExpiry())
	assert.Equal(t, 48*time.Hour, mgr.RefreshTokenExpiry())
	assert.Equal(t, "test-issuer", mgr.issuer)
	assert.Equal(t, "test-audience", mgr.audience)
}
