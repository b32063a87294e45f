package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Default token expiry durations
const (
	DefaultAccessTokenExpiry  = 15 * time.Minute
	DefaultRefreshTokenExpiry = 7 * 24 * time.Hour
)

// Manager issues and verifies access tokens and owns the refresh-token
// session lifecycle. Access tokens are signed HS256 JWTs; refresh tokens are
// opaque and validated only against their session row.
type Manager struct {
	repo          Repository
	secret        []byte
	issuer        string
	audience      string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	log           *slog.Logger
	now           func() time.Time
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithAccessTokenExpiry sets the access token expiry duration
func WithAccessTokenExpiry(expiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessExpiry = expiry
	}
}

// WithRefreshTokenExpiry sets the refresh token expiry duration
func WithRefreshTokenExpiry(expiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.refreshExpiry = expiry
	}
}

// WithIssuer sets the iss claim on access tokens
func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

// WithAudience sets the aud claim on access tokens
func WithAudience(audience string) ManagerOption {
	return func(m *Manager) {
		m.audience = audience
	}
}

// WithLogger sets the logger used by maintenance loops
func WithLogger(log *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

// NewManager creates a session manager
func NewManager(repo Repository, secret []byte, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:          repo,
		secret:        secret,
		issuer:        "authkit",
		audience:      "authkit",
		accessExpiry:  DefaultAccessTokenExpiry,
		refreshExpiry: DefaultRefreshTokenExpiry,
		log:           slog.Default(),
		now:           time.Now,
	}

	for _, option := range options {
		option(m)
	}

	return m
}

// AccessTokenExpiry returns the configured access token lifetime
func (m *Manager) AccessTokenExpiry() time.Duration {
	return m.accessExpiry
}

// RefreshTokenExpiry returns the configured refresh token lifetime
func (m *Manager) RefreshTokenExpiry() time.Duration {
	return m.refreshExpiry
}

// CreateSession mints an access token for the user and persists a new
// refresh-token session
func (m *Manager) CreateSession(ctx context.Context, userID uuid.UUID, email, role string) (TokenPair, error) {
	now := m.now()
	accessExpires := now.Add(m.accessExpiry)

	accessToken, err := m.signAccessToken(userID, email, role, now, accessExpires)
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshToken := uuid.NewString()
	refreshExpires := now.Add(m.refreshExpiry)

	err = m.repo.Create(ctx, Session{
		ID:           uuid.New(),
		UserID:       userID,
		RefreshToken: refreshToken,
		ExpiresAt:    refreshExpires,
	})
	if err != nil {
		return TokenPair{}, fmt.Errorf("failed to persist session: %w", err)
	}

	return TokenPair{
		AccessToken:         accessToken,
		AccessTokenExpires:  accessExpires,
		RefreshToken:        refreshToken,
		RefreshTokenExpires: refreshExpires,
	}, nil
}

// RefreshAccessToken mints a new access token for the session matching
// refreshToken. The claims come from the current user row, not from the
// original token, so role changes take effect on refresh.
// Returns ErrSessionNotFound when the session is missing, revoked or expired.
func (m *Manager) RefreshAccessToken(ctx context.Context, refreshToken string) (string, time.Time, error) {
	sess, err := m.repo.GetActiveWithUser(ctx, refreshToken)
	if err != nil {
		return "", time.Time{}, err
	}

	now := m.now()
	expires := now.Add(m.accessExpiry)

	accessToken, err := m.signAccessToken(sess.UserID, sess.Email, sess.Role, now, expires)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	return accessToken, expires, nil
}

// RevokeSession revokes the session matching refreshToken
func (m *Manager) RevokeSession(ctx context.Context, refreshToken string) error {
	return m.repo.Revoke(ctx, refreshToken)
}

// RevokeAllUserSessions revokes every session belonging to a user
func (m *Manager) RevokeAllUserSessions(ctx context.Context, userID uuid.UUID) error {
	return m.repo.RevokeAllByUserID(ctx, userID)
}

// VerifyAccessToken checks signature and expiry and returns the verified
// payload. Any failure yields ErrTokenInvalid.
func (m *Manager) VerifyAccessToken(tokenStr string) (*TokenPayload, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	return &TokenPayload{
		UserID: userID,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}

// CleanupExpiredSessions removes expired and revoked session rows
func (m *Manager) CleanupExpiredSessions(ctx context.Context) error {
	return m.repo.DeleteExpired(ctx)
}

// StartCleanup runs CleanupExpiredSessions on the given interval until ctx
// is cancelled
func (m *Manager) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.CleanupExpiredSessions(ctx); err != nil {
				m.log.Error("failed to clean up expired sessions", "error", err)
			}
		}
	}
}

func (m *Manager) signAccessToken(userID uuid.UUID, email, role string, now, expires time.Time) (string, error) {
	claims := Claims{
		UserID: userID.String(),
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}
