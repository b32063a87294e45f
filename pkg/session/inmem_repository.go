package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type userInfo struct {
	email string
	role  string
}

// InMemoryRepository implements the Repository interface with in-process
// maps. Intended for tests and local development. User email/role for the
// join is registered with SetUser.
type InMemoryRepository struct {
	mu       sync.RWMutex
	sessions map[string]Session // keyed by refresh token
	users    map[uuid.UUID]userInfo
}

// NewInMemoryRepository creates a new in-memory session repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		sessions: make(map[string]Session),
		users:    make(map[uuid.UUID]userInfo),
	}
}

// SetUser registers the email and role returned for a user's sessions
func (r *InMemoryRepository) SetUser(userID uuid.UUID, email, role string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID] = userInfo{email: email, role: role}
}

// Create stores a new session
func (r *InMemoryRepository) Create(_ context.Context, session Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}
	r.sessions[session.RefreshToken] = session
	return nil
}

// GetActiveWithUser returns the active session matching refreshToken joined
// to the owning user's email and role
func (r *InMemoryRepository) GetActiveWithUser(_ context.Context, refreshToken string) (*SessionWithUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[refreshToken]
	if !ok || sess.IsRevoked || !sess.ExpiresAt.After(time.Now()) {
		return nil, ErrSessionNotFound
	}

	info := r.users[sess.UserID]
	return &SessionWithUser{
		Session: sess,
		Email:   info.email,
		Role:    info.role,
	}, nil
}

// Revoke marks the session matching refreshToken as revoked
func (r *InMemoryRepository) Revoke(_ context.Context, refreshToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[refreshToken]
	if !ok || sess.IsRevoked {
		return ErrSessionNotFound
	}
	sess.IsRevoked = true
	r.sessions[refreshToken] = sess
	return nil
}

// RevokeAllByUserID marks all of a user's sessions as revoked
func (r *InMemoryRepository) RevokeAllByUserID(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for token, sess := range r.sessions {
		if sess.UserID == userID && !sess.IsRevoked {
			sess.IsRevoked = true
			r.sessions[token] = sess
		}
	}
	return nil
}

// DeleteExpired removes sessions that are expired or revoked
func (r *InMemoryRepository) DeleteExpired(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for token, sess := range r.sessions {
		if sess.IsRevoked || !sess.ExpiresAt.After(now) {
			delete(r.sessions, token)
		}
	}
	return nil
}

// Len returns the number of stored sessions
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

var _ Repository = (*InMemoryRepository)(nil)
var _ Repository = (*PostgresRepository)(nil)
