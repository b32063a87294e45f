package session

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists sessions
type Repository interface {
	// Create stores a new session
	Create(ctx context.Context, session Session) error

	// GetActiveWithUser returns the unrevoked, unexpired session matching
	// refreshToken joined to the owning user's email and role.
	// Returns ErrSessionNotFound when no such session exists.
	GetActiveWithUser(ctx context.Context, refreshToken string) (*SessionWithUser, error)

	// Revoke marks the session matching refreshToken as revoked
	Revoke(ctx context.Context, refreshToken string) error

	// RevokeAllByUserID marks all of a user's sessions as revoked
	RevokeAllByUserID(ctx context.Context, userID uuid.UUID) error

	// DeleteExpired removes sessions that are expired or revoked
	DeleteExpired(ctx context.Context) error
}
