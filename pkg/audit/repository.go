package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists security events
type Repository interface {
	// Append stores one event
	Append(ctx context.Context, event Event) error

	// ListRecentByUserID returns the newest events for a user, newest first
	ListRecentByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]Event, error)

	// CountFailedLogins counts login_failure events for an email since the cutoff
	CountFailedLogins(ctx context.Context, email string, since time.Time) (int, error)
}
