package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository implements the Repository interface with an in-process
// slice. Intended for tests and local development.
type InMemoryRepository struct {
	mu     sync.RWMutex
	events []Event
}

// NewInMemoryRepository creates a new in-memory audit repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Append stores one event
func (r *InMemoryRepository) Append(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	r.events = append(r.events, event)
	return nil
}

// ListRecentByUserID returns the newest events for a user, newest first
func (r *InMemoryRepository) ListRecentByUserID(_ context.Context, userID uuid.UUID, limit int) ([]Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var events []Event
	for i := len(r.events) - 1; i >= 0 && len(events) < limit; i-- {
		e := r.events[i]
		if e.UserID != nil && *e.UserID == userID {
			events = append(events, e)
		}
	}
	return events, nil
}

// CountFailedLogins counts login_failure events for an email since the cutoff
func (r *InMemoryRepository) CountFailedLogins(_ context.Context, email string, since time.Time) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, e := range r.events {
		if e.EventType == EventLoginFailure && e.Email == email && !e.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

// Events returns a copy of all stored events, oldest first
func (r *InMemoryRepository) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

var _ Repository = (*InMemoryRepository)(nil)
var _ Repository = (*PostgresRepository)(nil)
