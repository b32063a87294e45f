package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Logger records security events. Recording is best-effort: a failure to
// persist an event must never break the auth flow that produced it, so write
// errors are logged locally and swallowed.
type Logger struct {
	repo Repository
	log  *slog.Logger
}

// LoggerOption configures a Logger
type LoggerOption func(*Logger)

// WithSlog sets the local logger used to report persistence failures
func WithSlog(log *slog.Logger) LoggerOption {
	return func(l *Logger) {
		l.log = log
	}
}

// NewLogger creates a security event logger backed by repo
func NewLogger(repo Repository, opts ...LoggerOption) *Logger {
	l := &Logger{
		repo: repo,
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogEvent appends an event to the audit trail. Errors are swallowed.
func (l *Logger) LogEvent(ctx context.Context, event Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	if err := l.repo.Append(ctx, event); err != nil {
		l.log.Error("failed to record security event",
			"event_type", event.EventType,
			"email", event.Email,
			"error", err)
	}
}

// GetRecentEvents returns the newest events for a user. Read failures are
// logged and reported as an empty result.
func (l *Logger) GetRecentEvents(ctx context.Context, userID uuid.UUID, limit int) []Event {
	if limit <= 0 {
		limit = 50
	}

	events, err := l.repo.ListRecentByUserID(ctx, userID, limit)
	if err != nil {
		l.log.Error("failed to read security events", "user_id", userID, "error", err)
		return nil
	}
	return events
}

// GetFailedLoginAttempts counts login failures for an email inside the given
// window. Read failures are logged and reported as zero.
func (l *Logger) GetFailedLoginAttempts(ctx context.Context, email string, window time.Duration) int {
	count, err := l.repo.CountFailedLogins(ctx, email, time.Now().Add(-window))
	if err != nil {
		l.log.Error("failed to count failed logins", "email", email, "error", err)
		return 0
	}
	return count
}
