package ratelimit

import (
	"context"
	"time"
)

// Operation identifies the kind of request being rate limited.
// Each operation carries its own attempt budget and window.
type Operation string

const (
	OperationLogin         Operation = "login"
	OperationPasswordReset Operation = "password_reset"
	OperationVerification  Operation = "verification"
)

// Config defines the attempt budget for one operation
type Config struct {
	MaxAttempts int           // Maximum attempts inside the window
	Window      time.Duration // Sliding window length
}

// DefaultConfigs returns the per-operation limits
func DefaultConfigs() map[Operation]Config {
	return map[Operation]Config{
		OperationLogin:         {MaxAttempts: 5, Window: 15 * time.Minute},
		OperationPasswordReset: {MaxAttempts: 3, Window: time.Hour},
		OperationVerification:  {MaxAttempts: 5, Window: 5 * time.Minute},
	}
}

// Result reports the outcome of a rate limit check
type Result struct {
	Allowed    bool          // Whether this attempt may proceed
	Remaining  int           // Attempts left in the current window
	RetryAfter time.Duration // How long until the window opens again (zero when allowed)
}

// Limiter tracks attempts per operation and key.
// Allow records the attempt as part of the check, so callers invoke it
// once per request.
type Limiter interface {
	// Allow records an attempt for key and reports whether it is within budget
	Allow(ctx context.Context, op Operation, key string) (Result, error)

	// Reset clears all recorded attempts for key, e.g. after a successful login
	Reset(ctx context.Context, op Operation, key string) error

	// Close releases any background resources held by the limiter
	Close() error
}
