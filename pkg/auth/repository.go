package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists users, reset tokens and MFA codes
type Repository interface {
	// GetUserByEmail finds a user by email (matched case-insensitively).
	// Returns ErrUserNotFound when no account exists.
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// GetUserByID finds a user by id. Returns ErrUserNotFound on miss.
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)

	// RecordLoginFailure increments the failed-attempt counter and, when
	// lockUntil is non-nil, locks the account until that instant
	RecordLoginFailure(ctx context.Context, userID uuid.UUID, lockUntil *time.Time) error

	// ClearLoginFailures resets the failed-attempt counter and lock state
	ClearLoginFailures(ctx context.Context, userID uuid.UUID) error

	// CreateResetToken stores a new password reset token
	CreateResetToken(ctx context.Context, token PasswordResetToken) error

	// GetResetToken finds a reset token by its opaque value.
	// Returns ErrTokenInvalid on miss.
	GetResetToken(ctx context.Context, token string) (*PasswordResetToken, error)

	// ResetPassword applies the password change, clears lock state and marks
	// the token used in one transaction. Returns ErrTokenInvalid when the
	// token was consumed concurrently.
	ResetPassword(ctx context.Context, params ResetPasswordParams) error

	// UpsertMFACode stores the user's single active code, replacing any
	// previous one
	UpsertMFACode(ctx context.Context, code MFACode) error

	// GetMFACode returns the user's active code. Returns ErrMFAInvalid on miss.
	GetMFACode(ctx context.Context, userID uuid.UUID) (*MFACode, error)

	// DeleteMFACode consumes the user's active code. Returns ErrMFAInvalid
	// when no code exists, so a code can only be consumed once.
	DeleteMFACode(ctx context.Context, userID uuid.UUID) error
}
