package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for unknown accounts and wrong
	// passwords alike, so responses cannot be used to enumerate users
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrAccountLocked indicates too many failed login attempts
	ErrAccountLocked = errors.New("account is temporarily locked")

	// ErrTokenInvalid indicates a reset token that is unknown, expired or
	// already used
	ErrTokenInvalid = errors.New("invalid or expired token")

	// ErrMFAInvalid indicates a wrong or expired verification code
	ErrMFAInvalid = errors.New("invalid or expired verification code")

	// ErrUserNotFound indicates no account matches the given identifier
	ErrUserNotFound = errors.New("user not found")
)
