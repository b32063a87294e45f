package session

import "errors"

var (
	// ErrSessionNotFound indicates no active session matches the refresh token.
	// The caller must re-authenticate.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTokenInvalid indicates an access token that failed signature or
	// expiry checks
	ErrTokenInvalid = errors.New("invalid access token")
)
