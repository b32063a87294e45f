package auth

import (
	"time"

	"github.com/google/uuid"
)

// User is an account row. Passwords are stored only as salted bcrypt hashes.
type User struct {
	ID                  uuid.UUID  `json:"id"`
	Email               string     `json:"email"`
	PasswordHash        string     `json:"-"`
	PasswordSalt        string     `json:"-"`
	FirstName           string     `json:"first_name"`
	LastName            string     `json:"last_name"`
	Role                string     `json:"role"`
	FailedLoginAttempts int        `json:"-"`
	LockedUntil         *time.Time `json:"-"`
	LastPasswordChange  time.Time  `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// IsLocked reports whether the account is locked out at the given instant
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// PasswordResetToken is one opaque reset token. It is valid while unexpired
// and unused; consuming it flips Used inside the reset transaction.
type PasswordResetToken struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Used      bool      `json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

// IsValid reports whether the token can still be consumed
func (t *PasswordResetToken) IsValid(now time.Time) bool {
	return !t.Used && now.Before(t.ExpiresAt)
}

// MFACode is the single active email code for a user. Issuing a new code
// replaces the previous one.
type MFACode struct {
	UserID    uuid.UUID `json:"user_id"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// ClientInfo carries request metadata recorded in the audit trail
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// LoginResult is the outcome of a successful password check. No session
// exists yet; the caller must verify the emailed code.
type LoginResult struct {
	UserID  uuid.UUID `json:"user_id"`
	Message string    `json:"message"`
}

// ResetPasswordParams is the atomic unit applied when a reset token is
// consumed
type ResetPasswordParams struct {
	UserID       uuid.UUID
	TokenID      uuid.UUID
	PasswordHash string
	PasswordSalt string
}
