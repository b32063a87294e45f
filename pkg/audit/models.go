package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType identifies a security-relevant event recorded in the audit trail
type EventType string

const (
	EventLoginSuccess         EventType = "login_success"
	EventLoginFailure         EventType = "login_failure"
	EventPasswordResetRequest EventType = "password_reset_request"
	EventPasswordResetSuccess EventType = "password_reset_success"
	EventPasswordResetFailure EventType = "password_reset_failure"
	EventVerificationSuccess  EventType = "verification_success"
	EventVerificationFailure  EventType = "verification_failure"
	EventAccountLocked        EventType = "account_locked"
	EventAccountUnlocked      EventType = "account_unlocked"
	EventMFAEnabled           EventType = "mfa_enabled"
	EventMFADisabled          EventType = "mfa_disabled"
	EventRateLimitExceeded    EventType = "rate_limit_exceeded"
)

// Event is one append-only row in the security audit trail.
// UserID and Email are both optional: failed logins for unknown accounts
// carry only the attempted email.
type Event struct {
	ID        uuid.UUID              `json:"id"`
	UserID    *uuid.UUID             `json:"user_id,omitempty"`
	Email     string                 `json:"email,omitempty"`
	EventType EventType              `json:"event_type"`
	IPAddress string                 `json:"ip_address,omitempty"`
	UserAgent string                 `json:"user_agent,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
