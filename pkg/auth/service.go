package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/slog"

	"github.com/google/uuid"
	"github.com/shieldscore/authkit/pkg/apierror"
	"github.com/shieldscore/authkit/pkg/audit"
	"github.com/shieldscore/authkit/pkg/notification"
	"github.com/shieldscore/authkit/pkg/password"
	"github.com/shieldscore/authkit/pkg/session"
)

// Default lifetimes and lockout settings
const (
	DefaultResetTokenExpiry       = time.Hour
	DefaultMFACodeExpiry          = 10 * time.Minute
	DefaultVerificationCodeExpiry = 5 * time.Minute
	DefaultMaxFailedAttempts      = 5
	DefaultLockoutDuration        = 30 * time.Minute
)

// AuthService implements the password reset and login flows
type AuthService struct {
	repo     Repository
	hasher   password.Hasher
	policy   *password.Policy
	sessions *session.Manager
	notifier *notification.NotificationManager
	auditLog *audit.Logger
	log      *slog.Logger

	resetTokenExpiry       time.Duration
	mfaCodeExpiry          time.Duration
	verificationCodeExpiry time.Duration
	maxFailedAttempts      int
	lockoutDuration        time.Duration
	passwordExpiryDays     int
}

// Option configures an AuthService
type Option func(*AuthService)

// WithResetTokenExpiry sets the reset token lifetime
func WithResetTokenExpiry(expiry time.Duration) Option {
	return func(s *AuthService) {
		s.resetTokenExpiry = expiry
	}
}

// WithMFACodeExpiry sets the login code lifetime
func WithMFACodeExpiry(expiry time.Duration) Option {
	return func(s *AuthService) {
		s.mfaCodeExpiry = expiry
	}
}

// WithVerificationCodeExpiry sets the standalone verification code lifetime
func WithVerificationCodeExpiry(expiry time.Duration) Option {
	return func(s *AuthService) {
		s.verificationCodeExpiry = expiry
	}
}

// WithLockout sets the failed-attempt budget and lockout duration
func WithLockout(maxFailedAttempts int, lockoutDuration time.Duration) Option {
	return func(s *AuthService) {
		s.maxFailedAttempts = maxFailedAttempts
		s.lockoutDuration = lockoutDuration
	}
}

// WithPasswordExpiryDays enables password ageing. Zero disables it.
func WithPasswordExpiryDays(days int) Option {
	return func(s *AuthService) {
		s.passwordExpiryDays = days
	}
}

// WithServiceLogger sets the service logger
func WithServiceLogger(log *slog.Logger) Option {
	return func(s *AuthService) {
		s.log = log
	}
}

// NewAuthService creates the auth service
func NewAuthService(
	repo Repository,
	hasher password.Hasher,
	policy *password.Policy,
	sessions *session.Manager,
	notifier *notification.NotificationManager,
	auditLog *audit.Logger,
	options ...Option,
) *AuthService {
	s := &AuthService{
		repo:     repo,
		hasher:   hasher,
		policy:   policy,
		sessions: sessions,
		notifier: notifier,
		auditLog: auditLog,
		log:      slog.Default(),

		resetTokenExpiry:       DefaultResetTokenExpiry,
		mfaCodeExpiry:          DefaultMFACodeExpiry,
		verificationCodeExpiry: DefaultVerificationCodeExpiry,
		maxFailedAttempts:      DefaultMaxFailedAttempts,
		lockoutDuration:        DefaultLockoutDuration,
	}

	for _, option := range options {
		option(s)
	}

	return s
}

// InitPasswordReset issues a reset token and emails the reset link.
// Unknown emails succeed silently so responses cannot be used to enumerate
// accounts; the miss is still visible in server logs.
func (s *AuthService) InitPasswordReset(ctx context.Context, email string, info ClientInfo) error {
	email = normalizeEmail(email)

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.log.Info("password reset requested for unknown email", "email", email)
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	tokenValue, err := password.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	err = s.repo.CreateResetToken(ctx, PasswordResetToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		Token:     tokenValue,
		ExpiresAt: time.Now().Add(s.resetTokenExpiry),
	})
	if err != nil {
		return fmt.Errorf("failed to persist reset token: %w", err)
	}

	s.auditLog.LogEvent(ctx, audit.Event{
		UserID:    &user.ID,
		Email:     user.Email,
		EventType: audit.EventPasswordResetRequest,
		IPAddress: info.IPAddress,
		UserAgent: info.UserAgent,
	})

	if err := s.notifier.SendPasswordReset(user.Email, tokenValue); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}

// ValidateResetToken checks that a reset token exists, is unexpired and
// unused
func (s *AuthService) ValidateResetToken(ctx context.Context, tokenValue string) error {
	token, err := s.repo.GetResetToken(ctx, tokenValue)
	if err != nil {
		return err
	}
	if !token.IsValid(time.Now()) {
		return ErrTokenInvalid
	}
	return nil
}

// ResetPassword consumes a reset token and sets the new password. The user
// update and token consumption commit together; afterwards every existing
// session of the user is revoked.
func (s *AuthService) ResetPassword(ctx context.Context, tokenValue, newPassword string, info ClientInfo) error {
	token, err := s.repo.GetResetToken(ctx, tokenValue)
	if err != nil {
		s.auditFailedReset(ctx, nil, info, "unknown token")
		return err
	}
	if !token.IsValid(time.Now()) {
		s.auditFailedReset(ctx, &token.UserID, info, "expired or used token")
		return ErrTokenInvalid
	}

	if result := s.policy.Validate(newPassword); !result.IsValid {
		s.auditFailedReset(ctx, &token.UserID, info, "password policy")
		return apierror.New(apierror.ErrCodePasswordComplexity, "password does not meet requirements").
			WithDetail("errors", result.Errors)
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.repo.ResetPassword(ctx, ResetPasswordParams{
		UserID:       token.UserID,
		TokenID:      token.ID,
		PasswordHash: hashed.Hash,
		PasswordSalt: hashed.Salt,
	})
	if err != nil {
		if !errors.Is(err, ErrTokenInvalid) {
			err = fmt.Errorf("failed to reset password: %w", err)
		}
		s.auditFailedReset(ctx, &token.UserID, info, "reset transaction failed")
		return err
	}

	// A changed password invalidates every outstanding session
	if err := s.sessions.RevokeAllUserSessions(ctx, token.UserID); err != nil {
		s.log.Error("failed to revoke sessions after password reset",
			"user_id", token.UserID, "error", err)
	}

	s.auditLog.LogEvent(ctx, audit.Event{
		UserID:    &token.UserID,
		EventType: audit.EventPasswordResetSuccess,
		IPAddress: info.IPAddress,
		UserAgent: info.UserAgent,
	})
	return nil
}

// Login checks the password and, when it matches, emails a sign-in code.
// No session exists until VerifyMFA succeeds. Unknown users and wrong
// passwords produce the same ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, plaintext string, info ClientInfo) (LoginResult, error) {
	email = normalizeEmail(email)
	now := time.Now()

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.auditFailedLogin(ctx, nil, email, info, "unknown email")
			return LoginResult{}, ErrInvalidCredentials
		}
		return LoginResult{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if user.IsLocked(now) {
		s.auditFailedLogin(ctx, &user.ID, user.Email, info, "account locked")
		return LoginResult{}, ErrAccountLocked
	}

	match, err := s.hasher.Verify(plaintext, user.PasswordHash, user.PasswordSalt)
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to verify password: %w", err)
	}
	if !match {
		s.recordFailedAttempt(ctx, user, info)
		return LoginResult{}, ErrInvalidCredentials
	}

	if password.IsPasswordExpired(user.LastPasswordChange, s.passwordExpiryDays) {
		s.auditFailedLogin(ctx, &user.ID, user.Email, info, "password expired")
		return LoginResult{}, apierror.New(apierror.ErrCodePasswordExpired, "password has expired and must be reset")
	}

	if user.FailedLoginAttempts > 0 {
		if err := s.repo.ClearLoginFailures(ctx, user.ID); err != nil {
			s.log.Error("failed to clear login failures", "user_id", user.ID, "error", err)
		}
	}

	code, err := password.GenerateVerificationCode()
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to generate verification code: %w", err)
	}

	err = s.repo.UpsertMFACode(ctx, MFACode{
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: now.Add(s.mfaCodeExpiry),
	})
	if err != nil {
		return LoginResult{}, fmt.Errorf("failed to store verification code: %w", err)
	}

	if err := s.notifier.SendMFACode(user.Email, code); err != nil {
		return LoginResult{}, fmt.Errorf("failed to send verification code: %w", err)
	}

	return LoginResult{
		UserID:  user.ID,
		Message: "Verification code sent to your email",
	}, nil
}

// VerifyMFA checks the emailed code, consumes it and establishes a session
func (s *AuthService) VerifyMFA(ctx context.Context, userID uuid.UUID, code string, info ClientInfo) (session.TokenPair, error) {
	stored, err := s.repo.GetMFACode(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrMFAInvalid) {
			s.auditFailedVerification(ctx, userID, info, "no active code")
			return session.TokenPair{}, ErrMFAInvalid
		}
		return session.TokenPair{}, fmt.Errorf("failed to look up verification code: %w", err)
	}

	codeMatches := subtle.ConstantTimeCompare([]byte(stored.Code), []byte(code)) == 1
	if !codeMatches || !time.Now().Before(stored.ExpiresAt) {
		s.auditFailedVerification(ctx, userID, info, "wrong or expired code")
		return session.TokenPair{}, ErrMFAInvalid
	}

	// The delete is guarded so a code consumed by a concurrent verification
	// cannot be replayed
	if err := s.repo.DeleteMFACode(ctx, userID); err != nil {
		if errors.Is(err, ErrMFAInvalid) {
			s.auditFailedVerification(ctx, userID, info, "code already used")
			return session.TokenPair{}, ErrMFAInvalid
		}
		return session.TokenPair{}, fmt.Errorf("failed to consume verification code: %w", err)
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return session.TokenPair{}, fmt.Errorf("failed to load user: %w", err)
	}

	pair, err := s.sessions.CreateSession(ctx, user.ID, user.Email, user.Role)
	if err != nil {
		return session.TokenPair{}, fmt.Errorf("failed to create session: %w", err)
	}

	s.auditLog.LogEvent(ctx, audit.Event{
		UserID:    &user.ID,
		Email:     user.Email,
		EventType: audit.EventLoginSuccess,
		IPAddress: info.IPAddress,
		UserAgent: info.UserAgent,
	})
	return pair, nil
}

// SendVerificationCode emails a standalone verification code. Unknown
// emails succeed silently.
func (s *AuthService) SendVerificationCode(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			s.log.Info("verification code requested for unknown email", "email", email)
			return nil
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}

	code, err := password.GenerateVerificationCode()
	if err != nil {
		return fmt.Errorf("failed to generate verification code: %w", err)
	}

	err = s.repo.UpsertMFACode(ctx, MFACode{
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: time.Now().Add(s.verificationCodeExpiry),
	})
	if err != nil {
		return fmt.Errorf("failed to store verification code: %w", err)
	}

	return s.notifier.SendVerificationCode(user.Email, code)
}

// LogRateLimitExceeded records a throttled request in the audit trail
func (s *AuthService) LogRateLimitExceeded(ctx context.Context, operation, email string, info ClientInfo) {
	s.auditLog.LogEvent(ctx, audit.Event{
		Email:     normalizeEmail(email),
		EventType: audit.EventRateLimitExceeded,
		IPAddress: info.IPAddress,
		UserAgent: info.UserAgent,
		Details:   map[string]interface{}{"operation": operation},
	})
}

// Sessions exposes the session manager for handlers that refresh or revoke
// tokens directly
func (s *AuthService) Sessions() *session.Manager {
	return s.sessions
}

func (s *AuthService) recordFailedAttempt(ctx context.Context, user *User, info ClientInfo) {
	attempts := user.FailedLoginAttempts + 1

	var lockUntil *time.Time
	if attempts >= s.maxFailedAttempts {
		t := time.Now().Add(s.lockoutDuration)
		lockUntil = &t
	}

	if err := s.repo.RecordLoginFailure(ctx, user.ID, lockUntil); err != nil {
		s.log.Error("failed to record login failure", "user_id", user.ID, "error", err)
	}

	s.auditFailedLogin(ctx, &user.ID, user.Email, info, "wrong password")

	if lockUntil != nil {
		s.auditLog.LogEvent(ctx, audit.Event{
			UserID:    &user.ID,
			Email:     user.Email,
			EventType: audit.EventAccountLocked,
			IPAddress: info.IPAddress,
			UserAgent: info.UserAgent,
			Details:   map[string]interface{}{"locked_until": lockUntil.Format(time.RFC3339)},
		})
	}
}

func (s *AuthService) auditFailedLogin(ctx context.Context, userID *uuid.UUID, email string, info ClientInfo, reason string) {
	s.auditLog.LogEvent(ctx, audit.Event{
		UserID:    userID,
		Email:     email,
		EventType: audit.EventLoginFailure,
		IPAddress: info.IPAddress,
		UserAgent: info.UserAgent,
		Details:   map[string]interface{}{"reason": reason},
	})
}

func (s *AuthService) auditFailedReset(ctx context.Context, userID *uuid.UUID, info ClientInfo, reason string) {
	s.auditLog.LogEvent(ctx, audit.Event{
		UserID:    userID,
		EventType: audit.EventPasswordResetFailure,
		IPAddress: info.IPAddress,
		UserAgent: info.UserAgent,
		Details:   map[string]interface{}{"reason": reason},
	})
}

func (s *AuthService) auditFailedVerification(ctx context.Context, userID uuid.UUID, info ClientInfo, reason string) {
	s.auditLog.LogEvent(ctx, audit.Event{
		UserID:    &userID,
		EventType: audit.EventVerificationFailure,
		IPAddress: info.IPAddress,
		UserAgent: info.UserAgent,
		Details:   map[string]interface{}{"reason": reason},
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
