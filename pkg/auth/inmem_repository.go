package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository implements the Repository interface with in-process
// maps. Intended for tests and local development.
type InMemoryRepository struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*User
	tokens   map[string]*PasswordResetToken
	mfaCodes map[uuid.UUID]*MFACode
}

// NewInMemoryRepository creates a new in-memory auth repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:    make(map[uuid.UUID]*User),
		tokens:   make(map[string]*PasswordResetToken),
		mfaCodes: make(map[uuid.UUID]*MFACode),
	}
}

// AddUser stores a user, assigning an id when missing
func (r *InMemoryRepository) AddUser(user User) *User {
	r.mu.Lock()
	defer r.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	user.UpdatedAt = user.CreatedAt
	r.users[user.ID] = &user
	return &user
}

// GetUserByEmail finds a user by email, matched case-insensitively
func (r *InMemoryRepository) GetUserByEmail(_ context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	needle := strings.ToLower(strings.TrimSpace(email))
	for _, u := range r.users {
		if strings.ToLower(u.Email) == needle {
			copied := *u
			return &copied, nil
		}
	}
	return nil, ErrUserNotFound
}

// GetUserByID finds a user by id
func (r *InMemoryRepository) GetUserByID(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

// RecordLoginFailure increments the failed-attempt counter and optionally
// locks the account
func (r *InMemoryRepository) RecordLoginFailure(_ context.Context, userID uuid.UUID, lockUntil *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.FailedLoginAttempts++
	if lockUntil != nil {
		t := *lockUntil
		u.LockedUntil = &t
	}
	u.UpdatedAt = time.Now()
	return nil
}

// ClearLoginFailures resets the failed-attempt counter and lock state
func (r *InMemoryRepository) ClearLoginFailures(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.UpdatedAt = time.Now()
	return nil
}

// CreateResetToken stores a new password reset token
func (r *InMemoryRepository) CreateResetToken(_ context.Context, token PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	r.tokens[token.Token] = &token
	return nil
}

// GetResetToken finds a reset token by its opaque value
func (r *InMemoryRepository) GetResetToken(_ context.Context, tokenValue string) (*PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tokens[tokenValue]
	if !ok {
		return nil, ErrTokenInvalid
	}
	copied := *t
	return &copied, nil
}

// ResetPassword applies the password change and consumes the token atomically
func (r *InMemoryRepository) ResetPassword(_ context.Context, params ResetPasswordParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var token *PasswordResetToken
	for _, t := range r.tokens {
		if t.ID == params.TokenID {
			token = t
			break
		}
	}
	if token == nil || token.Used || !time.Now().Before(token.ExpiresAt) {
		return ErrTokenInvalid
	}

	u, ok := r.users[params.UserID]
	if !ok {
		return ErrUserNotFound
	}

	token.Used = true
	u.PasswordHash = params.PasswordHash
	u.PasswordSalt = params.PasswordSalt
	u.LastPasswordChange = time.Now()
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.UpdatedAt = time.Now()
	return nil
}

// UpsertMFACode stores the user's single active code
func (r *InMemoryRepository) UpsertMFACode(_ context.Context, code MFACode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now()
	}
	r.mfaCodes[code.UserID] = &code
	return nil
}

// GetMFACode returns the user's active code
func (r *InMemoryRepository) GetMFACode(_ context.Context, userID uuid.UUID) (*MFACode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.mfaCodes[userID]
	if !ok {
		return nil, ErrMFAInvalid
	}
	copied := *c
	return &copied, nil
}

// DeleteMFACode consumes the user's active code
func (r *InMemoryRepository) DeleteMFACode(_ context.Context, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.mfaCodes[userID]; !ok {
		return ErrMFAInvalid
	}
	delete(r.mfaCodes, userID)
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
var _ Repository = (*PostgresRepository)(nil)
