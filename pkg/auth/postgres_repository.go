package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL auth repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

const userColumns = `
	id, email, password_hash, password_salt, first_name, last_name, role,
	failed_login_attempts, locked_until, last_password_change, created_at, updated_at
`

// GetUserByEmail finds a user by email, matched case-insensitively
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`
	return r.queryUser(ctx, query, strings.TrimSpace(email))
}

// GetUserByID finds a user by id
func (r *PostgresRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1
	`
	return r.queryUser(ctx, query, id)
}

func (r *PostgresRepository) queryUser(ctx context.Context, query string, arg any) (*User, error) {
	user := &User{}
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.PasswordSalt,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.FailedLoginAttempts,
		&user.LockedUntil,
		&user.LastPasswordChange,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// RecordLoginFailure increments the failed-attempt counter and optionally
// locks the account
func (r *PostgresRepository) RecordLoginFailure(ctx context.Context, userID uuid.UUID, lockUntil *time.Time) error {
	query := `
		UPDATE users
		SET failed_login_attempts = failed_login_attempts + 1,
		    locked_until = COALESCE($2, locked_until),
		    updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.pool.Exec(ctx, query, userID, lockUntil)
	if err != nil {
		return fmt.Errorf("failed to record login failure: %w", err)
	}
	return nil
}

// ClearLoginFailures resets the failed-attempt counter and lock state
func (r *PostgresRepository) ClearLoginFailures(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE users
		SET failed_login_attempts = 0,
		    locked_until = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to clear login failures: %w", err)
	}
	return nil
}

// CreateResetToken stores a new password reset token
func (r *PostgresRepository) CreateResetToken(ctx context.Context, token PasswordResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (
			id, user_id, token, expires_at, used, created_at
		) VALUES (
			$1, $2, $3, $4, false, NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query, token.ID, token.UserID, token.Token, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create reset token: %w", err)
	}
	return nil
}

// GetResetToken finds a reset token by its opaque value
func (r *PostgresRepository) GetResetToken(ctx context.Context, tokenValue string) (*PasswordResetToken, error) {
	query := `
		SELECT id, user_id, token, expires_at, used, created_at
		FROM password_reset_tokens
		WHERE token = $1
	`

	token := &PasswordResetToken{}
	err := r.pool.QueryRow(ctx, query, tokenValue).Scan(
		&token.ID,
		&token.UserID,
		&token.Token,
		&token.ExpiresAt,
		&token.Used,
		&token.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}
	return token, nil
}

// ResetPassword applies the password change and consumes the token in one
// transaction. Marking the token used guards the WHERE clause, so a token
// consumed by a concurrent request aborts this one.
func (r *PostgresRepository) ResetPassword(ctx context.Context, params ResetPasswordParams) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin reset transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	consumeToken := `
		UPDATE password_reset_tokens
		SET used = true
		WHERE id = $1
		  AND NOT used
		  AND expires_at > NOW()
	`
	result, err := tx.Exec(ctx, consumeToken, params.TokenID)
	if err != nil {
		return fmt.Errorf("failed to consume reset token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTokenInvalid
	}

	updateUser := `
		UPDATE users
		SET password_hash = $2,
		    password_salt = $3,
		    last_password_change = NOW(),
		    failed_login_attempts = 0,
		    locked_until = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, updateUser, params.UserID, params.PasswordHash, params.PasswordSalt); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit reset transaction: %w", err)
	}
	return nil
}

// UpsertMFACode stores the user's single active code
func (r *PostgresRepository) UpsertMFACode(ctx context.Context, code MFACode) error {
	query := `
		INSERT INTO mfa_codes (user_id, code, expires_at, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET code = EXCLUDED.code,
		    expires_at = EXCLUDED.expires_at,
		    created_at = NOW()
	`

	_, err := r.pool.Exec(ctx, query, code.UserID, code.Code, code.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to upsert MFA code: %w", err)
	}
	return nil
}

// GetMFACode returns the user's active code
func (r *PostgresRepository) GetMFACode(ctx context.Context, userID uuid.UUID) (*MFACode, error) {
	query := `
		SELECT user_id, code, expires_at, created_at
		FROM mfa_codes
		WHERE user_id = $1
	`

	code := &MFACode{}
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&code.UserID,
		&code.Code,
		&code.ExpiresAt,
		&code.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMFAInvalid
		}
		return nil, fmt.Errorf("failed to get MFA code: %w", err)
	}
	return code, nil
}

// DeleteMFACode consumes the user's active code
func (r *PostgresRepository) DeleteMFACode(ctx context.Context, userID uuid.UUID) error {
	query := `
		DELETE FROM mfa_codes
		WHERE user_id = $1
	`

	tag, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to delete MFA code: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMFAInvalid
	}
	return nil
}
