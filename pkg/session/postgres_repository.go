package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL session repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

// Create stores a new session
func (r *PostgresRepository) Create(ctx context.Context, session Session) error {
	query := `
		INSERT INTO sessions (
			id, user_id, refresh_token, expires_at, is_revoked, created_at
		) VALUES (
			$1, $2, $3, $4, false, NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.RefreshToken,
		session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// GetActiveWithUser returns the active session matching refreshToken joined
// to the owning user's email and role
func (r *PostgresRepository) GetActiveWithUser(ctx context.Context, refreshToken string) (*SessionWithUser, error) {
	query := `
		SELECT
			s.id, s.user_id, s.refresh_token, s.expires_at, s.is_revoked, s.created_at,
			u.email, u.role
		FROM sessions s
		JOIN users u ON u.id = s.user_id
		WHERE s.refresh_token = $1
		  AND NOT s.is_revoked
		  AND s.expires_at > NOW()
	`

	sess := &SessionWithUser{}
	err := r.pool.QueryRow(ctx, query, refreshToken).Scan(
		&sess.ID,
		&sess.UserID,
		&sess.RefreshToken,
		&sess.ExpiresAt,
		&sess.IsRevoked,
		&sess.CreatedAt,
		&sess.Email,
		&sess.Role,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return sess, nil
}

// Revoke marks the session matching refreshToken as revoked
func (r *PostgresRepository) Revoke(ctx context.Context, refreshToken string) error {
	query := `
		UPDATE sessions
		SET is_revoked = true
		WHERE refresh_token = $1
		  AND NOT is_revoked
	`

	result, err := r.pool.Exec(ctx, query, refreshToken)
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrSessionNotFound
	}

	return nil
}

// RevokeAllByUserID marks all of a user's sessions as revoked
func (r *PostgresRepository) RevokeAllByUserID(ctx context.Context, userID uuid.UUID) error {
	query := `
		UPDATE sessions
		SET is_revoked = true
		WHERE user_id = $1
		  AND NOT is_revoked
	`

	_, err := r.pool.Exec(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke all sessions: %w", err)
	}

	return nil
}

// DeleteExpired removes sessions that are expired or revoked
func (r *PostgresRepository) DeleteExpired(ctx context.Context) error {
	query := `
		DELETE FROM sessions
		WHERE expires_at < NOW()
		   OR is_revoked
	`

	_, err := r.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return nil
}
