package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL audit repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{
		pool: pool,
	}
}

// Append stores one event
func (r *PostgresRepository) Append(ctx context.Context, event Event) error {
	query := `
		INSERT INTO security_events (
			id, user_id, email, event_type, ip_address, user_agent, details, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, NOW()
		)
	`

	id := event.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	var details []byte
	if event.Details != nil {
		var err error
		details, err = json.Marshal(event.Details)
		if err != nil {
			return fmt.Errorf("failed to marshal event details: %w", err)
		}
	}

	_, err := r.pool.Exec(ctx, query,
		id,
		event.UserID,
		nullString(event.Email),
		event.EventType,
		nullString(event.IPAddress),
		nullString(event.UserAgent),
		details,
	)
	if err != nil {
		return fmt.Errorf("failed to append security event: %w", err)
	}

	return nil
}

// ListRecentByUserID returns the newest events for a user, newest first
func (r *PostgresRepository) ListRecentByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]Event, error) {
	query := `
		SELECT id, user_id, email, event_type, ip_address, user_agent, details, created_at
		FROM security_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list security events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		event, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("error iterating security events: %w", rows.Err())
	}

	return events, nil
}

// CountFailedLogins counts login_failure events for an email since the cutoff
func (r *PostgresRepository) CountFailedLogins(ctx context.Context, email string, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM security_events
		WHERE email = $1
		  AND event_type = $2
		  AND created_at >= $3
	`

	var count int
	err := r.pool.QueryRow(ctx, query, email, EventLoginFailure, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count failed logins: %w", err)
	}

	return count, nil
}

func scanEvent(scan func(dest ...any) error) (Event, error) {
	var event Event
	var email, ipAddress, userAgent sql.NullString
	var details []byte

	err := scan(
		&event.ID,
		&event.UserID,
		&email,
		&event.EventType,
		&ipAddress,
		&userAgent,
		&details,
		&event.CreatedAt,
	)
	if err != nil {
		return Event{}, fmt.Errorf("failed to scan security event: %w", err)
	}

	event.Email = email.String
	event.IPAddress = ipAddress.String
	event.UserAgent = userAgent.String

	if len(details) > 0 {
		if err := json.Unmarshal(details, &event.Details); err != nil {
			return Event{}, fmt.Errorf("failed to unmarshal event details: %w", err)
		}
	}

	return event, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
