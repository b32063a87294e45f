package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Session is one refresh-token grant for a user. The refresh token itself is
// opaque; only its row decides whether it can still mint access tokens.
type Session struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	IsRevoked    bool      `json:"is_revoked"`
	CreatedAt    time.Time `json:"created_at"`
}

// SessionWithUser is a session row joined to the current user data, so a
// refreshed access token always carries up-to-date email and role claims.
type SessionWithUser struct {
	Session
	Email string `json:"email"`
	Role  string `json:"role"`
}

// TokenPair is the result of establishing a session
type TokenPair struct {
	AccessToken         string    `json:"access_token"`
	AccessTokenExpires  time.Time `json:"access_token_expires"`
	RefreshToken        string    `json:"refresh_token"`
	RefreshTokenExpires time.Time `json:"refresh_token_expires"`
}

// TokenPayload is the verified content of an access token
type TokenPayload struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
}

// Claims is the JWT claim set carried by access tokens
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
