package password

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

const (
	// ResetTokenBytes is the entropy of an opaque reset token before encoding.
	ResetTokenBytes = 32

	saltBytes = 16
)

// GenerateSalt returns a random base64url salt for password hashing.
func GenerateSalt() (string, error) {
	return randomURLString(saltBytes)
}

// GenerateResetToken returns an opaque, URL-safe password reset token.
func GenerateResetToken() (string, error) {
	return randomURLString(ResetTokenBytes)
}

// GenerateVerificationCode returns a 6-digit numeric code drawn uniformly
// from crypto/rand.
func GenerateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func randomURLString(numBytes int) (string, error) {
	b := make([]byte, numBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
