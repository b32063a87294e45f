package password

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor used for new password hashes.
const BcryptCost = 12

// HashedPassword holds a password hash together with the salt it was derived with.
type HashedPassword struct {
	Hash string
	Salt string
}

// Hasher defines the interface for password hashing implementations
type Hasher interface {
	// Hash hashes a password and returns the hash with its salt
	Hash(password string) (HashedPassword, error)

	// Verify checks if the provided password matches the stored hash
	Verify(password, hash, salt string) (bool, error)
}

// BcryptHasher implements Hasher using salted bcrypt
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a bcrypt hasher with the given cost.
// Costs below BcryptCost are raised to BcryptCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < BcryptCost {
		cost = BcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash implements Hasher.Hash
func (h *BcryptHasher) Hash(password string) (HashedPassword, error) {
	if password == "" {
		return HashedPassword{}, errors.New("password cannot be empty")
	}

	salt, err := GenerateSalt()
	if err != nil {
		return HashedPassword{}, err
	}

	hashedBytes, err := bcrypt.GenerateFromPassword(saltedDigest(password, salt), h.cost)
	if err != nil {
		return HashedPassword{}, err
	}

	return HashedPassword{
		Hash: string(hashedBytes),
		Salt: salt,
	}, nil
}

// Verify implements Hasher.Verify
func (h *BcryptHasher) Verify(password, hash, salt string) (bool, error) {
	if password == "" || hash == "" {
		return false, errors.New("password and hashed password cannot be empty")
	}

	err := bcrypt.CompareHashAndPassword([]byte(hash), saltedDigest(password, salt))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil // Password doesn't match, but not an error
		}
		return false, err
	}

	return true, nil
}

// saltedDigest folds the salted password through SHA-256 before bcrypt sees
// it. bcrypt truncates input at 72 bytes; the digest keeps every allowed
// password length inside that limit. Base64 avoids NUL bytes in the input.
func saltedDigest(password, salt string) []byte {
	sum := sha256.Sum256([]byte(salt + password))
	return []byte(base64.RawStdEncoding.EncodeToString(sum[:]))
}
