package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	hasher := NewBcryptHasher(BcryptCost)

	hashed, err := hasher.Hash("Correct-Horse-Battery-1")
	require.NoError(t, err)
	assert.NotEmpty(t, hashed.Hash)
	assert.NotEmpty(t, hashed.Salt)
	assert.NotEqual(t, "Correct-Horse-Battery-1", hashed.Hash)

	match, err := hasher.Verify("Correct-Horse-Battery-1", hashed.Hash, hashed.Salt)
	require.NoError(t, err)
	assert.True(t, match)

	match, err = hasher.Verify("Wrong-Horse-Battery-1", hashed.Hash, hashed.Salt)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestBcryptHasher_HashIsSalted(t *testing.T) {
	hasher := NewBcryptHasher(BcryptCost)

	first, err := hasher.Hash("Correct-Horse-Battery-1")
	require.NoError(t, err)
	second, err := hasher.Hash("Correct-Horse-Battery-1")
	require.NoError(t, err)

	assert.NotEqual(t, first.Hash, second.Hash)
	assert.NotEqual(t, first.Salt, second.Salt)
}

func TestBcryptHasher_LongPasswords(t *testing.T) {
	hasher := NewBcryptHasher(BcryptCost)
	policy := DefaultPolicy()

	// Maximum length the policy allows; well past bcrypt's 72-byte input cap
	long := strings.Repeat("Ab1!", 32)
	require.True(t, policy.Validate(long).IsValid)
	require.Len(t, long, 128)

	hashed, err := hasher.Hash(long)
	require.NoError(t, err)

	match, err := hasher.Verify(long, hashed.Hash, hashed.Salt)
	require.NoError(t, err)
	assert.True(t, match)

	// A different long password must still miss
	other := strings.Repeat("Cd2?", 32)
	match, err = hasher.Verify(other, hashed.Hash, hashed.Salt)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestBcryptHasher_EmptyInputs(t *testing.T) {
	hasher := NewBcryptHasher(BcryptCost)

	_, err := hasher.Hash("")
	assert.Error(t, err)

	_, err = hasher.Verify("", "some-hash", "some-salt")
	assert.Error(t, err)

	_, err = hasher.Verify("some-password", "", "some-salt")
	assert.Error(t, err)
}

func TestGenerateResetToken(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 32; i++ {
		token, err := GenerateResetToken()
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(token), 43) // 32 bytes base64url encoded
		assert.False(t, seen[token], "tokens must not repeat")
		seen[token] = true
	}
}

func TestGenerateVerificationCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := GenerateVerificationCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9')
		}
	}
}
