package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_ValidPassword(t *testing.T) {
	policy := DefaultPolicy()

	result := policy.Validate("Tr0ub4dor&Horse!")
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
}

func TestPolicy_CollectsAllViolations(t *testing.T) {
	policy := DefaultPolicy()

	// Too short, no uppercase, no digit, no special character.
	result := policy.Validate("abc")
	assert.False(t, result.IsValid)
	assert.Len(t, result.Errors, 4)
}

func TestPolicy_Length(t *testing.T) {
	policy := DefaultPolicy()

	result := policy.Validate("Sh0rt-pw!")
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "password must be at least 12 characters long")

	long := "Aa1!" + strings.Repeat("x", 130)
	result = policy.Validate(long)
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "password must be at most 128 characters long")
}

func TestPolicy_CharacterClasses(t *testing.T) {
	policy := DefaultPolicy()

	tests := []struct {
		name     string
		password string
		want     string
	}{
		{"missing uppercase", "tr0ub4dor&horse!", "password must contain at least one uppercase letter"},
		{"missing lowercase", "TR0UB4DOR&HORSE!", "password must contain at least one lowercase letter"},
		{"missing digit", "Troubador&Horse!", "password must contain at least one number"},
		{"missing special", "Tr0ub4dorHorse1", "password must contain at least one special character"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := policy.Validate(tc.password)
			assert.False(t, result.IsValid)
			assert.Contains(t, result.Errors, tc.want)
		})
	}
}

func TestPolicy_RepeatedCharacters(t *testing.T) {
	policy := DefaultPolicy()

	result := policy.Validate("Tr0ub4dor&&&&Horse")
	assert.False(t, result.IsValid)
	assert.Contains(t, result.Errors, "password must not contain more than 3 repeated characters in a row")

	// Exactly three in a row is allowed.
	result = policy.Validate("Tr0ub4dor&&&Horse")
	assert.True(t, result.IsValid)
}

func TestPolicy_CommonPasswords(t *testing.T) {
	policy := DefaultPolicy()

	for _, pw := range []string{"MyPassword-2024!", "Qwerty-Is-Gr8!!", "Adm1n-admin-XY!a"} {
		result := policy.Validate(pw)
		assert.False(t, result.IsValid, pw)
	}
}
