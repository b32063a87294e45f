package config

import (
	"github.com/shieldscore/authkit/pkg/password"
)

// PasswordComplexityConfig holds password policy configuration from
// environment variables
type PasswordComplexityConfig struct {
	MinLength          int  `env:"PASSWORD_COMPLEXITY_MIN_LENGTH" env-default:"12"`
	MaxLength          int  `env:"PASSWORD_COMPLEXITY_MAX_LENGTH" env-default:"128"`
	RequireUppercase   bool `env:"PASSWORD_COMPLEXITY_REQUIRE_UPPERCASE" env-default:"true"`
	RequireLowercase   bool `env:"PASSWORD_COMPLEXITY_REQUIRE_LOWERCASE" env-default:"true"`
	RequireDigit       bool `env:"PASSWORD_COMPLEXITY_REQUIRE_DIGIT" env-default:"true"`
	RequireSpecialChar bool `env:"PASSWORD_COMPLEXITY_REQUIRE_NON_ALPHANUMERIC" env-default:"true"`
	MaxRepeatedChars   int  `env:"PASSWORD_COMPLEXITY_MAX_REPEATED_CHARS" env-default:"3"`
	DisallowCommon     bool `env:"PASSWORD_COMPLEXITY_DISALLOW_COMMON_PWDS" env-default:"true"`
	ExpiryDays         int  `env:"PASSWORD_EXPIRY_DAYS" env-default:"0"`
}

// ToPolicy converts the configuration to a password.Policy
func (c *PasswordComplexityConfig) ToPolicy() *password.Policy {
	if c == nil {
		return password.DefaultPolicy()
	}

	return &password.Policy{
		MinLength:          c.MinLength,
		MaxLength:          c.MaxLength,
		RequireUppercase:   c.RequireUppercase,
		RequireLowercase:   c.RequireLowercase,
		RequireDigit:       c.RequireDigit,
		RequireSpecialChar: c.RequireSpecialChar,
		MaxRepeatedChars:   c.MaxRepeatedChars,
		DisallowCommon:     c.DisallowCommon,
	}
}
