package config

import (
	"time"

	"github.com/shieldscore/authkit/pkg/ratelimit"
)

// RateLimitConfig holds the per-operation attempt budgets from environment
// variables. REDIS_ADDR switches the limiter to a shared Redis backend for
// multi-instance deployments; empty means in-process counters.
type RateLimitConfig struct {
	LoginMaxAttempts int           `env:"RATELIMIT_LOGIN_MAX_ATTEMPTS" env-default:"5"`
	LoginWindow      time.Duration `env:"RATELIMIT_LOGIN_WINDOW" env-default:"15m"`

	PasswordResetMaxAttempts int           `env:"RATELIMIT_PASSWORD_RESET_MAX_ATTEMPTS" env-default:"3"`
	PasswordResetWindow      time.Duration `env:"RATELIMIT_PASSWORD_RESET_WINDOW" env-default:"1h"`

	VerificationMaxAttempts int           `env:"RATELIMIT_VERIFICATION_MAX_ATTEMPTS" env-default:"5"`
	VerificationWindow      time.Duration `env:"RATELIMIT_VERIFICATION_WINDOW" env-default:"5m"`

	RedisAddr     string `env:"RATELIMIT_REDIS_ADDR" env-default:""`
	RedisPassword string `env:"RATELIMIT_REDIS_PASSWORD" env-default:""`
}

// ToConfigs converts the configuration to a per-operation limits table
func (c *RateLimitConfig) ToConfigs() map[ratelimit.Operation]ratelimit.Config {
	if c == nil {
		return ratelimit.DefaultConfigs()
	}

	return map[ratelimit.Operation]ratelimit.Config{
		ratelimit.OperationLogin:         {MaxAttempts: c.LoginMaxAttempts, Window: c.LoginWindow},
		ratelimit.OperationPasswordReset: {MaxAttempts: c.PasswordResetMaxAttempts, Window: c.PasswordResetWindow},
		ratelimit.OperationVerification:  {MaxAttempts: c.VerificationMaxAttempts, Window: c.VerificationWindow},
	}
}
