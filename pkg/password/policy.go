package password

import (
	"fmt"
	"strings"
	"unicode"
)

// Policy defines the password complexity requirements
type Policy struct {
	MinLength          int
	MaxLength          int
	RequireUppercase   bool
	RequireLowercase   bool
	RequireDigit       bool
	RequireSpecialChar bool
	MaxRepeatedChars   int
	DisallowCommon     bool
}

// DefaultPolicy returns the policy enforced for account passwords.
func DefaultPolicy() *Policy {
	return &Policy{
		MinLength:          12,
		MaxLength:          128,
		RequireUppercase:   true,
		RequireLowercase:   true,
		RequireDigit:       true,
		RequireSpecialChar: true,
		MaxRepeatedChars:   3,
		DisallowCommon:     true,
	}
}

// ValidationResult reports every policy rule a candidate password violates.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors,omitempty"`
}

// commonPasswords are fragments that must not appear anywhere in a password,
// compared case-insensitively.
var commonPasswords = []string{
	"123456",
	"password",
	"qwerty",
	"admin",
	"letmein",
	"welcome",
}

// Validate checks password against the policy and collects all violations
// rather than stopping at the first one.
func (p *Policy) Validate(password string) ValidationResult {
	var errs []string

	if len(password) < p.MinLength {
		errs = append(errs, fmt.Sprintf("password must be at least %d characters long", p.MinLength))
	}
	if p.MaxLength > 0 && len(password) > p.MaxLength {
		errs = append(errs, fmt.Sprintf("password must be at most %d characters long", p.MaxLength))
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		case unicode.IsPunct(c) || unicode.IsSymbol(c):
			hasSpecial = true
		}
	}

	if p.RequireUppercase && !hasUpper {
		errs = append(errs, "password must contain at least one uppercase letter")
	}
	if p.RequireLowercase && !hasLower {
		errs = append(errs, "password must contain at least one lowercase letter")
	}
	if p.RequireDigit && !hasDigit {
		errs = append(errs, "password must contain at least one number")
	}
	if p.RequireSpecialChar && !hasSpecial {
		errs = append(errs, "password must contain at least one special character")
	}

	if p.MaxRepeatedChars > 0 && hasRepeatedRun(password, p.MaxRepeatedChars+1) {
		errs = append(errs, fmt.Sprintf("password must not contain more than %d repeated characters in a row", p.MaxRepeatedChars))
	}

	if p.DisallowCommon {
		lowered := strings.ToLower(password)
		for _, common := range commonPasswords {
			if strings.Contains(lowered, common) {
				errs = append(errs, "password contains a common word or sequence that is too easy to guess")
				break
			}
		}
	}

	return ValidationResult{
		IsValid: len(errs) == 0,
		Errors:  errs,
	}
}

// hasRepeatedRun reports whether password contains runLen identical
// consecutive characters.
func hasRepeatedRun(password string, runLen int) bool {
	if runLen <= 1 {
		return len(password) > 0
	}
	run := 1
	var prev rune
	for i, c := range password {
		if i > 0 && c == prev {
			run++
			if run >= runLen {
				return true
			}
		} else {
			run = 1
		}
		prev = c
	}
	return false
}
