package core

import (
	"fmt"
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// NormalizeEmail trims surrounding whitespace and lower-cases the address so
// that addresses differing only in case identify the same user.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks a normalized address.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEmail, ErrEmptyEmail)
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return nil
}
