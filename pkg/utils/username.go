package utils

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MaxUsernameLength = 50
)

// ValidateUsername checks a display username. Usernames are case-sensitive and
// stored as typed (after trimming).
func ValidateUsername(username string) error {
	username = strings.TrimSpace(username)

	if username == "" {
		return &ValidationError{Field: "username", Message: "Please enter a username."}
	}

	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return &ValidationError{Field: "username", Message: "Username must be at most 50 characters"}
	}

	for _, r := range username {
		if unicode.IsControl(r) {
			return &ValidationError{Field: "username", Message: "Username contains invalid characters"}
		}
	}

	return nil
}

// NormalizeEmail trims and lowercases an email address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailLocalPart returns the part of an address before '@'.
func EmailLocalPart(email string) string {
	if idx := strings.Index(email, "@"); idx >= 0 {
		return email[:idx]
	}
	return email
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
