// Package validation holds the staff id format and password policy checks.
// The desk client runs them before any network call and the auth server
// runs them again on every request.
package validation

import (
	"regexp"
	"strings"

	"github.com/staffdesk/staffdesk/internal/apperr"
)

// MinPasswordLength is the enforced minimum password length.
const MinPasswordLength = 6

var (
	staffIDPattern = regexp.MustCompile(`^[A-Z]{3}\d{4}$`)
	// strongPasswordChars lists every character the strong policy accepts.
	strongPasswordChars = regexp.MustCompile(`^[A-Za-z\d@$!%*?&]{8,}$`)
)

// StaffID normalizes and checks a staff id. Surrounding blanks are trimmed;
// the result must be three uppercase letters followed by four digits.
func StaffID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return "", apperr.Validation("Staff ID is required")
	}
	if !staffIDPattern.MatchString(id) {
		return "", apperr.Validation("Enter a valid staff Id")
	}
	return id, nil
}

// PasswordPolicy checks passwords before they are submitted.
type PasswordPolicy struct {
	// Strict additionally requires lower and upper case letters, a digit,
	// one of @$!%*?& and at least eight characters.
	Strict bool
}

// Check returns a validation error when password violates the policy.
func (p PasswordPolicy) Check(password string) error {
	if password == "" {
		return apperr.Validation("Password is required")
	}
	if len([]rune(password)) < MinPasswordLength {
		return apperr.Validation("password must be at least 6 characters")
	}
	if p.Strict && !IsStrongPassword(password) {
		return apperr.Validation("Password must include a special character and a number")
	}
	return nil
}

// IsStrongPassword reports whether password satisfies the strong policy.
func IsStrongPassword(password string) bool {
	if !strongPasswordChars.MatchString(password) {
		return false
	}
	var lower, upper, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}
	return lower && upper && digit && special
}

// Required fails with message when value is blank.
func Required(value, message string) error {
	if strings.TrimSpace(value) == "" {
		return apperr.Validation(message)
	}
	return nil
}
