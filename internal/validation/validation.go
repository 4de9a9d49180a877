package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"tribeboard/internal/models"
)

const (
	FamilyCodeMinLength = 6
	FamilyCodeMaxLength = 8
)

var (
	emailRegex      = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	familyCodeRegex = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NormalizeFamilyCode trims and upper-cases a family code
func NormalizeFamilyCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateFamilyCode checks that a code is 6-8 ASCII letters or digits
func ValidateFamilyCode(code string) error {
	if code == "" {
		return ValidationError{Field: "code", Message: "family code is required"}
	}
	if len(code) < FamilyCodeMinLength || len(code) > FamilyCodeMaxLength {
		return ValidationError{Field: "code", Message: fmt.Sprintf("family code must be %d-%d characters", FamilyCodeMinLength, FamilyCodeMaxLength)}
	}
	if !familyCodeRegex.MatchString(code) {
		return ValidationError{Field: "code", Message: "family code must contain only letters and numbers"}
	}
	return nil
}

// ValidateFamilyName checks if a family name is valid
func ValidateFamilyName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "name", Message: "family name is required"}
	}
	n := utf8.RuneCountInString(name)
	if n < 2 {
		return ValidationError{Field: "name", Message: "family name must be at least 2 characters"}
	}
	if n > 50 {
		return ValidationError{Field: "name", Message: "family name must be at most 50 characters"}
	}
	return nil
}

// ValidateDisplayName checks if a profile display name is valid
func ValidateDisplayName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "display_name", Message: "display name is required"}
	}
	if utf8.RuneCountInString(name) > 50 {
		return ValidationError{Field: "display_name", Message: "display name must be at most 50 characters"}
	}
	return nil
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateRole parses a wire role string
func ValidateRole(role string) (models.Role, error) {
	r := models.Role(strings.ToLower(strings.TrimSpace(role)))
	if !r.IsValid() {
		return "", ValidationError{Field: "role", Message: fmt.Sprintf("unknown role %q", role)}
	}
	return r, nil
}

// ValidateStatus parses a wire membership status string
func ValidateStatus(status string) (models.MembershipStatus, error) {
	s := models.MembershipStatus(strings.ToLower(strings.TrimSpace(status)))
	if !s.IsValid() {
		return "", ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", status)}
	}
	return s, nil
}
