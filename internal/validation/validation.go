// Package validation contains the pure field predicates used by the
// registration and verification flows. Invalid input is a normal return
// value, never an error: each function yields a Result carrying a
// user-facing reason for the first rule the value breaks.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"
)

const (
	// MinPasswordLength is the canonical password minimum. An older client
	// variant surfaced a 6-character message inherited from the hosted auth
	// provider's default; 8 is the documented policy.
	MinPasswordLength = 8
	// MinAge is the minimum whole-year age accepted at registration.
	MinAge = 13

	minUsernameLength = 3
	maxUsernameLength = 20

	minPhoneDigits = 7
	maxPhoneDigits = 15
)

// Result is the outcome of a validation predicate.
type Result struct {
	OK     bool
	Reason string
}

func valid() Result {
	return Result{OK: true}
}

func invalid(reason string) Result {
	return Result{Reason: reason}
}

// Simplified RFC 5322 shape: local@domain.tld with no whitespace.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Email checks the trimmed value against the simplified local@domain.tld shape.
func Email(email string) Result {
	trimmed := strings.TrimSpace(email)
	if trimmed == "" {
		return invalid("please enter your email")
	}
	if !emailPattern.MatchString(trimmed) {
		return invalid("please enter a valid email address")
	}
	return valid()
}

// Password enforces the canonical rule: at least MinPasswordLength characters,
// one uppercase letter, and one digit.
func Password(password string) Result {
	if password == "" {
		return invalid("please enter a password")
	}
	if len([]rune(password)) < MinPasswordLength {
		return invalid(fmt.Sprintf("password must be at least %d characters long", MinPasswordLength))
	}
	var hasUpper, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		return invalid("password must contain at least one uppercase letter")
	}
	if !hasDigit {
		return invalid("password must contain at least one number")
	}
	return valid()
}

// PasswordMatch fails iff the two values differ by exact comparison.
func PasswordMatch(password, confirmation string) Result {
	if password != confirmation {
		return invalid("passwords do not match")
	}
	return valid()
}

// PhoneNumber enforces the strict E.164 rule: a leading plus followed by 7 to
// 15 digits. Non-digit separators after the plus are ignored when counting.
func PhoneNumber(phoneNumber string) Result {
	if strings.TrimSpace(phoneNumber) == "" {
		return invalid("please enter your phone number")
	}
	if !strings.HasPrefix(phoneNumber, "+") {
		return invalid("phone number must start with + and country code (e.g., +49)")
	}
	digits := 0
	for _, r := range phoneNumber[1:] {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits < minPhoneDigits || digits > maxPhoneDigits {
		return invalid(fmt.Sprintf("phone number must be between %d and %d digits", minPhoneDigits, maxPhoneDigits))
	}
	return valid()
}

// DisplayName requires a non-empty trimmed value of at least minLength
// characters; pass 0 for the default minimum of 2.
func DisplayName(displayName string, minLength int) Result {
	if minLength <= 0 {
		minLength = 2
	}
	trimmed := strings.TrimSpace(displayName)
	if trimmed == "" {
		return invalid("please enter your name")
	}
	if len([]rune(trimmed)) < minLength {
		return invalid(fmt.Sprintf("name must be at least %d characters long", minLength))
	}
	return valid()
}

// Username accepts the empty string (the field is optional); otherwise the
// value must be 3-20 characters of letters, digits, underscore, or hyphen.
func Username(username string) Result {
	if username == "" {
		return valid()
	}
	length := len([]rune(username))
	if length < minUsernameLength {
		return invalid(fmt.Sprintf("username must be at least %d characters long", minUsernameLength))
	}
	if length > maxUsernameLength {
		return invalid(fmt.Sprintf("username must be no more than %d characters long", maxUsernameLength))
	}
	if !usernamePattern.MatchString(username) {
		return invalid("username can only contain letters, numbers, underscores, and hyphens")
	}
	return valid()
}

// BirthDate parses a YYYY-MM-DD value, rejects future dates, and requires a
// whole-year age of at least minAge as of now; pass 0 for the default of 13.
func BirthDate(birthDate string, minAge int, now time.Time) Result {
	if minAge <= 0 {
		minAge = MinAge
	}
	if birthDate == "" {
		return invalid("please enter your birth date")
	}
	date, err := time.Parse("2006-01-02", birthDate)
	if err != nil {
		return invalid("please enter a valid date")
	}
	if date.After(now) {
		return invalid("birth date cannot be in the future")
	}

	age := now.Year() - date.Year()
	if now.Month() < date.Month() || (now.Month() == date.Month() && now.Day() < date.Day()) {
		age--
	}
	if age < minAge {
		return invalid(fmt.Sprintf("you must be at least %d years old to register", minAge))
	}
	return valid()
}

// FormatBirthDate masks raw input into YYYY-MM-DD: non-digits are dropped,
// separators inserted after the 4th and 7th character, and the result is
// truncated at 10 characters. It is an input convenience applied before
// BirthDate, not a validation step.
func FormatBirthDate(raw string) string {
	var digits strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			digits.WriteRune(r)
		}
	}

	formatted := digits.String()
	if len(formatted) > 4 {
		formatted = formatted[:4] + "-" + formatted[4:]
	}
	if len(formatted) > 7 {
		formatted = formatted[:7] + "-" + formatted[7:]
	}
	if len(formatted) > 10 {
		formatted = formatted[:10]
	}
	return formatted
}

// VerificationCode requires exactly length numeric digits; pass 0 for the
// default of 6.
func VerificationCode(code string, length int) Result {
	if length <= 0 {
		length = 6
	}
	if len(code) != length {
		return invalid(fmt.Sprintf("please enter the %d-digit code", length))
	}
	for _, r := range code {
		if !unicode.IsDigit(r) {
			return invalid(fmt.Sprintf("please enter the %d-digit code", length))
		}
	}
	return valid()
}
