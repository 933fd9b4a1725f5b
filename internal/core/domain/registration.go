package domain

import (
	"strings"
	"time"
)

// RegistrationData aggregates the values collected across the two registration
// steps. It is carried forward by value and never mutated after being handed
// to account creation.
type RegistrationData struct {
	FirstName     string
	LastName      string
	Email         string
	Password      string
	BirthDate     string // YYYY-MM-DD
	PhoneNumber   string // E.164
	Username      string // optional
	Bio           string // optional
	AcceptedTerms bool
}

// DisplayName derives the profile display name from the collected name fields.
func (d RegistrationData) DisplayName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// VerificationChannel identifies how a verification code was delivered.
type VerificationChannel string

const (
	VerificationChannelSMS   VerificationChannel = "sms"
	VerificationChannelEmail VerificationChannel = "email"
)

// VerificationSession pairs a dispatched verification code with its resend
// state. The handle is opaque to callers and valid for exactly one
// confirmation attempt: submitting a code spends it regardless of outcome.
type VerificationSession struct {
	Handle        string
	UserID        string
	Channel       VerificationChannel
	Destination   string // phone number or email the code was sent to
	CodeHash      string
	Attempted     bool
	CreatedAt     time.Time
	ExpiresAt     time.Time
	ResendReadyAt time.Time
}

// ResendCooldown returns the whole seconds remaining before a new code may be
// dispatched for the session's destination. Zero means resend is available.
func (s VerificationSession) ResendCooldown(now time.Time) int {
	if !now.Before(s.ResendReadyAt) {
		return 0
	}
	return int(s.ResendReadyAt.Sub(now).Round(time.Second) / time.Second)
}
