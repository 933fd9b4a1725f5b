package domain

import "time"

// TokenPurpose scopes a one-time token to the flow that issued it.
type TokenPurpose string

const (
	TokenPurposeEmailVerification TokenPurpose = "email_verification"
	TokenPurposePasswordReset     TokenPurpose = "password_reset"
)

// OneTimeToken is a single-use emailed token, stored as a hash.
type OneTimeToken struct {
	ID        string
	UserID    string
	TokenHash string
	Purpose   TokenPurpose
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
	Metadata  map[string]any
}
