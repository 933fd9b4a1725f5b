package domain

import "time"

// UserStatus enumerates account states along the onboarding flow.
type UserStatus string

const (
	// UserStatusPendingEmail marks an account created but awaiting email verification.
	UserStatusPendingEmail UserStatus = "pending_email"
	// UserStatusPendingPhone marks an account with a verified email awaiting phone confirmation.
	UserStatusPendingPhone UserStatus = "pending_phone"
	// UserStatusActive marks a fully verified account.
	UserStatusActive UserStatus = "active"
	// UserStatusDisabled marks an account that can no longer sign in.
	UserStatusDisabled UserStatus = "disabled"
)

// User mirrors the persisted user document in the users table.
type User struct {
	ID            string
	Email         string
	EmailVerified bool
	PhoneNumber   *string
	PhoneVerified bool
	PasswordHash  string
	PasswordAlgo  string
	Status        UserStatus
	Profile       Profile
	Settings      Settings
	FCMTokens     map[string]FCMToken
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastLoginAt   *time.Time
}

// Profile carries the user-editable profile fields stored alongside the identity.
type Profile struct {
	FirstName   string
	LastName    string
	DisplayName string
	Username    *string
	PhotoURL    *string
	BirthDate   string // YYYY-MM-DD
	Bio         *string
}

// Settings holds per-user application preferences.
type Settings struct {
	NotificationsEnabled bool
	SoundEnabled         bool
	Language             string
}

// FCMToken records a push token registered by a device.
type FCMToken struct {
	Token     string
	Device    string
	UpdatedAt time.Time
}

// DefaultSettings returns the settings applied to newly created accounts.
func DefaultSettings() Settings {
	return Settings{
		NotificationsEnabled: true,
		SoundEnabled:         true,
		Language:             "de",
	}
}

// PublicProfile is the reduced view of a user exposed to other members.
type PublicProfile struct {
	ID          string
	DisplayName string
	PhotoURL    *string
}
