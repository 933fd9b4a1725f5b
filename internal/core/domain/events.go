package domain

import "time"

// UserRegisteredEvent represents the payload for checktodo.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	Email        string
	DisplayName  string
	Phone        *string
	Status       string
	RegisteredAt time.Time
	Metadata     map[string]any
}

// UserVerifiedEvent represents the payload for checktodo.user.verified messages,
// emitted when either verification channel completes.
type UserVerifiedEvent struct {
	EventID    string
	UserID     string
	Channel    string // "email" or "sms"
	VerifiedAt time.Time
	Metadata   map[string]any
}

// PasswordResetRequestedEvent represents the payload for checktodo.user.password.reset_requested messages.
type PasswordResetRequestedEvent struct {
	EventID           string
	UserID            string
	RequestedAt       time.Time
	MaskedDestination string
	ExpiresAt         time.Time
	Metadata          map[string]any
}

// ListChangedEvent represents the payload for checktodo.list.changed messages.
// Change is one of "created", "renamed", "deleted", "member_added",
// "member_removed", "member_left".
type ListChangedEvent struct {
	EventID   string
	ListID    string
	ActorID   string
	Change    string
	MemberID  *string
	ChangedAt time.Time
	Metadata  map[string]any
}

// ItemChangedEvent represents the payload for checktodo.item.changed messages.
// Change is one of "added", "updated", "completed", "reopened", "deleted".
type ItemChangedEvent struct {
	EventID   string
	ListID    string
	ItemID    string
	ActorID   string
	Change    string
	ChangedAt time.Time
	Metadata  map[string]any
}

// InvitationEvent represents the payload for checktodo.invitation messages.
// Change is one of "created", "accepted", "declined".
type InvitationEvent struct {
	EventID      string
	InvitationID string
	ListID       string
	FromUserID   string
	ToUserID     *string
	Change       string
	ChangedAt    time.Time
	Metadata     map[string]any
}
