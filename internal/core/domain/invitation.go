package domain

import "time"

// InvitationStatus enumerates the lifecycle of a list invitation.
type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
	InvitationStatusDeclined InvitationStatus = "declined"
)

// Invitation asks another user to join a list as an editor. The recipient is
// addressed by user id when known, otherwise by phone number.
type Invitation struct {
	ID            string
	ListID        string
	ListName      string
	FromUserID    string
	FromUserName  string
	ToUserID      *string
	ToUserName    *string
	ToPhoneNumber *string
	Status        InvitationStatus
	Message       *string
	CreatedAt     time.Time
	RespondedAt   *time.Time
}

// CreateInvitationInput carries the caller-supplied fields for inviting a member.
type CreateInvitationInput struct {
	ListID        string
	ToUserID      string
	ToPhoneNumber string
	Message       string
}
