package usecase

import "errors"

var (
	// ErrInvalidCredentials indicates the email/password pair does not match an account.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailAlreadyRegistered indicates the email is already bound to an account.
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	// ErrWeakPassword indicates the password failed the server-side strength policy.
	ErrWeakPassword = errors.New("password does not meet complexity requirements")
	// ErrInvalidPhoneFormat indicates the phone number is not valid E.164.
	ErrInvalidPhoneFormat = errors.New("invalid phone number format")
	// ErrUsernameTaken indicates the requested username is already in use.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrVerificationCodeInvalid indicates the provided verification code is wrong or already used.
	ErrVerificationCodeInvalid = errors.New("verification code invalid")
	// ErrVerificationCodeExpired indicates the code exists but is expired.
	ErrVerificationCodeExpired = errors.New("verification code expired")
	// ErrUserDisabled indicates the account has been administratively disabled.
	ErrUserDisabled = errors.New("user account disabled")
	// ErrUserNotFound indicates no account matches the requested identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrNotSignedIn indicates the operation requires an authenticated identity.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrNotListMember indicates the caller does not belong to the list.
	ErrNotListMember = errors.New("not a member of this list")
	// ErrNotListOwner indicates an owner-only operation was attempted by a member.
	ErrNotListOwner = errors.New("only the list owner may do this")
	// ErrOwnerCannotLeave indicates the owner tried to leave instead of deleting the list.
	ErrOwnerCannotLeave = errors.New("the owner cannot leave the list")
	// ErrListNotFound indicates the requested list does not exist.
	ErrListNotFound = errors.New("list not found")
	// ErrItemNotFound indicates the requested item does not exist.
	ErrItemNotFound = errors.New("item not found")
	// ErrInvitationNotFound indicates the invitation does not exist or was already answered.
	ErrInvitationNotFound = errors.New("invitation not found")
	// ErrInvitationNotForUser indicates the caller is not the invitation recipient.
	ErrInvitationNotForUser = errors.New("invitation addressed to another user")
	// ErrAlreadyMember indicates the invitee already belongs to the list.
	ErrAlreadyMember = errors.New("user is already a list member")
	// ErrInvitationPending indicates an open invitation already exists for the pair.
	ErrInvitationPending = errors.New("an invitation is already pending")
	// ErrTermsNotAccepted indicates registration was submitted without accepting the terms.
	ErrTermsNotAccepted = errors.New("terms must be accepted")
)

// ValidationError carries a field-level validation failure with user-facing text.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalidField(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
