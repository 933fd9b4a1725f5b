package handlers

import (
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/FairHead/checktodo-server/internal/core/domain"
	"github.com/FairHead/checktodo-server/internal/usecase"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// ProfilePayload is the profile document embedded in user responses.
type ProfilePayload struct {
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	DisplayName string  `json:"display_name"`
	Username    *string `json:"username,omitempty"`
	PhotoURL    *string `json:"photo_url,omitempty"`
	BirthDate   string  `json:"birth_date,omitempty"`
	Bio         *string `json:"bio,omitempty"`
}

// SettingsPayload mirrors the per-user preferences document.
type SettingsPayload struct {
	NotificationsEnabled bool   `json:"notifications_enabled"`
	SoundEnabled         bool   `json:"sound_enabled"`
	Language             string `json:"language"`
}

// UserPayload describes the caller's own account in API responses.
type UserPayload struct {
	ID            string            `json:"id"`
	Email         string            `json:"email"`
	EmailVerified bool              `json:"email_verified"`
	PhoneNumber   *string           `json:"phone_number,omitempty"`
	PhoneVerified bool              `json:"phone_verified"`
	Status        domain.UserStatus `json:"status"`
	Profile       ProfilePayload    `json:"profile"`
	Settings      SettingsPayload   `json:"settings"`
	CreatedAt     time.Time         `json:"created_at"`
	LastLoginAt   *time.Time        `json:"last_login_at,omitempty"`
}

// SignInRequest defines the payload for the sign-in endpoint.
type SignInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// SignInResponse describes the response returned for a successful sign-in.
type SignInResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresAt   time.Time   `json:"expires_at"`
	User        UserPayload `json:"user"`
}

// RegistrationStep1Request carries the profile-entry fields of registration.
type RegistrationStep1Request struct {
	FirstName            string `json:"first_name" binding:"required"`
	LastName             string `json:"last_name" binding:"required"`
	Email                string `json:"email" binding:"required"`
	Password             string `json:"password" binding:"required"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required"`
}

// RegistrationDataPayload echoes the validated step-one data back to the
// client so it can be resubmitted unchanged with step two.
type RegistrationDataPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

// RegistrationStep2Request carries the credentials-entry fields plus the data
// returned by step one.
type RegistrationStep2Request struct {
	Data          RegistrationDataPayload `json:"data" binding:"required"`
	BirthDate     string                  `json:"birth_date" binding:"required"`
	PhoneNumber   string                  `json:"phone_number" binding:"required"`
	Username      string                  `json:"username"`
	Bio           string                  `json:"bio"`
	AcceptedTerms bool                    `json:"accepted_terms"`
}

// RegistrationResponse is returned after the account is created.
type RegistrationResponse struct {
	User    UserPayload `json:"user"`
	Message string      `json:"message"`
}

// CodeDispatchPayload reports the outcome of a verification dispatch.
type CodeDispatchPayload struct {
	Handle        string     `json:"handle,omitempty"`
	Destination   string     `json:"destination,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	ResendIn      int        `json:"resend_in"`
	AlreadyActive bool       `json:"already_active"`
}

// EmailTokenConfirmRequest redeems an emailed verification token.
type EmailTokenConfirmRequest struct {
	Token string `json:"token" binding:"required"`
}

// EmailConfirmResponse is returned when the email step completes; the phone
// code dispatch is included so the client can move straight to code entry.
type EmailConfirmResponse struct {
	User     UserPayload         `json:"user"`
	Dispatch CodeDispatchPayload `json:"dispatch"`
}

// PhoneCodeConfirmRequest redeems a phone confirmation handle.
type PhoneCodeConfirmRequest struct {
	Handle string `json:"handle" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

// EmailVerifiedResponse reports the stored email verification flag.
type EmailVerifiedResponse struct {
	EmailVerified bool `json:"email_verified"`
}

// PasswordResetRequest represents a password reset initiation payload.
type PasswordResetRequest struct {
	Email string `json:"email" binding:"required"`
}

// PasswordResetConfirmRequest captures a password reset confirmation payload.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ProfileUpdateRequest applies the non-nil profile fields.
type ProfileUpdateRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Username  *string `json:"username"`
	Bio       *string `json:"bio"`
}

// SettingsUpdateRequest replaces the settings document.
type SettingsUpdateRequest struct {
	NotificationsEnabled bool   `json:"notifications_enabled"`
	SoundEnabled         bool   `json:"sound_enabled"`
	Language             string `json:"language"`
}

// UsernameAvailabilityResponse reports whether a username can be claimed.
type UsernameAvailabilityResponse struct {
	Username  string `json:"username"`
	Available bool   `json:"available"`
}

// PictureUploadResponse returns the public URL of a stored profile picture.
type PictureUploadResponse struct {
	PhotoURL string `json:"photo_url"`
}

// FCMTokenRequest registers a device push token.
type FCMTokenRequest struct {
	DeviceID string `json:"device_id" binding:"required"`
	Token    string `json:"token" binding:"required"`
}

// MemberPayload describes a list member.
type MemberPayload struct {
	UserID      string            `json:"user_id"`
	Role        domain.MemberRole `json:"role"`
	DisplayName string            `json:"display_name"`
	JoinedAt    time.Time         `json:"joined_at"`
}

// ListPayload describes a full list document.
type ListPayload struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	OwnerID        string          `json:"owner_id"`
	OwnerName      string          `json:"owner_name"`
	Color          *string         `json:"color,omitempty"`
	Members        []MemberPayload `json:"members"`
	ItemCount      int             `json:"item_count"`
	CompletedCount int             `json:"completed_count"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// UserListPayload is the compact per-user list index entry.
type UserListPayload struct {
	ListID         string            `json:"list_id"`
	ListName       string            `json:"list_name"`
	Role           domain.MemberRole `json:"role"`
	IsShared       bool              `json:"is_shared"`
	LastAccessedAt time.Time         `json:"last_accessed_at"`
}

// ListCreateRequest defines the payload for creating a list.
type ListCreateRequest struct {
	Name  string  `json:"name" binding:"required"`
	Color *string `json:"color"`
}

// ListUpdateRequest renames or recolors a list; nil leaves a field unchanged.
type ListUpdateRequest struct {
	Name  *string `json:"name"`
	Color *string `json:"color"`
}

// ListIndexResponse wraps the caller's list index.
type ListIndexResponse struct {
	Lists []UserListPayload `json:"lists"`
}

// ItemPayload describes a list item.
type ItemPayload struct {
	ID              string     `json:"id"`
	ListID          string     `json:"list_id"`
	Text            string     `json:"text"`
	Completed       bool       `json:"completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CompletedBy     *string    `json:"completed_by,omitempty"`
	CompletedByName *string    `json:"completed_by_name,omitempty"`
	AddedBy         string     `json:"added_by"`
	AddedByName     string     `json:"added_by_name"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ItemCreateRequest defines the payload for adding an item.
type ItemCreateRequest struct {
	Text string `json:"text" binding:"required"`
}

// ItemUpdateRequest edits text and/or toggles completion.
type ItemUpdateRequest struct {
	Text      *string `json:"text"`
	Completed *bool   `json:"completed"`
}

// ItemListResponse wraps the items of a list.
type ItemListResponse struct {
	Items []ItemPayload `json:"items"`
}

// InvitationPayload describes a list invitation.
type InvitationPayload struct {
	ID            string                  `json:"id"`
	ListID        string                  `json:"list_id"`
	ListName      string                  `json:"list_name"`
	FromUserID    string                  `json:"from_user_id"`
	FromUserName  string                  `json:"from_user_name"`
	ToUserID      *string                 `json:"to_user_id,omitempty"`
	ToUserName    *string                 `json:"to_user_name,omitempty"`
	ToPhoneNumber *string                 `json:"to_phone_number,omitempty"`
	Message       *string                 `json:"message,omitempty"`
	Status        domain.InvitationStatus `json:"status"`
	CreatedAt     time.Time               `json:"created_at"`
	RespondedAt   *time.Time              `json:"responded_at,omitempty"`
}

// InvitationCreateRequest invites a user by ID or phone number.
type InvitationCreateRequest struct {
	ListID        string `json:"list_id" binding:"required"`
	ToUserID      string `json:"to_user_id"`
	ToPhoneNumber string `json:"to_phone_number"`
	Message       string `json:"message"`
}

// InvitationListResponse wraps the caller's pending invitations.
type InvitationListResponse struct {
	Invitations []InvitationPayload `json:"invitations"`
}

// HealthResponse describes the service health payload.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadyResponse describes readiness probe results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// newUserPayload converts a domain user to the API view. The password hash
// never leaves the handler layer.
func newUserPayload(user *domain.User) UserPayload {
	payload := UserPayload{
		ID:            user.ID,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		PhoneVerified: user.PhoneVerified,
		Status:        user.Status,
		Profile: ProfilePayload{
			FirstName:   user.Profile.FirstName,
			LastName:    user.Profile.LastName,
			DisplayName: user.Profile.DisplayName,
			Username:    user.Profile.Username,
			PhotoURL:    user.Profile.PhotoURL,
			BirthDate:   user.Profile.BirthDate,
			Bio:         user.Profile.Bio,
		},
		Settings: SettingsPayload{
			NotificationsEnabled: user.Settings.NotificationsEnabled,
			SoundEnabled:         user.Settings.SoundEnabled,
			Language:             user.Settings.Language,
		},
		CreatedAt:   user.CreatedAt,
		LastLoginAt: user.LastLoginAt,
	}

	if user.PhoneNumber != nil && *user.PhoneNumber != "" {
		payload.PhoneNumber = user.PhoneNumber
	}

	return payload
}

func newCodeDispatchPayload(dispatch usecase.CodeDispatch) CodeDispatchPayload {
	payload := CodeDispatchPayload{
		Handle:        dispatch.Handle,
		Destination:   dispatch.Destination,
		ResendIn:      dispatch.ResendIn,
		AlreadyActive: dispatch.AlreadyActive,
	}
	if !dispatch.ExpiresAt.IsZero() {
		expires := dispatch.ExpiresAt
		payload.ExpiresAt = &expires
	}
	return payload
}

func newListPayload(list *domain.List) ListPayload {
	members := make([]MemberPayload, 0, len(list.Members))
	for _, m := range list.Members {
		members = append(members, MemberPayload{
			UserID:      m.UserID,
			Role:        m.Role,
			DisplayName: m.DisplayName,
			JoinedAt:    m.JoinedAt,
		})
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].UserID < members[j].UserID
		}
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})

	return ListPayload{
		ID:             list.ID,
		Name:           list.Name,
		OwnerID:        list.OwnerID,
		OwnerName:      list.OwnerName,
		Color:          list.Color,
		Members:        members,
		ItemCount:      list.ItemCount,
		CompletedCount: list.CompletedCount,
		CreatedAt:      list.CreatedAt,
		UpdatedAt:      list.UpdatedAt,
	}
}

func newItemPayload(item domain.Item) ItemPayload {
	return ItemPayload{
		ID:              item.ID,
		ListID:          item.ListID,
		Text:            item.Text,
		Completed:       item.Completed,
		CompletedAt:     item.CompletedAt,
		CompletedBy:     item.CompletedBy,
		CompletedByName: item.CompletedByName,
		AddedBy:         item.AddedBy,
		AddedByName:     item.AddedByName,
		CreatedAt:       item.CreatedAt,
		UpdatedAt:       item.UpdatedAt,
	}
}

func newInvitationPayload(inv domain.Invitation) InvitationPayload {
	return InvitationPayload{
		ID:            inv.ID,
		ListID:        inv.ListID,
		ListName:      inv.ListName,
		FromUserID:    inv.FromUserID,
		FromUserName:  inv.FromUserName,
		ToUserID:      inv.ToUserID,
		ToUserName:    inv.ToUserName,
		ToPhoneNumber: inv.ToPhoneNumber,
		Message:       inv.Message,
		Status:        inv.Status,
		CreatedAt:     inv.CreatedAt,
		RespondedAt:   inv.RespondedAt,
	}
}
