package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FairHead/checktodo-server/internal/core/domain"
	"github.com/FairHead/checktodo-server/internal/usecase"
)

// RegistrationHandler exposes the two-step sign-up flow.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
}

// NewRegistrationHandler constructs RegistrationHandler.
func NewRegistrationHandler(registration *usecase.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration}
}

// RegisterRoutes binds registration routes, applying optional middleware
// ahead of the account-creating step.
func (h *RegistrationHandler) RegisterRoutes(r *gin.RouterGroup, registerMiddlewares ...gin.HandlerFunc) {
	r.POST("/step1", h.beginRegistration)

	if len(registerMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, registerMiddlewares...)
		chain = append(chain, h.completeRegistration)
		r.POST("/complete", chain...)
	} else {
		r.POST("/complete", h.completeRegistration)
	}
}

// beginRegistration validates the profile-entry fields. No account is created
// yet; the validated data is echoed back for the second step.
func (h *RegistrationHandler) beginRegistration(c *gin.Context) {
	var req RegistrationStep1Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	data, err := h.registration.BeginRegistration(c.Request.Context(), usecase.Step1Input{
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrWeakPassword, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
		}, http.StatusInternalServerError, "failed to validate registration data")
		return
	}

	c.JSON(http.StatusOK, RegistrationDataPayload{
		FirstName: data.FirstName,
		LastName:  data.LastName,
		Email:     data.Email,
		Password:  data.Password,
	})
}

// completeRegistration creates the account and dispatches the email
// verification token.
func (h *RegistrationHandler) completeRegistration(c *gin.Context) {
	var req RegistrationStep2Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	user, err := h.registration.CompleteRegistration(c.Request.Context(), usecase.Step2Input{
		Data: domain.RegistrationData{
			FirstName: req.Data.FirstName,
			LastName:  req.Data.LastName,
			Email:     req.Data.Email,
			Password:  req.Data.Password,
		},
		BirthDate:     req.BirthDate,
		PhoneNumber:   req.PhoneNumber,
		Username:      req.Username,
		Bio:           req.Bio,
		AcceptedTerms: req.AcceptedTerms,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrTermsNotAccepted, Status: http.StatusBadRequest, Message: "terms must be accepted"},
			{Err: usecase.ErrWeakPassword, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
			{Err: usecase.ErrInvalidPhoneFormat, Status: http.StatusBadRequest, Message: "phone number must be in international format"},
			{Err: usecase.ErrEmailAlreadyRegistered, Status: http.StatusConflict, Message: "email already registered"},
			{Err: usecase.ErrUsernameTaken, Status: http.StatusConflict, Message: "username already taken"},
		}, http.StatusInternalServerError, "failed to create account")
		return
	}

	c.JSON(http.StatusCreated, RegistrationResponse{
		User:    newUserPayload(user),
		Message: "verification email sent",
	})
}
