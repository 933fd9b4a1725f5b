package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FairHead/checktodo-server/internal/core/domain"
	"github.com/FairHead/checktodo-server/internal/transport/http/middleware"
	"github.com/FairHead/checktodo-server/internal/usecase"
)

// InvitationHandler exposes invitation endpoints. The route group is expected
// to carry the auth middleware already.
type InvitationHandler struct {
	invitations *usecase.InvitationService
}

// NewInvitationHandler constructs InvitationHandler.
func NewInvitationHandler(invitations *usecase.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitations: invitations}
}

// RegisterRoutes binds invitation routes under the provided group.
func (h *InvitationHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.pending)
	r.POST("", h.create)
	r.POST("/:invitationID/accept", h.accept)
	r.POST("/:invitationID/decline", h.decline)
}

var invitationErrorCases = []ErrorCase{
	{Err: usecase.ErrListNotFound, Status: http.StatusNotFound, Message: "list not found"},
	{Err: usecase.ErrNotListOwner, Status: http.StatusForbidden, Message: "only the owner may invite members"},
	{Err: usecase.ErrInvalidPhoneFormat, Status: http.StatusBadRequest, Message: "phone number must be in international format"},
	{Err: usecase.ErrAlreadyMember, Status: http.StatusConflict, Message: "user is already a member"},
	{Err: usecase.ErrInvitationPending, Status: http.StatusConflict, Message: "an invitation is already pending"},
	{Err: usecase.ErrInvitationNotFound, Status: http.StatusNotFound, Message: "invitation not found"},
	{Err: usecase.ErrInvitationNotForUser, Status: http.StatusForbidden, Message: "invitation addressed to another user"},
	{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
}

// pending returns the invitations awaiting the caller's response.
func (h *InvitationHandler) pending(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	invitations, err := h.invitations.ListPending(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, invitationErrorCases, http.StatusInternalServerError, "failed to load invitations")
		return
	}

	payload := make([]InvitationPayload, 0, len(invitations))
	for _, inv := range invitations {
		payload = append(payload, newInvitationPayload(inv))
	}

	c.JSON(http.StatusOK, InvitationListResponse{Invitations: payload})
}

// create invites a user to one of the caller's lists, addressed by user id or
// phone number.
func (h *InvitationHandler) create(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req InvitationCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "list_id is required"))
		return
	}

	invitation, err := h.invitations.Create(c.Request.Context(), userID, domain.CreateInvitationInput{
		ListID:        req.ListID,
		ToUserID:      req.ToUserID,
		ToPhoneNumber: req.ToPhoneNumber,
		Message:       req.Message,
	})
	if err != nil {
		RespondWithMappedError(c, err, invitationErrorCases, http.StatusInternalServerError, "failed to create invitation")
		return
	}

	c.JSON(http.StatusCreated, newInvitationPayload(*invitation))
}

// accept joins the caller to the list as an editor and returns the list.
func (h *InvitationHandler) accept(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	list, err := h.invitations.Accept(c.Request.Context(), userID, c.Param("invitationID"))
	if err != nil {
		RespondWithMappedError(c, err, invitationErrorCases, http.StatusInternalServerError, "failed to accept invitation")
		return
	}

	c.JSON(http.StatusOK, newListPayload(list))
}

// decline marks the invitation as declined without joining.
func (h *InvitationHandler) decline(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.invitations.Decline(c.Request.Context(), userID, c.Param("invitationID")); err != nil {
		RespondWithMappedError(c, err, invitationErrorCases, http.StatusInternalServerError, "failed to decline invitation")
		return
	}

	c.Status(http.StatusNoContent)
}
