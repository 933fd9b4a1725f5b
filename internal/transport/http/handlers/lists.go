package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FairHead/checktodo-server/internal/core/domain"
	"github.com/FairHead/checktodo-server/internal/transport/http/middleware"
	"github.com/FairHead/checktodo-server/internal/usecase"
)

// ListHandler exposes list CRUD and membership endpoints. The route group is
// expected to carry the auth middleware already.
type ListHandler struct {
	lists *usecase.ListService
}

// NewListHandler constructs ListHandler.
func NewListHandler(lists *usecase.ListService) *ListHandler {
	return &ListHandler{lists: lists}
}

// RegisterRoutes binds list routes under the provided group.
func (h *ListHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.index)
	r.POST("", h.create)
	r.GET("/:listID", h.get)
	r.PATCH("/:listID", h.update)
	r.DELETE("/:listID", h.delete)
	r.POST("/:listID/leave", h.leave)
	r.DELETE("/:listID/members/:memberID", h.removeMember)
}

var listErrorCases = []ErrorCase{
	{Err: usecase.ErrListNotFound, Status: http.StatusNotFound, Message: "list not found"},
	{Err: usecase.ErrNotListMember, Status: http.StatusForbidden, Message: "not a member of this list"},
	{Err: usecase.ErrNotListOwner, Status: http.StatusForbidden, Message: "only the owner may do this"},
	{Err: usecase.ErrOwnerCannotLeave, Status: http.StatusConflict, Message: "the owner cannot leave the list"},
}

// index returns the caller's list memberships.
func (h *ListHandler) index(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	lists, err := h.lists.ListForUser(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, listErrorCases, http.StatusInternalServerError, "failed to load lists")
		return
	}

	payload := make([]UserListPayload, 0, len(lists))
	for _, l := range lists {
		payload = append(payload, UserListPayload{
			ListID:         l.ListID,
			ListName:       l.ListName,
			Role:           l.Role,
			IsShared:       l.IsShared,
			LastAccessedAt: l.LastAccessedAt,
		})
	}

	c.JSON(http.StatusOK, ListIndexResponse{Lists: payload})
}

// create makes a new list owned by the caller.
func (h *ListHandler) create(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ListCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "list name is required"))
		return
	}

	list, err := h.lists.Create(c.Request.Context(), userID, domain.CreateListInput{
		Name:  req.Name,
		Color: req.Color,
	})
	if err != nil {
		RespondWithMappedError(c, err, listErrorCases, http.StatusInternalServerError, "failed to create list")
		return
	}

	c.JSON(http.StatusCreated, newListPayload(list))
}

// get returns a single list for a member.
func (h *ListHandler) get(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	list, err := h.lists.Get(c.Request.Context(), userID, c.Param("listID"))
	if err != nil {
		RespondWithMappedError(c, err, listErrorCases, http.StatusInternalServerError, "failed to load list")
		return
	}

	c.JSON(http.StatusOK, newListPayload(list))
}

// update renames or recolors a list.
func (h *ListHandler) update(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ListUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid list payload"))
		return
	}

	list, err := h.lists.Update(c.Request.Context(), userID, c.Param("listID"), domain.UpdateListInput{
		Name:  req.Name,
		Color: req.Color,
	})
	if err != nil {
		RespondWithMappedError(c, err, listErrorCases, http.StatusInternalServerError, "failed to update list")
		return
	}

	c.JSON(http.StatusOK, newListPayload(list))
}

// delete removes a list. Owner only.
func (h *ListHandler) delete(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.lists.Delete(c.Request.Context(), userID, c.Param("listID")); err != nil {
		RespondWithMappedError(c, err, listErrorCases, http.StatusInternalServerError, "failed to delete list")
		return
	}

	c.Status(http.StatusNoContent)
}

// leave removes the caller's own membership.
func (h *ListHandler) leave(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.lists.Leave(c.Request.Context(), userID, c.Param("listID")); err != nil {
		RespondWithMappedError(c, err, listErrorCases, http.StatusInternalServerError, "failed to leave list")
		return
	}

	c.Status(http.StatusNoContent)
}

// removeMember evicts a member. Owner only.
func (h *ListHandler) removeMember(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	err := h.lists.RemoveMember(c.Request.Context(), userID, c.Param("listID"), c.Param("memberID"))
	if err != nil {
		RespondWithMappedError(c, err, listErrorCases, http.StatusInternalServerError, "failed to remove member")
		return
	}

	c.Status(http.StatusNoContent)
}
