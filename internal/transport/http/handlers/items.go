package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FairHead/checktodo-server/internal/core/domain"
	"github.com/FairHead/checktodo-server/internal/transport/http/middleware"
	"github.com/FairHead/checktodo-server/internal/usecase"
)

// ItemHandler exposes the item endpoints nested under a list. The route
// group is expected to carry the auth middleware already.
type ItemHandler struct {
	items *usecase.ItemService
}

// NewItemHandler constructs ItemHandler.
func NewItemHandler(items *usecase.ItemService) *ItemHandler {
	return &ItemHandler{items: items}
}

// RegisterRoutes binds item routes under /:listID/items.
func (h *ItemHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/:listID/items", h.list)
	r.POST("/:listID/items", h.add)
	r.PATCH("/:listID/items/:itemID", h.update)
	r.DELETE("/:listID/items/:itemID", h.delete)
}

var itemErrorCases = []ErrorCase{
	{Err: usecase.ErrListNotFound, Status: http.StatusNotFound, Message: "list not found"},
	{Err: usecase.ErrItemNotFound, Status: http.StatusNotFound, Message: "item not found"},
	{Err: usecase.ErrNotListMember, Status: http.StatusForbidden, Message: "not a member of this list"},
}

// list returns the items of a list for a member.
func (h *ItemHandler) list(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	items, err := h.items.List(c.Request.Context(), userID, c.Param("listID"))
	if err != nil {
		RespondWithMappedError(c, err, itemErrorCases, http.StatusInternalServerError, "failed to load items")
		return
	}

	payload := make([]ItemPayload, 0, len(items))
	for _, item := range items {
		payload = append(payload, newItemPayload(item))
	}

	c.JSON(http.StatusOK, ItemListResponse{Items: payload})
}

// add appends a new item to the list.
func (h *ItemHandler) add(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ItemCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "item text is required"))
		return
	}

	item, err := h.items.Add(c.Request.Context(), userID, c.Param("listID"), domain.CreateItemInput{
		Text: req.Text,
	})
	if err != nil {
		RespondWithMappedError(c, err, itemErrorCases, http.StatusInternalServerError, "failed to add item")
		return
	}

	c.JSON(http.StatusCreated, newItemPayload(*item))
}

// update edits item text and/or toggles completion.
func (h *ItemHandler) update(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ItemUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid item payload"))
		return
	}

	item, err := h.items.Update(c.Request.Context(), userID, c.Param("listID"), c.Param("itemID"), domain.UpdateItemInput{
		Text:      req.Text,
		Completed: req.Completed,
	})
	if err != nil {
		RespondWithMappedError(c, err, itemErrorCases, http.StatusInternalServerError, "failed to update item")
		return
	}

	c.JSON(http.StatusOK, newItemPayload(*item))
}

// delete removes an item from the list.
func (h *ItemHandler) delete(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	err := h.items.Delete(c.Request.Context(), userID, c.Param("listID"), c.Param("itemID"))
	if err != nil {
		RespondWithMappedError(c, err, itemErrorCases, http.StatusInternalServerError, "failed to delete item")
		return
	}

	c.Status(http.StatusNoContent)
}
