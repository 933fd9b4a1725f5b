package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/FairHead/checktodo-server/internal/core/domain"
	"github.com/FairHead/checktodo-server/internal/transport/http/middleware"
	"github.com/FairHead/checktodo-server/internal/usecase"
)

const defaultMaxPictureBytes = 5 << 20

// ProfileHandler exposes the caller's profile, settings and device endpoints.
type ProfileHandler struct {
	auth            *usecase.AuthService
	profile         *usecase.ProfileService
	maxPictureBytes int64
}

// ProfileHandlerOption configures optional ProfileHandler behaviour.
type ProfileHandlerOption func(*ProfileHandler)

// WithMaxPictureBytes caps the accepted profile picture size.
func WithMaxPictureBytes(limit int64) ProfileHandlerOption {
	return func(h *ProfileHandler) {
		if limit > 0 {
			h.maxPictureBytes = limit
		}
	}
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(auth *usecase.AuthService, profile *usecase.ProfileService, opts ...ProfileHandlerOption) *ProfileHandler {
	handler := &ProfileHandler{
		auth:            auth,
		profile:         profile,
		maxPictureBytes: defaultMaxPictureBytes,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(handler)
		}
	}

	return handler
}

// RegisterRoutes binds profile routes. Username availability is open so the
// registration form can probe it before an account exists.
func (h *ProfileHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/username-availability", h.usernameAvailability)

	requireAuth := middleware.RequireAuth(h.auth)
	r.GET("", requireAuth, h.get)
	r.PATCH("", requireAuth, h.update)
	r.PUT("/settings", requireAuth, h.updateSettings)
	r.POST("/picture", requireAuth, h.uploadPicture)
	r.POST("/fcm-token", requireAuth, h.registerFCMToken)
}

// get returns the caller's full account document.
func (h *ProfileHandler) get(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	user, err := h.profile.Get(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to load profile")
		return
	}

	c.JSON(http.StatusOK, newUserPayload(user))
}

// update applies the non-nil profile fields and returns the updated account.
func (h *ProfileHandler) update(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid profile payload"))
		return
	}

	user, err := h.profile.UpdateProfile(c.Request.Context(), userID, usecase.UpdateProfileInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Bio:       req.Bio,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrUsernameTaken, Status: http.StatusConflict, Message: "username already taken"},
		}, http.StatusInternalServerError, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, newUserPayload(user))
}

// updateSettings replaces the settings document.
func (h *ProfileHandler) updateSettings(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req SettingsUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid settings payload"))
		return
	}

	err := h.profile.UpdateSettings(c.Request.Context(), userID, domain.Settings{
		NotificationsEnabled: req.NotificationsEnabled,
		SoundEnabled:         req.SoundEnabled,
		Language:             req.Language,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to update settings")
		return
	}

	c.Status(http.StatusNoContent)
}

// usernameAvailability reports whether the queried username can be claimed.
func (h *ProfileHandler) usernameAvailability(c *gin.Context) {
	username := strings.TrimSpace(c.Query("username"))
	if username == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "username query parameter is required"))
		return
	}

	available, err := h.profile.UsernameAvailable(c.Request.Context(), username)
	if err != nil {
		RespondWithMappedError(c, err, nil, http.StatusInternalServerError, "failed to check username")
		return
	}

	c.JSON(http.StatusOK, UsernameAvailabilityResponse{
		Username:  username,
		Available: available,
	})
}

// uploadPicture stores a multipart profile picture and returns its URL.
func (h *ProfileHandler) uploadPicture(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	fileHeader, err := c.FormFile("picture")
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "picture file is required"))
		return
	}
	if fileHeader.Size > h.maxPictureBytes {
		c.JSON(http.StatusRequestEntityTooLarge, NewErrorResponse(c, "picture exceeds the size limit"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "failed to read picture"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxPictureBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "failed to read picture"))
		return
	}
	if int64(len(data)) > h.maxPictureBytes {
		c.JSON(http.StatusRequestEntityTooLarge, NewErrorResponse(c, "picture exceeds the size limit"))
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	url, err := h.profile.UploadPicture(c.Request.Context(), userID, contentType, data)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to store picture")
		return
	}

	c.JSON(http.StatusOK, PictureUploadResponse{PhotoURL: url})
}

// registerFCMToken stores a device push token on the account.
func (h *ProfileHandler) registerFCMToken(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req FCMTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "device_id and token are required"))
		return
	}

	if err := h.profile.RegisterFCMToken(c.Request.Context(), userID, req.DeviceID, req.Token); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to register push token")
		return
	}

	c.Status(http.StatusNoContent)
}
