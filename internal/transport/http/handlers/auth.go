package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/FairHead/checktodo-server/internal/transport/http/middleware"
	"github.com/FairHead/checktodo-server/internal/usecase"
)

// AuthHandler exposes sign-in, sign-out and password reset endpoints.
type AuthHandler struct {
	auth *usecase.AuthService
}

// NewAuthHandler constructs AuthHandler.
func NewAuthHandler(auth *usecase.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// RegisterRoutes binds authentication routes, applying optional middleware
// ahead of the sign-in handler.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup, signInMiddlewares ...gin.HandlerFunc) {
	if len(signInMiddlewares) > 0 {
		chain := append([]gin.HandlerFunc{}, signInMiddlewares...)
		chain = append(chain, h.signIn)
		r.POST("/signin", chain...)
	} else {
		r.POST("/signin", h.signIn)
	}

	r.POST("/signout", middleware.RequireAuth(h.auth), h.signOut)
	r.GET("/me", middleware.RequireAuth(h.auth), h.me)
	r.POST("/password-reset", h.requestPasswordReset)
	r.POST("/password-reset/confirm", h.confirmPasswordReset)
}

// signIn validates credentials and issues a session token.
func (h *AuthHandler) signIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid sign-in payload"))
		return
	}

	result, err := h.auth.SignIn(c.Request.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid email or password"},
			{Err: usecase.ErrUserDisabled, Status: http.StatusForbidden, Message: "account disabled"},
		}, http.StatusInternalServerError, "sign-in failed")
		return
	}

	c.JSON(http.StatusOK, SignInResponse{
		AccessToken: result.Token,
		TokenType:   "Bearer",
		ExpiresAt:   result.ExpiresAt,
		User:        newUserPayload(result.User),
	})
}

// signOut drops the caller's published session identity. The token itself is
// stateless and simply expires.
func (h *AuthHandler) signOut(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	h.auth.SignOut(c.Request.Context(), userID)
	c.Status(http.StatusNoContent)
}

// me returns the authenticated user's account.
func (h *AuthHandler) me(c *gin.Context) {
	user, ok := middleware.GetAuthenticatedUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	c.JSON(http.StatusOK, newUserPayload(user))
}

// requestPasswordReset starts a reset flow. The response is identical whether
// or not the email belongs to an account.
func (h *AuthHandler) requestPasswordReset(c *gin.Context) {
	var req PasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "email is required"))
		return
	}

	if err := h.auth.RequestPasswordReset(c.Request.Context(), strings.TrimSpace(req.Email)); err != nil {
		var verr *usecase.ValidationError
		if errors.As(err, &verr) {
			resp := NewErrorResponse(c, verr.Message)
			resp.Field = verr.Field
			c.JSON(http.StatusBadRequest, resp)
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to process reset request"))
		return
	}

	c.JSON(http.StatusAccepted, MessageResponse{Message: "if the email is registered, a reset link has been sent"})
}

// confirmPasswordReset redeems a reset token and stores the new password.
func (h *AuthHandler) confirmPasswordReset(c *gin.Context) {
	var req PasswordResetConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "token and new_password are required"))
		return
	}

	err := h.auth.ConfirmPasswordReset(c.Request.Context(), strings.TrimSpace(req.Token), req.NewPassword)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrVerificationCodeInvalid, Status: http.StatusBadRequest, Message: "reset token is invalid"},
			{Err: usecase.ErrVerificationCodeExpired, Status: http.StatusBadRequest, Message: "reset token has expired"},
			{Err: usecase.ErrWeakPassword, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
		}, http.StatusInternalServerError, "failed to reset password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}
