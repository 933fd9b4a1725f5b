package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FairHead/checktodo-server/internal/transport/http/middleware"
	"github.com/FairHead/checktodo-server/internal/usecase"
)

// VerificationHandler exposes the email and phone verification steps.
type VerificationHandler struct {
	auth         *usecase.AuthService
	verification *usecase.VerificationService
}

// NewVerificationHandler constructs VerificationHandler.
func NewVerificationHandler(auth *usecase.AuthService, verification *usecase.VerificationService) *VerificationHandler {
	return &VerificationHandler{auth: auth, verification: verification}
}

// RegisterRoutes binds verification routes. Dispatch endpoints require a
// session and accept optional rate-limit middleware; confirmation endpoints
// are reachable without one because the token or handle is the credential.
func (h *VerificationHandler) RegisterRoutes(r *gin.RouterGroup, dispatchMiddlewares ...gin.HandlerFunc) {
	requireAuth := middleware.RequireAuth(h.auth)

	r.GET("/email", requireAuth, h.emailStatus)
	r.POST("/email/resend", h.dispatchChain(requireAuth, dispatchMiddlewares, h.resendEmail)...)
	r.POST("/email/confirm", h.confirmEmail)
	r.POST("/phone/dispatch", h.dispatchChain(requireAuth, dispatchMiddlewares, h.dispatchPhone)...)
	r.POST("/phone/confirm", h.confirmPhone)
}

func (h *VerificationHandler) dispatchChain(requireAuth gin.HandlerFunc, middlewares []gin.HandlerFunc, handler gin.HandlerFunc) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, len(middlewares)+2)
	chain = append(chain, middlewares...)
	chain = append(chain, requireAuth, handler)
	return chain
}

// emailStatus reads the stored email verification flag.
func (h *VerificationHandler) emailStatus(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	verified, err := h.verification.CheckEmailVerified(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to read verification state")
		return
	}

	c.JSON(http.StatusOK, EmailVerifiedResponse{EmailVerified: verified})
}

// resendEmail re-dispatches the verification email. During the cooldown
// window the response reports the remaining wait without sending anything.
func (h *VerificationHandler) resendEmail(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	dispatch, err := h.verification.SendEmailVerification(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "failed to send verification email")
		return
	}

	c.JSON(http.StatusOK, newCodeDispatchPayload(dispatch))
}

// confirmEmail redeems an emailed token and returns the phone code dispatch
// for the next step.
func (h *VerificationHandler) confirmEmail(c *gin.Context) {
	var req EmailTokenConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "token is required"))
		return
	}

	user, dispatch, err := h.verification.ConfirmEmailToken(c.Request.Context(), req.Token)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrVerificationCodeInvalid, Status: http.StatusBadRequest, Message: "verification token is invalid"},
			{Err: usecase.ErrVerificationCodeExpired, Status: http.StatusBadRequest, Message: "verification token has expired"},
		}, http.StatusInternalServerError, "failed to confirm email")
		return
	}

	c.JSON(http.StatusOK, EmailConfirmResponse{
		User:     newUserPayload(user),
		Dispatch: newCodeDispatchPayload(dispatch),
	})
}

// dispatchPhone sends an SMS code to the caller's stored phone number.
func (h *VerificationHandler) dispatchPhone(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	dispatch, err := h.verification.DispatchPhoneCode(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrInvalidPhoneFormat, Status: http.StatusBadRequest, Message: "no valid phone number on file"},
		}, http.StatusInternalServerError, "failed to send verification code")
		return
	}

	c.JSON(http.StatusOK, newCodeDispatchPayload(dispatch))
}

// confirmPhone redeems a code against its dispatch handle. The handle is
// single use whatever the outcome.
func (h *VerificationHandler) confirmPhone(c *gin.Context) {
	var req PhoneCodeConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "handle and code are required"))
		return
	}

	user, err := h.verification.ConfirmPhoneCode(c.Request.Context(), req.Handle, req.Code)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrVerificationCodeInvalid, Status: http.StatusBadRequest, Message: "verification code is incorrect"},
			{Err: usecase.ErrVerificationCodeExpired, Status: http.StatusBadRequest, Message: "verification code has expired, request a new one"},
		}, http.StatusInternalServerError, "failed to confirm code")
		return
	}

	c.JSON(http.StatusOK, newUserPayload(user))
}
