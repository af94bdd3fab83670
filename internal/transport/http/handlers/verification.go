package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yessinemaalej/armeniancoin-auth/internal/usecase"
)

// VerificationHandler serves email verification endpoints.
type VerificationHandler struct {
	verification *usecase.VerificationService
}

// NewVerificationHandler builds a VerificationHandler.
func NewVerificationHandler(verification *usecase.VerificationService) *VerificationHandler {
	return &VerificationHandler{verification: verification}
}

// Verify redeems an email verification token.
func (h *VerificationHandler) Verify(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	if err := h.verification.VerifyEmail(c.Request.Context(), req.Token); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrVerifyTokenExpired, Status: http.StatusBadRequest, Message: "verification link has expired, request a new one"},
			{Err: usecase.ErrVerifyTokenInvalid, Status: http.StatusBadRequest, Message: "verification link is invalid"},
			{Err: usecase.ErrIdentityNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "email verification failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "email verified"})
}

// Resend re-issues the verification link. The response is identical whether
// or not the address belongs to an account.
func (h *VerificationHandler) Resend(c *gin.Context) {
	var req ResendVerificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	if err := h.verification.ResendVerification(c.Request.Context(), req.Email); err != nil {
		var rateLimited *usecase.RateLimitExceededError
		if errors.As(err, &rateLimited) {
			c.JSON(http.StatusTooManyRequests, NewErrorResponse(c, "too many requests, try again later"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "resend verification failed"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "if an account exists for that address, a verification link has been sent"})
}
