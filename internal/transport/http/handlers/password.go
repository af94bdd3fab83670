package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yessinemaalej/armeniancoin-auth/internal/usecase"
)

// PasswordHandler serves the forgot/reset password endpoints.
type PasswordHandler struct {
	resets *usecase.PasswordResetService
}

// NewPasswordHandler builds a PasswordHandler.
func NewPasswordHandler(resets *usecase.PasswordResetService) *PasswordHandler {
	return &PasswordHandler{resets: resets}
}

// Forgot initiates a password reset. The response is identical whether or
// not the address belongs to an account.
func (h *PasswordHandler) Forgot(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	if err := h.resets.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		var rateLimited *usecase.RateLimitExceededError
		if errors.As(err, &rateLimited) {
			c.JSON(http.StatusTooManyRequests, NewErrorResponse(c, "too many reset requests, try again later"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "password reset request failed"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "if an account exists for that address, a reset link has been sent"})
}

// ValidateResetToken probes a reset token without consuming it so the reset
// form can distinguish an expired link from a bad one.
func (h *PasswordHandler) ValidateResetToken(c *gin.Context) {
	var req ValidateResetTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	if err := h.resets.ValidateResetToken(c.Request.Context(), req.Token); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrResetTokenExpired, Status: http.StatusBadRequest, Message: "reset link has expired, request a new one"},
			{Err: usecase.ErrResetTokenInvalid, Status: http.StatusBadRequest, Message: "reset link is invalid"},
		}, http.StatusInternalServerError, "token validation failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "token is valid"})
}

// Reset completes the password reset.
func (h *PasswordHandler) Reset(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	if err := h.resets.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrResetTokenExpired, Status: http.StatusBadRequest, Message: "reset link has expired, request a new one"},
			{Err: usecase.ErrResetTokenInvalid, Status: http.StatusBadRequest, Message: "reset link is invalid"},
			{Err: usecase.ErrNewPasswordInvalid, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
			{Err: usecase.ErrIdentityNotFound, Status: http.StatusNotFound, Message: "account not found"},
		}, http.StatusInternalServerError, "password reset failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password has been reset"})
}
