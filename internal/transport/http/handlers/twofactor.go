package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yessinemaalej/armeniancoin-auth/internal/transport/http/middleware"
	"github.com/yessinemaalej/armeniancoin-auth/internal/usecase"
)

// TwoFactorHandler serves the second-factor lifecycle endpoints.
type TwoFactorHandler struct {
	twoFactor *usecase.TwoFactorService
}

// NewTwoFactorHandler builds a TwoFactorHandler.
func NewTwoFactorHandler(twoFactor *usecase.TwoFactorService) *TwoFactorHandler {
	return &TwoFactorHandler{twoFactor: twoFactor}
}

// Setup generates a pending credential and returns enrollment material.
func (h *TwoFactorHandler) Setup(c *gin.Context) {
	identityID, ok := middleware.GetAuthenticatedIdentityID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	result, err := h.twoFactor.Setup(c.Request.Context(), identityID)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrIdentityNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrTwoFactorAlreadyEnabled, Status: http.StatusConflict, Message: "two-factor authentication is already enabled"},
		}, http.StatusInternalServerError, "two-factor setup failed")
		return
	}

	c.JSON(http.StatusOK, TwoFactorSetupResponse{
		Secret:        result.Secret,
		EnrollmentURI: result.EnrollmentURI,
		BackupCodes:   result.BackupCodes,
	})
}

// Enable finalizes enrollment after proof of possession.
func (h *TwoFactorHandler) Enable(c *gin.Context) {
	identityID, ok := middleware.GetAuthenticatedIdentityID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req TwoFactorEnableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	if err := h.twoFactor.Enable(c.Request.Context(), identityID, req.Code); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCode, Status: http.StatusBadRequest, Message: "invalid verification code"},
			{Err: usecase.ErrTwoFactorNotConfigured, Status: http.StatusBadRequest, Message: "run setup before enabling"},
			{Err: usecase.ErrTwoFactorAlreadyEnabled, Status: http.StatusConflict, Message: "two-factor authentication is already enabled"},
		}, http.StatusInternalServerError, "two-factor enable failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "two-factor authentication enabled"})
}

// Disable tears down the credential after proof of possession.
func (h *TwoFactorHandler) Disable(c *gin.Context) {
	identityID, ok := middleware.GetAuthenticatedIdentityID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req TwoFactorDisableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	if err := h.twoFactor.Disable(c.Request.Context(), identityID, req.Token); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCode, Status: http.StatusBadRequest, Message: "invalid verification code"},
			{Err: usecase.ErrTwoFactorNotConfigured, Status: http.StatusBadRequest, Message: "two-factor authentication is not enabled"},
		}, http.StatusInternalServerError, "two-factor disable failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "two-factor authentication disabled"})
}

// SendEmailCode mails a one-time 6-digit code to the account email.
func (h *TwoFactorHandler) SendEmailCode(c *gin.Context) {
	identityID, ok := middleware.GetAuthenticatedIdentityID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.twoFactor.SendEmailCode(c.Request.Context(), identityID); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrIdentityNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrNoEmailOnFile, Status: http.StatusBadRequest, Message: "no email address on file"},
			{Err: usecase.ErrMailDelivery, Status: http.StatusBadGateway, Message: "could not deliver the verification code"},
		}, http.StatusInternalServerError, "sending verification code failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "verification code sent"})
}

// VerifyEmailCode redeems an emailed code.
func (h *TwoFactorHandler) VerifyEmailCode(c *gin.Context) {
	identityID, ok := middleware.GetAuthenticatedIdentityID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req TwoFactorEmailVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	if err := h.twoFactor.VerifyEmailCode(c.Request.Context(), identityID, req.Code); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCode, Status: http.StatusBadRequest, Message: "invalid or expired code"},
		}, http.StatusInternalServerError, "code verification failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "code verified"})
}
