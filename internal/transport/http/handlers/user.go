package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yessinemaalej/armeniancoin-auth/internal/transport/http/middleware"
	"github.com/yessinemaalej/armeniancoin-auth/internal/usecase"
)

// UserHandler serves authenticated account-management endpoints.
type UserHandler struct {
	verification *usecase.VerificationService
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(verification *usecase.VerificationService) *UserHandler {
	return &UserHandler{verification: verification}
}

// AddEmail attaches an email address to the authenticated identity and sends
// the verification link. Unlike the public resend flow, a delivery failure
// here is an error the caller sees.
func (h *UserHandler) AddEmail(c *gin.Context) {
	identityID, ok := middleware.GetAuthenticatedIdentityID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req AddEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	if err := h.verification.AddEmail(c.Request.Context(), identityID, req.Email); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email address already in use"},
			{Err: usecase.ErrEmailAlreadyVerified, Status: http.StatusConflict, Message: "email address already attached to this account"},
			{Err: usecase.ErrIdentityNotFound, Status: http.StatusNotFound, Message: "account not found"},
			{Err: usecase.ErrMailDelivery, Status: http.StatusBadGateway, Message: "email saved but the verification message could not be sent"},
		}, http.StatusInternalServerError, "adding email failed")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "verification link sent to the new address"})
}
