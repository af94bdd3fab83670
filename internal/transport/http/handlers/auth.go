package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yessinemaalej/armeniancoin-auth/internal/transport/http/middleware"
	"github.com/yessinemaalej/armeniancoin-auth/internal/usecase"
)

// AuthHandler serves sign-in endpoints that assemble session assertions.
type AuthHandler struct {
	sessions *usecase.SessionService
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(sessions *usecase.SessionService) *AuthHandler {
	return &AuthHandler{sessions: sessions}
}

var signInErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid credentials"},
	{Err: usecase.ErrSecondFactorRequired, Status: http.StatusUnauthorized, Message: "two-factor code required"},
	{Err: usecase.ErrInvalidCode, Status: http.StatusUnauthorized, Message: "invalid two-factor code"},
}

// SignIn verifies a password credential and issues a session assertion.
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)

	result, err := h.sessions.LoginWithPassword(c.Request.Context(), usecase.PasswordLoginInput{
		Email:         req.Email,
		Password:      req.Password,
		TwoFactorCode: req.TwoFactorCode,
		IP:            reqCtx.IP,
		UserAgent:     reqCtx.UserAgent,
	})
	if err != nil {
		RespondWithMappedError(c, err, signInErrorCases, http.StatusInternalServerError, "sign in failed")
		return
	}

	c.JSON(http.StatusOK, SessionResponse{
		Token:     result.Token,
		TokenType: "Bearer",
		ExpiresAt: result.ExpiresAt,
	})
}

// SignInWallet issues a session for a wallet whose signature was verified
// upstream by the wallet gateway.
func (h *AuthHandler) SignInWallet(c *gin.Context) {
	var req WalletSignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)

	result, err := h.sessions.LoginWithWallet(c.Request.Context(), usecase.WalletLoginInput{
		WalletAddress:     req.WalletAddress,
		SignatureVerified: req.SignatureVerified,
		TwoFactorCode:     req.TwoFactorCode,
		IP:                reqCtx.IP,
		UserAgent:         reqCtx.UserAgent,
	})
	if err != nil {
		RespondWithMappedError(c, err, signInErrorCases, http.StatusInternalServerError, "sign in failed")
		return
	}

	c.JSON(http.StatusOK, SessionResponse{
		Token:     result.Token,
		TokenType: "Bearer",
		ExpiresAt: result.ExpiresAt,
	})
}
