package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// IdentitySummary describes a minimal view of an identity returned by the API.
type IdentitySummary struct {
	ID            string      `json:"id"`
	Email         *string     `json:"email,omitempty"`
	WalletAddress *string     `json:"wallet_address,omitempty"`
	Role          domain.Role `json:"role"`
	EmailVerified bool        `json:"email_verified"`
	TwoFactor     bool        `json:"two_factor_enabled"`
}

// NewIdentitySummary maps a domain identity to its API view.
func NewIdentitySummary(identity *domain.Identity) IdentitySummary {
	return IdentitySummary{
		ID:            identity.ID,
		Email:         identity.Email,
		WalletAddress: identity.WalletAddress,
		Role:          identity.Role,
		EmailVerified: identity.EmailVerified(),
		TwoFactor:     identity.TwoFactorEnabled,
	}
}

// SignInRequest defines the password sign-in payload.
type SignInRequest struct {
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required"`
	TwoFactorCode string `json:"two_factor_code"`
}

// WalletSignInRequest defines the wallet sign-in payload. The signature is
// verified by the wallet gateway before this service is called.
type WalletSignInRequest struct {
	WalletAddress     string `json:"wallet_address" binding:"required"`
	SignatureVerified bool   `json:"signature_verified"`
	TwoFactorCode     string `json:"two_factor_code"`
}

// SessionResponse carries the issued session assertion.
type SessionResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TwoFactorSetupResponse carries enrollment material shown exactly once.
type TwoFactorSetupResponse struct {
	Secret        string   `json:"secret"`
	EnrollmentURI string   `json:"enrollment_uri"`
	BackupCodes   []string `json:"backup_codes"`
}

// TwoFactorEnableRequest finalizes enrollment with a current TOTP code.
type TwoFactorEnableRequest struct {
	Code string `json:"code" binding:"required"`
}

// TwoFactorDisableRequest carries the proof code to tear down 2FA.
type TwoFactorDisableRequest struct {
	Token string `json:"token" binding:"required"`
}

// TwoFactorEmailVerifyRequest redeems an emailed 6-digit code.
type TwoFactorEmailVerifyRequest struct {
	Code string `json:"code" binding:"required"`
}

// ForgotPasswordRequest initiates a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest completes a password reset.
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

// ValidateResetTokenRequest probes a reset token without consuming it.
type ValidateResetTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// VerifyEmailRequest redeems an email verification token.
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// ResendVerificationRequest re-issues the verification link.
type ResendVerificationRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// AddEmailRequest attaches an email to a wallet-only identity.
type AddEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// GuardDecisionResponse tells the caller whether to serve the path or
// redirect the visitor.
type GuardDecisionResponse struct {
	Allow      bool   `json:"allow"`
	RedirectTo string `json:"redirect_to,omitempty"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
