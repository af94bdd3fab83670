package domain

import "time"

// TokenPurpose scopes a one-time token to a single security action.
// A token issued under one purpose never validates against another.
type TokenPurpose string

const (
	PurposeResetPassword  TokenPurpose = "reset-password"
	PurposeVerifyEmail    TokenPurpose = "verify-email"
	PurposeTwoFactorEmail TokenPurpose = "2fa-email-code"
)

// Valid reports whether the purpose is one of the known values.
func (p TokenPurpose) Valid() bool {
	switch p {
	case PurposeResetPassword, PurposeVerifyEmail, PurposeTwoFactorEmail:
		return true
	}
	return false
}

// DefaultTTL returns the policy lifetime for tokens of this purpose.
func (p TokenPurpose) DefaultTTL() time.Duration {
	switch p {
	case PurposeResetPassword:
		return time.Hour
	case PurposeVerifyEmail:
		return 24 * time.Hour
	case PurposeTwoFactorEmail:
		return 10 * time.Minute
	}
	return time.Hour
}

// OneTimeToken is a server-stored, single-use, time-boxed credential.
// The raw value is handed to the owner exactly once; only its SHA-256
// hash is persisted.
type OneTimeToken struct {
	ID         string
	IdentityID string
	TokenHash  string
	Purpose    TokenPurpose
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// IsExpired reports whether the token has elapsed its validity window.
func (t OneTimeToken) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}
