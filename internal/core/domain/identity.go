package domain

import (
	"strings"
	"time"
)

// Role enumerates the access levels an identity can hold.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// LoginMethod identifies how a sign-in attempt was performed.
type LoginMethod string

const (
	LoginMethodPassword LoginMethod = "password"
	LoginMethodWallet   LoginMethod = "wallet"
)

// Identity mirrors the persisted representation in the identities table.
// An identity always carries at least one of {email, wallet address}.
type Identity struct {
	ID               string
	Email            *string
	WalletAddress    *string
	PasswordHash     *string
	Role             Role
	EmailVerifiedAt  *time.Time
	TwoFactorEnabled bool
	CreatedAt        time.Time
	LastLoginAt      *time.Time
}

// HasContactMethod reports whether the invariant "email or wallet present" holds.
func (i Identity) HasContactMethod() bool {
	return i.EmailValue() != "" || i.WalletValue() != ""
}

// EmailValue returns the trimmed email or the empty string.
func (i Identity) EmailValue() string {
	if i.Email == nil {
		return ""
	}
	return strings.TrimSpace(*i.Email)
}

// WalletValue returns the trimmed wallet address or the empty string.
func (i Identity) WalletValue() string {
	if i.WalletAddress == nil {
		return ""
	}
	return strings.TrimSpace(*i.WalletAddress)
}

// EmailVerified reports whether the identity has completed email verification.
func (i Identity) EmailVerified() bool {
	return i.EmailVerifiedAt != nil
}

// LoginHistoryEntry records authentication attempts for audit.
// Entries are append-only; this service never mutates or deletes them.
type LoginHistoryEntry struct {
	ID            string
	IdentityID    *string
	Method        LoginMethod
	IP            *string
	UserAgent     *string
	Succeeded     bool
	FailureReason *string
	CreatedAt     time.Time
}
