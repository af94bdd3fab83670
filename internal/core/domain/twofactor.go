package domain

import "time"

// SecondFactorState describes the lifecycle position of a second-factor credential.
type SecondFactorState string

const (
	// SecondFactorNone means no credential exists for the identity.
	SecondFactorNone SecondFactorState = "none"
	// SecondFactorPending means setup ran but possession was never proven.
	SecondFactorPending SecondFactorState = "pending"
	// SecondFactorEnabled means the credential is active and enforced.
	SecondFactorEnabled SecondFactorState = "enabled"
)

// SecondFactorCredential holds the shared TOTP secret and hashed backup codes
// for an identity. Disable deletes the row entirely; there is no persisted
// disabled state, re-setup starts from scratch.
type SecondFactorCredential struct {
	IdentityID       string
	Secret           string
	Enabled          bool
	BackupCodeHashes []string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// State derives the lifecycle state from the stored flags.
func (c SecondFactorCredential) State() SecondFactorState {
	if c.Enabled {
		return SecondFactorEnabled
	}
	return SecondFactorPending
}
