package port

import (
	"context"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/domain"
)

// SecondFactorRepository stores the per-identity second-factor credential.
type SecondFactorRepository interface {
	Get(ctx context.Context, identityID string) (*domain.SecondFactorCredential, error)
	// Upsert replaces the stored credential wholesale (secret, enabled flag
	// and backup code hashes in one write).
	Upsert(ctx context.Context, credential domain.SecondFactorCredential) error
	// SetEnabled flips the enabled flag for an existing credential.
	SetEnabled(ctx context.Context, identityID string, enabled bool) error
	// ConsumeBackupCode removes a single backup code hash; returns
	// repository.ErrNotFound when the hash is not among the stored set.
	ConsumeBackupCode(ctx context.Context, identityID, codeHash string) error
	// Delete removes the credential and its backup codes atomically.
	Delete(ctx context.Context, identityID string) error
}
