package port

import (
	"context"
	"time"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/domain"
)

// IdentityRepository provides access to persisted identities. Email and
// wallet address carry unique constraints at the storage layer.
type IdentityRepository interface {
	Create(ctx context.Context, identity domain.Identity) error
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	GetByWallet(ctx context.Context, wallet string) (*domain.Identity, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, changedAt time.Time) error
	SetEmail(ctx context.Context, id, email string) error
	MarkEmailVerified(ctx context.Context, id string, verifiedAt time.Time) error
	SetTwoFactorEnabled(ctx context.Context, id string, enabled bool) error
	UpdateLastLogin(ctx context.Context, id string, at time.Time) error
}
