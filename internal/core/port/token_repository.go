package port

import (
	"context"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/domain"
)

// OneTimeTokenRepository persists single-use tokens keyed by value hash.
type OneTimeTokenRepository interface {
	// Replace deletes every live token for the token's (identity, purpose)
	// pair and inserts the new one as a single transactional unit.
	Replace(ctx context.Context, token domain.OneTimeToken) error
	// GetByHash looks a token up by value hash and purpose together.
	GetByHash(ctx context.Context, hash string, purpose domain.TokenPurpose) (*domain.OneTimeToken, error)
	// Delete removes a token by id. Returns repository.ErrNotFound when the
	// row was already gone, which callers use to detect a lost race.
	Delete(ctx context.Context, id string) error
	// DeleteForIdentity removes all tokens of a purpose for an identity.
	DeleteForIdentity(ctx context.Context, identityID string, purpose domain.TokenPurpose) error
}
