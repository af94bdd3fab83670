package port

import (
	"context"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/domain"
)

// LoginHistoryRepository is a write-only audit sink for sign-in attempts.
type LoginHistoryRepository interface {
	Append(ctx context.Context, entry domain.LoginHistoryEntry) error
}
