package port

import (
	"context"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/domain"
)

// EventPublisher fans security events out to downstream consumers.
type EventPublisher interface {
	PublishLoginRecorded(ctx context.Context, event domain.LoginRecordedEvent) error
	PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error
	PublishEmailVerified(ctx context.Context, event domain.EmailVerifiedEvent) error
	PublishTwoFactorStateChanged(ctx context.Context, event domain.TwoFactorStateChangedEvent) error
}
