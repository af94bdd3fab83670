package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/domain"
	"github.com/yessinemaalej/armeniancoin-auth/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for
// development environments without a broker.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType, identityID string, at time.Time, payload any) {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("identity_id", identityID),
		zap.Time("timestamp", at.UTC()),
		zap.Any("payload", payload),
	)
}

// PublishLoginRecorded logs auth.login.recorded events.
func (p *StubPublisher) PublishLoginRecorded(_ context.Context, event domain.LoginRecordedEvent) error {
	identityID := ""
	if event.IdentityID != nil {
		identityID = *event.IdentityID
	}
	p.logEvent("auth.login.recorded", identityID, event.OccurredAt, event)
	return nil
}

// PublishPasswordChanged logs auth.password.changed events.
func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.logEvent("auth.password.changed", event.IdentityID, event.ChangedAt, event)
	return nil
}

// PublishEmailVerified logs auth.email.verified events.
func (p *StubPublisher) PublishEmailVerified(_ context.Context, event domain.EmailVerifiedEvent) error {
	p.logEvent("auth.email.verified", event.IdentityID, event.VerifiedAt, event)
	return nil
}

// PublishTwoFactorStateChanged logs auth.two_factor.state_changed events.
func (p *StubPublisher) PublishTwoFactorStateChanged(_ context.Context, event domain.TwoFactorStateChangedEvent) error {
	p.logEvent("auth.two_factor.state_changed", event.IdentityID, event.ChangedAt, event)
	return nil
}

var _ port.EventPublisher = (*StubPublisher)(nil)
