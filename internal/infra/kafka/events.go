package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/domain"
	"github.com/yessinemaalej/armeniancoin-auth/internal/core/port"
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/config"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, logger *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: logger}
}

type eventEnvelope struct {
	EventID    string            `json:"event_id"`
	EventType  string            `json:"event_type"`
	IdentityID string            `json:"identity_id,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
	Version    string            `json:"version"`
	Payload    any               `json:"payload"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, identityID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	envelope := eventEnvelope{
		EventID:    id,
		EventType:  eventType,
		IdentityID: identityID,
		Timestamp:  ts.UTC(),
		Version:    schemaVersion,
		Payload:    payload,
		Metadata: map[string]string{
			"service":     p.appCfg.Name,
			"environment": p.appCfg.Env,
		},
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishLoginRecorded publishes auth.login.recorded events.
func (p *EventPublisher) PublishLoginRecorded(ctx context.Context, event domain.LoginRecordedEvent) error {
	identityID := ""
	if event.IdentityID != nil {
		identityID = *event.IdentityID
	}
	return p.publish(ctx, event.EventID, "auth.login.recorded", identityID, event.OccurredAt, event)
}

// PublishPasswordChanged publishes auth.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event domain.PasswordChangedEvent) error {
	return p.publish(ctx, event.EventID, "auth.password.changed", event.IdentityID, event.ChangedAt, event)
}

// PublishEmailVerified publishes auth.email.verified events.
func (p *EventPublisher) PublishEmailVerified(ctx context.Context, event domain.EmailVerifiedEvent) error {
	return p.publish(ctx, event.EventID, "auth.email.verified", event.IdentityID, event.VerifiedAt, event)
}

// PublishTwoFactorStateChanged publishes auth.two_factor.state_changed events.
func (p *EventPublisher) PublishTwoFactorStateChanged(ctx context.Context, event domain.TwoFactorStateChangedEvent) error {
	return p.publish(ctx, event.EventID, "auth.two_factor.state_changed", event.IdentityID, event.ChangedAt, event)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
