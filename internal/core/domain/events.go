package domain

import "time"

// LoginRecordedEvent is emitted for every authentication attempt.
type LoginRecordedEvent struct {
	EventID    string         `json:"event_id"`
	IdentityID *string        `json:"identity_id,omitempty"`
	Method     LoginMethod    `json:"method"`
	Succeeded  bool           `json:"succeeded"`
	Reason     *string        `json:"reason,omitempty"`
	IPAddress  *string        `json:"ip_address,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// PasswordChangedEvent is emitted after a successful password reset.
type PasswordChangedEvent struct {
	EventID    string         `json:"event_id"`
	IdentityID string         `json:"identity_id"`
	ChangedAt  time.Time      `json:"changed_at"`
	Source     string         `json:"source"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// EmailVerifiedEvent is emitted when an identity proves ownership of its email.
type EmailVerifiedEvent struct {
	EventID    string    `json:"event_id"`
	IdentityID string    `json:"identity_id"`
	Email      string    `json:"email"`
	VerifiedAt time.Time `json:"verified_at"`
}

// TwoFactorStateChangedEvent is emitted on second-factor enable and disable.
type TwoFactorStateChangedEvent struct {
	EventID    string            `json:"event_id"`
	IdentityID string            `json:"identity_id"`
	State      SecondFactorState `json:"state"`
	ChangedAt  time.Time         `json:"changed_at"`
}
