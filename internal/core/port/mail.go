package port

import "context"

// MailKind identifies the notification template to deliver.
type MailKind string

const (
	MailKindVerificationLink MailKind = "verification_link"
	MailKindResetLink        MailKind = "reset_link"
	MailKindTwoFactorCode    MailKind = "two_factor_code"
	MailKindWalletLinked     MailKind = "wallet_linked"
	MailKindSecurityAlert    MailKind = "security_alert"
)

// MailSender delivers a single notification. Implementations must return an
// error on delivery failure rather than leaving the send pending; callers
// decide per endpoint whether the failure is surfaced or swallowed.
type MailSender interface {
	Send(ctx context.Context, kind MailKind, address string, payload map[string]string) error
}
