package mail

import (
	"fmt"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/port"
)

// renderMessage builds the subject and plain-text body for a notification kind.
// Payload keys are produced by the usecases issuing the notification.
func renderMessage(kind port.MailKind, payload map[string]string) (subject, body string, err error) {
	switch kind {
	case port.MailKindVerificationLink:
		subject = "Verify your email address"
		body = fmt.Sprintf(
			"Welcome!\n\nPlease confirm your email address by opening the link below:\n\n%s\n\nThe link expires at %s. If you did not create an account, ignore this message.\n",
			payload["link"], payload["expires_at"],
		)
	case port.MailKindResetLink:
		subject = "Reset your password"
		body = fmt.Sprintf(
			"A password reset was requested for your account.\n\nOpen the link below to choose a new password:\n\n%s\n\nThe link expires at %s. If you did not request this, ignore this message.\n",
			payload["link"], payload["expires_at"],
		)
	case port.MailKindTwoFactorCode:
		subject = "Your sign-in verification code"
		body = fmt.Sprintf(
			"Your verification code is: %s\n\nThe code expires at %s. Never share this code with anyone.\n",
			payload["code"], payload["expires_at"],
		)
	case port.MailKindWalletLinked:
		subject = "A wallet was linked to your account"
		body = fmt.Sprintf(
			"The wallet %s was linked to your account at %s.\n\nIf this was not you, reset your password immediately.\n",
			payload["wallet"], payload["at"],
		)
	case port.MailKindSecurityAlert:
		subject = "Security alert for your account"
		body = fmt.Sprintf(
			"%s\n\nIf this was not you, reset your password immediately.\n",
			payload["message"],
		)
	default:
		return "", "", fmt.Errorf("unknown mail kind: %s", kind)
	}

	return subject, body, nil
}
