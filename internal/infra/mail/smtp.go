package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/port"
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/config"
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/logger"
)

// SMTPSender delivers notifications over SMTP with PLAIN auth.
type SMTPSender struct {
	cfg config.SMTPSettings
	log *zap.Logger

	// send allows tests to substitute the network call.
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender constructs an SMTP-backed mail sender.
func NewSMTPSender(cfg config.SMTPSettings, log *zap.Logger) *SMTPSender {
	return &SMTPSender{
		cfg:  cfg,
		log:  log,
		send: smtp.SendMail,
	}
}

// Send renders the notification for kind and delivers it to address.
func (s *SMTPSender) Send(ctx context.Context, kind port.MailKind, address string, payload map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	subject, body, err := renderMessage(kind, payload)
	if err != nil {
		return err
	}

	msg := buildMessage(s.cfg.From, address, subject, body)
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := s.send(addr, auth, s.cfg.From, []string{address}, msg); err != nil {
		s.log.Error("mail delivery failed",
			zap.String("kind", string(kind)),
			zap.String("to", logger.MaskEmail(address)),
			zap.Error(err),
		)
		return fmt.Errorf("send mail %s: %w", kind, err)
	}

	s.log.Info("mail delivered",
		zap.String("kind", string(kind)),
		zap.String("to", logger.MaskEmail(address)),
	)
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}

var _ port.MailSender = (*SMTPSender)(nil)
