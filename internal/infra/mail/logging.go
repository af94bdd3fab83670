package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/port"
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/logger"
)

// LoggingSender records notifications for observability without delivering
// them. Used in development environments without an SMTP relay.
type LoggingSender struct {
	log *zap.Logger
}

// NewLoggingSender constructs a mail sender backed by structured logging.
func NewLoggingSender(log *zap.Logger) *LoggingSender {
	return &LoggingSender{log: log}
}

func (s *LoggingSender) Send(_ context.Context, kind port.MailKind, address string, payload map[string]string) error {
	if s == nil || s.log == nil {
		return nil
	}

	fields := []zap.Field{
		zap.String("kind", string(kind)),
		zap.String("to", logger.MaskEmail(address)),
	}
	for key, value := range payload {
		fields = append(fields, zap.String(key, value))
	}

	s.log.Info("dispatch notification", fields...)
	return nil
}

var _ port.MailSender = (*LoggingSender)(nil)
