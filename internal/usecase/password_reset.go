package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/domain"
	"github.com/yessinemaalej/armeniancoin-auth/internal/core/port"
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/config"
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/logger"
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/security"
	"github.com/yessinemaalej/armeniancoin-auth/internal/repository"
)

const (
	passwordResetRateLimitScope = "password_reset"
	passwordResetSource         = "password_reset"
)

var (
	// ErrNewPasswordInvalid indicates the proposed password failed validation.
	ErrNewPasswordInvalid = errors.New("new password does not meet requirements")
	// ErrResetTokenInvalid indicates the supplied reset token is absent or spent.
	ErrResetTokenInvalid = errors.New("password reset token invalid")
	// ErrResetTokenExpired indicates the supplied reset token is past its ttl.
	ErrResetTokenExpired = errors.New("password reset token expired")
)

// PasswordResetService coordinates forgot-password initiation and completion.
// Initiation is enumeration-safe: an unknown email produces the same outcome
// as a known one, and mail delivery failures are swallowed after logging.
type PasswordResetService struct {
	cfg        *config.AppConfig
	identities port.IdentityRepository
	oneTime    *OneTimeTokenService
	rateLimits port.RateLimitStore
	mail       port.MailSender
	events     port.EventPublisher
	hasher     port.PasswordHasher
	validator  *security.PasswordValidator
	logger     *zap.Logger
	now        func() time.Time
}

// NewPasswordResetService constructs a PasswordResetService.
func NewPasswordResetService(
	cfg *config.AppConfig,
	identities port.IdentityRepository,
	oneTime *OneTimeTokenService,
	rateLimits port.RateLimitStore,
	mail port.MailSender,
	events port.EventPublisher,
	hasher port.PasswordHasher,
	validator *security.PasswordValidator,
	log *zap.Logger,
) *PasswordResetService {
	if validator == nil {
		validator = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &PasswordResetService{
		cfg:        cfg,
		identities: identities,
		oneTime:    oneTime,
		rateLimits: rateLimits,
		mail:       mail,
		events:     events,
		hasher:     hasher,
		validator:  validator,
		logger:     log,
		now:        time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *PasswordResetService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// ForgotPassword issues a reset token and mails the reset link. The call
// reports success for unknown addresses and on delivery failure so the
// response shape never reveals whether an account exists.
func (s *PasswordResetService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}

	now := s.now().UTC()
	if err := s.enforceRateLimit(ctx, email, now); err != nil {
		return err
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email",
				zap.String("email", logger.MaskEmail(email)))
			return nil
		}
		return fmt.Errorf("lookup identity: %w", err)
	}

	issued, err := s.oneTime.Issue(ctx, identity.ID, domain.PurposeResetPassword)
	if err != nil {
		return err
	}

	payload := map[string]string{
		"link":       s.resetLink(issued.Value),
		"expires_at": issued.ExpiresAt.Format(time.RFC3339),
	}

	if err := s.mail.Send(ctx, port.MailKindResetLink, identity.EmailValue(), payload); err != nil {
		s.logger.Error("reset link delivery failed",
			zap.String("identity_id", identity.ID),
			zap.String("email", logger.MaskEmail(identity.EmailValue())),
			zap.Error(err),
		)
	}

	return nil
}

// ValidateResetToken reports whether a reset token is live without spending
// it, distinguishing expired from absent for user messaging.
func (s *PasswordResetService) ValidateResetToken(ctx context.Context, token string) error {
	if _, err := s.oneTime.Inspect(ctx, token, domain.PurposeResetPassword); err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			return ErrResetTokenExpired
		case errors.Is(err, ErrTokenNotFound):
			return ErrResetTokenInvalid
		default:
			return err
		}
	}
	return nil
}

// ResetPassword consumes the token and applies the new password.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	newPassword = strings.TrimSpace(newPassword)
	if newPassword == "" {
		return fmt.Errorf("new password is required")
	}

	if err := s.validator.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", ErrNewPasswordInvalid, err)
	}

	identityID, err := s.oneTime.Consume(ctx, token, domain.PurposeResetPassword)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			return ErrResetTokenExpired
		case errors.Is(err, ErrTokenNotFound):
			return ErrResetTokenInvalid
		default:
			return err
		}
	}

	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrIdentityNotFound
		}
		return fmt.Errorf("lookup identity: %w", err)
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	changedAt := s.now().UTC()
	if err := s.identities.UpdatePassword(ctx, identity.ID, hashed, changedAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrIdentityNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}

	s.publishPasswordChanged(ctx, identity.ID, changedAt)
	s.sendSecurityAlert(ctx, identity, changedAt)

	return nil
}

func (s *PasswordResetService) enforceRateLimit(ctx context.Context, email string, now time.Time) error {
	if s.rateLimits == nil || s.cfg == nil {
		return nil
	}

	limit := s.cfg.RateLimit.PasswordResetMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := s.cfg.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Hour
	}

	key := fmt.Sprintf("%s:%s", passwordResetRateLimitScope, normalizeIdentifierKey(email))

	if err := s.rateLimits.TrimWindow(ctx, key, window, now); err != nil {
		s.logger.Warn("password reset rate limit trim failed", zap.Error(err))
		return nil
	}

	count, err := s.rateLimits.CountAttempts(ctx, key, window, now)
	if err != nil {
		s.logger.Warn("password reset rate limit count failed", zap.Error(err))
		return nil
	}

	if count >= limit {
		retryAfter := time.Duration(0)
		if oldest, ok, err := s.rateLimits.OldestAttempt(ctx, key, window, now); err == nil && ok {
			if reset := oldest.Add(window); reset.After(now) {
				retryAfter = reset.Sub(now)
			}
		} else if err != nil {
			s.logger.Warn("password reset rate limit oldest lookup failed", zap.Error(err))
		}
		return &RateLimitExceededError{Scope: passwordResetRateLimitScope, RetryAfter: retryAfter}
	}

	if err := s.rateLimits.RecordAttempt(ctx, key, now); err != nil {
		s.logger.Warn("password reset rate limit record failed", zap.Error(err))
	}

	return nil
}

func (s *PasswordResetService) resetLink(token string) string {
	base := ""
	if s.cfg != nil {
		base = strings.TrimRight(s.cfg.App.BaseURL, "/")
	}
	return fmt.Sprintf("%s/auth/reset-password?token=%s", base, token)
}

func (s *PasswordResetService) publishPasswordChanged(ctx context.Context, identityID string, changedAt time.Time) {
	if s.events == nil {
		return
	}

	event := domain.PasswordChangedEvent{
		EventID:    uuid.NewString(),
		IdentityID: identityID,
		ChangedAt:  changedAt,
		Source:     passwordResetSource,
	}

	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish password changed failed",
			zap.String("identity_id", identityID),
			zap.Error(err),
		)
	}
}

func (s *PasswordResetService) sendSecurityAlert(ctx context.Context, identity *domain.Identity, changedAt time.Time) {
	email := identity.EmailValue()
	if email == "" || s.mail == nil {
		return
	}

	payload := map[string]string{
		"message": fmt.Sprintf("Your password was changed at %s.", changedAt.Format(time.RFC1123)),
	}

	if err := s.mail.Send(ctx, port.MailKindSecurityAlert, email, payload); err != nil {
		s.logger.Warn("security alert delivery failed",
			zap.String("identity_id", identity.ID),
			zap.Error(err),
		)
	}
}
