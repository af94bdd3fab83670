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
	"github.com/yessinemaalej/armeniancoin-auth/internal/repository"
)

const resendRateLimitScope = "resend_verification"

var (
	// ErrVerifyTokenInvalid indicates the verification token is absent or spent.
	ErrVerifyTokenInvalid = errors.New("verification token invalid")
	// ErrVerifyTokenExpired indicates the verification token is past its ttl.
	ErrVerifyTokenExpired = errors.New("verification token expired")
	// ErrEmailTaken indicates another identity already claims the address.
	ErrEmailTaken = errors.New("email address already in use")
	// ErrEmailAlreadyVerified rejects redundant verification attempts.
	ErrEmailAlreadyVerified = errors.New("email address already verified")
)

// VerificationService manages email ownership proof: issuing verification
// links, redeeming them, and attaching addresses to wallet-only identities.
type VerificationService struct {
	cfg        *config.AppConfig
	identities port.IdentityRepository
	oneTime    *OneTimeTokenService
	rateLimits port.RateLimitStore
	mail       port.MailSender
	events     port.EventPublisher
	logger     *zap.Logger
	now        func() time.Time
}

// NewVerificationService constructs a VerificationService.
func NewVerificationService(
	cfg *config.AppConfig,
	identities port.IdentityRepository,
	oneTime *OneTimeTokenService,
	rateLimits port.RateLimitStore,
	mail port.MailSender,
	events port.EventPublisher,
	log *zap.Logger,
) *VerificationService {
	if log == nil {
		log = zap.NewNop()
	}

	return &VerificationService{
		cfg:        cfg,
		identities: identities,
		oneTime:    oneTime,
		rateLimits: rateLimits,
		mail:       mail,
		events:     events,
		logger:     log,
		now:        time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *VerificationService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// SendVerification issues a verify-email token and mails the link. The
// returned error reports delivery failure; callers that must stay
// enumeration-safe swallow it.
func (s *VerificationService) SendVerification(ctx context.Context, identity *domain.Identity) error {
	email := identity.EmailValue()
	if email == "" {
		return ErrNoEmailOnFile
	}

	issued, err := s.oneTime.Issue(ctx, identity.ID, domain.PurposeVerifyEmail)
	if err != nil {
		return err
	}

	payload := map[string]string{
		"link":       s.verificationLink(issued.Value),
		"expires_at": issued.ExpiresAt.Format(time.RFC3339),
	}

	if err := s.mail.Send(ctx, port.MailKindVerificationLink, email, payload); err != nil {
		s.logger.Error("verification link delivery failed",
			zap.String("identity_id", identity.ID),
			zap.String("email", logger.MaskEmail(email)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}

	return nil
}

// VerifyEmail consumes a verification token and marks the owning identity's
// email as verified.
func (s *VerificationService) VerifyEmail(ctx context.Context, token string) error {
	identityID, err := s.oneTime.Consume(ctx, token, domain.PurposeVerifyEmail)
	if err != nil {
		switch {
		case errors.Is(err, ErrTokenExpired):
			return ErrVerifyTokenExpired
		case errors.Is(err, ErrTokenNotFound):
			return ErrVerifyTokenInvalid
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

	verifiedAt := s.now().UTC()
	if err := s.identities.MarkEmailVerified(ctx, identity.ID, verifiedAt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrIdentityNotFound
		}
		return fmt.Errorf("mark email verified: %w", err)
	}

	s.publishEmailVerified(ctx, identity.ID, identity.EmailValue(), verifiedAt)
	return nil
}

// ResendVerification re-issues the verification link. Enumeration-safe:
// unknown and already-verified addresses report success, and delivery
// failures are swallowed after logging.
func (s *VerificationService) ResendVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}

	now := s.now().UTC()
	if err := s.enforceResendRateLimit(ctx, email, now); err != nil {
		return err
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("verification resend requested for unknown email",
				zap.String("email", logger.MaskEmail(email)))
			return nil
		}
		return fmt.Errorf("lookup identity: %w", err)
	}

	if identity.EmailVerified() {
		return nil
	}

	if err := s.SendVerification(ctx, identity); err != nil && !errors.Is(err, ErrMailDelivery) {
		return err
	}

	return nil
}

// AddEmail attaches an address to an identity that signed up by wallet and
// sends the verification link. Unlike the resend flow, a delivery failure
// here is surfaced so the UI does not claim success.
func (s *VerificationService) AddEmail(ctx context.Context, identityID, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email is required")
	}

	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrIdentityNotFound
		}
		return fmt.Errorf("lookup identity: %w", err)
	}

	if existing, err := s.identities.GetByEmail(ctx, email); err == nil {
		if existing.ID == identity.ID {
			return ErrEmailAlreadyVerified
		}
		return ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("lookup email: %w", err)
	}

	if err := s.identities.SetEmail(ctx, identity.ID, email); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrIdentityNotFound
		}
		return fmt.Errorf("set email: %w", err)
	}

	updated := *identity
	updated.Email = &email

	return s.SendVerification(ctx, &updated)
}

func (s *VerificationService) enforceResendRateLimit(ctx context.Context, email string, now time.Time) error {
	if s.rateLimits == nil || s.cfg == nil {
		return nil
	}

	limit := s.cfg.RateLimit.ResendMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := s.cfg.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Hour
	}

	key := fmt.Sprintf("%s:%s", resendRateLimitScope, normalizeIdentifierKey(email))

	if err := s.rateLimits.TrimWindow(ctx, key, window, now); err != nil {
		s.logger.Warn("resend rate limit trim failed", zap.Error(err))
		return nil
	}

	count, err := s.rateLimits.CountAttempts(ctx, key, window, now)
	if err != nil {
		s.logger.Warn("resend rate limit count failed", zap.Error(err))
		return nil
	}

	if count >= limit {
		return &RateLimitExceededError{Scope: resendRateLimitScope}
	}

	if err := s.rateLimits.RecordAttempt(ctx, key, now); err != nil {
		s.logger.Warn("resend rate limit record failed", zap.Error(err))
	}

	return nil
}

func (s *VerificationService) verificationLink(token string) string {
	base := ""
	if s.cfg != nil {
		base = strings.TrimRight(s.cfg.App.BaseURL, "/")
	}
	return fmt.Sprintf("%s/auth/verify-email?token=%s", base, token)
}

func (s *VerificationService) publishEmailVerified(ctx context.Context, identityID, email string, verifiedAt time.Time) {
	if s.events == nil {
		return
	}

	event := domain.EmailVerifiedEvent{
		EventID:    uuid.NewString(),
		IdentityID: identityID,
		Email:      email,
		VerifiedAt: verifiedAt,
	}

	if err := s.events.PublishEmailVerified(ctx, event); err != nil {
		s.logger.Warn("publish email verified failed",
			zap.String("identity_id", identityID),
			zap.Error(err),
		)
	}
}
