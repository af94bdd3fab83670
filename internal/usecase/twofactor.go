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
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/telemetry"
	"github.com/yessinemaalej/armeniancoin-auth/internal/repository"
)

const defaultBackupCodeCount = 8

var (
	// ErrInvalidCode indicates the supplied TOTP, backup, or email code did
	// not verify. Credential state is never altered on this error.
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrNoEmailOnFile indicates the identity has no email address to
	// deliver a code to. No token is issued.
	ErrNoEmailOnFile = errors.New("no email address on file")
	// ErrMailDelivery indicates the code was stored but the mail collaborator
	// failed, so the UI must not claim success.
	ErrMailDelivery = errors.New("mail delivery failed")
	// ErrTwoFactorNotConfigured indicates no credential exists for the identity.
	ErrTwoFactorNotConfigured = errors.New("two-factor authentication not configured")
	// ErrTwoFactorAlreadyEnabled rejects setup while a credential is enabled.
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor authentication already enabled")
)

// TwoFactorService manages the per-identity second-factor state machine:
// setup creates a pending credential, a correct proof enables it, and a
// second correct proof disables it and clears all secrets.
type TwoFactorService struct {
	identities    port.IdentityRepository
	secondFactors port.SecondFactorRepository
	oneTime       *OneTimeTokenService
	mail          port.MailSender
	events        port.EventPublisher
	metrics       *telemetry.Provider
	logger        *zap.Logger
	now           func() time.Time
	issuer        string
	codeCount     int
}

// TwoFactorSetupResult carries enrollment material shown to the user once.
type TwoFactorSetupResult struct {
	Secret        string
	EnrollmentURI string
	BackupCodes   []string
}

// NewTwoFactorService constructs a TwoFactorService.
func NewTwoFactorService(
	identities port.IdentityRepository,
	secondFactors port.SecondFactorRepository,
	oneTime *OneTimeTokenService,
	mail port.MailSender,
	events port.EventPublisher,
	cfg config.TwoFactorSettings,
	log *zap.Logger,
) *TwoFactorService {
	if log == nil {
		log = zap.NewNop()
	}

	codeCount := cfg.BackupCodeCount
	if codeCount <= 0 {
		codeCount = defaultBackupCodeCount
	}

	return &TwoFactorService{
		identities:    identities,
		secondFactors: secondFactors,
		oneTime:       oneTime,
		mail:          mail,
		events:        events,
		logger:        log,
		now:           time.Now,
		issuer:        cfg.Issuer,
		codeCount:     codeCount,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *TwoFactorService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithTelemetry attaches the metrics provider.
func (s *TwoFactorService) WithTelemetry(provider *telemetry.Provider) *TwoFactorService {
	s.metrics = provider
	return s
}

// Setup generates a fresh secret and backup codes and stores them as a
// pending credential. Enabled stays false until Enable proves possession.
// Re-running setup while pending replaces the previous material.
func (s *TwoFactorService) Setup(ctx context.Context, identityID string) (*TwoFactorSetupResult, error) {
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("lookup identity: %w", err)
	}

	if existing, err := s.secondFactors.Get(ctx, identityID); err == nil && existing.Enabled {
		return nil, ErrTwoFactorAlreadyEnabled
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("lookup second factor: %w", err)
	}

	secret, err := security.GenerateTOTPSecret()
	if err != nil {
		return nil, fmt.Errorf("generate totp secret: %w", err)
	}

	codes, err := security.GenerateBackupCodes(s.codeCount)
	if err != nil {
		return nil, fmt.Errorf("generate backup codes: %w", err)
	}

	hashes := make([]string, 0, len(codes))
	for _, code := range codes {
		hashes = append(hashes, security.HashBackupCode(security.NormalizeBackupCode(code)))
	}

	now := s.now().UTC()
	credential := domain.SecondFactorCredential{
		IdentityID:       identityID,
		Secret:           secret,
		Enabled:          false,
		BackupCodeHashes: hashes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.secondFactors.Upsert(ctx, credential); err != nil {
		return nil, fmt.Errorf("store second factor: %w", err)
	}

	account := identity.EmailValue()
	if account == "" {
		account = identity.WalletValue()
	}

	return &TwoFactorSetupResult{
		Secret:        secret,
		EnrollmentURI: security.EnrollmentURI(s.issuer, account, secret),
		BackupCodes:   codes,
	}, nil
}

// Enable finalizes enrollment after the caller proves possession of the
// pending secret with a current TOTP code.
func (s *TwoFactorService) Enable(ctx context.Context, identityID, code string) error {
	credential, err := s.getCredential(ctx, identityID)
	if err != nil {
		return err
	}

	if credential.Enabled {
		return ErrTwoFactorAlreadyEnabled
	}

	if !security.ValidateTOTP(credential.Secret, strings.TrimSpace(code), s.now()) {
		return ErrInvalidCode
	}

	if err := s.secondFactors.SetEnabled(ctx, identityID, true); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTwoFactorNotConfigured
		}
		return fmt.Errorf("enable second factor: %w", err)
	}

	if err := s.identities.SetTwoFactorEnabled(ctx, identityID, true); err != nil {
		return fmt.Errorf("flag identity two factor: %w", err)
	}

	s.publishStateChanged(ctx, identityID, domain.SecondFactorEnabled)
	return nil
}

// Disable requires a currently valid TOTP or backup code, then deletes the
// secret and all backup codes. The state returns to none; re-setup starts
// fresh.
func (s *TwoFactorService) Disable(ctx context.Context, identityID, proof string) error {
	credential, err := s.getCredential(ctx, identityID)
	if err != nil {
		return err
	}

	if !s.proveCode(ctx, credential, proof) {
		return ErrInvalidCode
	}

	if err := s.secondFactors.Delete(ctx, identityID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("delete second factor: %w", err)
	}

	if err := s.identities.SetTwoFactorEnabled(ctx, identityID, false); err != nil {
		return fmt.Errorf("unflag identity two factor: %w", err)
	}

	s.publishStateChanged(ctx, identityID, domain.SecondFactorNone)
	return nil
}

// VerifyCode checks a TOTP or backup code during sign-in. A matching backup
// code is consumed and never verifies again.
func (s *TwoFactorService) VerifyCode(ctx context.Context, identityID, code string) error {
	credential, err := s.getCredential(ctx, identityID)
	if err != nil {
		return err
	}

	if !credential.Enabled {
		return ErrTwoFactorNotConfigured
	}

	if !s.proveCode(ctx, credential, code) {
		s.metrics.RecordTwoFactorChallenge("totp", "failure")
		return ErrInvalidCode
	}

	s.metrics.RecordTwoFactorChallenge("totp", "success")
	return nil
}

// SendEmailCode issues a 6-digit code under the 2fa-email-code purpose and
// hands it to the mail collaborator. A delivery failure is surfaced as
// ErrMailDelivery; the stored code stays live until consumed or expired.
func (s *TwoFactorService) SendEmailCode(ctx context.Context, identityID string) error {
	identity, err := s.identities.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrIdentityNotFound
		}
		return fmt.Errorf("lookup identity: %w", err)
	}

	email := identity.EmailValue()
	if email == "" {
		return ErrNoEmailOnFile
	}

	code, err := security.GenerateTwoFactorCode()
	if err != nil {
		return fmt.Errorf("generate email code: %w", err)
	}

	issued, err := s.oneTime.IssueValue(ctx, identityID, domain.PurposeTwoFactorEmail, code)
	if err != nil {
		return err
	}

	payload := map[string]string{
		"code":       code,
		"expires_at": issued.ExpiresAt.Format(time.RFC3339),
	}

	if err := s.mail.Send(ctx, port.MailKindTwoFactorCode, email, payload); err != nil {
		s.logger.Error("two factor email delivery failed",
			zap.String("identity_id", identityID),
			zap.String("email", logger.MaskEmail(email)),
			zap.Error(err),
		)
		return fmt.Errorf("%w: %v", ErrMailDelivery, err)
	}

	return nil
}

// VerifyEmailCode redeems a code previously sent by SendEmailCode. The code
// is single-use; a second presentation fails. Consumption is scoped to the
// identity, so another identity's live code survives a mismatched attempt.
func (s *TwoFactorService) VerifyEmailCode(ctx context.Context, identityID, code string) error {
	err := s.oneTime.ConsumeFor(ctx, identityID, strings.TrimSpace(code), domain.PurposeTwoFactorEmail)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) || errors.Is(err, ErrTokenExpired) {
			s.metrics.RecordTwoFactorChallenge("email", "failure")
			return ErrInvalidCode
		}
		return err
	}

	s.metrics.RecordTwoFactorChallenge("email", "success")
	return nil
}

func (s *TwoFactorService) getCredential(ctx context.Context, identityID string) (*domain.SecondFactorCredential, error) {
	credential, err := s.secondFactors.Get(ctx, identityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTwoFactorNotConfigured
		}
		return nil, fmt.Errorf("lookup second factor: %w", err)
	}
	return credential, nil
}

// proveCode accepts either a current TOTP code or an unused backup code.
func (s *TwoFactorService) proveCode(ctx context.Context, credential *domain.SecondFactorCredential, code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}

	if security.ValidateTOTP(credential.Secret, code, s.now()) {
		return true
	}

	hash := security.HashBackupCode(security.NormalizeBackupCode(code))
	err := s.secondFactors.ConsumeBackupCode(ctx, credential.IdentityID, hash)
	if err == nil {
		return true
	}
	if !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("consume backup code failed",
			zap.String("identity_id", credential.IdentityID),
			zap.Error(err),
		)
	}
	return false
}

func (s *TwoFactorService) publishStateChanged(ctx context.Context, identityID string, state domain.SecondFactorState) {
	if s.events == nil {
		return
	}

	event := domain.TwoFactorStateChangedEvent{
		EventID:    uuid.NewString(),
		IdentityID: identityID,
		State:      state,
		ChangedAt:  s.now().UTC(),
	}

	if err := s.events.PublishTwoFactorStateChanged(ctx, event); err != nil {
		s.logger.Warn("publish two factor state changed failed",
			zap.String("identity_id", identityID),
			zap.Error(err),
		)
	}
}
