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
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/logger"
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/security"
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/telemetry"
	"github.com/yessinemaalej/armeniancoin-auth/internal/repository"
)

var (
	// ErrIdentityNotFound indicates the referenced identity does not exist.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrInvalidCredentials indicates the password or wallet proof failed.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSecondFactorRequired indicates the identity enforces a second
	// factor and no passing proof accompanied the request.
	ErrSecondFactorRequired = errors.New("second factor required")
)

// SessionService assembles a verified identity and second-factor outcome
// into a signed session assertion, recording the attempt along the way.
type SessionService struct {
	codec      *security.SessionCodec
	identities port.IdentityRepository
	history    port.LoginHistoryRepository
	hasher     port.PasswordHasher
	twoFactor  *TwoFactorService
	events     port.EventPublisher
	metrics    *telemetry.Provider
	logger     *zap.Logger
	now        func() time.Time
}

// SessionResult carries the issued assertion and its claims.
type SessionResult struct {
	Token     string
	ExpiresAt time.Time
	Claims    security.SessionClaims
}

// PasswordLoginInput carries a password sign-in attempt.
type PasswordLoginInput struct {
	Email         string
	Password      string
	TwoFactorCode string
	IP            string
	UserAgent     string
}

// WalletLoginInput carries a wallet sign-in attempt. Signature verification
// happens upstream; the flag reports its outcome.
type WalletLoginInput struct {
	WalletAddress     string
	SignatureVerified bool
	TwoFactorCode     string
	IP                string
	UserAgent         string
}

// NewSessionService constructs a SessionService.
func NewSessionService(
	codec *security.SessionCodec,
	identities port.IdentityRepository,
	history port.LoginHistoryRepository,
	hasher port.PasswordHasher,
	twoFactor *TwoFactorService,
	events port.EventPublisher,
	logger *zap.Logger,
) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SessionService{
		codec:      codec,
		identities: identities,
		history:    history,
		hasher:     hasher,
		twoFactor:  twoFactor,
		events:     events,
		logger:     logger,
		now:        time.Now,
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *SessionService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithTelemetry attaches the metrics provider.
func (s *SessionService) WithTelemetry(provider *telemetry.Provider) *SessionService {
	s.metrics = provider
	return s
}

// LoginWithPassword verifies the password credential, enforces the second
// factor when enabled, and issues a session assertion.
func (s *SessionService) LoginWithPassword(ctx context.Context, input PasswordLoginInput) (*SessionResult, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	identity, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordAttempt(ctx, nil, domain.LoginMethodPassword, false, "unknown email", input.IP, input.UserAgent)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup identity: %w", err)
	}

	if identity.PasswordHash == nil || *identity.PasswordHash == "" {
		s.recordAttempt(ctx, &identity.ID, domain.LoginMethodPassword, false, "no password credential", input.IP, input.UserAgent)
		return nil, ErrInvalidCredentials
	}

	matches, err := s.hasher.Verify(input.Password, *identity.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !matches {
		s.recordAttempt(ctx, &identity.ID, domain.LoginMethodPassword, false, "wrong password", input.IP, input.UserAgent)
		return nil, ErrInvalidCredentials
	}

	return s.assemble(ctx, identity, domain.LoginMethodPassword, input.TwoFactorCode, input.IP, input.UserAgent)
}

// LoginWithWallet issues a session for an identity whose wallet signature
// was verified upstream.
func (s *SessionService) LoginWithWallet(ctx context.Context, input WalletLoginInput) (*SessionResult, error) {
	wallet := strings.TrimSpace(input.WalletAddress)
	if wallet == "" || !input.SignatureVerified {
		return nil, ErrInvalidCredentials
	}

	identity, err := s.identities.GetByWallet(ctx, wallet)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Info("wallet sign-in rejected",
				zap.String("wallet", logger.MaskWallet(wallet)))
			s.recordAttempt(ctx, nil, domain.LoginMethodWallet, false, "unknown wallet", input.IP, input.UserAgent)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup identity: %w", err)
	}

	return s.assemble(ctx, identity, domain.LoginMethodWallet, input.TwoFactorCode, input.IP, input.UserAgent)
}

// assemble runs the post-verification pipeline shared by both methods:
// second-factor gate, claims mapping, history append, last-login update,
// event publish. Claims snapshot the identity at issuance; later role or
// email changes do not alter an already-issued assertion.
func (s *SessionService) assemble(ctx context.Context, identity *domain.Identity, method domain.LoginMethod, twoFactorCode, ip, userAgent string) (*SessionResult, error) {
	if identity.TwoFactorEnabled {
		code := strings.TrimSpace(twoFactorCode)
		if code == "" {
			s.recordAttempt(ctx, &identity.ID, method, false, "second factor missing", ip, userAgent)
			return nil, ErrSecondFactorRequired
		}
		if err := s.verifySecondFactor(ctx, identity.ID, code); err != nil {
			s.recordAttempt(ctx, &identity.ID, method, false, "second factor failed", ip, userAgent)
			return nil, err
		}
	}

	claims := security.SessionClaims{
		IdentityID: identity.ID,
		Role:       identity.Role,
	}
	if email := identity.EmailValue(); email != "" {
		claims.Email = email
	}
	if wallet := identity.WalletValue(); wallet != "" {
		claims.WalletAddress = wallet
	}

	token, err := s.codec.Issue(claims, 0)
	if err != nil {
		return nil, fmt.Errorf("issue session assertion: %w", err)
	}

	verified, err := s.codec.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("verify issued assertion: %w", err)
	}

	now := s.now().UTC()
	s.recordAttempt(ctx, &identity.ID, method, true, "", ip, userAgent)

	if err := s.identities.UpdateLastLogin(ctx, identity.ID, now); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("update last login failed", zap.String("identity_id", identity.ID), zap.Error(err))
	}

	return &SessionResult{
		Token:     token,
		ExpiresAt: verified.ExpiresAt.Time,
		Claims:    *verified,
	}, nil
}

// verifySecondFactor accepts a TOTP or backup code first, then falls back to
// a pending email code.
func (s *SessionService) verifySecondFactor(ctx context.Context, identityID, code string) error {
	if s.twoFactor == nil {
		return ErrSecondFactorRequired
	}

	if err := s.twoFactor.VerifyCode(ctx, identityID, code); err == nil {
		return nil
	} else if !errors.Is(err, ErrInvalidCode) && !errors.Is(err, ErrTwoFactorNotConfigured) {
		return err
	}

	if err := s.twoFactor.VerifyEmailCode(ctx, identityID, code); err != nil {
		if errors.Is(err, ErrInvalidCode) {
			return ErrInvalidCode
		}
		return err
	}

	return nil
}

func (s *SessionService) recordAttempt(ctx context.Context, identityID *string, method domain.LoginMethod, succeeded bool, reason, ip, userAgent string) {
	now := s.now().UTC()

	outcome := "success"
	if !succeeded {
		outcome = "failure"
	}
	s.metrics.RecordLogin(string(method), outcome)

	entry := domain.LoginHistoryEntry{
		ID:         uuid.NewString(),
		IdentityID: identityID,
		Method:     method,
		IP:         stringPtrOrNil(ip),
		UserAgent:  stringPtrOrNil(userAgent),
		Succeeded:  succeeded,
		CreatedAt:  now,
	}
	if reason != "" {
		entry.FailureReason = stringPtr(reason)
	}

	if s.history != nil {
		if err := s.history.Append(ctx, entry); err != nil {
			s.logger.Warn("append login history failed", zap.Error(err))
		}
	}

	if s.events != nil {
		event := domain.LoginRecordedEvent{
			EventID:    uuid.NewString(),
			IdentityID: identityID,
			Method:     method,
			Succeeded:  succeeded,
			IPAddress:  stringPtrOrNil(ip),
			OccurredAt: now,
		}
		if reason != "" {
			event.Reason = stringPtr(reason)
		}
		if err := s.events.PublishLoginRecorded(ctx, event); err != nil {
			s.logger.Warn("publish login recorded failed", zap.Error(err))
		}
	}
}
