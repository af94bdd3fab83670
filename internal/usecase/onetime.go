package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/domain"
	"github.com/yessinemaalej/armeniancoin-auth/internal/core/port"
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/config"
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/security"
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/telemetry"
	"github.com/yessinemaalej/armeniancoin-auth/internal/repository"
)

const oneTimeTokenBytes = 32

var (
	// ErrTokenNotFound indicates the presented token does not exist for the
	// requested purpose. A token presented under the wrong purpose reports
	// the same error.
	ErrTokenNotFound = errors.New("one-time token not found")
	// ErrTokenExpired indicates the token existed but its lifetime has passed.
	ErrTokenExpired = errors.New("one-time token expired")
)

// OneTimeTokenService issues and consumes single-use, expiring tokens scoped
// per identity and purpose. At most one live token exists per (identity,
// purpose) pair: issuing supersedes, never appends.
type OneTimeTokenService struct {
	tokens  port.OneTimeTokenRepository
	metrics *telemetry.Provider
	logger  *zap.Logger
	now     func() time.Time
	ttls    config.TokenSettings

	// locks serializes issuance per (identity, purpose) so two concurrent
	// calls cannot both observe no live token and each create one. The
	// repository delete+insert runs in one transaction; this guard covers
	// stores without that guarantee and keeps the invariant local.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// IssuedToken carries the raw value handed to the caller exactly once. Only
// the hash is persisted.
type IssuedToken struct {
	Value     string
	ExpiresAt time.Time
}

// NewOneTimeTokenService constructs a OneTimeTokenService.
func NewOneTimeTokenService(tokens port.OneTimeTokenRepository, ttls config.TokenSettings, logger *zap.Logger) *OneTimeTokenService {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &OneTimeTokenService{
		tokens: tokens,
		logger: logger,
		now:    time.Now,
		ttls:   ttls,
		locks:  make(map[string]*sync.Mutex),
	}
}

// WithClock allows tests to override the clock used by the service.
func (s *OneTimeTokenService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// WithTelemetry attaches the metrics provider.
func (s *OneTimeTokenService) WithTelemetry(provider *telemetry.Provider) *OneTimeTokenService {
	s.metrics = provider
	return s
}

// Issue generates a fresh opaque token for the identity and purpose,
// superseding any live tokens of the same purpose.
func (s *OneTimeTokenService) Issue(ctx context.Context, identityID string, purpose domain.TokenPurpose) (*IssuedToken, error) {
	raw, err := security.GenerateSecureToken(oneTimeTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate one-time token: %w", err)
	}

	return s.IssueValue(ctx, identityID, purpose, raw)
}

// IssueValue stores a caller-provided raw value under the identity and
// purpose. Used for numeric email codes where the value shape is fixed.
func (s *OneTimeTokenService) IssueValue(ctx context.Context, identityID string, purpose domain.TokenPurpose, raw string) (*IssuedToken, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return nil, fmt.Errorf("identity id is required")
	}
	if !purpose.Valid() {
		return nil, fmt.Errorf("unknown token purpose: %s", purpose)
	}
	if raw == "" {
		return nil, fmt.Errorf("token value is required")
	}

	lock := s.issueLock(identityID, purpose)
	lock.Lock()
	defer lock.Unlock()

	now := s.now().UTC()
	expiresAt := now.Add(s.ttl(purpose))

	token := domain.OneTimeToken{
		ID:         uuid.NewString(),
		IdentityID: identityID,
		TokenHash:  security.HashToken(raw),
		Purpose:    purpose,
		CreatedAt:  now,
		ExpiresAt:  expiresAt,
	}

	if err := s.tokens.Replace(ctx, token); err != nil {
		return nil, fmt.Errorf("store one-time token: %w", err)
	}

	s.metrics.RecordTokenIssued(string(purpose))

	return &IssuedToken{Value: raw, ExpiresAt: expiresAt}, nil
}

// Consume redeems a raw token under the given purpose. On success the token
// is deleted before the identity id is returned, so a second presentation of
// the same value fails with ErrTokenNotFound. Expired tokens are deleted on
// access and reported as ErrTokenExpired.
func (s *OneTimeTokenService) Consume(ctx context.Context, raw string, purpose domain.TokenPurpose) (string, error) {
	token, err := s.lookup(ctx, raw, purpose)
	if err != nil {
		return "", err
	}

	if token.IsExpired(s.now().UTC()) {
		s.deleteLazily(ctx, token.ID)
		return "", ErrTokenExpired
	}

	if err := s.tokens.Delete(ctx, token.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// A concurrent consume won the race; the token is spent.
			return "", ErrTokenNotFound
		}
		return "", fmt.Errorf("consume one-time token: %w", err)
	}

	return token.IdentityID, nil
}

// ConsumeFor redeems a raw token only when it belongs to identityID. A live
// token owned by another identity is left untouched and reported as not
// found, so presenting a guessed value can never invalidate the owner's copy.
func (s *OneTimeTokenService) ConsumeFor(ctx context.Context, identityID, raw string, purpose domain.TokenPurpose) error {
	token, err := s.lookup(ctx, raw, purpose)
	if err != nil {
		return err
	}

	if token.IdentityID != identityID {
		return ErrTokenNotFound
	}

	if token.IsExpired(s.now().UTC()) {
		s.deleteLazily(ctx, token.ID)
		return ErrTokenExpired
	}

	if err := s.tokens.Delete(ctx, token.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// A concurrent consume won the race; the token is spent.
			return ErrTokenNotFound
		}
		return fmt.Errorf("consume one-time token: %w", err)
	}

	return nil
}

// Inspect reports whether a raw token is live without consuming it,
// distinguishing expired from absent for user messaging.
func (s *OneTimeTokenService) Inspect(ctx context.Context, raw string, purpose domain.TokenPurpose) (string, error) {
	token, err := s.lookup(ctx, raw, purpose)
	if err != nil {
		return "", err
	}

	if token.IsExpired(s.now().UTC()) {
		s.deleteLazily(ctx, token.ID)
		return "", ErrTokenExpired
	}

	return token.IdentityID, nil
}

// Revoke removes every live token of a purpose for an identity.
func (s *OneTimeTokenService) Revoke(ctx context.Context, identityID string, purpose domain.TokenPurpose) error {
	if err := s.tokens.DeleteForIdentity(ctx, identityID, purpose); err != nil {
		return fmt.Errorf("revoke one-time tokens: %w", err)
	}
	return nil
}

func (s *OneTimeTokenService) lookup(ctx context.Context, raw string, purpose domain.TokenPurpose) (*domain.OneTimeToken, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrTokenNotFound
	}
	if !purpose.Valid() {
		return nil, ErrTokenNotFound
	}

	token, err := s.tokens.GetByHash(ctx, security.HashToken(raw), purpose)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("lookup one-time token: %w", err)
	}

	return token, nil
}

func (s *OneTimeTokenService) deleteLazily(ctx context.Context, id string) {
	if err := s.tokens.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		s.logger.Warn("delete expired token failed", zap.String("token_id", id), zap.Error(err))
	}
}

func (s *OneTimeTokenService) issueLock(identityID string, purpose domain.TokenPurpose) *sync.Mutex {
	key := identityID + ":" + string(purpose)

	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

func (s *OneTimeTokenService) ttl(purpose domain.TokenPurpose) time.Duration {
	switch purpose {
	case domain.PurposeResetPassword:
		if s.ttls.ResetPasswordTTL > 0 {
			return s.ttls.ResetPasswordTTL
		}
	case domain.PurposeVerifyEmail:
		if s.ttls.VerifyEmailTTL > 0 {
			return s.ttls.VerifyEmailTTL
		}
	case domain.PurposeTwoFactorEmail:
		if s.ttls.TwoFactorEmailTTL > 0 {
			return s.ttls.TwoFactorEmailTTL
		}
	}
	return purpose.DefaultTTL()
}
