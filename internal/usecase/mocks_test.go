package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/domain"
	"github.com/yessinemaalej/armeniancoin-auth/internal/core/port"
	"github.com/yessinemaalej/armeniancoin-auth/internal/repository"
)

// identityRepoMock is an in-memory port.IdentityRepository.
type identityRepoMock struct {
	mu         sync.Mutex
	identities map[string]domain.Identity
}

func newIdentityRepoMock(identities ...domain.Identity) *identityRepoMock {
	m := &identityRepoMock{identities: make(map[string]domain.Identity)}
	for _, identity := range identities {
		m.identities[identity.ID] = identity
	}
	return m
}

func (m *identityRepoMock) Create(_ context.Context, identity domain.Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.identities[identity.ID] = identity
	return nil
}

func (m *identityRepoMock) GetByID(_ context.Context, id string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if identity, ok := m.identities[id]; ok {
		copied := identity
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (m *identityRepoMock) GetByEmail(_ context.Context, email string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	needle := strings.ToLower(strings.TrimSpace(email))
	for _, identity := range m.identities {
		if identity.Email != nil && strings.ToLower(*identity.Email) == needle {
			copied := identity
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *identityRepoMock) GetByWallet(_ context.Context, wallet string) (*domain.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, identity := range m.identities {
		if identity.WalletAddress != nil && *identity.WalletAddress == wallet {
			copied := identity
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *identityRepoMock) UpdatePassword(_ context.Context, id, passwordHash string, changedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.identities[id]
	if !ok {
		return repository.ErrNotFound
	}
	identity.PasswordHash = &passwordHash
	m.identities[id] = identity
	return nil
}

func (m *identityRepoMock) SetEmail(_ context.Context, id, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.identities[id]
	if !ok {
		return repository.ErrNotFound
	}
	lowered := strings.ToLower(strings.TrimSpace(email))
	identity.Email = &lowered
	identity.EmailVerifiedAt = nil
	m.identities[id] = identity
	return nil
}

func (m *identityRepoMock) MarkEmailVerified(_ context.Context, id string, verifiedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.identities[id]
	if !ok {
		return repository.ErrNotFound
	}
	identity.EmailVerifiedAt = &verifiedAt
	m.identities[id] = identity
	return nil
}

func (m *identityRepoMock) SetTwoFactorEnabled(_ context.Context, id string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.identities[id]
	if !ok {
		return repository.ErrNotFound
	}
	identity.TwoFactorEnabled = enabled
	m.identities[id] = identity
	return nil
}

func (m *identityRepoMock) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	identity, ok := m.identities[id]
	if !ok {
		return repository.ErrNotFound
	}
	identity.LastLoginAt = &at
	m.identities[id] = identity
	return nil
}

func (m *identityRepoMock) get(id string) domain.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identities[id]
}

// tokenRepoMock is an in-memory port.OneTimeTokenRepository honoring the
// supersede-on-replace contract.
type tokenRepoMock struct {
	mu     sync.Mutex
	tokens map[string]domain.OneTimeToken
}

func newTokenRepoMock() *tokenRepoMock {
	return &tokenRepoMock{tokens: make(map[string]domain.OneTimeToken)}
}

func (m *tokenRepoMock) Replace(_ context.Context, token domain.OneTimeToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.tokens {
		if existing.IdentityID == token.IdentityID && existing.Purpose == token.Purpose {
			delete(m.tokens, id)
		}
	}
	m.tokens[token.ID] = token
	return nil
}

func (m *tokenRepoMock) GetByHash(_ context.Context, hash string, purpose domain.TokenPurpose) (*domain.OneTimeToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, token := range m.tokens {
		if token.TokenHash == hash && token.Purpose == purpose {
			copied := token
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *tokenRepoMock) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tokens[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.tokens, id)
	return nil
}

func (m *tokenRepoMock) DeleteForIdentity(_ context.Context, identityID string, purpose domain.TokenPurpose) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, token := range m.tokens {
		if token.IdentityID == identityID && token.Purpose == purpose {
			delete(m.tokens, id)
		}
	}
	return nil
}

func (m *tokenRepoMock) count(identityID string, purpose domain.TokenPurpose) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, token := range m.tokens {
		if token.IdentityID == identityID && token.Purpose == purpose {
			n++
		}
	}
	return n
}

// secondFactorRepoMock is an in-memory port.SecondFactorRepository.
type secondFactorRepoMock struct {
	mu          sync.Mutex
	credentials map[string]domain.SecondFactorCredential
}

func newSecondFactorRepoMock() *secondFactorRepoMock {
	return &secondFactorRepoMock{credentials: make(map[string]domain.SecondFactorCredential)}
}

func (m *secondFactorRepoMock) Get(_ context.Context, identityID string) (*domain.SecondFactorCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if credential, ok := m.credentials[identityID]; ok {
		copied := credential
		copied.BackupCodeHashes = append([]string(nil), credential.BackupCodeHashes...)
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (m *secondFactorRepoMock) Upsert(_ context.Context, credential domain.SecondFactorCredential) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials[credential.IdentityID] = credential
	return nil
}

func (m *secondFactorRepoMock) SetEnabled(_ context.Context, identityID string, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	credential, ok := m.credentials[identityID]
	if !ok {
		return repository.ErrNotFound
	}
	credential.Enabled = enabled
	m.credentials[identityID] = credential
	return nil
}

func (m *secondFactorRepoMock) ConsumeBackupCode(_ context.Context, identityID, codeHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	credential, ok := m.credentials[identityID]
	if !ok {
		return repository.ErrNotFound
	}
	for i, hash := range credential.BackupCodeHashes {
		if hash == codeHash {
			credential.BackupCodeHashes = append(credential.BackupCodeHashes[:i], credential.BackupCodeHashes[i+1:]...)
			m.credentials[identityID] = credential
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *secondFactorRepoMock) Delete(_ context.Context, identityID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.credentials[identityID]; !ok {
		return repository.ErrNotFound
	}
	delete(m.credentials, identityID)
	return nil
}

// historyMock records appended login history entries.
type historyMock struct {
	mu      sync.Mutex
	entries []domain.LoginHistoryEntry
}

func (m *historyMock) Append(_ context.Context, entry domain.LoginHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	return nil
}

func (m *historyMock) last() *domain.LoginHistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return nil
	}
	entry := m.entries[len(m.entries)-1]
	return &entry
}

// mailMock captures outbound notifications; fail makes every send error.
type mailMock struct {
	mu    sync.Mutex
	fail  error
	sends []mailSendCall
}

type mailSendCall struct {
	kind    port.MailKind
	address string
	payload map[string]string
}

func (m *mailMock) Send(_ context.Context, kind port.MailKind, address string, payload map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sends = append(m.sends, mailSendCall{kind: kind, address: address, payload: payload})
	return nil
}

func (m *mailMock) lastSend() *mailSendCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sends) == 0 {
		return nil
	}
	call := m.sends[len(m.sends)-1]
	return &call
}

// eventsMock records published security events.
type eventsMock struct {
	mu         sync.Mutex
	logins     []domain.LoginRecordedEvent
	passwords  []domain.PasswordChangedEvent
	emails     []domain.EmailVerifiedEvent
	twoFactors []domain.TwoFactorStateChangedEvent
}

func (m *eventsMock) PublishLoginRecorded(_ context.Context, event domain.LoginRecordedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logins = append(m.logins, event)
	return nil
}

func (m *eventsMock) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passwords = append(m.passwords, event)
	return nil
}

func (m *eventsMock) PublishEmailVerified(_ context.Context, event domain.EmailVerifiedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails = append(m.emails, event)
	return nil
}

func (m *eventsMock) PublishTwoFactorStateChanged(_ context.Context, event domain.TwoFactorStateChangedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.twoFactors = append(m.twoFactors, event)
	return nil
}

// rateLimitMock is a minimal in-memory sliding window store.
type rateLimitMock struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

func newRateLimitMock() *rateLimitMock {
	return &rateLimitMock{attempts: make(map[string][]time.Time)}
}

func (m *rateLimitMock) RecordAttempt(_ context.Context, identifier string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attempts[identifier] = append(m.attempts[identifier], at)
	return nil
}

func (m *rateLimitMock) CountAttempts(_ context.Context, identifier string, window time.Duration, at time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, attempt := range m.attempts[identifier] {
		if attempt.After(at.Add(-window)) {
			count++
		}
	}
	return count, nil
}

func (m *rateLimitMock) TrimWindow(_ context.Context, identifier string, window time.Duration, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.attempts[identifier][:0]
	for _, attempt := range m.attempts[identifier] {
		if attempt.After(at.Add(-window)) {
			kept = append(kept, attempt)
		}
	}
	m.attempts[identifier] = kept
	return nil
}

func (m *rateLimitMock) OldestAttempt(_ context.Context, identifier string, window time.Duration, at time.Time) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var oldest time.Time
	found := false
	for _, attempt := range m.attempts[identifier] {
		if !attempt.After(at.Add(-window)) {
			continue
		}
		if !found || attempt.Before(oldest) {
			oldest = attempt
			found = true
		}
	}
	return oldest, found, nil
}

// hasherMock verifies by plain comparison against "hash:" + plaintext.
type hasherMock struct{}

func (hasherMock) Hash(plaintext string) (string, error) {
	return "hash:" + plaintext, nil
}

func (hasherMock) Verify(plaintext, digest string) (bool, error) {
	return digest == "hash:"+plaintext, nil
}

func strPtr(s string) *string { return &s }
