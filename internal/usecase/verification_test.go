package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/domain"
	"github.com/yessinemaalej/armeniancoin-auth/internal/core/port"
	"github.com/yessinemaalej/armeniancoin-auth/internal/infra/config"
)

type verificationFixture struct {
	svc        *VerificationService
	identities *identityRepoMock
	tokens     *tokenRepoMock
	limits     *rateLimitMock
	mail       *mailMock
	events     *eventsMock
	oneTime    *OneTimeTokenService
	now        time.Time
}

func newVerificationFixture(t *testing.T, identities ...domain.Identity) *verificationFixture {
	t.Helper()

	f := &verificationFixture{
		identities: newIdentityRepoMock(identities...),
		tokens:     newTokenRepoMock(),
		limits:     newRateLimitMock(),
		mail:       &mailMock{},
		events:     &eventsMock{},
		now:        time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	cfg := &config.AppConfig{
		App: config.AppSettings{BaseURL: "https://armeniancoin.example.com"},
		RateLimit: config.RateLimitSettings{
			WindowDuration:    time.Hour,
			ResendMaxAttempts: 3,
		},
	}

	f.oneTime = NewOneTimeTokenService(f.tokens, config.TokenSettings{}, nil)
	f.oneTime.WithClock(func() time.Time { return f.now })

	f.svc = NewVerificationService(cfg, f.identities, f.oneTime, f.limits, f.mail, f.events, nil)
	f.svc.WithClock(func() time.Time { return f.now })

	return f
}

func TestSendVerificationMailsLink(t *testing.T) {
	identity := testIdentity("identity-1")
	f := newVerificationFixture(t, identity)

	if err := f.svc.SendVerification(context.Background(), &identity); err != nil {
		t.Fatalf("SendVerification returned error: %v", err)
	}

	sent := f.mail.lastSend()
	if sent == nil || sent.kind != port.MailKindVerificationLink {
		t.Fatalf("expected verification link mail, got %+v", sent)
	}
	if sent.address != "identity-1@example.com" {
		t.Fatalf("unexpected recipient: %s", sent.address)
	}
	link := sent.payload["link"]
	if !strings.HasPrefix(link, "https://armeniancoin.example.com/auth/verify-email?token=") {
		t.Fatalf("unexpected verification link: %s", link)
	}
}

func TestSendVerificationWithoutEmail(t *testing.T) {
	wallet := "0xabc"
	identity := domain.Identity{ID: "identity-1", WalletAddress: &wallet}
	f := newVerificationFixture(t, identity)

	if err := f.svc.SendVerification(context.Background(), &identity); !errors.Is(err, ErrNoEmailOnFile) {
		t.Fatalf("expected ErrNoEmailOnFile, got %v", err)
	}
}

func TestSendVerificationDeliveryFailure(t *testing.T) {
	identity := testIdentity("identity-1")
	f := newVerificationFixture(t, identity)
	f.mail.fail = errors.New("smtp unreachable")

	if err := f.svc.SendVerification(context.Background(), &identity); !errors.Is(err, ErrMailDelivery) {
		t.Fatalf("expected ErrMailDelivery, got %v", err)
	}
}

func TestVerifyEmailHappyPath(t *testing.T) {
	f := newVerificationFixture(t, testIdentity("identity-1"))
	ctx := context.Background()

	issued, err := f.oneTime.Issue(ctx, "identity-1", domain.PurposeVerifyEmail)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if err := f.svc.VerifyEmail(ctx, issued.Value); err != nil {
		t.Fatalf("VerifyEmail returned error: %v", err)
	}

	identity := f.identities.get("identity-1")
	if identity.EmailVerifiedAt == nil || !identity.EmailVerifiedAt.Equal(f.now) {
		t.Fatalf("expected verified timestamp %v, got %v", f.now, identity.EmailVerifiedAt)
	}

	if len(f.events.emails) != 1 {
		t.Fatalf("expected one email verified event, got %d", len(f.events.emails))
	}
	if f.events.emails[0].Email != "identity-1@example.com" {
		t.Fatalf("unexpected event email: %s", f.events.emails[0].Email)
	}

	// The token is spent.
	if err := f.svc.VerifyEmail(ctx, issued.Value); !errors.Is(err, ErrVerifyTokenInvalid) {
		t.Fatalf("expected ErrVerifyTokenInvalid on reuse, got %v", err)
	}
}

func TestVerifyEmailBadToken(t *testing.T) {
	f := newVerificationFixture(t, testIdentity("identity-1"))

	if err := f.svc.VerifyEmail(context.Background(), "never-issued"); !errors.Is(err, ErrVerifyTokenInvalid) {
		t.Fatalf("expected ErrVerifyTokenInvalid, got %v", err)
	}
}

func TestVerifyEmailExpiredToken(t *testing.T) {
	f := newVerificationFixture(t, testIdentity("identity-1"))
	ctx := context.Background()

	issued, err := f.oneTime.Issue(ctx, "identity-1", domain.PurposeVerifyEmail)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	f.now = f.now.Add(domain.PurposeVerifyEmail.DefaultTTL() + time.Minute)

	if err := f.svc.VerifyEmail(ctx, issued.Value); !errors.Is(err, ErrVerifyTokenExpired) {
		t.Fatalf("expected ErrVerifyTokenExpired, got %v", err)
	}
}

func TestResendVerificationMailsUnverifiedIdentity(t *testing.T) {
	f := newVerificationFixture(t, testIdentity("identity-1"))

	if err := f.svc.ResendVerification(context.Background(), "identity-1@example.com"); err != nil {
		t.Fatalf("ResendVerification returned error: %v", err)
	}
	if sent := f.mail.lastSend(); sent == nil || sent.kind != port.MailKindVerificationLink {
		t.Fatalf("expected verification mail, got %+v", sent)
	}
}

func TestResendVerificationUnknownEmailReportsSuccess(t *testing.T) {
	f := newVerificationFixture(t)

	if err := f.svc.ResendVerification(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("unknown email must not error: %v", err)
	}
	if f.mail.lastSend() != nil {
		t.Fatal("no mail should be sent for unknown email")
	}
}

func TestResendVerificationAlreadyVerifiedReportsSuccess(t *testing.T) {
	identity := testIdentity("identity-1")
	verifiedAt := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	identity.EmailVerifiedAt = &verifiedAt
	f := newVerificationFixture(t, identity)

	if err := f.svc.ResendVerification(context.Background(), "identity-1@example.com"); err != nil {
		t.Fatalf("already verified must not error: %v", err)
	}
	if f.mail.lastSend() != nil {
		t.Fatal("no mail should be sent for a verified address")
	}
}

func TestResendVerificationSwallowsDeliveryFailure(t *testing.T) {
	f := newVerificationFixture(t, testIdentity("identity-1"))
	f.mail.fail = errors.New("smtp unreachable")

	if err := f.svc.ResendVerification(context.Background(), "identity-1@example.com"); err != nil {
		t.Fatalf("delivery failure must not surface: %v", err)
	}
}

func TestResendVerificationRateLimited(t *testing.T) {
	f := newVerificationFixture(t, testIdentity("identity-1"))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := f.svc.ResendVerification(ctx, "identity-1@example.com"); err != nil {
			t.Fatalf("request %d returned error: %v", i, err)
		}
	}

	err := f.svc.ResendVerification(ctx, "identity-1@example.com")
	var limited *RateLimitExceededError
	if !errors.As(err, &limited) {
		t.Fatalf("expected RateLimitExceededError, got %v", err)
	}
}

func TestAddEmailToWalletIdentity(t *testing.T) {
	wallet := "0xabc"
	f := newVerificationFixture(t, domain.Identity{ID: "identity-1", WalletAddress: &wallet})
	ctx := context.Background()

	if err := f.svc.AddEmail(ctx, "identity-1", "New.User@Example.com"); err != nil {
		t.Fatalf("AddEmail returned error: %v", err)
	}

	identity := f.identities.get("identity-1")
	if identity.Email == nil || *identity.Email != "new.user@example.com" {
		t.Fatalf("expected lowered email stored, got %+v", identity.Email)
	}
	if identity.EmailVerifiedAt != nil {
		t.Fatal("a freshly attached email must be unverified")
	}

	if sent := f.mail.lastSend(); sent == nil || sent.kind != port.MailKindVerificationLink {
		t.Fatalf("expected verification mail, got %+v", sent)
	}
}

func TestAddEmailTakenByAnotherIdentity(t *testing.T) {
	wallet := "0xabc"
	f := newVerificationFixture(t,
		domain.Identity{ID: "identity-1", WalletAddress: &wallet},
		testIdentity("identity-2"),
	)

	err := f.svc.AddEmail(context.Background(), "identity-1", "identity-2@example.com")
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAddEmailAlreadyOwnAddress(t *testing.T) {
	f := newVerificationFixture(t, testIdentity("identity-1"))

	err := f.svc.AddEmail(context.Background(), "identity-1", "identity-1@example.com")
	if !errors.Is(err, ErrEmailAlreadyVerified) {
		t.Fatalf("expected ErrEmailAlreadyVerified, got %v", err)
	}
}

func TestAddEmailUnknownIdentity(t *testing.T) {
	f := newVerificationFixture(t)

	err := f.svc.AddEmail(context.Background(), "ghost", "ghost@example.com")
	if !errors.Is(err, ErrIdentityNotFound) {
		t.Fatalf("expected ErrIdentityNotFound, got %v", err)
	}
}

func TestAddEmailDeliveryFailureSurfaces(t *testing.T) {
	wallet := "0xabc"
	f := newVerificationFixture(t, domain.Identity{ID: "identity-1", WalletAddress: &wallet})
	f.mail.fail = errors.New("smtp unreachable")

	err := f.svc.AddEmail(context.Background(), "identity-1", "new.user@example.com")
	if !errors.Is(err, ErrMailDelivery) {
		t.Fatalf("expected ErrMailDelivery, got %v", err)
	}
}
