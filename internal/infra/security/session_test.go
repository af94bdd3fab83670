package security

import (
	"errors"
	"testing"
	"time"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/domain"
)

func newTestCodec(t *testing.T) *SessionCodec {
	t.Helper()

	codec, err := NewSessionCodec("unit-test-secret-with-enough-entropy", "armeniancoin", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionCodec returned error: %v", err)
	}
	return codec
}

func TestSessionCodecIssueAndVerify(t *testing.T) {
	codec := newTestCodec(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	codec.WithClock(func() time.Time { return base })

	signed, err := codec.Issue(SessionClaims{
		IdentityID:    "identity-1",
		Role:          domain.RoleUser,
		Email:         "user@example.com",
		WalletAddress: "0xabc",
	}, 0)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims, err := codec.Verify(signed)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}

	if claims.IdentityID != "identity-1" {
		t.Fatalf("unexpected identity id: %s", claims.IdentityID)
	}
	if claims.Role != domain.RoleUser {
		t.Fatalf("unexpected role: %s", claims.Role)
	}
	if claims.Email != "user@example.com" {
		t.Fatalf("unexpected email: %s", claims.Email)
	}
	if claims.WalletAddress != "0xabc" {
		t.Fatalf("unexpected wallet: %s", claims.WalletAddress)
	}
	if got := claims.ExpiresAt.Time; !got.Equal(base.Add(time.Hour)) {
		t.Fatalf("unexpected expiry: %v", got)
	}
}

func TestSessionCodecVerifyBeforeExpiry(t *testing.T) {
	codec := newTestCodec(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	codec.WithClock(func() time.Time { return base })

	signed, err := codec.Issue(SessionClaims{IdentityID: "identity-1"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	codec.WithClock(func() time.Time { return base.Add(time.Hour - time.Second) })
	if _, err := codec.Verify(signed); err != nil {
		t.Fatalf("Verify just before expiry returned error: %v", err)
	}
}

func TestSessionCodecVerifyExpired(t *testing.T) {
	codec := newTestCodec(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	codec.WithClock(func() time.Time { return base })

	signed, err := codec.Issue(SessionClaims{IdentityID: "identity-1"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	codec.WithClock(func() time.Time { return base.Add(time.Hour + time.Minute) })

	_, err = codec.Verify(signed)
	if !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
}

func TestSessionCodecVerifyWrongSecret(t *testing.T) {
	codec := newTestCodec(t)

	signed, err := codec.Issue(SessionClaims{IdentityID: "identity-1"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	other, err := NewSessionCodec("a-completely-different-secret-value", "armeniancoin", time.Hour)
	if err != nil {
		t.Fatalf("NewSessionCodec returned error: %v", err)
	}

	_, err = other.Verify(signed)
	if !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}
}

func TestSessionCodecVerifyGarbage(t *testing.T) {
	codec := newTestCodec(t)

	_, err := codec.Verify("not.a.token")
	if !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid, got %v", err)
	}
}

func TestSessionCodecIssueRequiresIdentity(t *testing.T) {
	codec := newTestCodec(t)

	if _, err := codec.Issue(SessionClaims{}, time.Hour); err == nil {
		t.Fatal("expected error for missing identity id")
	}
}

func TestSessionCodecDecodeUnverified(t *testing.T) {
	codec := newTestCodec(t)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	codec.WithClock(func() time.Time { return base })

	signed, err := codec.Issue(SessionClaims{IdentityID: "identity-1"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	// An expired assertion still decodes for diagnostic display.
	codec.WithClock(func() time.Time { return base.Add(48 * time.Hour) })

	claims, err := codec.DecodeUnverified(signed)
	if err != nil {
		t.Fatalf("DecodeUnverified returned error: %v", err)
	}
	if claims.IdentityID != "identity-1" {
		t.Fatalf("unexpected identity id: %s", claims.IdentityID)
	}
}

func TestNewSessionCodecRequiresSecret(t *testing.T) {
	if _, err := NewSessionCodec("  ", "issuer", time.Hour); err == nil {
		t.Fatal("expected error for blank secret")
	}
}
