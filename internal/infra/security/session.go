package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yessinemaalej/armeniancoin-auth/internal/core/domain"
)

var (
	// ErrSessionInvalid indicates the assertion is malformed or its signature
	// does not match the configured secret.
	ErrSessionInvalid = errors.New("session: assertion invalid")
	// ErrSessionExpired indicates a well-formed assertion past its expiry.
	ErrSessionExpired = errors.New("session: assertion expired")
)

const defaultSessionTTL = 7 * 24 * time.Hour

// SessionClaims are the statements embedded in a signed session assertion.
// Once issued they are immutable; a later role or email change only takes
// effect when the assertion is reissued.
type SessionClaims struct {
	IdentityID    string      `json:"uid"`
	Role          domain.Role `json:"role"`
	Email         string      `json:"email,omitempty"`
	WalletAddress string      `json:"wallet,omitempty"`
	jwt.RegisteredClaims
}

// SessionCodec signs and verifies session assertions with an HMAC secret.
// Verification is a pure in-process check; it performs no I/O.
type SessionCodec struct {
	secret     []byte
	issuer     string
	defaultTTL time.Duration
	now        func() time.Time
}

// NewSessionCodec constructs a codec for the supplied secret.
func NewSessionCodec(secret, issuer string, defaultTTL time.Duration) (*SessionCodec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("session: secret is required")
	}
	if defaultTTL <= 0 {
		defaultTTL = defaultSessionTTL
	}

	return &SessionCodec{
		secret:     []byte(secret),
		issuer:     strings.TrimSpace(issuer),
		defaultTTL: defaultTTL,
		now:        time.Now,
	}, nil
}

// WithClock overrides the codec clock, used in tests.
func (c *SessionCodec) WithClock(clock func() time.Time) {
	if clock != nil {
		c.now = clock
	}
}

// Issue signs a session assertion for the claims with the given ttl.
// A non-positive ttl selects the configured default.
func (c *SessionCodec) Issue(claims SessionClaims, ttl time.Duration) (string, error) {
	if strings.TrimSpace(claims.IdentityID) == "" {
		return "", fmt.Errorf("session: identity id is required")
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	now := c.now().UTC()
	claims.Issuer = c.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("session: sign assertion: %w", err)
	}

	return signed, nil
}

// Verify checks signature and expiry, returning the embedded claims.
// Expiry and signature failures are distinguishable so callers can offer
// "sign in again" versus "malformed token" responses.
func (c *SessionCodec) Verify(assertion string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(assertion, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return c.now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrSessionInvalid
	}

	if !token.Valid || strings.TrimSpace(claims.IdentityID) == "" {
		return nil, ErrSessionInvalid
	}

	return claims, nil
}

// DecodeUnverified extracts claims without checking the signature. It exists
// for best-effort diagnostic display only and must never gate authorization.
func (c *SessionCodec) DecodeUnverified(assertion string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(assertion, claims); err != nil {
		return nil, ErrSessionInvalid
	}
	return claims, nil
}
