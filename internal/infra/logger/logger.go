// Package logger owns the process-wide zap logger and the masking helpers
// that keep PII out of the log stream.
package logger

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	lg   *zap.Logger
	once sync.Once
)

// New builds the singleton logger. Production gets the JSON encoder;
// every other environment gets the colored console encoder.
func New(env string) (*zap.Logger, error) {
	var err error
	once.Do(func() {
		var cfg zap.Config
		if env == "production" {
			cfg = zap.NewProductionConfig()
		} else {
			cfg = zap.NewDevelopmentConfig()
			cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		lg, err = cfg.Build()
	})

	return lg, err
}

// RequestIDKey is the context key under which the request id travels.
type RequestIDKey struct{}

// WithContext returns the singleton annotated with the request id found on
// ctx, if any. Callers before New() get a throwaway development logger.
func WithContext(ctx context.Context) *zap.Logger {
	if lg == nil {
		fallback, _ := zap.NewDevelopment()
		return fallback
	}
	if ctx == nil {
		return lg
	}

	id, _ := ctx.Value(RequestIDKey{}).(string)
	return lg.With(zap.String("request_id", id))
}

// MaskEmail keeps up to the first three characters of the local part and the
// full domain. joh***@example.com stays attributable without being a usable
// address.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}

	at := strings.IndexByte(email, '@')
	if at < 0 {
		return "***"
	}

	local, domain := email[:at], email[at:]
	keep := len(local)
	if keep > 3 {
		keep = 3
	}
	return local[:keep] + "***" + domain
}

// MaskWallet keeps the 0x prefix plus four characters and the final four,
// enough to eyeball-match an address across log lines.
func MaskWallet(wallet string) string {
	if wallet == "" {
		return ""
	}
	if len(wallet) <= 10 {
		return "***"
	}

	return wallet[:6] + "***" + wallet[len(wallet)-4:]
}

// MaskIP keeps the first two IPv4 octets or the first four IPv6 groups.
func MaskIP(ip string) string {
	if ip == "" {
		return ""
	}

	if octets := strings.Split(ip, "."); len(octets) == 4 {
		return octets[0] + "." + octets[1] + ".*.*"
	}
	if groups := strings.Split(ip, ":"); len(groups) >= 4 {
		return strings.Join(groups[:4], ":") + ":*:*:*:*"
	}

	return "***"
}
